package gstorage

import (
	"context"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

var ErrObjectNotExist = storage.ErrObjectNotExist

const transferTimeout = 50 * time.Second

type GStorage struct {
	storageClient *storage.Client
}

// NewGStorage uses the credentials file when given, otherwise application default credentials
func NewGStorage(ctx context.Context, credentialsFilePath string) (*GStorage, error) {
	var client *storage.Client
	var err error

	if credentialsFilePath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFilePath))
	} else {
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, errors.Wrap(err, "NewGStorage")
	}

	return &GStorage{storageClient: client}, nil
}

func (gs *GStorage) Close() error {
	return gs.storageClient.Close()
}

// UploadFile uploads the file at filePath as bucket/object
func (gs *GStorage) UploadFile(ctx context.Context, bucket, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return errors.Wrap(err, "os.Open")
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	wc := gs.storageClient.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err = io.Copy(wc, f); err != nil {
		wc.Close()
		return errors.Wrap(err, "io.Copy")
	}
	if err := wc.Close(); err != nil {
		return errors.Wrap(err, "Writer.Close")
	}

	return nil
}

// DownloadFile downloads bucket/object to destFileName. ErrObjectNotExist is
// returned unwrapped so callers can treat a missing backup as a fresh start.
func (gs *GStorage) DownloadFile(ctx context.Context, bucket, object, destFileName string) error {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	rc, err := gs.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return err
	}
	if err != nil {
		return errors.Wrapf(err, "Object(%q).NewReader", object)
	}
	defer rc.Close()

	f, err := os.OpenFile(destFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrap(err, "os.OpenFile")
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return errors.Wrap(err, "io.Copy")
	}

	return errors.Wrap(f.Close(), "f.Close")
}
