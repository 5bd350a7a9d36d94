package server

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Daskott/lifealert/server/cron"
	"github.com/Daskott/lifealert/server/gstorage"
	"github.com/Daskott/lifealert/shared"
	"github.com/Daskott/lifealert/utils"
	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const BACKUP_SQLITE_JOB = "backupSqliteDb"

func (s *Server) scheduleJobs(config *shared.ServerConfig) (*gocron.Scheduler, error) {
	scheduler := cron.NewCronScheduler(config.LifeAlert.Cron.TimeZone)

	_, err := scheduler.Cron(config.Google.Storage.SqliteBackupSchedule).Tag(BACKUP_SQLITE_JOB).Do(func() {
		if err := s.backupSqliteDb(config); err != nil {
			s.logg.Errorf("%v: %v", BACKUP_SQLITE_JOB, err)
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "schedule sqlite backup")
	}

	return scheduler, nil
}

// backupSqliteDb snapshots the db into a temp file and uploads it to google storage
func (s *Server) backupSqliteDb(config *shared.ServerConfig) error {
	ctx := context.Background()

	tmpDir, err := os.MkdirTemp("", "lifealert-backup")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, "snapshot.db")
	if err := s.store.BackupSqlite(snapshot); err != nil {
		return err
	}

	gs, err := gstorage.NewGStorage(ctx, config.Google.ApplicationCredentials)
	if err != nil {
		return err
	}
	defer gs.Close()

	object := backupObjectName(config.Google.Storage)
	if err := gs.UploadFile(ctx, config.Google.Storage.Bucket, object, snapshot); err != nil {
		return err
	}

	s.logg.Infof("sqlite db backed up to gs://%v/%v", config.Google.Storage.Bucket, object)
	return nil
}

// restoreSqliteDb pulls the last backup from google storage when there is no local db yet
func restoreSqliteDb(config *shared.ServerConfig, logg *zap.SugaredLogger) error {
	dbPath := sqliteFilePath(config.Database.Dsn)
	if dbPath == "" || utils.FileExist(dbPath) {
		return nil
	}

	if err := utils.CreateDirIfNotExist(filepath.Dir(dbPath)); err != nil {
		return err
	}

	ctx := context.Background()
	gs, err := gstorage.NewGStorage(ctx, config.Google.ApplicationCredentials)
	if err != nil {
		return err
	}
	defer gs.Close()

	object := backupObjectName(config.Google.Storage)
	err = gs.DownloadFile(ctx, config.Google.Storage.Bucket, object, dbPath)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		logg.Infof("No backup found at gs://%v/%v, starting with a new db", config.Google.Storage.Bucket, object)
		os.Remove(dbPath)
		return nil
	}
	if err != nil {
		os.Remove(dbPath)
		return err
	}

	logg.Infof("Restored sqlite db from gs://%v/%v", config.Google.Storage.Bucket, object)
	return nil
}
