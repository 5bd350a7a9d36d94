package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Daskott/lifealert/server/models"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var reconnectDelay = 5 * time.Second

// PGListener turns postgres notifications on the alerts channel into hub
// publications. It is the change feed when the store is postgres.
type PGListener struct {
	dsn  string
	hub  *Hub
	logg *zap.SugaredLogger
}

func NewPGListener(dsn string, hub *Hub, logg *zap.SugaredLogger) *PGListener {
	return &PGListener{dsn: dsn, hub: hub, logg: logg}
}

// Run listens until ctx is cancelled, reconnecting after connection errors
func (l *PGListener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}

		l.logg.Errorf("alert listener: %v, reconnecting in %v", err, reconnectDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+models.ALERT_NOTIFY_CHANNEL); err != nil {
		return errors.Wrap(err, "listen")
	}
	l.logg.Infof("Listening for new alerts on channel '%v'", models.ALERT_NOTIFY_CHANNEL)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return errors.Wrap(err, "wait for notification")
		}

		alert, err := DecodeAlert(notification.Payload)
		if err != nil {
			l.logg.Errorf("alert listener: %v", err)
			continue
		}

		l.hub.Publish(*alert)
	}
}

// DecodeAlert parses the row_to_json payload sent by the alerts trigger
func DecodeAlert(payload string) (*models.Alert, error) {
	alert := models.Alert{}
	if err := json.Unmarshal([]byte(payload), &alert); err != nil {
		return nil, errors.Wrap(err, "decode alert payload")
	}

	return &alert, nil
}
