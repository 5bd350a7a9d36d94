package alerting

import (
	"context"
	"errors"
	"strings"

	"github.com/Daskott/lifealert/server/dispatch"
	"github.com/Daskott/lifealert/server/models"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrMissingData = errors.New("Missing data")
	ErrNoContacts  = errors.New("No emergency contacts configured")
)

type Store interface {
	FindContactList(userID string) (*models.ContactList, error)
	CreateAlert(alert *models.Alert) error
}

type Publisher interface {
	Publish(alert models.Alert) int
}

// Request is the body of an alert submission. Coordinates are pointers so a
// missing value can be told apart from 0.
type Request struct {
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	UserID string   `json:"userId"`
}

func (req Request) Validate() error {
	if req.Lat == nil || req.Lng == nil || strings.TrimSpace(req.UserID) == "" {
		return ErrMissingData
	}
	return nil
}

type Outcome struct {
	AlertID    string            `json:"alert_id"`
	Delivered  int               `json:"delivered"`
	Failed     int               `json:"failed"`
	Deliveries []dispatch.Result `json:"deliveries"`
}

type Service struct {
	store      Store
	dispatcher *dispatch.Dispatcher
	publisher  Publisher
	logg       *zap.SugaredLogger
}

// NewService wires the alert workflow. publisher may be nil when new alerts
// reach the change feed some other way e.g postgres notifications.
func NewService(store Store, dispatcher *dispatch.Dispatcher, publisher Publisher, logg *zap.SugaredLogger) *Service {
	return &Service{store: store, dispatcher: dispatcher, publisher: publisher, logg: logg}
}

// Submit validates req, looks up the user's contacts, notifies each of them and
// logs the alert. An error is only returned for validation & lookup failures;
// per-recipient failures are reported in the Outcome.
func (s *Service) Submit(ctx context.Context, req Request) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	contactList, err := s.store.FindContactList(req.UserID)
	if errors.Is(err, models.ErrNoContactList) {
		return nil, ErrNoContacts
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find contact list")
	}

	phones, emails := contactList.Recipients()
	s.logg.Infow("sending alert", "user_id", req.UserID, "phones", len(phones), "emails", len(emails))

	loc := dispatch.Location{Latitude: *req.Lat, Longitude: *req.Lng}
	results := s.dispatcher.Dispatch(ctx, loc, phones, emails)
	delivered, failed := dispatch.Tally(results)

	outcome := &Outcome{Delivered: delivered, Failed: failed, Deliveries: results}
	outcome.AlertID = s.logAlert(req.UserID, loc, models.AlertStatus(delivered, failed))

	return outcome, nil
}

// logAlert is best-effort, notifications already went out
func (s *Service) logAlert(userID string, loc dispatch.Location, status string) string {
	alert := &models.Alert{
		UserID:    userID,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Status:    status,
	}

	if err := s.store.CreateAlert(alert); err != nil {
		s.logg.Errorf("failed to log alert for user %v: %v", userID, err)
		return ""
	}

	if s.publisher != nil {
		s.publisher.Publish(*alert)
	}

	return alert.ID
}
