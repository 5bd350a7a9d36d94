package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SENT_ALERT          = "sent"
	PARTIAL_ALERT       = "partial"
	FAILED_ALERT        = "failed"
	NO_RECIPIENTS_ALERT = "no_recipients"
)

// Alert is one broadcast attempt. Rows are only ever inserted.
type Alert struct {
	ID        string    `json:"id" gorm:"primarykey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"not null;index"`
	Latitude  float64   `json:"latitude" gorm:"not null"`
	Longitude float64   `json:"longitude" gorm:"not null"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (alert *Alert) BeforeCreate(tx *gorm.DB) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	return nil
}

// AlertStatus summarises per-recipient outcomes
func AlertStatus(delivered, failed int) string {
	switch {
	case delivered == 0 && failed == 0:
		return NO_RECIPIENTS_ALERT
	case failed == 0:
		return SENT_ALERT
	case delivered == 0:
		return FAILED_ALERT
	default:
		return PARTIAL_ALERT
	}
}

// CreateAlert inserts alert with a server assigned id & created_at
func (s *Store) CreateAlert(alert *Alert) error {
	alert.ID = ""
	alert.CreatedAt = time.Now().UTC()
	return s.db.Create(alert).Error
}

// FetchAlerts returns alerts most-recent-first. An empty userID returns every user's alerts.
func (s *Store) FetchAlerts(userID string) ([]Alert, error) {
	alerts := []Alert{}

	query := s.db.Order("created_at DESC")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	err := query.Find(&alerts).Error
	if err != nil {
		return nil, err
	}

	return alerts, nil
}
