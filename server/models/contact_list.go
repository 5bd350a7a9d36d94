package models

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoContactList is returned when a user never saved any emergency contacts
var ErrNoContactList = errors.Wrap(gorm.ErrRecordNotFound, "no emergency contacts configured")

// ContactList holds a user's emergency contacts as the raw comma-separated
// strings they typed in. There is at most one per user.
type ContactList struct {
	UserID    string    `json:"user_id" gorm:"primarykey;type:varchar(36)"`
	Phones    string    `json:"phones"`
	Emails    string    `json:"emails"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ContactList) TableName() string {
	return "user_contacts"
}

// Recipients splits the stored strings into phone numbers & email addresses
func (cl *ContactList) Recipients() (phones []string, emails []string) {
	return SplitRecipients(cl.Phones), SplitRecipients(cl.Emails)
}

// SplitRecipients splits a comma-separated list, trimming whitespace and
// dropping empty entries. Entries are not validated.
func SplitRecipients(raw string) []string {
	recipients := []string{}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		recipients = append(recipients, token)
	}

	return recipients
}

// FindContactList returns ErrNoContactList when the user has no row
func (s *Store) FindContactList(userID string) (*ContactList, error) {
	contactList := ContactList{}
	err := s.db.First(&contactList, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoContactList
	}

	if err != nil {
		return nil, err
	}

	return &contactList, nil
}

// UpsertContactList creates or replaces the contact list keyed by contactList.UserID
func (s *Store) UpsertContactList(contactList *ContactList) error {
	contactList.UpdatedAt = time.Now()

	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"phones", "emails", "updated_at"}),
	}).Create(contactList).Error
}
