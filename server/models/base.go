package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID        string    `json:"id,omitempty" gorm:"primarykey;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// BeforeCreate assigns a uuid when the caller did not set one.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	return nil
}

// Store is the handle to the relational store. One is constructed per process
// and passed to whatever needs it.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying gorm handle, e.g for closing or raw queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Dialect returns the name of the gorm dialector in use i.e "sqlite" or "postgres"
func (s *Store) Dialect() string {
	return s.db.Dialector.Name()
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
