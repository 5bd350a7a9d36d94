package models

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/Daskott/lifealert/shared"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// ALERT_NOTIFY_CHANNEL is the postgres channel that receives every inserted alert row as JSON
const ALERT_NOTIFY_CHANNEL = "alerts_inserted"

const alertNotifyTriggerSQL = `
CREATE OR REPLACE FUNCTION notify_alert_inserted() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + ALERT_NOTIFY_CHANNEL + `', row_to_json(NEW)::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS alerts_inserted_trigger ON alerts;
CREATE TRIGGER alerts_inserted_trigger AFTER INSERT ON alerts
	FOR EACH ROW EXECUTE PROCEDURE notify_alert_inserted();
`

// Open connects to the configured store, migrates the schema & inserts seed data
func Open(config shared.DatabaseConfig, logg *zap.SugaredLogger) (*Store, error) {
	var dialector gorm.Dialector

	switch config.Driver {
	case shared.SQLITE_DRIVER:
		dialector = sqlite.Open(config.Dsn)
	case shared.POSTGRES_DRIVER:
		dialector = postgres.Open(config.Dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect database")
	}

	store := NewStore(db)
	if err := store.AutoMigrate(logg); err != nil {
		return nil, err
	}

	return store, nil
}

// AutoMigrate auto-migrates db schema and inserts seed data
func (s *Store) AutoMigrate(logg *zap.SugaredLogger) error {
	err := s.db.AutoMigrate(&Role{}, &User{}, &ContactList{}, &Alert{})
	if err != nil {
		return pkgerrors.Wrap(err, "auto migrate")
	}

	if s.Dialect() == shared.POSTGRES_DRIVER {
		if err := s.db.Exec(alertNotifyTriggerSQL).Error; err != nil {
			return pkgerrors.Wrap(err, "install alert notify trigger")
		}
	}

	if err := s.db.First(&Role{}).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		logg.Info("Inserting seed data into 'Role'")
		err = s.db.Create(&[]Role{{Name: ADMIN_USER_ROLE}, {Name: BASIC_USER_ROLE}}).Error
		if err != nil {
			return pkgerrors.Wrap(err, "seed roles")
		}
	}

	return nil
}

// InitializeTestDb returns a migrated store backed by a private in-memory sqlite db
func InitializeTestDb() (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	return Open(shared.DatabaseConfig{Driver: shared.SQLITE_DRIVER, Dsn: dsn}, zap.NewNop().Sugar())
}
