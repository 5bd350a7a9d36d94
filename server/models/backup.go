package models

import (
	"os"

	"github.com/Daskott/lifealert/shared"
	"github.com/pkg/errors"
)

const SQLITE_BACKUP_NAME = "lifealert.db"

// BackupSqlite writes a consistent copy of the sqlite db to destPath,
// replacing any file already there.
func (s *Store) BackupSqlite(destPath string) error {
	if s.Dialect() != shared.SQLITE_DRIVER {
		return errors.Errorf("backup is only supported for sqlite, got %v", s.Dialect())
	}

	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove stale backup")
	}

	return errors.Wrap(s.db.Exec("VACUUM INTO ?", destPath).Error, "vacuum into backup")
}
