package server

import (
	"testing"

	"github.com/Daskott/lifealert/shared"
	"github.com/stretchr/testify/assert"
)

func TestSqliteFilePath(t *testing.T) {
	cases := []struct {
		dsn      string
		expected string
	}{
		{"lifealert.db", "lifealert.db"},
		{"file:/data/lifealert.db?_journal_mode=WAL", "/data/lifealert.db"},
		{"file:/data/../data/lifealert.db", "/data/lifealert.db"},
		{"file:abc?mode=memory&cache=shared", ""},
		{":memory:", ""},
		{"", ""},
	}

	for _, tcase := range cases {
		assert.Equal(t, tcase.expected, sqliteFilePath(tcase.dsn), tcase.dsn)
	}
}

func TestBackupObjectName(t *testing.T) {
	assert.Equal(t, "lifealert.db", backupObjectName(shared.StorageConfig{}))
	assert.Equal(t, "backups/lifealert.db", backupObjectName(shared.StorageConfig{Prefix: "backups/"}))
	assert.Equal(t, "backups/lifealert.db", backupObjectName(shared.StorageConfig{Prefix: "/backups"}))
}
