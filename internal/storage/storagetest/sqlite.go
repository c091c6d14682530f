// Package storagetest provides an in-memory storage.Service for tests.
package storagetest

import (
	"crypton/backend/internal/storage"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLite returns a migrated storage.Service backed by a private in-memory
// SQLite database. Redis is disabled.
func NewSQLite(t testing.TB) *storage.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	// Every connection to ":memory:" is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, storage.Migrate(db))
	return storage.NewStorageService(db, nil)
}
