// Package testutil provides the shared test database. Tests run the real
// schema against in-memory SQLite so guarded updates behave exactly as
// they do against PostgreSQL.
package testutil

import (
	"testing"

	"vm-rental/internal/db"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenTestDB returns a migrated, isolated in-memory database. The pool is
// pinned to one connection so the in-memory database survives for the
// whole test.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(database))
	return database
}
