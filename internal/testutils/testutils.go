package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/dmflow/internal/database"
)

// NewTestDB returns a migrated SQLite database in a temp dir that is closed
// when the test ends.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "dmflow_test.sqlite")
	db, err := database.NewConnection(database.DriverSQLite, dsn)
	require.NoError(t, err, "Failed to open test database")

	require.NoError(t, database.Migrate(context.Background(), db), "Failed to migrate test database")

	t.Cleanup(func() { db.Close() })
	return db
}

func StrPtr(s string) *string {
	return &s
}
