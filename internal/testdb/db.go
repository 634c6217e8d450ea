package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/engage-api/internal/platform/logger"
	"github.com/phrazzld/engage-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// Environment variables consulted for the test database URL, in order.
const (
	EnvTestDatabaseURL = "ENGAGE_TEST_DATABASE_URL"
	EnvDatabaseURL     = "DATABASE_URL"
)

// TestTimeout bounds connecting to and migrating the test database.
const TestTimeout = 30 * time.Second

var migrateOnce sync.Once

// DatabaseURL returns the configured test database URL, or "".
func DatabaseURL() string {
	if url := os.Getenv(EnvTestDatabaseURL); url != "" {
		return url
	}
	return os.Getenv(EnvDatabaseURL)
}

// ShouldSkip reports whether no test database is configured.
func ShouldSkip() bool {
	return DatabaseURL() == ""
}

// Open connects to the test database and migrates it to the latest schema
// once per test binary. The test is skipped when no database is configured;
// the connection is closed when the test ends.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	if ShouldSkip() {
		t.Skipf("%s not set - skipping database test", EnvTestDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, DatabaseURL(), logger.Discard())
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	})

	var migrateErr error
	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(ctx, db, "up", logger.Discard())
	})
	require.NoError(t, migrateErr, "failed to migrate test database")

	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so
// nothing fn writes outlives the test.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		// sql.ErrTxDone is expected if fn already finished the transaction.
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("warning: failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}
