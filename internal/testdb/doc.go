// Package testdb provides utilities for tests that run against a real
// PostgreSQL database.
//
// Each test runs in its own transaction, which WithTx rolls back when the
// test completes, so tests can share one migrated schema and run in parallel
// without cleanup:
//
//	func TestTaskStore(t *testing.T) {
//	    db := testdb.Open(t) // skips when no database is configured
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        tasks := postgres.NewPostgresTaskStore(tx, logger.Discard())
//	        ...
//	    })
//	}
//
// The database URL is read from ENGAGE_TEST_DATABASE_URL, falling back to
// DATABASE_URL.
package testdb
