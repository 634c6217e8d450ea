// Package postgres provides PostgreSQL implementations of the store
// interfaces, the embedded goose migrations that create their tables, and a
// helper to open a pooled database/sql connection through the pgx driver.
package postgres
