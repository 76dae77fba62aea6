// Package pg wires the service to PostgreSQL: pooled connections via pgx with
// startup retries, embedded goose migrations, error classification helpers
// (not-found, duplicate key, foreign key), and a health check probe.
package pg
