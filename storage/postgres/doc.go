// Package postgres is the pgx-backed implementation of the auth service's
// Storage contract, with the schema shipped as embedded goose migrations.
//
// Uniqueness of emails (case-insensitive, via a lower(email) index) and
// usernames is enforced here and surfaced as the auth package's sentinel
// errors, so concurrent registrations race safely at the database. Token
// redemption pairs the used-flag update with the state change it authorizes
// inside one transaction.
package postgres
