// Package postgres implements the collector's metadata store on PostgreSQL
// through a pgx connection pool.
//
// It mirrors the SQLite schema with native types: TIMESTAMPTZ timestamps,
// TEXT[] snippet and error lists and a JSONB analysis payload. Migrations are
// embedded and applied under an advisory lock so several collectors can share
// one database.
package postgres
