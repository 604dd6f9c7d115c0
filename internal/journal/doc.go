// Package journal persists the connection manager's events to PostgreSQL.
//
// Every log entry, error notification, and status change becomes one row in
// connection_log, tagged with the session ID of the connection attempt it
// belongs to. Rows are batched and written with pgx batches; the table is
// append-only.
package journal
