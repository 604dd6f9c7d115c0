// Package database provides the PostgreSQL connection pool used by the journal.
package database
