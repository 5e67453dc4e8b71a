// Package store persists feed events in a SQLite database. The log is
// append-only: events are never updated or deleted, corrections are
// appended as new events.
package store
