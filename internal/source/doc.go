// Package source fetches reactor sensor samples from wherever the
// instrumentation writes them: a SQLite file, a Postgres database, or a
// Prometheus text endpoint exposed by the reactor controller.
package source
