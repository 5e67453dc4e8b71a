// Package publish ships accepted feed events to an external Kafka
// topic for downstream consumers (LIMS, data lake). Publishing is
// optional and best-effort; the event log remains the source of truth.
package publish
