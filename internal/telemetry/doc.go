// Package telemetry exposes the monitor's own operational metrics to
// Prometheus. These describe the monitor, not the reactors; reactor
// values are mirrored as gauges for dashboarding convenience.
package telemetry
