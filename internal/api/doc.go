// Package api is the HTTP surface of the monitor: reactor state,
// feed-event history and manual entry, alerts, scientific export and
// annotations. All endpoints speak JSON under /api/v1.
package api
