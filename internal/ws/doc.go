// Package ws streams reactor state to WebSocket clients: a periodic
// full snapshot plus an immediate push whenever an analysis cycle
// stores a new reactor snapshot.
package ws
