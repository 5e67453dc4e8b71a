// Package state holds the latest analysis snapshot per reactor. The
// holder is in-memory with TTL eviction; the durable record lives in
// the feed-event log, not here.
package state
