package state

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is a snapshot together with the time it was stored.
type Entry struct {
	Snapshot  *Snapshot
	UpdatedAt time.Time
}

// Holder is a thread-safe in-memory snapshot holder, keyed by reactor
// ID. A background goroutine (Run) periodically evicts entries that
// have not been updated within the configured TTL.
type Holder struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// NewHolder creates a Holder with the given TTL.
func NewHolder(ttl time.Duration) *Holder {
	return &Holder{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces the snapshot for snap.ReactorID.
// Callers must not modify snap after calling Put.
func (h *Holder) Put(snap *Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data[snap.ReactorID] = &Entry{
		Snapshot:  snap,
		UpdatedAt: h.now(),
	}
}

// Get returns the Entry for the given reactor ID and a boolean
// indicating whether one was found. The entry may be stale if TTL has
// elapsed.
func (h *Holder) Get(reactorID string) (*Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.data[reactorID]
	return e, ok
}

// List returns all entries whose UpdatedAt is within the TTL. Stale
// entries that have not yet been evicted are excluded.
func (h *Holder) List() []*Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cutoff := h.now().Add(-h.ttl)
	out := make([]*Entry, 0, len(h.data))
	for _, e := range h.data {
		if e.UpdatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the total number of entries currently held, including
// stale ones.
func (h *Holder) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (h *Holder) Evict(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	cutoff := now.Add(-h.ttl)
	removed := 0
	for id, e := range h.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(h.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) so entries are evicted promptly. Run
// blocks until ctx is cancelled.
func (h *Holder) Run(ctx context.Context) {
	interval := h.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := h.Evict(now); n > 0 {
				slog.Debug("state: evicted stale snapshots", "count", n)
			}
		}
	}
}
