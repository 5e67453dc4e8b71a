package state

import (
	"sync"
	"testing"
	"time"
)

func snap(id string) *Snapshot {
	return &Snapshot{ReactorID: id, Health: Healthy, DO: 6.0}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestPutAndGet(t *testing.T) {
	h := NewHolder(5 * time.Minute)
	h.Put(snap("R1"))

	e, ok := h.Get("R1")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if e.Snapshot.ReactorID != "R1" {
		t.Errorf("ReactorID: got %q, want R1", e.Snapshot.ReactorID)
	}
}

func TestGet_Missing(t *testing.T) {
	h := NewHolder(5 * time.Minute)
	if _, ok := h.Get("unknown"); ok {
		t.Fatal("Get on empty holder: expected false, got true")
	}
}

func TestPut_Overwrites(t *testing.T) {
	h := NewHolder(5 * time.Minute)
	h.Put(&Snapshot{ReactorID: "R1", Health: Healthy})
	h.Put(&Snapshot{ReactorID: "R1", Health: Critical})

	e, ok := h.Get("R1")
	if !ok {
		t.Fatal("Get: expected entry after two Puts")
	}
	if e.Snapshot.Health != Critical {
		t.Errorf("Health: got %q, want critical", e.Snapshot.Health)
	}
}

func TestList_ExcludesStale(t *testing.T) {
	base := time.Now()
	h := NewHolder(5 * time.Minute)

	h.now = fixedClock(base.Add(-10 * time.Minute)) // stale
	h.Put(snap("old"))

	h.now = fixedClock(base) // live
	h.Put(snap("new"))

	entries := h.List()
	if len(entries) != 1 {
		t.Fatalf("List: got %d entries, want 1", len(entries))
	}
	if entries[0].Snapshot.ReactorID != "new" {
		t.Errorf("List[0].ReactorID: got %q, want new", entries[0].Snapshot.ReactorID)
	}
}

func TestEvict_RemovesStale(t *testing.T) {
	base := time.Now()
	h := NewHolder(5 * time.Minute)

	h.now = fixedClock(base.Add(-10 * time.Minute))
	h.Put(snap("old1"))
	h.Put(snap("old2"))

	h.now = fixedClock(base)
	h.Put(snap("live"))

	if removed := h.Evict(base); removed != 2 {
		t.Errorf("Evict: removed %d, want 2", removed)
	}
	if h.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", h.Count())
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	h := NewHolder(5 * time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Put(snap("R1"))
		}()
		go func() {
			defer wg.Done()
			h.List()
		}()
	}
	wg.Wait()

	if h.Count() != 1 {
		t.Errorf("Count after concurrent puts: got %d, want 1", h.Count())
	}
}

func TestClassifyDO(t *testing.T) {
	tests := []struct {
		name string
		do   float64
		want Health
	}{
		{"well above low", 6.0, Healthy},
		{"just above low", 2.01, Healthy},
		{"at low", 2.0, Attention},
		{"between thresholds", 1.5, Attention},
		{"at critical", 1.0, Critical},
		{"below critical", 0.2, Critical},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyDO(tc.do, 2.0, 1.0); got != tc.want {
				t.Errorf("ClassifyDO(%v) = %q, want %q", tc.do, got, tc.want)
			}
		})
	}
}
