package stability

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/series"
)

// minWindowSamples is the smallest window over which a standard
// deviation is a defined statistic worth trusting.
const minWindowSamples = 3

// Estimator derives and holds the DO saturation baseline.
//
// Saturation and Update are safe for concurrent use; callers that need
// a consistent value across one analysis cycle should snapshot it once
// at cycle start.
type Estimator struct {
	window    time.Duration
	threshold float64 // mg/L

	mu         sync.Mutex
	saturation float64
	known      bool
}

// NewEstimator builds an Estimator from the stability config. The
// estimate starts unknown and is reset only by constructing a new
// Estimator.
func NewEstimator(cfg config.StabilityConfig) *Estimator {
	return &Estimator{window: cfg.Window, threshold: cfg.Threshold}
}

// ComputeSaturation classifies each sample's trailing window as stable
// or not and returns the median DO value across the stable samples.
// Returns false when fewer than two samples are supplied or no window
// qualifies — a saturation value is never fabricated.
func (e *Estimator) ComputeSaturation(samples series.Series) (float64, bool) {
	if len(samples) < 2 {
		return 0, false
	}
	samples = samples.Normalize()

	interval, ok := samples.MedianInterval()
	if !ok || interval <= 0 {
		return 0, false
	}

	winLen := int(e.window / interval)
	if winLen < minWindowSamples {
		winLen = minWindowSamples
	}
	if winLen > len(samples) {
		winLen = len(samples)
	}

	// Sliding sums keep the rolling std-dev O(n).
	var sum, sumSq float64
	var stable []float64
	for i, smp := range samples {
		sum += smp.DO
		sumSq += smp.DO * smp.DO
		if i >= winLen {
			old := samples[i-winLen].DO
			sum -= old
			sumSq -= old * old
		}
		if i < winLen-1 {
			continue
		}
		if sampleStdDev(sum, sumSq, winLen) <= e.threshold {
			stable = append(stable, smp.DO)
		}
	}

	if len(stable) == 0 {
		return 0, false
	}
	return median(stable), true
}

// Update recomputes the saturation from samples and overwrites the held
// estimate only when a value is derivable. A transient absence of
// stable windows must not erase a previously known good baseline.
func (e *Estimator) Update(samples series.Series) {
	sat, ok := e.ComputeSaturation(samples)
	if !ok {
		return
	}

	e.mu.Lock()
	prev, had := e.saturation, e.known
	e.saturation = sat
	e.known = true
	e.mu.Unlock()

	if !had || math.Abs(prev-sat) > 1e-9 {
		slog.Debug("stability: DO saturation updated", "saturation_mg_l", sat)
	}
}

// Saturation returns the current estimate and whether one is known.
func (e *Estimator) Saturation() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saturation, e.known
}

// sampleStdDev computes the n-1 weighted standard deviation from
// sliding sums. Floating point cancellation can push the variance a
// hair below zero; clamp it.
func sampleStdDev(sum, sumSq float64, n int) float64 {
	fn := float64(n)
	variance := (sumSq - sum*sum/fn) / (fn - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
