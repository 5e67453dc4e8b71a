package detect

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/series"
)

// FeedType labels how a feed event entered the system.
type FeedType string

const (
	FeedControl      FeedType = "control"
	FeedExperimental FeedType = "experimental"
	FeedAutoDetected FeedType = "auto_detected"
)

// KnownFeedType reports whether t is one of the recognised feed types.
func KnownFeedType(t FeedType) bool {
	switch t {
	case FeedControl, FeedExperimental, FeedAutoDetected:
		return true
	}
	return false
}

// Event is one feed event, automatic or operator-entered. Events are
// append-only: corrections are new events, never mutations.
type Event struct {
	Timestamp             time.Time          `json:"timestamp"`
	FeedType              FeedType           `json:"feed_type"`
	VolumeLiters          float64            `json:"volume_liters"`
	ReactorWeightDelta    float64            `json:"reactor_weight_delta"`
	FeedBottleWeightDelta float64            `json:"feed_bottle_weight_delta"`
	Composition           map[string]float64 `json:"composition,omitempty"`
	Operator              string             `json:"operator,omitempty"`
	Notes                 string             `json:"notes,omitempty"`
}

// Detector scans sample windows for feed events. It holds only the
// configured tolerances; cross-call state is threaded through Detect.
type Detector struct {
	weightThreshold float64 // grams
	noiseFilter     float64 // grams
	debounce        time.Duration
}

// NewDetector builds a Detector from the detection config.
func NewDetector(cfg config.DetectionConfig) *Detector {
	return &Detector{
		weightThreshold: cfg.WeightThresholdGrams,
		noiseFilter:     cfg.NoiseFilterGrams,
		debounce:        cfg.DebounceWindow,
	}
}

// Detect scans samples for feed events and returns them in chronological
// order together with the updated last-detection timestamp. The caller
// threads that timestamp into the next call; it is the debounce baseline
// and must survive across invocations. A zero lastDetection means no
// prior event.
//
// Unsorted or duplicated input is normalized, never rejected. An empty
// window returns no events and the unchanged lastDetection — "no data to
// evaluate" is a valid outcome, not an error.
func (d *Detector) Detect(samples series.Series, lastDetection time.Time) ([]Event, time.Time) {
	if len(samples) < 2 {
		return nil, lastDetection
	}
	samples = samples.Normalize()

	var events []Event
	for i := 1; i < len(samples); i++ {
		reactorDelta := samples[i].ReactorWeight - samples[i-1].ReactorWeight
		bottleDelta := samples[i].FeedBottleWeight - samples[i-1].FeedBottleWeight

		// Balance jitter below the noise floor is clamped to zero so it can
		// never stack up into a candidate.
		if math.Abs(reactorDelta) < d.noiseFilter {
			reactorDelta = 0
		}
		if math.Abs(bottleDelta) < d.noiseFilter {
			bottleDelta = 0
		}

		if math.Abs(reactorDelta) <= d.weightThreshold || math.Abs(bottleDelta) <= d.weightThreshold {
			continue
		}

		// Mass must move from the feed bottle into the reactor. Anything
		// else — sampling, a bumped balance — is silently dropped.
		if reactorDelta <= 0 || bottleDelta >= 0 {
			continue
		}

		ts := samples[i].Timestamp
		if !lastDetection.IsZero() && ts.Sub(lastDetection) < d.debounce {
			continue
		}

		ev := Event{
			Timestamp:             ts,
			FeedType:              FeedAutoDetected,
			VolumeLiters:          math.Abs(bottleDelta) / 1000, // 1 g ≈ 1 mL feed solution
			ReactorWeightDelta:    reactorDelta,
			FeedBottleWeightDelta: bottleDelta,
			Operator:              "AUTO_DETECT",
			Notes: fmt.Sprintf("Automatically detected feed event. Reactor weight change: %.2fg, Feed bottle change: %.2fg",
				reactorDelta, bottleDelta),
		}
		events = append(events, ev)
		lastDetection = ts

		slog.Info("detect: feed event accepted",
			"timestamp", ts,
			"volume_l", ev.VolumeLiters,
			"reactor_delta_g", reactorDelta,
			"bottle_delta_g", bottleDelta,
		)
	}
	return events, lastDetection
}
