package state

import (
	"time"

	"github.com/reactorwatch/reactorwatch/internal/detect"
	"github.com/reactorwatch/reactorwatch/internal/metrics"
)

// Health classifies a reactor's dissolved-oxygen condition.
type Health string

const (
	// Healthy means DO is above the low-water threshold.
	Healthy Health = "healthy"
	// Attention means DO is between the critical and low thresholds.
	Attention Health = "attention"
	// Critical means DO is at or below the critical threshold.
	Critical Health = "critical"
	// Unknown means no recent sample exists to judge from.
	Unknown Health = "unknown"
)

// ClassifyDO maps a DO reading onto a Health state given the configured
// low and critical thresholds.
func ClassifyDO(do, low, critical float64) Health {
	switch {
	case do <= critical:
		return Critical
	case do <= low:
		return Attention
	default:
		return Healthy
	}
}

// Snapshot is one reactor's view after an analysis cycle.
type Snapshot struct {
	ReactorID string    `json:"reactor_id"`
	Timestamp time.Time `json:"timestamp"`
	Health    Health    `json:"health"`

	// Latest sensor readings, zero-valued when Health is Unknown.
	DO               float64 `json:"do_value"`
	PH               float64 `json:"ph_value"`
	Temperature      float64 `json:"temperature"`
	ReactorWeight    float64 `json:"reactor_weight"`
	FeedBottleWeight float64 `json:"feed_bottle_weight"`

	// DoSaturation is the stability estimator's baseline, nil while it
	// has never seen a stable stretch.
	DoSaturation *float64 `json:"do_saturation,omitempty"`

	// LastEvent and Metrics describe the most recent feed event and its
	// response analysis; nil before the first event.
	LastEvent *detect.Event   `json:"last_event,omitempty"`
	Metrics   *metrics.Result `json:"metrics,omitempty"`
}
