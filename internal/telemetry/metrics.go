package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reactorwatch/reactorwatch/internal/state"
)

var (
	// DOValue mirrors the latest dissolved-oxygen reading per reactor.
	DOValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reactorwatch_do_mg_per_l",
			Help: "Latest dissolved oxygen reading (mg/L)",
		},
		[]string{"reactor"},
	)

	// DOSaturation is the stability estimator's current baseline.
	DOSaturation = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reactorwatch_do_saturation_mg_per_l",
			Help: "Estimated DO saturation baseline (mg/L)",
		},
		[]string{"reactor"},
	)

	// DropRate is the latest post-feed DO drop rate.
	DropRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reactorwatch_do_drop_rate_mg_per_l_s",
			Help: "DO drop rate after the latest feed event (mg/L/s, negative = falling)",
		},
		[]string{"reactor"},
	)

	// OUR is the latest oxygen uptake rate.
	OUR = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reactorwatch_our_mg_per_l_h",
			Help: "Oxygen uptake rate after the latest feed event (mg O2/L/h)",
		},
		[]string{"reactor"},
	)

	// SOUR is the latest specific oxygen uptake rate.
	SOUR = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reactorwatch_sour_mg_per_g_h",
			Help: "Specific oxygen uptake rate after the latest feed event (mg O2/g/h)",
		},
		[]string{"reactor"},
	)

	// FeedEventsTotal counts feed events by how they entered the system.
	FeedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactorwatch_feed_events_total",
			Help: "Total feed events recorded",
		},
		[]string{"reactor", "feed_type"},
	)

	// CycleDuration observes how long analysis cycles take.
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reactorwatch_cycle_duration_seconds",
			Help:    "Analysis cycle duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"reactor"},
	)

	// CycleErrors counts cycles whose sample fetch failed.
	CycleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactorwatch_cycle_fetch_errors_total",
			Help: "Total analysis cycles whose sensor fetch failed",
		},
		[]string{"reactor"},
	)
)

// ObserveSnapshot publishes a reactor snapshot's values as gauges.
func ObserveSnapshot(snap *state.Snapshot) {
	DOValue.WithLabelValues(snap.ReactorID).Set(snap.DO)
	if snap.DoSaturation != nil {
		DOSaturation.WithLabelValues(snap.ReactorID).Set(*snap.DoSaturation)
	}
	if m := snap.Metrics; m != nil && !m.InsufficientData {
		DropRate.WithLabelValues(snap.ReactorID).Set(m.DropRate)
		if m.OUR != nil {
			OUR.WithLabelValues(snap.ReactorID).Set(*m.OUR)
		}
		if m.SOUR != nil {
			SOUR.WithLabelValues(snap.ReactorID).Set(*m.SOUR)
		}
	}
}
