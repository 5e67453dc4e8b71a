package cycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/reactorwatch/reactorwatch/internal/alerts"
	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/detect"
	"github.com/reactorwatch/reactorwatch/internal/metrics"
	"github.com/reactorwatch/reactorwatch/internal/publish"
	"github.com/reactorwatch/reactorwatch/internal/series"
	"github.com/reactorwatch/reactorwatch/internal/source"
	"github.com/reactorwatch/reactorwatch/internal/stability"
	"github.com/reactorwatch/reactorwatch/internal/state"
	"github.com/reactorwatch/reactorwatch/internal/store"
	"github.com/reactorwatch/reactorwatch/internal/telemetry"
)

// classifyHistoryWindow is how much logged history feeds the feed-type
// classifier.
const classifyHistoryWindow = 24 * time.Hour

// Deps bundles the shared services a Runner needs. Events and Snapshots
// are required; Alerts, Publisher and Broadcast are optional.
type Deps struct {
	Provider  source.Provider
	Events    *store.Store
	Snapshots *state.Holder
	Alerts    *alerts.Engine
	Publisher publish.Publisher

	// Broadcast, when set, receives every stored snapshot (the
	// WebSocket hub hangs off this).
	Broadcast func(*state.Snapshot)
}

// Runner is one reactor's analysis loop. Not safe for concurrent use;
// each reactor gets its own Runner goroutine.
type Runner struct {
	reactor config.Reactor
	monitor config.MonitorConfig
	feeds   config.FeedsConfig
	deps    Deps

	detector  *detect.Detector
	estimator *stability.Estimator
	calc      *metrics.Calculator

	lastDetection time.Time
	now           func() time.Time // injectable for deterministic tests
}

// NewRunner builds the analysis pipeline for one reactor.
func NewRunner(reactor config.Reactor, monitor config.MonitorConfig, feeds config.FeedsConfig, deps Deps) *Runner {
	est := stability.NewEstimator(monitor.Stability)
	return &Runner{
		reactor:   reactor,
		monitor:   monitor,
		feeds:     feeds,
		deps:      deps,
		detector:  detect.NewDetector(monitor.Detection),
		estimator: est,
		calc:      metrics.NewCalculator(monitor.Analysis, reactor.Kla, est),
		now:       time.Now,
	}
}

// Run executes analysis cycles on the configured interval until ctx is
// cancelled. The first cycle runs immediately.
func (r *Runner) Run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.monitor.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single analysis cycle. A failed sensor fetch is an
// empty cycle, not a failure: the reactor's snapshot goes Unknown and
// the loop keeps running.
func (r *Runner) RunOnce(ctx context.Context) {
	started := time.Now()
	defer func() {
		telemetry.CycleDuration.WithLabelValues(r.reactor.ID).Observe(time.Since(started).Seconds())
	}()

	now := r.now()
	samples, err := r.deps.Provider.Fetch(ctx, now.Add(-r.monitor.Lookback), now)
	if err != nil {
		telemetry.CycleErrors.WithLabelValues(r.reactor.ID).Inc()
		slog.Warn("cycle: sensor fetch failed", "reactor", r.reactor.ID, "err", err)
		samples = nil
	}
	samples = samples.Normalize()

	r.estimator.Update(samples)

	events, last := r.detector.Detect(samples, r.lastDetection)
	r.lastDetection = last
	for _, ev := range events {
		r.recordEvent(ctx, ev)
	}

	snap := r.buildSnapshot(ctx, samples, now)
	r.deps.Snapshots.Put(snap)
	telemetry.ObserveSnapshot(snap)
	if r.deps.Alerts != nil {
		r.deps.Alerts.Evaluate(snap)
	}
	if r.deps.Broadcast != nil {
		r.deps.Broadcast(snap)
	}
}

// recordEvent classifies, stamps, stores and publishes one detected
// feed event.
func (r *Runner) recordEvent(ctx context.Context, ev detect.Event) {
	if r.monitor.Detection.ClassifyFeedType {
		recent, err := r.deps.Events.Recent(ctx, r.reactor.ID, classifyHistoryWindow)
		if err != nil {
			slog.Warn("cycle: classify lookup failed, keeping auto_detected",
				"reactor", r.reactor.ID, "err", err)
		} else {
			ev.FeedType = detect.ClassifyFeedType(recent)
		}
	}
	if ev.Composition == nil {
		ev.Composition = r.compositionFor(ev.FeedType)
	}

	if _, err := r.deps.Events.Append(ctx, r.reactor.ID, ev); err != nil {
		slog.Error("cycle: store feed event failed", "reactor", r.reactor.ID, "err", err)
		return
	}
	telemetry.FeedEventsTotal.WithLabelValues(r.reactor.ID, string(ev.FeedType)).Inc()

	if r.deps.Publisher != nil {
		if err := r.deps.Publisher.Publish(ctx, r.reactor.ID, ev); err != nil {
			slog.Warn("cycle: event publish failed", "reactor", r.reactor.ID, "err", err)
		}
	}
}

// compositionFor returns the configured composition for a feed type.
// Auto-detected events carry no composition until reclassified.
func (r *Runner) compositionFor(ft detect.FeedType) map[string]float64 {
	var comp map[string]float64
	switch ft {
	case detect.FeedControl:
		comp = r.feeds.Control.Components()
	case detect.FeedExperimental:
		comp = r.feeds.Experimental.Components()
	}
	if len(comp) == 0 {
		return nil
	}
	return comp
}

// buildSnapshot assembles the reactor's current view from the fetched
// samples and the latest logged event.
func (r *Runner) buildSnapshot(ctx context.Context, samples series.Series, now time.Time) *state.Snapshot {
	snap := &state.Snapshot{
		ReactorID: r.reactor.ID,
		Timestamp: now,
		Health:    state.Unknown,
	}

	if latest, ok := samples.Last(); ok {
		snap.DO = latest.DO
		snap.PH = latest.PH
		snap.Temperature = latest.Temperature
		snap.ReactorWeight = latest.ReactorWeight
		snap.FeedBottleWeight = latest.FeedBottleWeight
		snap.Health = state.ClassifyDO(latest.DO, r.monitor.Analysis.DOLow, r.monitor.Analysis.DOCritical)
	}

	if sat, ok := r.estimator.Saturation(); ok {
		snap.DoSaturation = &sat
	}

	ev, ok, err := r.deps.Events.Latest(ctx, r.reactor.ID)
	if err != nil {
		slog.Warn("cycle: latest event lookup failed", "reactor", r.reactor.ID, "err", err)
		return snap
	}
	if ok {
		snap.LastEvent = &ev
		res := r.calc.ComputeAll(samples, ev.Timestamp, r.reactor.BiomassGPerL)
		snap.Metrics = &res
	}
	return snap
}
