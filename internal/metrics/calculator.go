package metrics

import (
	"fmt"
	"time"

	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/series"
	"github.com/reactorwatch/reactorwatch/internal/stability"
)

// minRegressionSamples is the fewest points accepted for a drop-rate fit.
const minRegressionSamples = 10

// Result bundles the DO response metrics for one feed event. Pointer
// fields are nil when the metric is absent — never zero-filled.
type Result struct {
	EventTimestamp time.Time `json:"event_timestamp"`

	// DropRate is the OLS slope of DO over elapsed seconds, mg/L/s,
	// signed (negative = falling). When InsufficientData is set both
	// DropRate and DropRateR2 are 0 and mean nothing.
	DropRate         float64 `json:"drop_rate"`
	DropRateR2       float64 `json:"drop_rate_r_squared"`
	InsufficientData bool    `json:"insufficient_data"`

	// RecoveryTimeSeconds is nil while DO has not yet climbed back to
	// the recovery threshold within the observed window.
	RecoveryTimeSeconds *float64 `json:"recovery_time_seconds,omitempty"`

	// OUR (mg O2/L/h) and SOUR (mg O2/g/h) are nil when kLa or biomass
	// is unconfigured, or when the fit is too poor to trust.
	OUR  *float64 `json:"our,omitempty"`
	SOUR *float64 `json:"sour,omitempty"`

	Kla float64 `json:"kla"`

	// DoSaturation is the estimator's baseline snapshot at computation
	// time, nil while unknown.
	DoSaturation *float64 `json:"do_saturation,omitempty"`
}

// Calculator computes DO response metrics with a fixed configuration
// and a saturation estimator shared with the analysis cycle.
type Calculator struct {
	window       time.Duration
	recoveryFrac float64
	r2Min        float64
	kla          float64
	estimator    *stability.Estimator
}

// NewCalculator builds a Calculator. kla is the reactor's mass-transfer
// coefficient in h⁻¹; zero means unknown and disables OUR/sOUR.
func NewCalculator(cfg config.AnalysisConfig, kla float64, est *stability.Estimator) *Calculator {
	return &Calculator{
		window:       cfg.Window,
		recoveryFrac: cfg.RecoveryThreshold,
		r2Min:        cfg.RSquaredMin,
		kla:          kla,
		estimator:    est,
	}
}

// DropRate fits DO against elapsed seconds over [eventTime, eventTime+window]
// and returns (slope, r²). ok is false when the window holds fewer than
// minRegressionSamples points; the numeric results are then (0, 0),
// matching the neutral-zero convention downstream consumers expect, but
// callers must check ok before treating them as a measurement.
func (c *Calculator) DropRate(samples series.Series, eventTime time.Time, window time.Duration) (slope, r2 float64, ok bool) {
	win := samples.Normalize().Window(eventTime, eventTime.Add(window))
	if len(win) < minRegressionSamples {
		return 0, 0, false
	}

	xs := make([]float64, len(win))
	ys := make([]float64, len(win))
	for i, smp := range win {
		xs[i] = smp.Timestamp.Sub(eventTime).Seconds()
		ys[i] = smp.DO
	}
	slope, r2 = linearFit(xs, ys)
	return slope, r2, true
}

// RecoveryTime returns the elapsed seconds from eventTime until DO first
// climbs back to recoveryFrac of the pre-event baseline. recovered is
// false when no post-event sample reaches the threshold — recovery is
// never extrapolated. An error means there is no sample at or before
// eventTime to take a baseline from.
func (c *Calculator) RecoveryTime(samples series.Series, eventTime time.Time) (seconds float64, recovered bool, err error) {
	samples = samples.Normalize()

	baseline, ok := samples.LastAtOrBefore(eventTime)
	if !ok {
		return 0, false, fmt.Errorf("metrics: no DO baseline at or before %s", eventTime.Format(time.RFC3339))
	}
	recoveryValue := baseline.DO * c.recoveryFrac

	for _, smp := range samples {
		if smp.Timestamp.Before(eventTime) {
			continue
		}
		if smp.DO >= recoveryValue {
			return smp.Timestamp.Sub(eventTime).Seconds(), true, nil
		}
	}
	return 0, false, nil
}

// OUR derives the oxygen uptake rate (mg O2/L/h) from the drop rate:
// our = -slope · 3600 · kLa, positive for consumption. ok is false when
// kLa is unconfigured, the window has too few points, or the fit's r²
// is below the configured minimum.
func (c *Calculator) OUR(samples series.Series, eventTime time.Time, window time.Duration) (float64, bool) {
	if c.kla <= 0 {
		return 0, false
	}
	slope, r2, ok := c.DropRate(samples, eventTime, window)
	if !ok || r2 < c.r2Min {
		return 0, false
	}
	return -slope * 3600 * c.kla, true
}

// SOUR is OUR normalized per gram of biomass (mg O2/g/h). ok is false
// when OUR is absent or the biomass concentration is not positive.
func (c *Calculator) SOUR(samples series.Series, eventTime time.Time, biomassGPerL float64, window time.Duration) (float64, bool) {
	if biomassGPerL <= 0 {
		return 0, false
	}
	our, ok := c.OUR(samples, eventTime, window)
	if !ok {
		return 0, false
	}
	return our / biomassGPerL, true
}

// ComputeAll evaluates every metric for the event at eventTime over the
// calculator's configured analysis window. Metrics fail independently:
// a missing kLa leaves the drop rate and recovery time intact. The DO
// saturation is snapshotted from the estimator once, not recomputed.
func (c *Calculator) ComputeAll(samples series.Series, eventTime time.Time, biomassGPerL float64) Result {
	res := Result{EventTimestamp: eventTime, Kla: c.kla}

	samples = samples.Normalize()

	slope, r2, ok := c.DropRate(samples, eventTime, c.window)
	res.DropRate, res.DropRateR2 = slope, r2
	res.InsufficientData = !ok

	if seconds, recovered, err := c.RecoveryTime(samples, eventTime); err == nil && recovered {
		res.RecoveryTimeSeconds = &seconds
	}

	if our, ok := c.OUR(samples, eventTime, c.window); ok {
		res.OUR = &our
		if biomassGPerL > 0 {
			sour := our / biomassGPerL
			res.SOUR = &sour
		}
	}

	if sat, ok := c.estimator.Saturation(); ok {
		res.DoSaturation = &sat
	}
	return res
}

// linearFit runs an ordinary least-squares regression of y on x and
// returns the slope and coefficient of determination. A perfectly flat
// y has nothing left to explain; it reports r² = 1 so the reliability
// gate treats the (null) fit as trustworthy.
func linearFit(xs, ys []float64) (slope, r2 float64) {
	n := float64(len(xs))

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy, syy float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return 0, 0
	}
	slope = sxy / sxx
	if syy == 0 {
		return slope, 1
	}
	r2 = (sxy * sxy) / (sxx * syy)
	return slope, r2
}
