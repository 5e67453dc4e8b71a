package stability

import (
	"math"
	"testing"
	"time"

	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/series"
)

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func testEstimator() *Estimator {
	return NewEstimator(config.StabilityConfig{
		Window:    5 * time.Minute,
		Threshold: 0.1,
	})
}

// doSeries builds a series with 10 s sample spacing from DO values.
func doSeries(values []float64) series.Series {
	s := make(series.Series, len(values))
	for i, v := range values {
		s[i] = series.Sample{Timestamp: t0.Add(time.Duration(i*10) * time.Second), DO: v}
	}
	return s
}

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestComputeSaturation_StableSignal(t *testing.T) {
	// Ten minutes of DO flat at 5.0 ± 0.02 mg/L: saturation ≈ 5.0.
	values := make([]float64, 60)
	for i := range values {
		jitter := 0.02
		if i%2 == 0 {
			jitter = -0.02
		}
		values[i] = 5.0 + jitter
	}

	sat, ok := testEstimator().ComputeSaturation(doSeries(values))
	if !ok {
		t.Fatal("ComputeSaturation: expected a value for a flat signal")
	}
	if !almostEqual(sat, 5.0, 0.05) {
		t.Errorf("saturation = %v, want ≈ 5.0", sat)
	}
}

func TestComputeSaturation_UnstableSignal(t *testing.T) {
	// A signal swinging by whole mg/L has no stable window.
	values := make([]float64, 60)
	for i := range values {
		if i%2 == 0 {
			values[i] = 4.0
		} else {
			values[i] = 6.0
		}
	}

	if _, ok := testEstimator().ComputeSaturation(doSeries(values)); ok {
		t.Error("ComputeSaturation: expected absent for an oscillating signal")
	}
}

func TestComputeSaturation_IgnoresTransient(t *testing.T) {
	// A stable plateau followed by a steep feed-response drop: the drop
	// windows are unstable, so only the plateau feeds the median.
	values := make([]float64, 0, 90)
	for i := 0; i < 60; i++ {
		values = append(values, 6.0)
	}
	for i := 0; i < 30; i++ {
		values = append(values, 6.0-float64(i)*0.2)
	}

	sat, ok := testEstimator().ComputeSaturation(doSeries(values))
	if !ok {
		t.Fatal("ComputeSaturation: expected a value")
	}
	if !almostEqual(sat, 6.0, 0.05) {
		t.Errorf("saturation = %v, want the plateau value 6.0, not the transient", sat)
	}
}

func TestComputeSaturation_TooFewSamples(t *testing.T) {
	e := testEstimator()

	if _, ok := e.ComputeSaturation(nil); ok {
		t.Error("ComputeSaturation(nil): expected absent")
	}
	if _, ok := e.ComputeSaturation(doSeries([]float64{5.0})); ok {
		t.Error("ComputeSaturation on one sample: expected absent")
	}
}

func TestComputeSaturation_UnsortedInput(t *testing.T) {
	s := doSeries([]float64{5.0, 5.0, 5.0, 5.0, 5.0, 5.0})
	shuffled := series.Series{s[3], s[0], s[5], s[1], s[4], s[2]}

	sat, ok := testEstimator().ComputeSaturation(shuffled)
	if !ok {
		t.Fatal("ComputeSaturation on unsorted input: expected a value")
	}
	if !almostEqual(sat, 5.0, 1e-9) {
		t.Errorf("saturation = %v, want 5.0", sat)
	}
}

func TestUpdate_KeepsPreviousOnAbsent(t *testing.T) {
	e := testEstimator()

	e.Update(doSeries([]float64{5.0, 5.0, 5.0, 5.0, 5.0, 5.0}))
	sat, ok := e.Saturation()
	if !ok || !almostEqual(sat, 5.0, 1e-9) {
		t.Fatalf("Saturation after stable update = (%v, %v), want (5.0, true)", sat, ok)
	}

	// An unstable window must not erase the known value.
	unstable := make([]float64, 30)
	for i := range unstable {
		if i%2 == 0 {
			unstable[i] = 2.0
		} else {
			unstable[i] = 8.0
		}
	}
	e.Update(doSeries(unstable))

	sat, ok = e.Saturation()
	if !ok || !almostEqual(sat, 5.0, 1e-9) {
		t.Errorf("Saturation after unstable update = (%v, %v), want previous (5.0, true)", sat, ok)
	}
}

func TestSaturation_UnknownInitially(t *testing.T) {
	if _, ok := testEstimator().Saturation(); ok {
		t.Error("Saturation before any update: expected unknown")
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{[]float64{3}, 3},
		{[]float64{1, 3}, 2},
		{[]float64{5, 1, 3}, 3},
		{[]float64{4, 1, 3, 2}, 2.5},
	}
	for _, tc := range tests {
		if got := median(tc.in); !almostEqual(got, tc.want, 1e-12) {
			t.Errorf("median(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSampleStdDev(t *testing.T) {
	// 2, 4, 4, 4, 5, 5, 7, 9 has sample std-dev ≈ 2.138.
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	var sum, sumSq float64
	for _, v := range vals {
		sum += v
		sumSq += v * v
	}
	if got := sampleStdDev(sum, sumSq, len(vals)); !almostEqual(got, 2.1381, 0.001) {
		t.Errorf("sampleStdDev = %v, want ≈ 2.138", got)
	}
}
