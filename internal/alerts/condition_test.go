package alerts

import (
	"testing"

	"github.com/reactorwatch/reactorwatch/internal/metrics"
	"github.com/reactorwatch/reactorwatch/internal/state"
)

func floatPtr(v float64) *float64 { return &v }

func fullSnapshot() *state.Snapshot {
	return &state.Snapshot{
		ReactorID:    "R1",
		Health:       state.Healthy,
		DO:           1.5,
		PH:           6.8,
		Temperature:  30,
		DoSaturation: floatPtr(6.2),
		Metrics: &metrics.Result{
			DropRate:            -0.08,
			DropRateR2:          0.95,
			OUR:                 floatPtr(520),
			SOUR:                floatPtr(208),
			RecoveryTimeSeconds: floatPtr(2400),
		},
	}
}

func TestEvalCondition(t *testing.T) {
	tests := []struct {
		name      string
		cond      string
		wantFires bool
		wantValue float64
	}{
		{"do below threshold", "do_value < 2", true, 1.5},
		{"do above threshold", "do_value < 1", false, 1.5},
		{"saturation", "do_saturation < 7", true, 6.2},
		{"drop rate steep", "drop_rate < -0.05", true, -0.08},
		{"poor fit", "drop_r2 < 0.5", false, 0.95},
		{"our high", "our > 500", true, 520},
		{"sour high", "sour >= 208", true, 208},
		{"slow recovery", "recovery_seconds > 1800", true, 2400},
		{"health match", "health == healthy", true, 0},
		{"health mismatch", "health == critical", false, 0},
		{"unknown field", "foo > 1", false, 0},
		{"malformed", "do_value <", false, 0},
		{"bad threshold", "do_value < abc", false, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fires, value := evalCondition(tc.cond, fullSnapshot())
			if fires != tc.wantFires {
				t.Errorf("fires = %v, want %v", fires, tc.wantFires)
			}
			if fires && value != tc.wantValue {
				t.Errorf("value = %v, want %v", value, tc.wantValue)
			}
		})
	}
}

func TestEvalCondition_AbsentMetrics(t *testing.T) {
	// A rule on a metric the analysis has not produced must never fire,
	// whatever the threshold.
	bare := &state.Snapshot{ReactorID: "R1", Health: state.Healthy, DO: 1.5}
	conds := []string{
		"do_saturation < 100",
		"drop_rate < 100",
		"our > -100",
		"sour > -100",
		"recovery_seconds > -1",
	}
	for _, cond := range conds {
		if fires, _ := evalCondition(cond, bare); fires {
			t.Errorf("%q fired on a snapshot without that metric", cond)
		}
	}

	// Sensor fields are meaningless on an Unknown snapshot.
	unknown := &state.Snapshot{ReactorID: "R1", Health: state.Unknown}
	if fires, _ := evalCondition("do_value < 2", unknown); fires {
		t.Error("do_value rule fired on an unknown-health snapshot")
	}

	// Metrics flagged insufficient are treated as absent.
	flagged := &state.Snapshot{
		ReactorID: "R1",
		Health:    state.Healthy,
		Metrics:   &metrics.Result{InsufficientData: true},
	}
	if fires, _ := evalCondition("drop_rate < 100", flagged); fires {
		t.Error("drop_rate rule fired on insufficient-data metrics")
	}
}
