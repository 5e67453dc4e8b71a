package alerts

import (
	"strconv"
	"strings"

	"github.com/reactorwatch/reactorwatch/internal/state"
)

// evalCondition evaluates a rule condition string against a reactor
// snapshot.
//
// Supported expressions (field operator value):
//
//	do_value < 2
//	do_saturation < 5
//	drop_rate < -0.05
//	drop_r2 < 0.5
//	our > 500
//	sour > 200
//	recovery_seconds > 1800
//	health == critical
//	health == unknown
//
// Returns (fires bool, triggering value float64). Returns (false, 0)
// when the expression cannot be parsed, the field is unknown, or the
// snapshot does not carry the field yet. A rule on a metric the
// analysis has not produced never fires.
func evalCondition(cond string, snap *state.Snapshot) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "health" {
		if op == "==" {
			return string(snap.Health) == rhs, 0
		}
		return false, 0
	}

	v, ok := numericField(field, snap)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the snapshot. ok is
// false for unknown fields and for optional metrics the snapshot does
// not carry.
func numericField(field string, snap *state.Snapshot) (float64, bool) {
	switch field {
	case "do_value":
		return snap.DO, snap.Health != state.Unknown
	case "ph_value":
		return snap.PH, snap.Health != state.Unknown
	case "temperature":
		return snap.Temperature, snap.Health != state.Unknown
	case "do_saturation":
		if snap.DoSaturation == nil {
			return 0, false
		}
		return *snap.DoSaturation, true
	}

	m := snap.Metrics
	if m == nil || m.InsufficientData {
		return 0, false
	}
	switch field {
	case "drop_rate":
		return m.DropRate, true
	case "drop_r2":
		return m.DropRateR2, true
	case "our":
		if m.OUR == nil {
			return 0, false
		}
		return *m.OUR, true
	case "sour":
		if m.SOUR == nil {
			return 0, false
		}
		return *m.SOUR, true
	case "recovery_seconds":
		if m.RecoveryTimeSeconds == nil {
			return 0, false
		}
		return *m.RecoveryTimeSeconds, true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
