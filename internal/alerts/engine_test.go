package alerts

import (
	"testing"
	"time"

	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/state"
)

func lowDORule() config.AlertRule {
	return config.AlertRule{
		Name:      "do-low",
		Condition: "do_value < 2",
		Severity:  "critical",
		Cooldown:  15 * time.Minute,
	}
}

func TestEngine_FireAndResolve(t *testing.T) {
	e := New(config.AlertsConfig{Rules: []config.AlertRule{lowDORule()}})

	e.Evaluate(&state.Snapshot{ReactorID: "R1", Health: state.Critical, DO: 0.8})

	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("Active after fire: got %d alerts, want 1", len(active))
	}
	if active[0].State != "firing" || active[0].ReactorID != "R1" || active[0].Value != 0.8 {
		t.Errorf("alert = %+v, want firing on R1 with value 0.8", active[0])
	}

	e.Evaluate(&state.Snapshot{ReactorID: "R1", Health: state.Healthy, DO: 6.0})

	active = e.Active()
	if len(active) != 1 {
		t.Fatalf("Active after resolve: got %d alerts, want 1 (recently resolved)", len(active))
	}
	if active[0].State != "resolved" || active[0].ResolvedAt == nil {
		t.Errorf("alert = %+v, want resolved", active[0])
	}
}

func TestEngine_Cooldown(t *testing.T) {
	e := New(config.AlertsConfig{Rules: []config.AlertRule{lowDORule()}})

	snap := &state.Snapshot{ReactorID: "R1", Health: state.Critical, DO: 0.8}
	e.Evaluate(snap)
	e.Evaluate(snap)

	if got := len(e.Active()); got != 1 {
		t.Errorf("Active after re-fire within cooldown: got %d alerts, want 1", got)
	}
}

func TestEngine_PerReactorKeys(t *testing.T) {
	e := New(config.AlertsConfig{Rules: []config.AlertRule{lowDORule()}})

	e.Evaluate(&state.Snapshot{ReactorID: "R1", Health: state.Critical, DO: 0.8})
	e.Evaluate(&state.Snapshot{ReactorID: "R2", Health: state.Critical, DO: 0.5})

	if got := len(e.Active()); got != 2 {
		t.Errorf("Active: got %d alerts, want one per reactor", got)
	}
}

func TestEngine_NoRules(t *testing.T) {
	e := New(config.AlertsConfig{})
	e.Evaluate(&state.Snapshot{ReactorID: "R1", Health: state.Critical, DO: 0.1})
	if got := len(e.Active()); got != 0 {
		t.Errorf("Active with no rules: got %d alerts, want 0", got)
	}
}
