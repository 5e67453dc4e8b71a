package api

import (
	"time"

	"github.com/reactorwatch/reactorwatch/internal/detect"
	"github.com/reactorwatch/reactorwatch/internal/state"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State          string `json:"state"`
	ReactorCount   int    `json:"reactor_count"`
	HealthyCount   int    `json:"healthy_count"`
	AttentionCount int    `json:"attention_count"`
	CriticalCount  int    `json:"critical_count"`
	UnknownCount   int    `json:"unknown_count"`
	AlertCount     int    `json:"alert_count"`
}

// ReactorResponse is one reactor entry in GET /api/v1/reactors or
// GET /api/v1/reactors/{id}.
type ReactorResponse struct {
	*state.Snapshot
	LastSeen string `json:"last_seen"` // RFC3339
}

// CreateEventRequest is the body of POST /api/v1/events — a manually
// entered feed event.
type CreateEventRequest struct {
	ReactorID    string             `json:"reactor_id"`
	Timestamp    *time.Time         `json:"timestamp,omitempty"`
	FeedType     detect.FeedType    `json:"feed_type"`
	VolumeLiters float64            `json:"volume_liters"`
	Composition  map[string]float64 `json:"composition,omitempty"`
	Operator     string             `json:"operator"`
	Notes        string             `json:"notes,omitempty"`
}

// CreateEventResponse confirms a stored manual event.
type CreateEventResponse struct {
	ID    int64        `json:"id"`
	Event detect.Event `json:"event"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
