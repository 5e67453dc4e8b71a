package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/reactorwatch/reactorwatch/internal/alerts"
	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/detect"
	"github.com/reactorwatch/reactorwatch/internal/export"
	"github.com/reactorwatch/reactorwatch/internal/state"
	"github.com/reactorwatch/reactorwatch/internal/store"
	"github.com/reactorwatch/reactorwatch/internal/telemetry"
)

// Handler serves all /api/v1/* endpoints. It reads reactor state from
// the snapshot holder and the event log; manual feed events are the one
// write path.
type Handler struct {
	snapshots   *state.Holder
	events      *store.Store
	alerts      *alerts.Engine
	annotations *export.AnnotationLog
	feeds       config.FeedsConfig
	ttl         time.Duration
	router      *mux.Router
}

// New creates a Handler and registers all routes. alerts and
// annotations may be nil; their endpoints then answer empty.
func New(snapshots *state.Holder, events *store.Store, engine *alerts.Engine,
	annotations *export.AnnotationLog, feeds config.FeedsConfig, ttl time.Duration) http.Handler {

	h := &Handler{
		snapshots:   snapshots,
		events:      events,
		alerts:      engine,
		annotations: annotations,
		feeds:       feeds,
		ttl:         ttl,
		router:      mux.NewRouter(),
	}

	v1 := h.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/health", h.health).Methods(http.MethodGet)
	v1.HandleFunc("/reactors", h.listReactors).Methods(http.MethodGet)
	v1.HandleFunc("/reactors/{id}", h.getReactor).Methods(http.MethodGet)
	v1.HandleFunc("/reactors/{id}/export", h.exportMetrics).Methods(http.MethodGet)
	v1.HandleFunc("/events", h.listEvents).Methods(http.MethodGet)
	v1.HandleFunc("/events", h.createEvent).Methods(http.MethodPost)
	v1.HandleFunc("/events/latest", h.latestEvent).Methods(http.MethodGet)
	v1.HandleFunc("/events/stats", h.eventStats).Methods(http.MethodGet)
	v1.HandleFunc("/alerts", h.listAlerts).Methods(http.MethodGet)
	v1.HandleFunc("/annotations", h.listAnnotations).Methods(http.MethodGet)
	v1.HandleFunc("/annotations", h.createAnnotation).Methods(http.MethodPost)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — reactor counts per health state.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	entries := h.snapshots.List()
	resp := HealthResponse{ReactorCount: len(entries)}

	worst := state.Unknown
	if len(entries) > 0 {
		worst = state.Healthy
	}
	for _, e := range entries {
		switch e.Snapshot.Health {
		case state.Healthy:
			resp.HealthyCount++
		case state.Attention:
			resp.AttentionCount++
			if worst == state.Healthy {
				worst = state.Attention
			}
		case state.Critical:
			resp.CriticalCount++
			worst = state.Critical
		default:
			resp.UnknownCount++
		}
	}
	resp.State = string(worst)
	if h.alerts != nil {
		resp.AlertCount = len(h.alerts.Active())
	}
	jsonResp(w, http.StatusOK, resp)
}

// listReactors returns GET /api/v1/reactors — all live reactors.
func (h *Handler) listReactors(w http.ResponseWriter, r *http.Request) {
	entries := h.snapshots.List()
	out := make([]ReactorResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toReactorResponse(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// getReactor returns GET /api/v1/reactors/{id} — one live reactor.
func (h *Handler) getReactor(w http.ResponseWriter, r *http.Request) {
	e, ok := h.liveEntry(mux.Vars(r)["id"])
	if !ok {
		jsonErr(w, http.StatusNotFound, "reactor not found")
		return
	}
	jsonResp(w, http.StatusOK, toReactorResponse(e))
}

// exportMetrics returns GET /api/v1/reactors/{id}/export?format= — the
// reactor's metrics snapshot as a LaTeX or Markdown table.
func (h *Handler) exportMetrics(w http.ResponseWriter, r *http.Request) {
	e, ok := h.liveEntry(mux.Vars(r)["id"])
	if !ok {
		jsonErr(w, http.StatusNotFound, "reactor not found")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "markdown"
	}
	out, err := export.FormatSnapshot(e.Snapshot, format)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(out)) //nolint:errcheck
}

// listEvents returns GET /api/v1/events?reactor=&start=&end=&type= —
// the feed event log, filtered.
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	reactorID := r.URL.Query().Get("reactor")
	if reactorID == "" {
		jsonErr(w, http.StatusBadRequest, "reactor query parameter required")
		return
	}

	var start, end time.Time
	var err error
	if s := r.URL.Query().Get("start"); s != "" {
		if start, err = time.Parse(time.RFC3339, s); err != nil {
			jsonErr(w, http.StatusBadRequest, "start must be RFC3339")
			return
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if end, err = time.Parse(time.RFC3339, s); err != nil {
			jsonErr(w, http.StatusBadRequest, "end must be RFC3339")
			return
		}
	}
	feedType := detect.FeedType(r.URL.Query().Get("type"))
	if feedType != "" && !detect.KnownFeedType(feedType) {
		jsonErr(w, http.StatusBadRequest, "unknown feed type")
		return
	}

	events, err := h.events.Query(r.Context(), reactorID, start, end, feedType)
	if err != nil {
		slog.Error("api: event query failed", "reactor", reactorID, "err", err)
		jsonErr(w, http.StatusInternalServerError, "event query failed")
		return
	}
	if events == nil {
		events = []detect.Event{}
	}
	jsonResp(w, http.StatusOK, events)
}

// createEvent handles POST /api/v1/events — a manual feed event entry.
func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.ReactorID == "" {
		jsonErr(w, http.StatusBadRequest, "reactor_id required")
		return
	}
	if !detect.KnownFeedType(req.FeedType) {
		jsonErr(w, http.StatusBadRequest, "unknown feed type")
		return
	}
	if req.Operator == "" {
		jsonErr(w, http.StatusBadRequest, "operator required")
		return
	}
	if req.VolumeLiters <= 0 {
		jsonErr(w, http.StatusBadRequest, "volume_liters must be positive")
		return
	}
	if max := h.feeds.MaxVolumeLiters; max > 0 && req.VolumeLiters > max {
		jsonErr(w, http.StatusBadRequest, "volume_liters exceeds configured maximum")
		return
	}

	ev := detect.Event{
		Timestamp:    time.Now().UTC(),
		FeedType:     req.FeedType,
		VolumeLiters: req.VolumeLiters,
		Composition:  req.Composition,
		Operator:     req.Operator,
		Notes:        req.Notes,
	}
	if req.Timestamp != nil {
		ev.Timestamp = req.Timestamp.UTC()
	}
	if ev.Composition == nil {
		switch ev.FeedType {
		case detect.FeedControl:
			ev.Composition = h.feeds.Control.Components()
		case detect.FeedExperimental:
			ev.Composition = h.feeds.Experimental.Components()
		}
		if len(ev.Composition) == 0 {
			ev.Composition = nil
		}
	}

	id, err := h.events.Append(r.Context(), req.ReactorID, ev)
	if err != nil {
		slog.Error("api: manual event append failed", "reactor", req.ReactorID, "err", err)
		jsonErr(w, http.StatusInternalServerError, "could not store event")
		return
	}
	telemetry.FeedEventsTotal.WithLabelValues(req.ReactorID, string(ev.FeedType)).Inc()
	slog.Info("api: manual feed event stored",
		"reactor", req.ReactorID,
		"feed_type", ev.FeedType,
		"volume_l", ev.VolumeLiters,
		"operator", ev.Operator,
	)
	jsonResp(w, http.StatusCreated, CreateEventResponse{ID: id, Event: ev})
}

// latestEvent returns GET /api/v1/events/latest?reactor= — the most
// recent feed event.
func (h *Handler) latestEvent(w http.ResponseWriter, r *http.Request) {
	reactorID := r.URL.Query().Get("reactor")
	if reactorID == "" {
		jsonErr(w, http.StatusBadRequest, "reactor query parameter required")
		return
	}
	ev, ok, err := h.events.Latest(r.Context(), reactorID)
	if err != nil {
		slog.Error("api: latest event lookup failed", "reactor", reactorID, "err", err)
		jsonErr(w, http.StatusInternalServerError, "event lookup failed")
		return
	}
	if !ok {
		jsonErr(w, http.StatusNotFound, "no events recorded")
		return
	}
	jsonResp(w, http.StatusOK, ev)
}

// eventStats returns GET /api/v1/events/stats?reactor= — feeding
// statistics over the whole history.
func (h *Handler) eventStats(w http.ResponseWriter, r *http.Request) {
	reactorID := r.URL.Query().Get("reactor")
	if reactorID == "" {
		jsonErr(w, http.StatusBadRequest, "reactor query parameter required")
		return
	}
	stats, err := h.events.Statistics(r.Context(), reactorID)
	if err != nil {
		slog.Error("api: event stats failed", "reactor", reactorID, "err", err)
		jsonErr(w, http.StatusInternalServerError, "statistics failed")
		return
	}
	jsonResp(w, http.StatusOK, stats)
}

// listAlerts returns GET /api/v1/alerts — firing and recently resolved
// alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// listAnnotations returns GET /api/v1/annotations.
func (h *Handler) listAnnotations(w http.ResponseWriter, r *http.Request) {
	if h.annotations == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.annotations.List())
}

// createAnnotation handles POST /api/v1/annotations.
func (h *Handler) createAnnotation(w http.ResponseWriter, r *http.Request) {
	if h.annotations == nil {
		jsonErr(w, http.StatusServiceUnavailable, "annotations disabled")
		return
	}
	var a export.Annotation
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.annotations.Add(a); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusCreated, a)
}

// --- helpers ----------------------------------------------------------------

// liveEntry fetches a snapshot entry, treating stale entries as absent.
func (h *Handler) liveEntry(id string) (*state.Entry, bool) {
	e, ok := h.snapshots.Get(id)
	if !ok {
		return nil, false
	}
	if time.Since(e.UpdatedAt) > h.ttl {
		return nil, false
	}
	return e, true
}

// BuildSnapshot renders all live reactors the way GET /api/v1/reactors
// does. The WebSocket hub reuses it for its periodic broadcast.
func BuildSnapshot(snapshots *state.Holder) []ReactorResponse {
	entries := snapshots.List()
	out := make([]ReactorResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toReactorResponse(e))
	}
	return out
}

func toReactorResponse(e *state.Entry) ReactorResponse {
	return ReactorResponse{
		Snapshot: e.Snapshot,
		LastSeen: e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
