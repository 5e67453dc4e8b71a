package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reactorwatch/reactorwatch/internal/alerts"
	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/detect"
	"github.com/reactorwatch/reactorwatch/internal/export"
	"github.com/reactorwatch/reactorwatch/internal/metrics"
	"github.com/reactorwatch/reactorwatch/internal/state"
	"github.com/reactorwatch/reactorwatch/internal/store"
)

type fixture struct {
	handler   http.Handler
	snapshots *state.Holder
	events    *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	events, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { events.Close() })

	annotations, err := export.OpenAnnotationLog(t.TempDir())
	if err != nil {
		t.Fatalf("OpenAnnotationLog: %v", err)
	}

	snapshots := state.NewHolder(5 * time.Minute)
	feeds := config.FeedsConfig{
		MaxVolumeLiters: 2.0,
		Control:         config.FeedComposition{GlucoseGPerL: 500},
	}
	h := New(snapshots, events, alerts.New(config.AlertsConfig{}), annotations, feeds, 5*time.Minute)
	return &fixture{handler: h, snapshots: snapshots, events: events}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *fixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp := decode[HealthResponse](t, f.get(t, "/api/v1/health"))
	if resp.State != "unknown" || resp.ReactorCount != 0 {
		t.Errorf("empty health = %+v, want unknown with 0 reactors", resp)
	}

	f.snapshots.Put(&state.Snapshot{ReactorID: "R1", Health: state.Healthy})
	f.snapshots.Put(&state.Snapshot{ReactorID: "R2", Health: state.Critical})

	resp = decode[HealthResponse](t, f.get(t, "/api/v1/health"))
	if resp.State != "critical" {
		t.Errorf("State = %q, want critical (worst wins)", resp.State)
	}
	if resp.HealthyCount != 1 || resp.CriticalCount != 1 || resp.ReactorCount != 2 {
		t.Errorf("counts = %+v, want 1 healthy / 1 critical of 2", resp)
	}
}

func TestGetReactor(t *testing.T) {
	f := newFixture(t)
	our := 360.0
	f.snapshots.Put(&state.Snapshot{
		ReactorID: "R1",
		Health:    state.Healthy,
		DO:        6.0,
		Metrics:   &metrics.Result{OUR: &our},
	})

	rec := f.get(t, "/api/v1/reactors/R1")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET reactor: status %d, want 200", rec.Code)
	}
	resp := decode[ReactorResponse](t, rec)
	if resp.DO != 6.0 || resp.Metrics == nil || *resp.Metrics.OUR != 360 {
		t.Errorf("reactor = %+v, want DO 6.0 with OUR 360", resp)
	}
	if resp.LastSeen == "" {
		t.Error("LastSeen empty")
	}

	if rec := f.get(t, "/api/v1/reactors/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown reactor: status %d, want 404", rec.Code)
	}
}

func TestListReactors(t *testing.T) {
	f := newFixture(t)
	f.snapshots.Put(&state.Snapshot{ReactorID: "R1", Health: state.Healthy})
	f.snapshots.Put(&state.Snapshot{ReactorID: "R2", Health: state.Attention})

	resp := decode[[]ReactorResponse](t, f.get(t, "/api/v1/reactors"))
	if len(resp) != 2 {
		t.Errorf("list: got %d reactors, want 2", len(resp))
	}
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/api/v1/events", CreateEventRequest{
		ReactorID:    "R1",
		FeedType:     detect.FeedControl,
		VolumeLiters: 0.25,
		Operator:     "jk",
		Notes:        "glucose pulse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST event: status %d, want 201: %s", rec.Code, rec.Body)
	}
	resp := decode[CreateEventResponse](t, rec)
	if resp.ID == 0 {
		t.Error("ID: expected nonzero row id")
	}
	if resp.Event.Composition["glucose"] != 500 {
		t.Errorf("Composition = %v, want configured control defaults stamped", resp.Event.Composition)
	}

	// It must land in the log.
	events := decode[[]detect.Event](t, f.get(t, "/api/v1/events?reactor=R1"))
	if len(events) != 1 || events[0].Operator != "jk" {
		t.Errorf("stored events = %+v, want the manual entry", events)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  CreateEventRequest
	}{
		{"missing reactor", CreateEventRequest{FeedType: detect.FeedControl, VolumeLiters: 0.1, Operator: "jk"}},
		{"unknown feed type", CreateEventRequest{ReactorID: "R1", FeedType: "snack", VolumeLiters: 0.1, Operator: "jk"}},
		{"missing operator", CreateEventRequest{ReactorID: "R1", FeedType: detect.FeedControl, VolumeLiters: 0.1}},
		{"zero volume", CreateEventRequest{ReactorID: "R1", FeedType: detect.FeedControl, Operator: "jk"}},
		{"volume above max", CreateEventRequest{ReactorID: "R1", FeedType: detect.FeedControl, VolumeLiters: 5, Operator: "jk"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rec := f.post(t, "/api/v1/events", tc.req); rec.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", rec.Code)
			}
		})
	}
}

func TestListEvents_Filters(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	ts := base.Add(time.Hour)

	for i, ft := range []detect.FeedType{detect.FeedControl, detect.FeedExperimental} {
		f.post(t, "/api/v1/events", CreateEventRequest{
			ReactorID: "R1", FeedType: ft, VolumeLiters: 0.1, Operator: "jk",
			Timestamp: &[]time.Time{base.Add(time.Duration(i) * 2 * time.Hour)}[0],
		})
	}

	events := decode[[]detect.Event](t, f.get(t, "/api/v1/events?reactor=R1&type=control"))
	if len(events) != 1 || events[0].FeedType != detect.FeedControl {
		t.Errorf("type filter: got %+v, want only the control event", events)
	}

	events = decode[[]detect.Event](t, f.get(t,
		"/api/v1/events?reactor=R1&start="+ts.Format(time.RFC3339)))
	if len(events) != 1 || events[0].FeedType != detect.FeedExperimental {
		t.Errorf("start filter: got %+v, want only the later event", events)
	}

	if rec := f.get(t, "/api/v1/events"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing reactor param: status %d, want 400", rec.Code)
	}
	if rec := f.get(t, "/api/v1/events?reactor=R1&start=yesterday"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad start: status %d, want 400", rec.Code)
	}
}

func TestLatestEventAndStats(t *testing.T) {
	f := newFixture(t)

	if rec := f.get(t, "/api/v1/events/latest?reactor=R1"); rec.Code != http.StatusNotFound {
		t.Errorf("latest on empty log: status %d, want 404", rec.Code)
	}

	f.post(t, "/api/v1/events", CreateEventRequest{
		ReactorID: "R1", FeedType: detect.FeedControl, VolumeLiters: 0.5, Operator: "jk",
	})

	ev := decode[detect.Event](t, f.get(t, "/api/v1/events/latest?reactor=R1"))
	if ev.VolumeLiters != 0.5 {
		t.Errorf("latest = %+v, want the stored event", ev)
	}

	stats := decode[store.Stats](t, f.get(t, "/api/v1/events/stats?reactor=R1"))
	if stats.EventCount != 1 || stats.TotalVolumeByType[detect.FeedControl] != 0.5 {
		t.Errorf("stats = %+v, want 1 control event of 0.5 L", stats)
	}
}

func TestExportMetrics(t *testing.T) {
	f := newFixture(t)
	our := 360.0
	f.snapshots.Put(&state.Snapshot{
		ReactorID: "R1",
		Health:    state.Healthy,
		Metrics:   &metrics.Result{OUR: &our, DropRate: -0.01, DropRateR2: 0.99},
	})

	rec := f.get(t, "/api/v1/reactors/R1/export?format=markdown")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "| OUR |") {
		t.Errorf("export body missing OUR row:\n%s", rec.Body)
	}

	if rec := f.get(t, "/api/v1/reactors/R1/export?format=csv"); rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported format: status %d, want 400", rec.Code)
	}
}

func TestAnnotations(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/api/v1/annotations", export.Annotation{
		MetricType:  "OUR",
		Value:       360,
		Observation: "elevated after pulse",
		Operator:    "jk",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST annotation: status %d, want 201: %s", rec.Code, rec.Body)
	}

	got := decode[[]export.Annotation](t, f.get(t, "/api/v1/annotations"))
	if len(got) != 1 || got[0].MetricType != "OUR" {
		t.Errorf("annotations = %+v, want the stored one", got)
	}

	if rec := f.post(t, "/api/v1/annotations", export.Annotation{}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid annotation: status %d, want 400", rec.Code)
	}
}

func TestAlertsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/v1/alerts")
	if rec.Code != http.StatusOK {
		t.Fatalf("alerts: status %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("alerts body = %q, want empty array", got)
	}
}
