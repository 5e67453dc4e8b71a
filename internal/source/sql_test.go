package source

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/reactorwatch/reactorwatch/internal/config"
)

func seedSensorDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensors.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE sensor_data (
		timestamp TIMESTAMP, do_value REAL, ph_value REAL, temperature REAL,
		reactor_weight REAL, feed_bottle_weight REAL, speed REAL, torque REAL
	)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := db.Exec(
			`INSERT INTO sensor_data VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			base.Add(time.Duration(i)*time.Minute),
			6.0-float64(i)*0.1, 7.0, 30.0, 1000.0+float64(i), 500.0-float64(i), 200.0, 1.5)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return path
}

func TestSQLProvider_Fetch(t *testing.T) {
	p, err := New(config.SourceConfig{Type: "sqlite", Path: seedSensorDB(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	samples, err := p.Fetch(context.Background(), base.Add(time.Minute), base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("Fetch returned %d samples, want 3 (bounds inclusive)", len(samples))
	}
	if samples[0].DO != 5.9 {
		t.Errorf("first DO = %v, want 5.9", samples[0].DO)
	}
	if !samples[0].Timestamp.Equal(base.Add(time.Minute)) {
		t.Errorf("first timestamp = %v, want %v", samples[0].Timestamp, base.Add(time.Minute))
	}
	for i := 1; i < len(samples); i++ {
		if !samples[i].Timestamp.After(samples[i-1].Timestamp) {
			t.Errorf("samples out of order at %d", i)
		}
	}
}

func TestSQLProvider_EmptyWindow(t *testing.T) {
	p, err := New(config.SourceConfig{Type: "sqlite", Path: seedSensorDB(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	samples, err := p.Fetch(context.Background(),
		time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("Fetch returned %d samples, want 0", len(samples))
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SourceConfig
	}{
		{"unsupported type", config.SourceConfig{Type: "csv"}},
		{"sqlite without path", config.SourceConfig{Type: "sqlite"}},
		{"postgres without dsn", config.SourceConfig{Type: "postgres"}},
		{"injection in table name", config.SourceConfig{Type: "sqlite", Path: "x.db", Table: "sensor_data; DROP TABLE x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Error("New: expected error")
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  any
	}{
		{"time.Time", want},
		{"unix seconds", want.Unix()},
		{"unix float", float64(want.Unix())},
		{"rfc3339", "2025-03-14T09:00:00Z"},
		{"sqlite text", "2025-03-14 09:00:00"},
		{"bytes", []byte("2025-03-14T09:00:00Z")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseTimestamp(tc.raw)
			if err != nil {
				t.Fatalf("parseTimestamp: %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("parseTimestamp = %v, want %v", got, want)
			}
		})
	}

	if _, err := parseTimestamp("not a time"); err == nil {
		t.Error("parseTimestamp on garbage: expected error")
	}
	if _, err := parseTimestamp(struct{}{}); err == nil {
		t.Error("parseTimestamp on struct: expected error")
	}
}
