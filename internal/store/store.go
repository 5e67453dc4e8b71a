package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/reactorwatch/reactorwatch/internal/detect"
)

const schema = `CREATE TABLE IF NOT EXISTS feed_events (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	reactor_id     TEXT    NOT NULL,
	ts             INTEGER NOT NULL,
	feed_type      TEXT    NOT NULL,
	volume_l       REAL    NOT NULL,
	reactor_delta_g REAL   NOT NULL,
	bottle_delta_g REAL    NOT NULL,
	composition    TEXT,
	operator       TEXT,
	notes          TEXT
);
CREATE INDEX IF NOT EXISTS idx_feed_events_reactor_ts ON feed_events(reactor_id, ts);`

// Store is an append-only feed-event log backed by SQLite. It is safe
// for concurrent use; writes are serialized so simultaneous appends
// from the detection cycle and the manual-entry API cannot interleave.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes writes
}

// Open creates or opens the event database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("store: create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes one event for the given reactor and returns its row ID.
func (s *Store) Append(ctx context.Context, reactorID string, ev detect.Event) (int64, error) {
	var comp any
	if ev.Composition != nil {
		b, err := json.Marshal(ev.Composition)
		if err != nil {
			return 0, fmt.Errorf("store: encode composition: %w", err)
		}
		comp = string(b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feed_events
		 (reactor_id, ts, feed_type, volume_l, reactor_delta_g, bottle_delta_g, composition, operator, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reactorID, ev.Timestamp.UnixNano(), string(ev.FeedType), ev.VolumeLiters,
		ev.ReactorWeightDelta, ev.FeedBottleWeightDelta, comp, ev.Operator, ev.Notes)
	if err != nil {
		return 0, fmt.Errorf("store: append event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: last insert id: %w", err)
	}
	return id, nil
}

// Latest returns the most recent event for the reactor. ok is false
// when the reactor has no events yet.
func (s *Store) Latest(ctx context.Context, reactorID string) (detect.Event, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ts, feed_type, volume_l, reactor_delta_g, bottle_delta_g, composition, operator, notes
		 FROM feed_events WHERE reactor_id = ? ORDER BY ts DESC, id DESC LIMIT 1`, reactorID)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return detect.Event{}, false, nil
	}
	if err != nil {
		return detect.Event{}, false, fmt.Errorf("store: latest event: %w", err)
	}
	return ev, true, nil
}

// Query returns the reactor's events in [start, end] in chronological
// order. A zero start or end leaves that bound open; an empty feedType
// matches every type.
func (s *Store) Query(ctx context.Context, reactorID string, start, end time.Time, feedType detect.FeedType) ([]detect.Event, error) {
	q := `SELECT ts, feed_type, volume_l, reactor_delta_g, bottle_delta_g, composition, operator, notes
	      FROM feed_events WHERE reactor_id = ?`
	args := []any{reactorID}
	if !start.IsZero() {
		q += ` AND ts >= ?`
		args = append(args, start.UnixNano())
	}
	if !end.IsZero() {
		q += ` AND ts <= ?`
		args = append(args, end.UnixNano())
	}
	if feedType != "" {
		q += ` AND feed_type = ?`
		args = append(args, string(feedType))
	}
	q += ` ORDER BY ts ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []detect.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	return events, nil
}

// Recent returns the reactor's events from the trailing window ending now.
func (s *Store) Recent(ctx context.Context, reactorID string, window time.Duration) ([]detect.Event, error) {
	return s.Query(ctx, reactorID, time.Now().Add(-window), time.Time{}, "")
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (detect.Event, error) {
	var (
		ev       detect.Event
		tsNano   int64
		feedType string
		comp     sql.NullString
		operator sql.NullString
		notes    sql.NullString
	)
	if err := sc.Scan(&tsNano, &feedType, &ev.VolumeLiters, &ev.ReactorWeightDelta,
		&ev.FeedBottleWeightDelta, &comp, &operator, &notes); err != nil {
		return detect.Event{}, err
	}
	ev.Timestamp = time.Unix(0, tsNano).UTC()
	ev.FeedType = detect.FeedType(feedType)
	ev.Operator = operator.String
	ev.Notes = notes.String
	if comp.Valid && comp.String != "" {
		if err := json.Unmarshal([]byte(comp.String), &ev.Composition); err != nil {
			return detect.Event{}, fmt.Errorf("decode composition: %w", err)
		}
	}
	return ev, nil
}
