package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/reactorwatch/reactorwatch/internal/series"
)

const defaultTable = "sensor_data"

// Table names are interpolated into the query text, so only plain
// identifiers are accepted.
var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlProvider reads sensor samples from a relational table. The same
// implementation serves SQLite files and Postgres servers; only the
// driver and placeholder style differ.
type sqlProvider struct {
	db    *sql.DB
	query string
}

func openSQL(driver, dsn, table string) (*sqlProvider, error) {
	if dsn == "" {
		return nil, fmt.Errorf("source: %s: empty connection string", driver)
	}
	if table == "" {
		table = defaultTable
	}
	if !identifierRe.MatchString(table) {
		return nil, fmt.Errorf("source: invalid table name %q", table)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", driver, err)
	}

	ph1, ph2 := "?", "?"
	if driver == "pgx" {
		ph1, ph2 = "$1", "$2"
	}
	query := fmt.Sprintf(
		`SELECT timestamp, do_value, ph_value, temperature, reactor_weight, feed_bottle_weight, speed, torque
		 FROM %s WHERE timestamp >= %s AND timestamp <= %s ORDER BY timestamp ASC`,
		table, ph1, ph2)

	return &sqlProvider{db: db, query: query}, nil
}

// Fetch returns the samples recorded in [from, to] in ascending order.
func (p *sqlProvider) Fetch(ctx context.Context, from, to time.Time) (series.Series, error) {
	rows, err := p.db.QueryContext(ctx, p.query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("source: query samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out series.Series
	for rows.Next() {
		var (
			raw any
			smp series.Sample
		)
		if err := rows.Scan(&raw, &smp.DO, &smp.PH, &smp.Temperature,
			&smp.ReactorWeight, &smp.FeedBottleWeight, &smp.Speed, &smp.Torque); err != nil {
			return nil, fmt.Errorf("source: scan sample: %w", err)
		}
		ts, err := parseTimestamp(raw)
		if err != nil {
			return nil, fmt.Errorf("source: bad timestamp: %w", err)
		}
		smp.Timestamp = ts
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source: query samples: %w", err)
	}
	return out, nil
}

// Close closes the underlying database handle.
func (p *sqlProvider) Close() error {
	return p.db.Close()
}

// timestampLayouts are tried in order when the driver hands back text.
// Instrumentation writers are not consistent about this.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp coerces whatever the driver returned for the timestamp
// column into a time.Time. Postgres hands back time.Time directly;
// SQLite returns text or a unix number depending on how the writer
// stored it.
func parseTimestamp(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case float64:
		sec := int64(v)
		nsec := int64((v - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), nil
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
	case []byte:
		return parseTimestamp(string(v))
	default:
		return time.Time{}, fmt.Errorf("unrecognized timestamp type %T", raw)
	}
}
