package source

import (
	"context"
	"fmt"
	"time"

	"github.com/reactorwatch/reactorwatch/internal/config"
	"github.com/reactorwatch/reactorwatch/internal/series"
)

// Provider fetches the sensor samples recorded in [from, to].
type Provider interface {
	Fetch(ctx context.Context, from, to time.Time) (series.Series, error)
}

// New returns the Provider for the given source configuration.
func New(cfg config.SourceConfig) (Provider, error) {
	switch cfg.Type {
	case "sqlite":
		return openSQL("sqlite", cfg.Path, cfg.Table)
	case "postgres":
		return openSQL("pgx", cfg.ResolveDSN(), cfg.Table)
	case "promtext":
		return newPromProvider(cfg.Endpoint), nil
	default:
		return nil, fmt.Errorf("source: unsupported type %q", cfg.Type)
	}
}
