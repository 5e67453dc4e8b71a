package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/reactorwatch/reactorwatch/internal/series"
)

const (
	defaultScrapeTimeout = 10 * time.Second

	// maxBufferedSamples caps the in-memory history a promtext provider
	// keeps. At one scrape per 30s cycle this holds several days.
	maxBufferedSamples = 10000
)

// Gauge names exposed by the reactor controller's metrics endpoint.
const (
	promDO           = "reactor_do_mg_per_l"
	promPH           = "reactor_ph"
	promTemperature  = "reactor_temperature_celsius"
	promWeight       = "reactor_weight_grams"
	promBottleWeight = "feed_bottle_weight_grams"
	promSpeed        = "reactor_speed_rpm"
	promTorque       = "reactor_torque"
)

// promProvider scrapes a Prometheus text endpoint. The endpoint only
// exposes the current reading, so the provider accumulates history in
// memory: each Fetch takes one scrape, appends it, and answers from the
// buffer.
type promProvider struct {
	endpoint string
	client   *http.Client
	now      func() time.Time

	mu  sync.Mutex
	buf series.Series
}

func newPromProvider(endpoint string) *promProvider {
	return &promProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultScrapeTimeout},
		now:      time.Now,
	}
}

// Fetch scrapes the endpoint once and returns the buffered samples in
// [from, to]. A failed scrape is logged and answered from the existing
// buffer; readings already collected stay usable.
func (p *promProvider) Fetch(ctx context.Context, from, to time.Time) (series.Series, error) {
	smp, err := p.scrape(ctx)
	if err != nil {
		slog.Warn("source: promtext scrape failed", "endpoint", p.endpoint, "err", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		p.buf = append(p.buf, smp)
		if len(p.buf) > maxBufferedSamples {
			p.buf = append(series.Series{}, p.buf[len(p.buf)-maxBufferedSamples:]...)
		}
	}
	return p.buf.Normalize().Window(from, to), nil
}

func (p *promProvider) scrape(ctx context.Context) (series.Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return series.Sample{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := p.client.Do(req)
	if err != nil {
		return series.Sample{}, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return series.Sample{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	mfs, err := parseFamilies(resp.Body)
	if err != nil {
		return series.Sample{}, err
	}
	return series.Sample{
		Timestamp:        p.now().UTC(),
		DO:               gaugeValue(mfs[promDO]),
		PH:               gaugeValue(mfs[promPH]),
		Temperature:      gaugeValue(mfs[promTemperature]),
		ReactorWeight:    gaugeValue(mfs[promWeight]),
		FeedBottleWeight: gaugeValue(mfs[promBottleWeight]),
		Speed:            gaugeValue(mfs[promSpeed]),
		Torque:           gaugeValue(mfs[promTorque]),
	}, nil
}

// parseFamilies decodes a Prometheus text exposition into metric
// families. A partial result with a non-fatal parse warning is still
// returned successfully.
func parseFamilies(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// gaugeValue returns the first sample's value in the family, 0 when the
// family is absent.
func gaugeValue(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	for _, m := range mf.GetMetric() {
		switch {
		case m.Gauge != nil:
			return m.Gauge.GetValue()
		case m.Untyped != nil:
			return m.Untyped.GetValue()
		case m.Counter != nil:
			return m.Counter.GetValue()
		}
	}
	return 0
}
