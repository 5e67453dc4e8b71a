package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultCycleInterval  = 30 * time.Second
	DefaultLookback       = 30 * time.Minute
	DefaultHTTPPort       = 8080
	DefaultSnapshotTTL    = 5 * time.Minute
	DefaultStoragePath    = "data/feed_events.db"
	DefaultMaxFeedVolume  = 2.0 // liters per single event
	DefaultExportDir      = "scientific_data"

	DefaultWeightThreshold = 20.0 // grams
	DefaultNoiseFilter     = 5.0  // grams
	DefaultDebounceWindow  = 60 * time.Second

	DefaultStabilityWindow    = 5 * time.Minute
	DefaultStabilityThreshold = 0.1 // mg/L

	DefaultAnalysisWindow    = 5 * time.Minute
	DefaultRecoveryThreshold = 0.95
	DefaultRSquaredMin       = 0.8
	DefaultDOLow             = 2.0 // mg/L
	DefaultDOCritical        = 1.0 // mg/L
)

// Config is the top-level configuration. Fields map 1:1 to
// config.example.yaml.
type Config struct {
	Monitor  MonitorConfig `yaml:"monitor"`
	Reactors []Reactor     `yaml:"reactors"`
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
	Kafka    KafkaConfig   `yaml:"kafka"`
	Feeds    FeedsConfig   `yaml:"feeds"`
	Export   ExportConfig  `yaml:"export"`
}

// MonitorConfig holds the analysis-cycle settings shared by all reactors.
type MonitorConfig struct {
	// CycleInterval controls how often each reactor's analysis cycle runs.
	CycleInterval time.Duration `yaml:"cycle_interval"`

	// Lookback is the width of the sample window fetched each cycle.
	Lookback time.Duration `yaml:"lookback"`

	Detection DetectionConfig `yaml:"detection"`
	Stability StabilityConfig `yaml:"stability"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

// DetectionConfig tunes the feed event detector.
type DetectionConfig struct {
	// WeightThresholdGrams is the minimum per-sample weight step, on both
	// channels, for a candidate feed event.
	WeightThresholdGrams float64 `yaml:"weight_threshold_g"`

	// NoiseFilterGrams clamps smaller deltas to zero so balance jitter
	// is never mistaken for dosing.
	NoiseFilterGrams float64 `yaml:"noise_filter_g"`

	// DebounceWindow suppresses further detections for this long after an
	// accepted event, so one dosing pulse cannot emit overlapping events
	// while the balance settles.
	DebounceWindow time.Duration `yaml:"time_window"`

	// ClassifyFeedType enables the majority-vote feed-type heuristic over
	// the past 24 hours of logged events. When false, automatic events
	// stay "auto_detected".
	ClassifyFeedType bool `yaml:"classify_feed_type"`
}

// StabilityConfig tunes the DO saturation estimator.
type StabilityConfig struct {
	// Window is the wall-clock span each rolling std-dev window covers.
	Window time.Duration `yaml:"window"`

	// Threshold is the maximum rolling std-dev (mg/L) for a window to be
	// classified stable.
	Threshold float64 `yaml:"threshold"`
}

// AnalysisConfig tunes the DO response metrics calculator.
type AnalysisConfig struct {
	// Window is the post-event span fed to the drop-rate regression.
	Window time.Duration `yaml:"window"`

	// RecoveryThreshold is the fraction of pre-event DO that counts as
	// recovered.
	RecoveryThreshold float64 `yaml:"recovery_threshold"`

	// RSquaredMin gates OUR/sOUR: a fit below this r² is not trusted.
	RSquaredMin float64 `yaml:"r_squared_minimum"`

	// DOLow and DOCritical classify the operational state shown by the
	// presentation layer. They do not affect any computed metric.
	DOLow      float64 `yaml:"do_low"`
	DOCritical float64 `yaml:"do_critical"`
}

// Reactor describes one monitored vessel.
type Reactor struct {
	// ID is a unique, human-readable identifier for this reactor.
	ID string `yaml:"id"`

	// Kla is the volumetric oxygen mass-transfer coefficient (h⁻¹),
	// determined per reactor. Zero means unknown — OUR is then absent.
	Kla float64 `yaml:"kla"`

	// BiomassGPerL is the TSS biomass proxy (g/L) used for sOUR.
	// Zero means unknown — sOUR is then absent.
	BiomassGPerL float64 `yaml:"biomass_g_per_l"`

	// Source is where this reactor's sensor samples come from.
	Source SourceConfig `yaml:"source"`
}

// SourceConfig selects and configures a sensor data provider.
type SourceConfig struct {
	// Type is one of: sqlite | postgres | promtext.
	Type string `yaml:"type"`

	// Path is the database file for sqlite sources.
	Path string `yaml:"path"`

	// DSN is the connection string for postgres sources. The value may
	// name an environment variable via DSNEnv instead, keeping credentials
	// out of the config file.
	DSN    string `yaml:"dsn"`
	DSNEnv string `yaml:"dsn_env"`

	// Table is the sensor data table name. Defaults to "sensor_data".
	Table string `yaml:"table"`

	// Endpoint is the metrics URL for promtext sources.
	Endpoint string `yaml:"endpoint"`
}

// ResolveDSN returns the postgres connection string, preferring the
// environment variable when configured.
func (s SourceConfig) ResolveDSN() string {
	if s.DSNEnv != "" {
		if v := os.Getenv(s.DSNEnv); v != "" {
			return v
		}
	}
	return s.DSN
}

// ServerConfig holds the HTTP/WebSocket surface settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and Prometheus
	// exposition listen on.
	HTTPPort int `yaml:"http_port"`

	// SnapshotTTL is how long a reactor snapshot stays live without an
	// update before the API reports it gone.
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`

	// Alerts holds alerting rule and webhook delivery configuration.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AlertsConfig holds all alerting rules and webhook targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines a threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier.
	Name string `yaml:"name"`

	// Condition is an expression like "do_value < 2" or "sour < 0.1".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// StorageConfig configures the persistent feed event log.
type StorageConfig struct {
	// Path is the filesystem path for the SQLite event log.
	Path string `yaml:"path"`
}

// KafkaConfig configures the optional feed-event publisher.
// Leaving Brokers empty disables publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// FeedsConfig carries the default feed solution compositions and the
// sanity limit applied to manually entered events.
type FeedsConfig struct {
	// MaxVolumeLiters rejects manual entries above this volume.
	MaxVolumeLiters float64 `yaml:"max_volume_liters"`

	Control      FeedComposition `yaml:"control"`
	Experimental FeedComposition `yaml:"experimental"`
}

// FeedComposition describes a feed solution. Only the relevant field is
// set per feed type: glucose for control feeds, TOC for experimental.
type FeedComposition struct {
	GlucoseGPerL float64 `yaml:"glucose_g_per_l"`
	TOCGPerL     float64 `yaml:"toc_g_per_l"`
}

// Components returns the composition as the component→concentration
// mapping stamped onto feed events.
func (f FeedComposition) Components() map[string]float64 {
	out := make(map[string]float64)
	if f.GlucoseGPerL > 0 {
		out["glucose"] = f.GlucoseGPerL
	}
	if f.TOCGPerL > 0 {
		out["toc"] = f.TOCGPerL
	}
	return out
}

// ExportConfig configures the scientific export directory.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Monitor: MonitorConfig{
			CycleInterval: DefaultCycleInterval,
			Lookback:      DefaultLookback,
			Detection: DetectionConfig{
				WeightThresholdGrams: DefaultWeightThreshold,
				NoiseFilterGrams:     DefaultNoiseFilter,
				DebounceWindow:       DefaultDebounceWindow,
			},
			Stability: StabilityConfig{
				Window:    DefaultStabilityWindow,
				Threshold: DefaultStabilityThreshold,
			},
			Analysis: AnalysisConfig{
				Window:            DefaultAnalysisWindow,
				RecoveryThreshold: DefaultRecoveryThreshold,
				RSquaredMin:       DefaultRSquaredMin,
				DOLow:             DefaultDOLow,
				DOCritical:        DefaultDOCritical,
			},
		},
		Server: ServerConfig{
			HTTPPort:    DefaultHTTPPort,
			SnapshotTTL: DefaultSnapshotTTL,
		},
		Storage: StorageConfig{Path: DefaultStoragePath},
		Feeds:   FeedsConfig{MaxVolumeLiters: DefaultMaxFeedVolume},
		Export:  ExportConfig{Dir: DefaultExportDir},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Monitor.CycleInterval <= 0 {
		return fmt.Errorf("monitor.cycle_interval must be positive")
	}
	if cfg.Monitor.Lookback <= 0 {
		return fmt.Errorf("monitor.lookback must be positive")
	}
	det := cfg.Monitor.Detection
	if det.WeightThresholdGrams <= 0 {
		return fmt.Errorf("monitor.detection.weight_threshold_g must be positive")
	}
	if det.NoiseFilterGrams < 0 {
		return fmt.Errorf("monitor.detection.noise_filter_g must not be negative")
	}
	if det.DebounceWindow <= 0 {
		return fmt.Errorf("monitor.detection.time_window must be positive")
	}
	if cfg.Monitor.Stability.Window <= 0 {
		return fmt.Errorf("monitor.stability.window must be positive")
	}
	if cfg.Monitor.Stability.Threshold <= 0 {
		return fmt.Errorf("monitor.stability.threshold must be positive")
	}
	an := cfg.Monitor.Analysis
	if an.Window <= 0 {
		return fmt.Errorf("monitor.analysis.window must be positive")
	}
	if an.RecoveryThreshold <= 0 || an.RecoveryThreshold > 1 {
		return fmt.Errorf("monitor.analysis.recovery_threshold must be in (0, 1]")
	}
	if an.RSquaredMin < 0 || an.RSquaredMin > 1 {
		return fmt.Errorf("monitor.analysis.r_squared_minimum must be in [0, 1]")
	}

	seen := make(map[string]bool, len(cfg.Reactors))
	for i, r := range cfg.Reactors {
		if r.ID == "" {
			return fmt.Errorf("reactors[%d]: id is required", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("reactors[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		if r.Kla < 0 {
			return fmt.Errorf("reactors[%d] %q: kla must not be negative", i, r.ID)
		}
		if r.BiomassGPerL < 0 {
			return fmt.Errorf("reactors[%d] %q: biomass_g_per_l must not be negative", i, r.ID)
		}
		switch r.Source.Type {
		case "sqlite":
			if r.Source.Path == "" {
				return fmt.Errorf("reactors[%d] %q: source.path is required for sqlite", i, r.ID)
			}
		case "postgres":
			if r.Source.ResolveDSN() == "" {
				return fmt.Errorf("reactors[%d] %q: source.dsn or source.dsn_env is required for postgres", i, r.ID)
			}
		case "promtext":
			if r.Source.Endpoint == "" {
				return fmt.Errorf("reactors[%d] %q: source.endpoint is required for promtext", i, r.ID)
			}
		default:
			return fmt.Errorf("reactors[%d] %q: unknown source type %q", i, r.ID, r.Source.Type)
		}
	}

	if cfg.Server.HTTPPort <= 0 {
		return fmt.Errorf("server.http_port must be positive")
	}
	if cfg.Server.SnapshotTTL <= 0 {
		return fmt.Errorf("server.snapshot_ttl must be positive")
	}
	for i, rule := range cfg.Server.Alerts.Rules {
		if rule.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if rule.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d] %q: condition is required", i, rule.Name)
		}
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are configured")
	}
	if cfg.Feeds.MaxVolumeLiters <= 0 {
		return fmt.Errorf("feeds.max_volume_liters must be positive")
	}
	return nil
}
