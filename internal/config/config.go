package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/standupstack/pulse-engine/internal/models"
)

// Config captures the settings required to boot the pulse engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Warning    WarningConfig    `yaml:"warning"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	Notify     NotifyConfig     `yaml:"notify"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

// ServerConfig controls the operational HTTP listener.
type ServerConfig struct {
	OpsAddress      string        `yaml:"opsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ProvidersConfig groups the external AI and tracker services. A provider
// with no credentials runs in mock mode; that is a supported configuration,
// not an error.
type ProvidersConfig struct {
	Speech    ProviderConfig `yaml:"speech"`
	Sentiment ProviderConfig `yaml:"sentiment"`
	Summary   ProviderConfig `yaml:"summary"`
	Tracker   TrackerConfig  `yaml:"tracker"`
}

// ProviderConfig configures one HTTP AI provider.
type ProviderConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TrackerConfig configures the issue-tracker lookup service.
type TrackerConfig struct {
	BaseURL  string        `yaml:"baseURL"`
	Email    string        `yaml:"email"`
	APIToken string        `yaml:"apiToken"`
	Timeout  time.Duration `yaml:"timeout"`
}

// PipelineConfig bounds the per-submission fan-out.
type PipelineConfig struct {
	ResolveConcurrency int `yaml:"resolveConcurrency"`
}

// AnalyticsConfig controls the default health computation window.
type AnalyticsConfig struct {
	Window time.Duration `yaml:"window"`
}

// WarningConfig holds early-warning thresholds.
type WarningConfig struct {
	LowSentiment         float64       `yaml:"lowSentiment"`
	SentimentTrendDelta  float64       `yaml:"sentimentTrendDelta"`
	BlockerRatio         float64       `yaml:"blockerRatio"`
	CriticalBlockerRatio float64       `yaml:"criticalBlockerRatio"`
	ExpectedCadence      time.Duration `yaml:"expectedCadence"`
	MinSamples           int           `yaml:"minSamples"`
}

// Thresholds converts the configured values into the evaluation input.
func (w WarningConfig) Thresholds() models.Thresholds {
	return models.Thresholds{
		LowSentiment:         w.LowSentiment,
		SentimentTrendDelta:  w.SentimentTrendDelta,
		BlockerRatio:         w.BlockerRatio,
		CriticalBlockerRatio: w.CriticalBlockerRatio,
		ExpectedCadence:      w.ExpectedCadence,
		MinSamples:           w.MinSamples,
	}
}

// StorageConfig configures the Postgres-backed result store.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// CacheConfig controls Valkey-backed caching of tracker lookups and alert
// dedup keys.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ResolveTTL   time.Duration `yaml:"resolveTTL"`
	DedupTTL     time.Duration `yaml:"dedupTTL"`
}

// NotifyConfig selects the alert dispatch channel. With neither Kafka nor a
// webhook configured, alerts are logged only.
type NotifyConfig struct {
	Kafka      KafkaConfig   `yaml:"kafka"`
	WebhookURL string        `yaml:"webhookURL"`
	Timeout    time.Duration `yaml:"timeout"`
}

// IngestConfig controls the Kafka submission consumer.
type IngestConfig struct {
	Enabled bool        `yaml:"enabled"`
	Kafka   KafkaConfig `yaml:"kafka"`
	GroupID string      `yaml:"groupID"`
}

// KafkaConfig names a broker set and topic.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// EvaluationConfig controls the periodic team evaluation loop.
type EvaluationConfig struct {
	Interval     time.Duration `yaml:"interval"`
	Teams        []string      `yaml:"teams"`
	SkipWeekends bool          `yaml:"skipWeekends"`
}

// Load initialises Config from a YAML file and optional environment
// overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PULSE_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engines cannot run with.
func (c *Config) Validate() error {
	if c.Pipeline.ResolveConcurrency <= 0 {
		return fmt.Errorf("pipeline.resolveConcurrency must be positive")
	}
	if c.Analytics.Window <= 0 {
		return fmt.Errorf("analytics.window must be positive")
	}
	if c.Warning.BlockerRatio < 0 || c.Warning.BlockerRatio > 1 {
		return fmt.Errorf("warning.blockerRatio must be within [0,1]")
	}
	if c.Warning.CriticalBlockerRatio < c.Warning.BlockerRatio || c.Warning.CriticalBlockerRatio > 1 {
		return fmt.Errorf("warning.criticalBlockerRatio must be within [blockerRatio,1]")
	}
	if c.Warning.LowSentiment < models.SentimentMin || c.Warning.LowSentiment > models.SentimentMax {
		return fmt.Errorf("warning.lowSentiment must be within [%v,%v]", models.SentimentMin, models.SentimentMax)
	}
	if c.Warning.ExpectedCadence <= 0 {
		return fmt.Errorf("warning.expectedCadence must be positive")
	}
	if c.Warning.MinSamples < 2 {
		return fmt.Errorf("warning.minSamples must be at least 2")
	}
	if c.Evaluation.Interval <= 0 {
		return fmt.Errorf("evaluation.interval must be positive")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			OpsAddress:      ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Providers: ProvidersConfig{
			Speech:    ProviderConfig{Timeout: 30 * time.Second},
			Sentiment: ProviderConfig{Timeout: 10 * time.Second},
			Summary:   ProviderConfig{Model: "gemini-2.0-flash", Timeout: 20 * time.Second},
			Tracker:   TrackerConfig{Timeout: 8 * time.Second},
		},
		Pipeline:  PipelineConfig{ResolveConcurrency: 4},
		Analytics: AnalyticsConfig{Window: 14 * 24 * time.Hour},
		Warning: WarningConfig{
			LowSentiment:         2.5,
			SentimentTrendDelta:  0.75,
			BlockerRatio:         0.5,
			CriticalBlockerRatio: 0.7,
			ExpectedCadence:      24 * time.Hour,
			MinSamples:           5,
		},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			ResolveTTL:   10 * time.Minute,
			DedupTTL:     24 * time.Hour,
		},
		Notify: NotifyConfig{Timeout: 5 * time.Second},
		Ingest: IngestConfig{GroupID: "pulse-engine"},
		Evaluation: EvaluationConfig{
			Interval:     time.Hour,
			SkipWeekends: true,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PULSE_ENGINE_OPS_ADDRESS"); v != "" {
		cfg.Server.OpsAddress = v
	}
	if v := os.Getenv("PULSE_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PULSE_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("PULSE_ENGINE_SPEECH_ENDPOINT"); v != "" {
		cfg.Providers.Speech.Endpoint = v
	}
	if v := os.Getenv("PULSE_ENGINE_SPEECH_API_KEY"); v != "" {
		cfg.Providers.Speech.APIKey = v
	}
	if v := os.Getenv("PULSE_ENGINE_SENTIMENT_ENDPOINT"); v != "" {
		cfg.Providers.Sentiment.Endpoint = v
	}
	if v := os.Getenv("PULSE_ENGINE_SENTIMENT_API_KEY"); v != "" {
		cfg.Providers.Sentiment.APIKey = v
	}
	if v := os.Getenv("PULSE_ENGINE_SUMMARY_ENDPOINT"); v != "" {
		cfg.Providers.Summary.Endpoint = v
	}
	if v := os.Getenv("PULSE_ENGINE_SUMMARY_API_KEY"); v != "" {
		cfg.Providers.Summary.APIKey = v
	}
	if v := os.Getenv("PULSE_ENGINE_SUMMARY_MODEL"); v != "" {
		cfg.Providers.Summary.Model = v
	}
	if v := os.Getenv("PULSE_ENGINE_TRACKER_BASE_URL"); v != "" {
		cfg.Providers.Tracker.BaseURL = v
	}
	if v := os.Getenv("PULSE_ENGINE_TRACKER_EMAIL"); v != "" {
		cfg.Providers.Tracker.Email = v
	}
	if v := os.Getenv("PULSE_ENGINE_TRACKER_API_TOKEN"); v != "" {
		cfg.Providers.Tracker.APIToken = v
	}
	if v := os.Getenv("PULSE_ENGINE_RESOLVE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.ResolveConcurrency = n
		}
	}
	if v := os.Getenv("PULSE_ENGINE_ANALYTICS_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analytics.Window = d
		}
	}
	if v := os.Getenv("PULSE_ENGINE_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("PULSE_ENGINE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("PULSE_ENGINE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("PULSE_ENGINE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("PULSE_ENGINE_ALERTS_BROKERS"); v != "" {
		cfg.Notify.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("PULSE_ENGINE_ALERTS_TOPIC"); v != "" {
		cfg.Notify.Kafka.Topic = v
	}
	if v := os.Getenv("PULSE_ENGINE_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("PULSE_ENGINE_INGEST_ENABLED"); v != "" {
		cfg.Ingest.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("PULSE_ENGINE_INGEST_BROKERS"); v != "" {
		cfg.Ingest.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("PULSE_ENGINE_INGEST_TOPIC"); v != "" {
		cfg.Ingest.Kafka.Topic = v
	}
	if v := os.Getenv("PULSE_ENGINE_INGEST_GROUP_ID"); v != "" {
		cfg.Ingest.GroupID = v
	}
	if v := os.Getenv("PULSE_ENGINE_EVAL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Evaluation.Interval = d
		}
	}
	if v := os.Getenv("PULSE_ENGINE_EVAL_TEAMS"); v != "" {
		cfg.Evaluation.Teams = splitList(v)
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
