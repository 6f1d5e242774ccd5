// Package config loads catalogcore's configuration from layered sources: built-in
// defaults, an optional YAML file, then environment variables — the same
// defaults-then-file-then-env precedence the wider codebase this core was adapted
// from uses for every service, implemented here with koanf.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from, and controls which, environment variables are read.
const EnvPrefix = "CATALOGCORE_"

// DefaultConfigPaths lists YAML config file locations searched in order.
var DefaultConfigPaths = []string{
	"catalogcore.yaml",
	"/etc/catalogcore/catalogcore.yaml",
}

// Config holds every operator knob named in the specification plus the ambient
// storage/logging/server settings needed to run the core as a standalone daemon.
type Config struct {
	// SecretKey derives the key used to decrypt Rating.APIKeyEncrypted, if
	// set (see internal/config/secret.go). Sourced from the environment in
	// practice — never give this a YAML default.
	SecretKey string          `koanf:"secret_key"`
	Storage   StorageConfig   `koanf:"storage"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Collect   CollectConfig   `koanf:"collect"`
	Health    HealthConfig    `koanf:"health"`
	Hits      HitsConfig      `koanf:"hits"`
	Classify  ClassifyConfig  `koanf:"classify"`
	Rating    RatingConfig    `koanf:"rating"`
	Trending  TrendingConfig  `koanf:"trending"`
	Aggregate AggregateConfig `koanf:"aggregate"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

// StorageConfig locates the durable catalog store and the embedded KV cache.
type StorageConfig struct {
	DuckDBPath string `koanf:"duckdb_path"`
	BadgerDir  string `koanf:"badger_dir"`
}

// ServerConfig configures the read-path HTTP surface.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures the process-wide logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// CollectConfig holds the Collection Engine's pacing/retry/pagination knobs
// (spec §6).
type CollectConfig struct {
	PageSize               int           `koanf:"page_size"`
	BatchSize              int           `koanf:"batch_size"`
	RequestDelay           time.Duration `koanf:"request_delay"`
	BatchDelay             time.Duration `koanf:"batch_delay"`
	MaxRetries             int           `koanf:"max_retries"`
	RequestTimeout         time.Duration `koanf:"request_timeout"`
	DetailTimeout          time.Duration `koanf:"detail_timeout"`
	ProgressUpdateInterval int           `koanf:"progress_update_interval"`
	RetryBackoffCap        time.Duration `koanf:"retry_backoff_cap"`
}

// HealthConfig holds the Source Health Tracker's thresholds.
type HealthConfig struct {
	ProbeTimeout        time.Duration `koanf:"probe_timeout"`
	SlowResponseMs      int64         `koanf:"slow_response_ms"`
	ErrorResponseMs     int64         `koanf:"error_response_ms"`
	MaxConsecutiveFails int           `koanf:"max_consecutive_failures"`
	ProbePaceDelay      time.Duration `koanf:"probe_pace_delay"`
	EMAAlpha            float64       `koanf:"ema_alpha"`
}

// HitsConfig holds the Hit Tracker's batching knobs.
type HitsConfig struct {
	BatchSize     int           `koanf:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`
	RetentionDays int           `koanf:"retention_days"`
}

// ClassifyConfig holds the Classifier's cache TTL.
type ClassifyConfig struct {
	MappingCacheTTL time.Duration `koanf:"mapping_cache_ttl"`
}

// RatingConfig holds the Rating Enricher's pacing/caching knobs.
type RatingConfig struct {
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	RetryAfter   time.Duration `koanf:"retry_after"`
	RequestDelay time.Duration `koanf:"request_delay"`
	BaseURL      string        `koanf:"base_url"`
	APIKey       string        `koanf:"api_key"`
	// APIKeyEncrypted, if set alongside Config.SecretKey, is decrypted into
	// APIKey during Load instead of carrying the key in plaintext through a
	// config file or process environment.
	APIKeyEncrypted string `koanf:"api_key_encrypted"`
}

// TrendingConfig holds the Recommender's trending cache TTL.
type TrendingConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// AggregateConfig holds the read-path Aggregator's fan-out knobs.
type AggregateConfig struct {
	FanoutTimeout  time.Duration `koanf:"fanout_timeout"`
	WelfareEnabled bool          `koanf:"welfare_enabled"`
}

// SchedulerConfig holds the Scheduler's routine caps and alert destination.
type SchedulerConfig struct {
	HourlyMaxPages       int           `koanf:"hourly_max_pages"`
	HourlyMaxVideos      int           `koanf:"hourly_max_videos"`
	DailyMaxPages        int           `koanf:"daily_max_pages"`
	DailyMaxVideos       int           `koanf:"daily_max_videos"`
	URLValidationBatch   int           `koanf:"url_validation_batch"`
	RatingBatchSize      int           `koanf:"rating_batch_size"`
	InvalidRetentionDays int           `koanf:"invalid_retention_days"`
	AccessLogRetainDays  int           `koanf:"access_log_retain_days"`
	TaskRetentionDays    int           `koanf:"task_retention_days"`
	AlertWebhookURL      string        `koanf:"alert_webhook_url"`
	TickInterval         time.Duration `koanf:"tick_interval"`
}

// defaultConfig returns every field populated with the specification's stated
// defaults (spec §6), to be layered under the file/env providers.
func defaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DuckDBPath: "./data/catalog.duckdb",
			BadgerDir:  "./data/kv",
		},
		Server: ServerConfig{Addr: ":8089", RateLimitRequests: 120, RateLimitWindow: time.Minute},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
		Collect: CollectConfig{
			PageSize:               20,
			BatchSize:              5,
			RequestDelay:           100 * time.Millisecond,
			BatchDelay:             300 * time.Millisecond,
			MaxRetries:             2,
			RequestTimeout:         8 * time.Second,
			DetailTimeout:          5 * time.Second,
			ProgressUpdateInterval: 20,
			RetryBackoffCap:        5 * time.Second,
		},
		Health: HealthConfig{
			ProbeTimeout:        10 * time.Second,
			SlowResponseMs:      2000,
			ErrorResponseMs:     8000,
			MaxConsecutiveFails: 5,
			ProbePaceDelay:      500 * time.Millisecond,
			EMAAlpha:            0.3,
		},
		Hits: HitsConfig{
			BatchSize:     100,
			FlushInterval: 60 * time.Second,
			RetentionDays: 30,
		},
		Classify: ClassifyConfig{
			MappingCacheTTL: 5 * time.Minute,
		},
		Rating: RatingConfig{
			CacheTTL:     30 * 24 * time.Hour,
			RetryAfter:   24 * time.Hour,
			RequestDelay: 250 * time.Millisecond,
			BaseURL:      "https://api.themoviedb.org/3",
		},
		Trending: TrendingConfig{
			CacheTTL: 10 * time.Minute,
		},
		Aggregate: AggregateConfig{
			FanoutTimeout:  8 * time.Second,
			WelfareEnabled: true,
		},
		Scheduler: SchedulerConfig{
			HourlyMaxPages:       3,
			HourlyMaxVideos:      100,
			DailyMaxPages:        10,
			DailyMaxVideos:       500,
			URLValidationBatch:   100,
			RatingBatchSize:      50,
			InvalidRetentionDays: 30,
			AccessLogRetainDays:  30,
			TaskRetentionDays:    30,
			TickInterval:         time.Minute,
		},
	}
}

// Load builds a Config from defaults, an optional YAML file (first of
// DefaultConfigPaths that exists, or the path in CATALOGCORE_CONFIG_PATH), then
// environment variables prefixed with EnvPrefix.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := configFilePath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", toDottedKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	applyBounds(&cfg)
	if err := decryptSecrets(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decryptSecrets fills in Rating.APIKey from Rating.APIKeyEncrypted when both
// it and SecretKey are set, so an operator can commit an encrypted key to a
// config file instead of a plaintext one.
func decryptSecrets(cfg *Config) error {
	if cfg.Rating.APIKeyEncrypted == "" {
		return nil
	}
	if cfg.SecretKey == "" {
		return fmt.Errorf("config: rating.api_key_encrypted is set but secret_key is empty")
	}
	enc, err := NewSecretEncryptor(cfg.SecretKey)
	if err != nil {
		return fmt.Errorf("config: build secret encryptor: %w", err)
	}
	plaintext, err := enc.Decrypt(cfg.Rating.APIKeyEncrypted)
	if err != nil {
		return fmt.Errorf("config: decrypt rating.api_key_encrypted: %w", err)
	}
	cfg.Rating.APIKey = plaintext
	return nil
}

func configFilePath() string {
	if p := os.Getenv(EnvPrefix + "CONFIG_PATH"); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func applyBounds(c *Config) {
	if c.Collect.PageSize <= 0 {
		c.Collect.PageSize = 20
	}
	if c.Collect.BatchSize <= 0 {
		c.Collect.BatchSize = 5
	}
	if c.Collect.MaxRetries < 0 {
		c.Collect.MaxRetries = 0
	}
	if c.Health.MaxConsecutiveFails <= 0 {
		c.Health.MaxConsecutiveFails = 5
	}
	if c.Hits.BatchSize <= 0 {
		c.Hits.BatchSize = 100
	}
}
