package config

import (
	"fmt"
	"time"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
)

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig controls the PostgreSQL connection pool holding the symptom
// master library and the clinical note corpus.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig controls the pivot response cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig controls note-ingestion messaging.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	ExtractTopic    string        `mapstructure:"extract_topic"`
	InvalidateTopic string        `mapstructure:"invalidate_topic"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	DeadLetterTopic string        `mapstructure:"dead_letter_topic"`
}

// ExtractionConfig tunes the matcher engine and the batch extraction service.
type ExtractionConfig struct {
	// Workers bounds the extraction worker pool; 0 means CPU count.
	Workers int `mapstructure:"workers"`

	// BatchSize bounds peak memory when walking very large corpora.
	// Batching exists purely for memory, not correctness.
	BatchSize int `mapstructure:"batch_size"`

	// NegationWindow is the number of preceding tokens within the same
	// clause inspected for negation cues.
	NegationWindow int `mapstructure:"negation_window"`

	// DedupePolicy selects the duplicate-event semantics: "preserve" keeps
	// every occurrence as its own event (the intensity signal); "dedupe"
	// collapses repeats per note to a single event.
	DedupePolicy string `mapstructure:"dedupe_policy"`
}

// AnalyticsConfig tunes aggregation and caching behaviour.
type AnalyticsConfig struct {
	// PivotCacheTTL bounds how stale a cached pivot response may be.
	PivotCacheTTL time.Duration `mapstructure:"pivot_cache_ttl"`

	// IncludeNegated flips the default "affirmed mentions only" counting.
	IncludeNegated bool `mapstructure:"include_negated"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Config is the root configuration object for all iBPM processes.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	Extraction ExtractionConfig  `mapstructure:"extraction"`
	Analytics  AnalyticsConfig   `mapstructure:"analytics"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Logging    logging.LogConfig `mapstructure:"logging"`
}

// ApplyDefaults fills unset fields with platform defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "migrations"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 10 * time.Minute
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "ibpm"
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "ibpm-extraction"
	}
	if cfg.Kafka.ExtractTopic == "" {
		cfg.Kafka.ExtractTopic = "ibpm.note.extract"
	}
	if cfg.Kafka.InvalidateTopic == "" {
		cfg.Kafka.InvalidateTopic = "ibpm.pivot.invalidate"
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = time.Second
	}

	if cfg.Extraction.BatchSize == 0 {
		cfg.Extraction.BatchSize = 200
	}
	if cfg.Extraction.NegationWindow == 0 {
		cfg.Extraction.NegationWindow = 5
	}
	if cfg.Extraction.DedupePolicy == "" {
		cfg.Extraction.DedupePolicy = "preserve"
	}

	if cfg.Analytics.PivotCacheTTL == 0 {
		cfg.Analytics.PivotCacheTTL = 10 * time.Minute
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate rejects configurations that cannot produce a working process.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode %q must be debug|release|test", c.Server.Mode)
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database.db_name is required")
	}
	if c.Extraction.BatchSize < 1 {
		return fmt.Errorf("extraction.batch_size must be positive")
	}
	if c.Extraction.NegationWindow < 1 {
		return fmt.Errorf("extraction.negation_window must be positive")
	}
	if c.Extraction.Workers < 0 {
		return fmt.Errorf("extraction.workers must not be negative")
	}
	switch c.Extraction.DedupePolicy {
	case "preserve", "dedupe":
	default:
		return fmt.Errorf("extraction.dedupe_policy %q must be preserve|dedupe", c.Extraction.DedupePolicy)
	}
	switch c.Kafka.AutoOffsetReset {
	case "earliest", "latest":
	default:
		return fmt.Errorf("kafka.auto_offset_reset %q must be earliest|latest", c.Kafka.AutoOffsetReset)
	}
	return nil
}
