package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/Armandase/seconde-main/pkg/config"
)

// Search engine implementations selectable with SEARCH_ENGINE.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"SEARCH_HTTP_PORT" envDefault:"4002"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Search engine selection (elasticsearch or memory)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`

	// Elasticsearch
	ElasticsearchURLs     []string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200" envSeparator:","`
	ElasticsearchIndex    string   `env:"ELASTICSEARCH_INDEX" envDefault:"products"`
	ElasticsearchUsername string   `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string   `env:"ELASTICSEARCH_PASSWORD"`

	// Search behaviour
	CategoryBuckets      int           `env:"CATEGORY_BUCKETS" envDefault:"100"`
	DefaultPageSize      int           `env:"DEFAULT_PAGE_SIZE" envDefault:"20"`
	MaxPageSize          int           `env:"MAX_PAGE_SIZE" envDefault:"100"`
	SlowStoreOpThreshold time.Duration `env:"SLOW_STORE_OP_THRESHOLD" envDefault:"200ms"`

	// Redis category cache; an empty address disables it.
	RedisAddr          string        `env:"REDIS_ADDR"`
	RedisPassword      string        `env:"REDIS_PASSWORD"`
	RedisDB            int           `env:"REDIS_DB" envDefault:"0"`
	CategoriesCacheTTL time.Duration `env:"CATEGORIES_CACHE_TTL" envDefault:"30s"`

	// Kafka ingestion; no brokers disables the consumer.
	KafkaBrokers        []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaIngestTopic    string        `env:"KAFKA_INGEST_TOPIC" envDefault:"marketplace.listing.scraped"`
	KafkaGroupID        string        `env:"KAFKA_GROUP_ID" envDefault:"search-service"`
	KafkaIdempotencyTTL time.Duration `env:"KAFKA_IDEMPOTENCY_TTL" envDefault:"24h"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// pprof
	PprofEnabled      bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CacheEnabled reports whether a redis category cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// KafkaEnabled reports whether listing ingestion from Kafka is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.SearchEngine {
	case EngineElasticsearch:
		if len(c.ElasticsearchURLs) == 0 {
			return errors.New("ELASTICSEARCH_URL is required when SEARCH_ENGINE=elasticsearch")
		}
		if c.ElasticsearchIndex == "" {
			return errors.New("ELASTICSEARCH_INDEX must not be empty")
		}
	case EngineMemory:
	default:
		return fmt.Errorf("invalid SEARCH_ENGINE %q: must be %s or %s", c.SearchEngine, EngineElasticsearch, EngineMemory)
	}
	if c.CategoryBuckets < 1 {
		return fmt.Errorf("invalid CATEGORY_BUCKETS: %d", c.CategoryBuckets)
	}
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("invalid DEFAULT_PAGE_SIZE: %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("MAX_PAGE_SIZE (%d) must be at least DEFAULT_PAGE_SIZE (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATE: %g", c.OTELSampleRate)
	}
	if c.KafkaEnabled() && c.KafkaIngestTopic == "" {
		return errors.New("KAFKA_INGEST_TOPIC must not be empty when KAFKA_BROKERS is set")
	}
	return nil
}
