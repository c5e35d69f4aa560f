package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 4002, cfg.HTTPPort)
	assert.Equal(t, EngineElasticsearch, cfg.SearchEngine)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.ElasticsearchURLs)
	assert.Equal(t, "products", cfg.ElasticsearchIndex)
	assert.Equal(t, 100, cfg.CategoryBuckets)
	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, 30*time.Second, cfg.CategoriesCacheTTL)
	assert.Equal(t, "marketplace.listing.scraped", cfg.KafkaIngestTopic)
	assert.Equal(t, "search-service", cfg.KafkaGroupID)
	assert.False(t, cfg.CacheEnabled())
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.PprofEnabled)
	assert.Equal(t, []string{"127.0.0.1/32", "::1/128"}, cfg.PprofAllowedCIDRs)
}

func TestLoad_FromEnv(t *testing.T) {
	setEnvs(t, map[string]string{
		"SEARCH_ENGINE":        "memory",
		"SEARCH_HTTP_PORT":     "9000",
		"REDIS_ADDR":           "redis:6379",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
		"CATEGORIES_CACHE_TTL": "2m",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, EngineMemory, cfg.SearchEngine)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.True(t, cfg.CacheEnabled())
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2*time.Minute, cfg.CategoriesCacheTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		envs    map[string]string
		wantErr string
	}{
		{name: "port zero", envs: map[string]string{"SEARCH_HTTP_PORT": "0"}, wantErr: "invalid HTTP port"},
		{name: "port too large", envs: map[string]string{"SEARCH_HTTP_PORT": "70000"}, wantErr: "invalid HTTP port"},
		{name: "unknown engine", envs: map[string]string{"SEARCH_ENGINE": "solr"}, wantErr: "invalid SEARCH_ENGINE"},
		{name: "zero buckets", envs: map[string]string{"CATEGORY_BUCKETS": "0"}, wantErr: "invalid CATEGORY_BUCKETS"},
		{name: "max below default", envs: map[string]string{"MAX_PAGE_SIZE": "10"}, wantErr: "MAX_PAGE_SIZE"},
		{name: "sample rate", envs: map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, wantErr: "invalid OTEL_SAMPLE_RATE"},
		{name: "not a number", envs: map[string]string{"CATEGORY_BUCKETS": "many"}, wantErr: "load search config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, tt.envs)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
