package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `
database:
  db_name: ibpm
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 200, cfg.Extraction.BatchSize)
	assert.Equal(t, 5, cfg.Extraction.NegationWindow)
	assert.Equal(t, "preserve", cfg.Extraction.DedupePolicy)
	assert.Equal(t, "ibpm.note.extract", cfg.Kafka.ExtractTopic)
	assert.Equal(t, 10*time.Minute, cfg.Analytics.PivotCacheTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
  mode: debug
database:
  db_name: ibpm
  host: db.internal
extraction:
  workers: 8
  batch_size: 50
  negation_window: 7
  dedupe_policy: dedupe
analytics:
  include_negated: true
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 8, cfg.Extraction.Workers)
	assert.Equal(t, 50, cfg.Extraction.BatchSize)
	assert.Equal(t, 7, cfg.Extraction.NegationWindow)
	assert.Equal(t, "dedupe", cfg.Extraction.DedupePolicy)
	assert.True(t, cfg.Analytics.IncludeNegated)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IBPM_DATABASE_DB_NAME", "ibpm")
	t.Setenv("IBPM_DATABASE_HOST", "db.internal")
	t.Setenv("IBPM_SERVER_PORT", "9191")
	t.Setenv("IBPM_EXTRACTION_DEDUPE_POLICY", "dedupe")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "ibpm", cfg.Database.DBName)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "dedupe", cfg.Extraction.DedupePolicy)
	assert.Equal(t, 200, cfg.Extraction.BatchSize, "defaults still apply")
}

func TestLoadFromEnvValidates(t *testing.T) {
	// No IBPM_DATABASE_DB_NAME set; validation must reject the result.
	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestWatchDeliversReparsedConfig(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	changed := make(chan *Config, 1)
	Watch(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	require.NoError(t, os.WriteFile(path, []byte(`
database:
  db_name: ibpm
logging:
  level: debug
`), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, "debug", cfg.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing db name", func(c *Config) { c.Database.DBName = "" }},
		{"bad mode", func(c *Config) { c.Server.Mode = "party" }},
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
		{"zero batch size", func(c *Config) { c.Extraction.BatchSize = 0 }},
		{"zero negation window", func(c *Config) { c.Extraction.NegationWindow = 0 }},
		{"negative workers", func(c *Config) { c.Extraction.Workers = -2 }},
		{"bad offset reset", func(c *Config) { c.Kafka.AutoOffsetReset = "middle" }},
		{"bad dedupe policy", func(c *Config) { c.Extraction.DedupePolicy = "sometimes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			cfg.Database.DBName = "ibpm"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMustLoadPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
	})
}
