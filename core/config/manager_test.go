package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/adalundhe/wealthkg/core/errors"
	"github.com/adalundhe/wealthkg/core/storage"
)

func testDirs(t *testing.T) *storage.Dirs {
	return &storage.Dirs{
		Config: t.TempDir(),
		Data:   t.TempDir(),
		Cache:  t.TempDir(),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "POST", cfg.Endpoint.Method)
	assert.Equal(t, 2*time.Minute, cfg.Endpoint.Timeout)
	assert.Equal(t, []string{"dbpedia.org"}, cfg.Endpoint.HardCappedHosts)
	assert.Equal(t, 10000, cfg.Fetch.DirectLimit)
	assert.Equal(t, 10000, cfg.Fetch.BatchSize)
	assert.Equal(t, 1, cfg.Fetch.ClassConcurrency)
	assert.Equal(t, 30, cfg.Retry.Batch.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.Batch.Delay)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.Class.Delay)
	assert.True(t, cfg.Cache.Memory)
	assert.False(t, cfg.Cache.Disk)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestManagerGet(t *testing.T) {
	m := NewManager(testDirs(t), t.TempDir())
	require.NotNil(t, m.Get())
	assert.Equal(t, "POST", m.Get().Endpoint.Method)
}

func TestManagerLoad_Layering(t *testing.T) {
	dirs := testDirs(t)
	project := t.TempDir()

	writeFile(t, filepath.Join(project, ".wealthkg", "config.yaml"), `
endpoint:
  url: https://project.example/sparql
  method: GET
fetch:
  batch_size: 500
`)
	writeFile(t, dirs.UserConfigFile(), `
endpoint:
  url: https://user.example/sparql
  prefixes:
    - "wd: <http://www.wikidata.org/entity/>"
retry:
  batch:
    max_attempts: 5
    delay: 250ms
`)
	explicit := filepath.Join(t.TempDir(), "run.yaml")
	writeFile(t, explicit, `
cache:
  disk: true
  ttl: 1h
`)

	m := NewManager(dirs, project)
	require.NoError(t, m.Load(explicit))
	cfg := m.Get()

	assert.Equal(t, "https://user.example/sparql", cfg.Endpoint.URL)
	assert.Equal(t, "GET", cfg.Endpoint.Method)
	assert.Equal(t, []string{"wd: <http://www.wikidata.org/entity/>"}, cfg.Endpoint.Prefixes)
	assert.Equal(t, 500, cfg.Fetch.BatchSize)
	assert.Equal(t, 10000, cfg.Fetch.DirectLimit)
	assert.Equal(t, 5, cfg.Retry.Batch.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Batch.Delay)
	assert.True(t, cfg.Retry.Batch.UseRetryAfter)
	assert.True(t, cfg.Cache.Disk)
	assert.True(t, cfg.Cache.Memory)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestManagerLoad_MissingExplicitFile(t *testing.T) {
	m := NewManager(testDirs(t), t.TempDir())
	err := m.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestManagerLoad_InvalidYAML(t *testing.T) {
	dirs := testDirs(t)
	writeFile(t, dirs.UserConfigFile(), "endpoint: [unclosed")

	m := NewManager(dirs, t.TempDir())
	err := m.Load("")
	assert.ErrorIs(t, err, coreerrors.ErrInvalidConfig)
}

func TestManagerLoad_Environment(t *testing.T) {
	t.Setenv("WEALTHKG_ENDPOINT", "https://env.example/sparql")
	t.Setenv("WEALTHKG_METHOD", "get")
	t.Setenv("WEALTHKG_TIMEOUT", "45s")
	t.Setenv("WEALTHKG_PREFIXES", "wd: <http://www.wikidata.org/entity/>; wdt: <http://www.wikidata.org/prop/direct/>")
	t.Setenv("WEALTHKG_BATCH_RETRIES", "-1")
	t.Setenv("WEALTHKG_CACHE_DISK", "true")
	t.Setenv("WEALTHKG_LOG_LEVEL", "DEBUG")

	m := NewManager(testDirs(t), t.TempDir())
	require.NoError(t, m.Load(""))
	cfg := m.Get()

	assert.Equal(t, "https://env.example/sparql", cfg.Endpoint.URL)
	assert.Equal(t, "GET", cfg.Endpoint.Method)
	assert.Equal(t, 45*time.Second, cfg.Endpoint.Timeout)
	assert.Len(t, cfg.Endpoint.Prefixes, 2)
	assert.Equal(t, coreerrors.Unbounded, cfg.Retry.Batch.MaxAttempts)
	assert.True(t, cfg.Cache.Disk)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestManagerLoad_BadEnvironment(t *testing.T) {
	t.Setenv("WEALTHKG_BATCH_SIZE", "lots")

	m := NewManager(testDirs(t), t.TempDir())
	err := m.Load("")
	assert.ErrorIs(t, err, coreerrors.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "WEALTHKG_BATCH_SIZE")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Endpoint.URL = "https://query.wikidata.org/sparql"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing endpoint", func(c *Config) { c.Endpoint.URL = "" }},
		{"bad method", func(c *Config) { c.Endpoint.Method = "PUT" }},
		{"zero batch", func(c *Config) { c.Fetch.BatchSize = 0 }},
		{"zero concurrency", func(c *Config) { c.Fetch.ClassConcurrency = 0 }},
		{"negative rps", func(c *Config) { c.Endpoint.RequestsPerSecond = -1 }},
		{"retry below unbounded", func(c *Config) { c.Retry.Class.MaxAttempts = -2 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), coreerrors.ErrInvalidConfig)
		})
	}
}

func TestValidate_MalformedEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint.URL = "not a url"

	err := cfg.Validate()
	assert.ErrorIs(t, err, coreerrors.ErrInvalidEndpointURL)
	assert.NotErrorIs(t, err, coreerrors.ErrInvalidConfig)
}

func TestValidateOffline_IgnoresEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.Validate())
	require.NoError(t, cfg.ValidateOffline())

	cfg.Log.Format = "xml"
	assert.ErrorIs(t, cfg.ValidateOffline(), coreerrors.ErrInvalidConfig)
}
