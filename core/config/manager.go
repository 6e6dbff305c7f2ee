// Package config loads wealthkg settings from YAML files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	coreerrors "github.com/adalundhe/wealthkg/core/errors"
	"github.com/adalundhe/wealthkg/core/storage"
)

const envPrefix = "WEALTHKG_"

// Manager loads and holds the active Config.
type Manager struct {
	current     atomic.Pointer[Config]
	dirs        *storage.Dirs
	projectRoot string
}

// Config is the full wealthkg configuration.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Retry    RetryConfig    `yaml:"retry"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// EndpointConfig describes the SPARQL endpoint and how politely to query it.
type EndpointConfig struct {
	URL               string        `yaml:"url" validate:"required,url"`
	Method            string        `yaml:"method" validate:"oneof=GET POST"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	UserAgent         string        `yaml:"user_agent"`
	Prefixes          []string      `yaml:"prefixes"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
	HardCappedHosts   []string      `yaml:"hard_capped_hosts"`

	Breaker coreerrors.CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// FetchConfig controls when queries are split into sampled batches.
type FetchConfig struct {
	DirectLimit int `yaml:"direct_limit" validate:"gt=0"`
	BatchSize   int `yaml:"batch_size" validate:"gt=0"`
	// ClassConcurrency is the number of classes fetched at once by a
	// multi-class run.
	ClassConcurrency int `yaml:"class_concurrency" validate:"gte=1"`
}

// RetryConfig holds the retry policies for batch rounds and per-class fetches.
type RetryConfig struct {
	Batch coreerrors.RetryPolicy `yaml:"batch"`
	Class coreerrors.RetryPolicy `yaml:"class"`
}

// CacheConfig selects the response cache layers.
type CacheConfig struct {
	Memory       bool          `yaml:"memory"`
	Disk         bool          `yaml:"disk"`
	TTL          time.Duration `yaml:"ttl" validate:"gte=0"`
	MaxCostBytes int64         `yaml:"max_cost_bytes" validate:"gte=0"`
	// Path overrides the disk cache location under the XDG cache dir.
	Path string `yaml:"path"`
}

// LogConfig sets the slog level and handler format.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// NewManager creates a Manager holding DefaultConfig. projectRoot is where
// .wealthkg/config.yaml is looked up.
func NewManager(dirs *storage.Dirs, projectRoot string) *Manager {
	if projectRoot == "" {
		projectRoot = "."
	}
	m := &Manager{dirs: dirs, projectRoot: projectRoot}
	m.current.Store(DefaultConfig())
	return m
}

// DefaultConfig returns the built-in defaults. The endpoint URL is empty.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			Method:          "POST",
			Timeout:         2 * time.Minute,
			HardCappedHosts: []string{"dbpedia.org"},
			Breaker:         coreerrors.DefaultCircuitBreakerConfig(),
		},
		Fetch: FetchConfig{
			DirectLimit:      10000,
			BatchSize:        10000,
			ClassConcurrency: 1,
		},
		Retry: RetryConfig{
			Batch: coreerrors.BatchRetryPolicy(),
			Class: coreerrors.ClassRetryPolicy(),
		},
		Cache: CacheConfig{
			Memory: true,
			TTL:    24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Get returns the config from the last successful Load.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Load rebuilds the config from defaults, the project file, the user file,
// the optional explicit file and WEALTHKG_* variables, in that order.
func (m *Manager) Load(explicitPath string) error {
	cfg := DefaultConfig()

	project := storage.ResolveProjectDirs(m.projectRoot)
	if err := loadYAMLFile(project.Config, cfg, false); err != nil {
		return fmt.Errorf("project config: %w", err)
	}

	if m.dirs != nil {
		if err := loadYAMLFile(m.dirs.UserConfigFile(), cfg, false); err != nil {
			return fmt.Errorf("user config: %w", err)
		}
	}

	if explicitPath != "" {
		if err := loadYAMLFile(explicitPath, cfg, true); err != nil {
			return fmt.Errorf("config %s: %w", explicitPath, err)
		}
	}

	if err := applyEnvironment(cfg); err != nil {
		return err
	}

	m.current.Store(cfg)
	return nil
}

func loadYAMLFile(path string, cfg *Config, required bool) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return nil
	}
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return coreerrors.Wrap(coreerrors.ErrInvalidConfig, err)
	}
	return nil
}

type envBinding struct {
	name  string
	apply func(cfg *Config, v string) error
}

var envBindings = []envBinding{
	{"ENDPOINT", func(c *Config, v string) error { c.Endpoint.URL = v; return nil }},
	{"METHOD", func(c *Config, v string) error { c.Endpoint.Method = strings.ToUpper(v); return nil }},
	{"TIMEOUT", func(c *Config, v string) error { return setDuration(&c.Endpoint.Timeout, v) }},
	{"USER_AGENT", func(c *Config, v string) error { c.Endpoint.UserAgent = v; return nil }},
	{"PREFIXES", func(c *Config, v string) error { c.Endpoint.Prefixes = splitList(v, ";"); return nil }},
	{"RPS", func(c *Config, v string) error { return setFloat(&c.Endpoint.RequestsPerSecond, v) }},
	{"HARD_CAPPED_HOSTS", func(c *Config, v string) error { c.Endpoint.HardCappedHosts = splitList(v, ","); return nil }},
	{"DIRECT_LIMIT", func(c *Config, v string) error { return setInt(&c.Fetch.DirectLimit, v) }},
	{"BATCH_SIZE", func(c *Config, v string) error { return setInt(&c.Fetch.BatchSize, v) }},
	{"CLASS_CONCURRENCY", func(c *Config, v string) error { return setInt(&c.Fetch.ClassConcurrency, v) }},
	{"BATCH_RETRIES", func(c *Config, v string) error { return setInt(&c.Retry.Batch.MaxAttempts, v) }},
	{"CLASS_RETRIES", func(c *Config, v string) error { return setInt(&c.Retry.Class.MaxAttempts, v) }},
	{"CACHE_MEMORY", func(c *Config, v string) error { return setBool(&c.Cache.Memory, v) }},
	{"CACHE_DISK", func(c *Config, v string) error { return setBool(&c.Cache.Disk, v) }},
	{"CACHE_TTL", func(c *Config, v string) error { return setDuration(&c.Cache.TTL, v) }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil }},
	{"LOG_FORMAT", func(c *Config, v string) error { c.Log.Format = strings.ToLower(v); return nil }},
}

func applyEnvironment(cfg *Config) error {
	for _, b := range envBindings {
		v := os.Getenv(envPrefix + b.name)
		if v == "" {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return coreerrors.Wrap(coreerrors.ErrInvalidConfig, fmt.Errorf("%s%s=%q: %w", envPrefix, b.name, v, err))
		}
	}
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func splitList(v, sep string) []string {
	var out []string
	for _, part := range strings.Split(v, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the merged config. It runs after CLI flags are applied
// since the endpoint usually comes from a flag. A malformed endpoint URL
// is reported as ErrInvalidEndpointURL, the same error the client returns.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		for _, fe := range ves {
			if fe.Namespace() == "Config.Endpoint.URL" && fe.Tag() == "url" {
				return coreerrors.Wrap(coreerrors.ErrInvalidEndpointURL, err)
			}
		}
	}
	return coreerrors.Wrap(coreerrors.ErrInvalidConfig, err)
}

// ValidateOffline checks everything except the endpoint section, for
// commands that only read saved results.
func (c *Config) ValidateOffline() error {
	if err := validate.StructExcept(c, "Endpoint"); err != nil {
		return coreerrors.Wrap(coreerrors.ErrInvalidConfig, err)
	}
	return nil
}
