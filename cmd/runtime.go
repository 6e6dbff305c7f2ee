package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/adalundhe/wealthkg/core/analysis"
	"github.com/adalundhe/wealthkg/core/cache"
	"github.com/adalundhe/wealthkg/core/config"
	coreerrors "github.com/adalundhe/wealthkg/core/errors"
	"github.com/adalundhe/wealthkg/core/fetch"
	"github.com/adalundhe/wealthkg/core/query"
	"github.com/adalundhe/wealthkg/core/sparql"
	"github.com/adalundhe/wealthkg/core/storage"
)

// =============================================================================
// Configuration
// =============================================================================

// loadConfig merges files, environment and the persistent flags.
func loadConfig() (*config.Config, *storage.Dirs, error) {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return nil, nil, err
	}

	m := config.NewManager(dirs, ".")
	if err := m.Load(configPath); err != nil {
		return nil, nil, err
	}
	cfg := m.Get()

	overrides := &config.Config{}
	overrides.Endpoint.URL = endpointURL
	overrides.Endpoint.Prefixes = prefixes
	overrides.Endpoint.Method = strings.ToUpper(httpMethod)
	overrides.Endpoint.Timeout = timeout
	overrides.Endpoint.RequestsPerSecond = requestsPerS
	overrides.Fetch.ClassConcurrency = concurrency
	overrides.Log.Level = strings.ToLower(logLevel)
	if logJSON {
		overrides.Log.Format = "json"
	}
	config.Overlay(cfg, overrides)

	// 0 is a meaningful retry count, so these bypass Overlay.
	pf := rootCmd.PersistentFlags()
	if pf.Changed("batch-retries") {
		cfg.Retry.Batch.MaxAttempts = batchRetries
	}
	if pf.Changed("class-retries") {
		cfg.Retry.Class.MaxAttempts = classRetries
	}
	if diskCache {
		cfg.Cache.Disk = true
	}
	if noCache {
		cfg.Cache.Memory = false
		cfg.Cache.Disk = false
	}
	return cfg, dirs, nil
}

// =============================================================================
// Logging
// =============================================================================

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// newLogger builds the run logger. Every record carries the run id so
// interleaved logs of concurrent crawls can be told apart.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("run_id", uuid.NewString())
}

// =============================================================================
// Runtime
// =============================================================================

// runtime holds everything a querying command needs.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	client     *sparql.Client
	fetcher    *fetch.Fetcher
	aggregator *analysis.Aggregator
	analyzer   *analysis.Analyzer
	cache      cache.ResponseCache
	metricsSrv *http.Server
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, dirs, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)
	slog.SetDefault(logger)
	rt := &runtime{cfg: cfg, logger: logger}

	rc, err := openCache(cmd.Context(), cfg.Cache, dirs)
	if err != nil {
		return nil, err
	}
	rt.cache = rc

	opts := []sparql.Option{
		sparql.WithLogger(logger),
		sparql.WithCircuitBreaker(coreerrors.NewCircuitBreaker(cfg.Endpoint.URL, cfg.Endpoint.Breaker)),
	}
	if rc != nil {
		opts = append(opts, sparql.WithCache(rc))
	}
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, sparql.WithMetrics(sparql.NewMetrics(reg)))
		rt.metricsSrv = serveMetrics(metricsAddr, reg, logger)
	}

	client, err := sparql.NewClient(sparql.Config{
		Endpoint:          cfg.Endpoint.URL,
		Method:            cfg.Endpoint.Method,
		Timeout:           cfg.Endpoint.Timeout,
		UserAgent:         cfg.Endpoint.UserAgent,
		RequestsPerSecond: cfg.Endpoint.RequestsPerSecond,
		Burst:             cfg.Endpoint.Burst,
	}, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.client = client

	rt.fetcher = fetch.NewFetcher(client, query.NewBuilder(cfg.Endpoint.Prefixes), fetch.Config{
		DirectLimit: cfg.Fetch.DirectLimit,
		BatchSize:   cfg.Fetch.BatchSize,
		HardCapped:  hardCapped || fetch.HardCappedEndpoint(cfg.Endpoint.URL, cfg.Endpoint.HardCappedHosts),
		BatchRetry:  cfg.Retry.Batch,
	}, logger)
	rt.analyzer = analysis.NewAnalyzer(rt.fetcher, logger)
	rt.aggregator = analysis.NewAggregator(rt.fetcher, analysis.AggregatorConfig{
		ClassRetry:  cfg.Retry.Class,
		Concurrency: cfg.Fetch.ClassConcurrency,
	}, logger)

	logger.Debug("runtime ready",
		"endpoint", cfg.Endpoint.URL,
		"method", client.Method(),
		"hard_capped", rt.fetcher.Config().HardCapped,
		"memory_cache", cfg.Cache.Memory,
		"disk_cache", cfg.Cache.Disk)
	return rt, nil
}

func openCache(ctx context.Context, cfg config.CacheConfig, dirs *storage.Dirs) (cache.ResponseCache, error) {
	var layers []cache.ResponseCache
	if cfg.Memory {
		mc, err := cache.NewMemoryCache(&cache.MemoryConfig{MaxCost: cfg.MaxCostBytes, TTL: cfg.TTL})
		if err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		layers = append(layers, mc)
	}
	if cfg.Disk {
		path := cfg.Path
		if path == "" {
			path = dirs.ResponseCacheFile()
		}
		dc, err := cache.OpenDiskCache(ctx, cache.DiskConfig{Path: path, TTL: cfg.TTL})
		if err != nil {
			for _, l := range layers {
				l.Close()
			}
			return nil, fmt.Errorf("disk cache: %w", err)
		}
		layers = append(layers, dc)
	}

	switch len(layers) {
	case 0:
		return nil, nil
	case 1:
		return layers[0], nil
	}
	return cache.NewTiered(layers...), nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

// Close releases the caches and stops the metrics server.
func (rt *runtime) Close() {
	if sr, ok := rt.cache.(cache.StatsReporter); ok {
		s := sr.Stats()
		rt.logger.Debug("response cache", "hits", s.Hits, "misses", s.Misses, "sets", s.Sets, "hit_rate", s.HitRate)
	}
	if rt.cache != nil {
		if err := rt.cache.Close(); err != nil {
			rt.logger.Warn("closing cache", "error", err)
		}
	}
	if rt.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		rt.metricsSrv.Shutdown(ctx)
	}
}
