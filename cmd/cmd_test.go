package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/wealthkg/core/analysis"
	"github.com/adalundhe/wealthkg/core/cache"
	"github.com/adalundhe/wealthkg/core/config"
	"github.com/adalundhe/wealthkg/core/degree"
	"github.com/adalundhe/wealthkg/core/query"
	"github.com/adalundhe/wealthkg/core/stats"
	"github.com/adalundhe/wealthkg/core/storage"
)

func TestCommandsRegistered(t *testing.T) {
	assert.Equal(t, "wealthkg", rootCmd.Use)
	for _, name := range []string{"class", "classes", "stats"} {
		c := findCommand(t, name)
		assert.NotNil(t, c.RunE, "%s should have RunE", name)
	}
}

func TestRootPersistentFlags(t *testing.T) {
	pf := rootCmd.PersistentFlags()
	for _, name := range []string{
		"config", "endpoint", "prefix", "method", "log-level", "log-json", "metrics-addr",
		"timeout", "rps", "batch-retries", "class-retries", "concurrency", "cache-disk", "no-cache", "hard-capped", "no-color",
	} {
		assert.NotNil(t, pf.Lookup(name), "missing --%s", name)
	}
	assert.Equal(t, "e", pf.Lookup("endpoint").Shorthand)
}

func TestClassFlags(t *testing.T) {
	c := findCommand(t, "class")

	class := c.Flags().Lookup("class")
	require.NotNil(t, class)
	assert.Equal(t, "c", class.Shorthand)

	limit := c.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "10000", limit.DefValue)

	column := c.Flags().Lookup("column")
	require.NotNil(t, column)
	assert.Equal(t, "totalCount", column.DefValue)

	for _, name := range []string{"filter-entity", "filter-out", "filter-in", "filter", "distinct", "out", "json"} {
		assert.NotNil(t, c.Flags().Lookup(name), "missing --%s", name)
	}
}

func TestClassesFlags(t *testing.T) {
	c := findCommand(t, "classes")

	prop := c.Flags().Lookup("class-property")
	require.NotNil(t, prop)
	assert.Equal(t, analysis.DefaultClassProperty, prop.DefValue)

	for _, name := range []string{"class-id", "class-filter", "class-limit", "out-dir", "skip-failed", "no-save", "limit", "distinct"} {
		assert.NotNil(t, c.Flags().Lookup(name), "missing --%s", name)
	}
}

func TestStatsArgs(t *testing.T) {
	c := findCommand(t, "stats")
	assert.Error(t, c.Args(c, nil))
	assert.NoError(t, c.Args(c, []string{"dir"}))
	assert.Error(t, c.Args(c, []string{"a", "b"}))
	assert.Equal(t, "*.csv", c.Flags().Lookup("pattern").DefValue)
}

func TestBuildFilters(t *testing.T) {
	fs, err := buildFilters(
		[]string{"?s rdfs:label ?l ."},
		[]string{"FILTER(?p != rdf:type)"},
		[]string{"FILTER(isIRI(?o))"},
		[]string{"FILTER(?i != owl:sameAs)", "?s a ?t ."},
	)
	require.NoError(t, err)
	require.Len(t, fs, 5)

	assert.Equal(t, query.ScopeEntity, fs[0].Scope)
	assert.Equal(t, query.ScopeOutgoing, fs[1].Scope)
	assert.Equal(t, query.ScopeIncoming, fs[2].Scope)
	assert.Equal(t, query.ScopeIncoming, fs[3].Scope)
	assert.Equal(t, query.ScopeEntity, fs[4].Scope)
}

func TestBuildFilters_Uninferable(t *testing.T) {
	_, err := buildFilters(nil, nil, nil, []string{"FILTER(lang(?l) = 'en')"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--filter-entity")
}

func TestDiscoveryFilters(t *testing.T) {
	fs := discoveryFilters([]string{"?class rdfs:label ?l ."})
	require.Len(t, fs, 1)
	assert.Equal(t, query.ScopeEntity, fs[0].Scope)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "0.2500", formatFloat(0.25))
	assert.Equal(t, "n/a", formatFloat(math.NaN()))
	assert.Equal(t, "n/a", formatFloat(math.Inf(1)))
}

func TestJSONFloat(t *testing.T) {
	out, err := json.Marshal(map[string]jsonFloat{"a": 1.5, "b": jsonFloat(math.NaN()), "c": jsonFloat(math.Inf(-1))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null,"c":null}`, string(out))
}

func TestPrinter_NoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf)
	assert.False(t, p.color)

	p.heading("Report %d", 1)
	p.field("gini", "0.5000")
	assert.Equal(t, "Report 1\n  gini:              0.5000\n", buf.String())
	assert.NotContains(t, buf.String(), "\033[")
}

func TestPrinter_Matrix(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf).matrix(analysis.Matrix{
		Classes: []string{"A", "B"},
		Values:  [][]float64{{0, 1.5}, {1.5, 0}},
	})
	out := buf.String()
	assert.Contains(t, out, "1.5000")
	assert.Contains(t, out, "0.0000")

	buf.Reset()
	newPrinter(&buf).matrix(analysis.Matrix{})
	assert.Contains(t, buf.String(), "No classes")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("WARN").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}

func TestNewLogger_RunID(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "info", Format: "json"})
	logger.Info("hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.NotEmpty(t, rec["run_id"])
}

func TestOpenCache(t *testing.T) {
	dirs, err := storage.ResolveDirs()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rc, err := openCache(ctx, config.CacheConfig{}, dirs)
	require.NoError(t, err)
	assert.Nil(t, rc)

	rc, err = openCache(ctx, config.CacheConfig{Memory: true, TTL: time.Hour}, dirs)
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, rc)
	require.NoError(t, rc.Close())

	path := t.TempDir() + "/responses.db"
	rc, err = openCache(ctx, config.CacheConfig{Memory: true, Disk: true, Path: path}, dirs)
	require.NoError(t, err)
	tiered, ok := rc.(*cache.Tiered)
	require.True(t, ok)
	assert.Equal(t, 2, tiered.Len())
	require.NoError(t, rc.Close())
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	endpointURL = "https://query.example.org/sparql"
	httpMethod = "get"
	timeout = 5 * time.Second
	logJSON = true
	noCache = true
	require.NoError(t, rootCmd.PersistentFlags().Set("batch-retries", "0"))

	cfg, _, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://query.example.org/sparql", cfg.Endpoint.URL)
	assert.Equal(t, "GET", cfg.Endpoint.Method)
	assert.Equal(t, 5*time.Second, cfg.Endpoint.Timeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Cache.Memory)
	assert.False(t, cfg.Cache.Disk)
	assert.Equal(t, 0, cfg.Retry.Batch.MaxAttempts)
	assert.Equal(t, config.DefaultConfig().Retry.Class.MaxAttempts, cfg.Retry.Class.MaxAttempts)
	require.NoError(t, cfg.Validate())
}

func TestBuildAggregate(t *testing.T) {
	rs := analysis.NewResultSet()
	rs.Add("A", tableOf([][2]int{{1, 0}, {5, 0}}))
	rs.Add("B", tableOf([][2]int{{2, 0}, {2, 0}}))

	r, err := buildAggregate(rs, degree.Total)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Classes)
	assert.Equal(t, 4, r.TotalEntities)
	assert.InDelta(t, 2.0, float64(r.AverageEntities), 1e-12)

	want := (stats.Gini([]float64{1, 5}) + 0) / 2
	assert.InDelta(t, want, float64(r.Averages["gini"]), 1e-12)
	// Skewness needs three values; no class qualifies.
	assert.True(t, math.IsNaN(float64(r.Averages["skewness"])))
}
