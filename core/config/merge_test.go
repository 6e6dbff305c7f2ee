package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlay_NonZeroFieldsWin(t *testing.T) {
	dst := DefaultConfig()
	dst.Endpoint.URL = "https://file.example/sparql"

	src := &Config{}
	src.Endpoint.Method = "GET"
	src.Fetch.BatchSize = 250
	src.Endpoint.Prefixes = []string{"ex: <http://ex.org/>"}
	src.Retry.Class.Delay = time.Second

	Overlay(dst, src)

	assert.Equal(t, "https://file.example/sparql", dst.Endpoint.URL)
	assert.Equal(t, "GET", dst.Endpoint.Method)
	assert.Equal(t, 250, dst.Fetch.BatchSize)
	assert.Equal(t, 10000, dst.Fetch.DirectLimit)
	assert.Equal(t, []string{"ex: <http://ex.org/>"}, dst.Endpoint.Prefixes)
	assert.Equal(t, time.Second, dst.Retry.Class.Delay)
	assert.Equal(t, 50, dst.Retry.Class.MaxAttempts)
	assert.Equal(t, []string{"dbpedia.org"}, dst.Endpoint.HardCappedHosts)
}

func TestOverlay_IgnoresMismatchedArguments(t *testing.T) {
	dst := DefaultConfig()
	Overlay(dst, LogConfig{Level: "debug"})
	Overlay(dst, &LogConfig{Level: "debug"})
	Overlay(*dst, &Config{})
	var nilCfg *Config
	Overlay(dst, nilCfg)

	assert.Equal(t, "info", dst.Log.Level)
}
