// Package cmd provides the wealthkg command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// =============================================================================
// Persistent Flags
// =============================================================================

var (
	configPath   string
	endpointURL  string
	prefixes     []string
	httpMethod   string
	logLevel     string
	logJSON      bool
	metricsAddr  string
	timeout      time.Duration
	requestsPerS float64
	batchRetries int
	classRetries int
	concurrency  int
	diskCache    bool
	noCache      bool
	hardCapped   bool
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "wealthkg",
	Short: "Measure degree inequality in knowledge graphs",
	Long: `wealthkg queries a SPARQL endpoint for the outgoing and incoming degree of
the entities of one or many classes and reports how unequally edges are
distributed: Gini, Palma, skewness, kurtosis and distances between classes.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (YAML) applied after project and user config")
	pf.StringVarP(&endpointURL, "endpoint", "e", "", "SPARQL endpoint URL")
	pf.StringArrayVar(&prefixes, "prefix", nil, `PREFIX declaration, e.g. "wd: <http://www.wikidata.org/entity/>" (repeatable)`)
	pf.StringVar(&httpMethod, "method", "", "HTTP method for queries (GET or POST)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&logJSON, "log-json", false, "Log as JSON")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	pf.DurationVar(&timeout, "timeout", 0, "Per-request timeout")
	pf.Float64Var(&requestsPerS, "rps", 0, "Maximum requests per second (0 = unlimited)")
	pf.IntVar(&batchRetries, "batch-retries", 0, "Retries per batch round (-1 = until interrupted)")
	pf.IntVar(&classRetries, "class-retries", 0, "Retries per class (-1 = until interrupted)")
	pf.IntVar(&concurrency, "concurrency", 0, "Classes fetched at once in multi-class runs")
	pf.BoolVar(&diskCache, "cache-disk", false, "Persist endpoint responses in the on-disk cache")
	pf.BoolVar(&noCache, "no-cache", false, "Disable all response caching")
	pf.BoolVar(&hardCapped, "hard-capped", false, "Always use a single query per direction, even for large limits")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// Execute runs the root command. Ctrl-C cancels in-flight queries and
// retry waits.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
