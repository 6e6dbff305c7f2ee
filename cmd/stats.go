package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adalundhe/wealthkg/core/analysis"
	"github.com/adalundhe/wealthkg/core/csvstore"
	"github.com/adalundhe/wealthkg/core/degree"
)

var (
	statsPattern string
	statsColumn  string
	statsMatrix  string
	statsJSON    bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <dir>",
	Short: "Recompute statistics from saved per-class CSV files",
	Long: `Load every per-class CSV file in a directory and report entity totals,
average inequality metrics and, optionally, a pairwise distance matrix.
No endpoint is contacted.

Examples:
  wealthkg stats ./humans
  wealthkg stats ./humans --column pCount --matrix ks --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsPattern, "pattern", csvstore.DefaultPattern, "Glob selecting files in the directory")
	statsCmd.Flags().StringVar(&statsColumn, "column", degree.Total.String(), "Degree column to report (pCount, iCount, totalCount)")
	statsCmd.Flags().StringVar(&statsMatrix, "matrix", "", "Also print a distance matrix (emd or ks)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	col, err := degree.ParseColumn(statsColumn)
	if err != nil {
		return err
	}
	var dist analysis.Distance
	if statsMatrix != "" {
		if dist, err = analysis.ParseDistance(statsMatrix); err != nil {
			return err
		}
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateOffline(); err != nil {
		return err
	}

	rs, err := csvstore.ReadFolder(args[0], statsPattern)
	if err != nil {
		return err
	}
	if rs.Len() == 0 {
		return fmt.Errorf("no non-empty tables matching %q in %s", statsPattern, args[0])
	}

	report, err := buildAggregate(rs, col)
	if err != nil {
		return err
	}
	var m analysis.Matrix
	if statsMatrix != "" {
		m = rs.DistanceMatrix(col, dist)
		report.Matrix = toMatrixJSON(dist, m)
	}

	if statsJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}

	p := newPrinter(cmd.OutOrStdout())
	p.aggregate(report)
	if statsMatrix != "" {
		fmt.Fprintln(cmd.OutOrStdout())
		p.heading("Distance matrix (%s)", dist)
		p.matrix(m)
	}
	return nil
}
