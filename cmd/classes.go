package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/adalundhe/wealthkg/core/analysis"
	"github.com/adalundhe/wealthkg/core/csvstore"
	"github.com/adalundhe/wealthkg/core/degree"
	"github.com/adalundhe/wealthkg/core/query"
	"github.com/adalundhe/wealthkg/core/storage"
)

var (
	classProperty string
	classID       string
	classFilters  []string
	classLimit    int
	classesOutDir string
	skipFailed    bool
	noSave        bool
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Discover classes and compare their degree distributions",
	Long: `Discover the classes reachable through a class property, fetch the degree
table of every class and report averages over all classes. Tables are saved
as one CSV per class so "wealthkg stats" can recompute without the endpoint.

Examples:
  wealthkg classes --class-limit 20 --limit 5000
  wealthkg classes --class-property wdt:P279 --class-id wd:Q5 --out-dir ./humans`,
	RunE: runClasses,
}

func init() {
	rootCmd.AddCommand(classesCmd)

	classesCmd.Flags().StringVar(&classProperty, "class-property", analysis.DefaultClassProperty, "Property linking an entity (or subclass) to its class")
	classesCmd.Flags().StringVar(&classID, "class-id", "", "Select subclasses of this class instead of instance classes")
	classesCmd.Flags().StringArrayVar(&classFilters, "class-filter", nil, "Pattern or FILTER applied to class discovery (repeatable)")
	classesCmd.Flags().IntVar(&classLimit, "class-limit", 0, "Maximum number of classes (0 = no limit)")
	classesCmd.Flags().StringVar(&classesOutDir, "out-dir", "", "Directory for per-class CSV files (default: a timestamped dir under the data dir)")
	classesCmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "Skip classes whose retries ran out instead of stopping")
	classesCmd.Flags().BoolVar(&noSave, "no-save", false, "Do not write per-class CSV files")
	addQueryFlags(classesCmd)
}

func discoveryFilters(texts []string) query.Filters {
	fs := make(query.Filters, 0, len(texts))
	for _, t := range texts {
		fs = append(fs, query.EntityFilter(t))
	}
	return fs
}

func runClasses(cmd *cobra.Command, args []string) error {
	col, err := degree.ParseColumn(reportColumn)
	if err != nil {
		return err
	}
	filters, err := queryFilters()
	if err != nil {
		return err
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	rs, fetchErr := rt.aggregator.MultiClass(cmd.Context(), analysis.MultiClassRequest{
		Discovery: analysis.DiscoveryRequest{
			ClassProperty: classProperty,
			ClassID:       classID,
			Filters:       discoveryFilters(classFilters),
			Limit:         classLimit,
		},
		Fetch: analysis.FetchAllRequest{
			Filters:    filters,
			Limit:      queryLimit,
			Distinct:   queryDistinct,
			SkipFailed: skipFailed,
		},
	})
	if rs == nil {
		return fetchErr
	}

	// Partial results are still saved so a long crawl is not lost.
	if !noSave && rs.Len() > 0 {
		dir, err := resultsDir(classesOutDir)
		if err != nil {
			return errors.Join(fetchErr, err)
		}
		if err := csvstore.WriteFolder(dir, rs); err != nil {
			return errors.Join(fetchErr, err)
		}
		rt.logger.Info("tables saved", "dir", dir, "classes", rs.Len())
	}
	if fetchErr != nil {
		return fetchErr
	}

	if rs.Len() == 0 {
		newPrinter(cmd.OutOrStdout()).warn("No classes fetched.")
		return nil
	}

	report, err := buildAggregate(rs, col)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	newPrinter(cmd.OutOrStdout()).aggregate(report)
	return nil
}

func resultsDir(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return "", fmt.Errorf("resolve dirs: %w", err)
	}
	return dirs.ResultsDir(time.Now().Format("20060102-150405")), nil
}
