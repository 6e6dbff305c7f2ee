package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adalundhe/wealthkg/core/analysis"
	"github.com/adalundhe/wealthkg/core/csvstore"
	"github.com/adalundhe/wealthkg/core/degree"
	"github.com/adalundhe/wealthkg/core/query"
	"github.com/adalundhe/wealthkg/core/stats"
)

// =============================================================================
// Shared Query Flags
// =============================================================================

var (
	filterEntity  []string
	filterOut     []string
	filterIn      []string
	filterLegacy  []string
	queryDistinct bool
	queryLimit    int
	reportColumn  string
	outputJSON    bool
)

const defaultLimit = 10000

func addQueryFlags(c *cobra.Command) {
	c.Flags().StringArrayVar(&filterEntity, "filter-entity", nil, "Filter on the entity ?s, applied to both directions (repeatable)")
	c.Flags().StringArrayVar(&filterOut, "filter-out", nil, "Filter on outgoing edges ?s ?p ?o (repeatable)")
	c.Flags().StringArrayVar(&filterIn, "filter-in", nil, "Filter on incoming edges ?o ?i ?s (repeatable)")
	c.Flags().StringArrayVar(&filterLegacy, "filter", nil, "Filter whose scope is inferred from ?s, ?p or ?i (repeatable)")
	c.Flags().BoolVarP(&queryDistinct, "distinct", "d", false, "Count distinct neighbours instead of edges")
	c.Flags().IntVarP(&queryLimit, "limit", "l", defaultLimit, "Maximum entities per class")
	c.Flags().StringVar(&reportColumn, "column", degree.Total.String(), "Degree column to report (pCount, iCount, totalCount)")
	c.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
}

// buildFilters tags every filter with its scope. Untagged filters go
// through InferScope and fail when no marker variable is present.
func buildFilters(entity, out, in, untagged []string) (query.Filters, error) {
	var fs query.Filters
	for _, t := range entity {
		fs = append(fs, query.EntityFilter(t))
	}
	for _, t := range out {
		fs = append(fs, query.OutgoingFilter(t))
	}
	for _, t := range in {
		fs = append(fs, query.IncomingFilter(t))
	}
	for _, t := range untagged {
		scope, ok := query.InferScope(t)
		if !ok {
			return nil, fmt.Errorf("cannot infer scope of filter %q: use --filter-entity, --filter-out or --filter-in", t)
		}
		fs = append(fs, query.Filter{Scope: scope, Text: t})
	}
	return fs, nil
}

func queryFilters() (query.Filters, error) {
	return buildFilters(filterEntity, filterOut, filterIn, filterLegacy)
}

// =============================================================================
// Class Command
// =============================================================================

var (
	classPatterns []string
	classOutFile  string
	classCurves   bool
)

var classCmd = &cobra.Command{
	Use:   "class",
	Short: "Analyze the degree distribution of one class",
	Long: `Fetch outgoing and incoming degrees for the entities matching the given
class patterns and report summary statistics, Gini and Palma ratios.

Examples:
  wealthkg class -e https://query.wikidata.org/sparql \
      --prefix "wdt: <http://www.wikidata.org/prop/direct/>" \
      --prefix "wd: <http://www.wikidata.org/entity/>" \
      --class "wdt:P31 wd:Q5" --limit 50000

  wealthkg class --class "a dbo:Person" --filter-out "FILTER(?p != rdf:type)" --json`,
	RunE: runClass,
}

func init() {
	rootCmd.AddCommand(classCmd)

	classCmd.Flags().StringArrayVarP(&classPatterns, "class", "c", nil, `Predicate-object pattern applied to ?s, e.g. "wdt:P31 wd:Q5" (repeatable)`)
	classCmd.Flags().StringVarP(&classOutFile, "out", "o", "", "Save the degree table as CSV")
	classCmd.Flags().BoolVar(&classCurves, "curves", false, "Include Lorenz and Pareto curve points in JSON output")
	addQueryFlags(classCmd)
}

type classReport struct {
	ClassFilter string      `json:"class_filter"`
	Distinct    bool        `json:"distinct"`
	Entities    int         `json:"entities"`
	Column      string      `json:"column"`
	Summary     summaryJSON `json:"summary"`
	Gini        jsonFloat   `json:"gini"`
	Palma       jsonFloat   `json:"palma"`

	Lorenz []jsonFloat  `json:"lorenz,omitempty"`
	Pareto []paretoJSON `json:"pareto,omitempty"`
}

type paretoJSON struct {
	Value             float64   `json:"value"`
	CumulativePercent jsonFloat `json:"cumulative_percent"`
}

func toParetoJSON(points []stats.ParetoPoint) []paretoJSON {
	out := make([]paretoJSON, len(points))
	for i, pt := range points {
		out[i] = paretoJSON{Value: pt.Value, CumulativePercent: jsonFloat(pt.CumulativePercent)}
	}
	return out
}

func toJSONFloats(xs []float64) []jsonFloat {
	out := make([]jsonFloat, len(xs))
	for i, x := range xs {
		out[i] = jsonFloat(x)
	}
	return out
}

func runClass(cmd *cobra.Command, args []string) error {
	if len(classPatterns) == 0 {
		return fmt.Errorf("at least one --class pattern is required")
	}
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

	res, err := rt.analyzer.SingleClass(cmd.Context(), analysis.SingleClassRequest{
		ClassPatterns: classPatterns,
		Filters:       filters,
		Distinct:      queryDistinct,
		Limit:         queryLimit,
	})
	if err != nil {
		return err
	}

	if classOutFile != "" {
		if err := saveTable(classOutFile, res.Table); err != nil {
			return err
		}
	}

	summary := res.Summary(col)
	if outputJSON {
		report := classReport{
			ClassFilter: res.ClassFilter,
			Distinct:    res.Distinct,
			Entities:    res.EntityCount(),
			Column:      col.String(),
			Summary:     toSummaryJSON(summary),
			Gini:        jsonFloat(res.Gini(col)),
			Palma:       jsonFloat(res.Palma(col)),
		}
		if classCurves {
			report.Lorenz = toJSONFloats(res.Lorenz(col))
			report.Pareto = toParetoJSON(res.Pareto(col))
		}
		return writeJSON(cmd.OutOrStdout(), report)
	}

	p := newPrinter(cmd.OutOrStdout())
	p.heading("Class degree distribution (%s)", col)
	if res.EntityCount() == 0 {
		p.warn("No entities matched.")
		return nil
	}
	p.summary(summary)
	p.field("gini", formatFloat(res.Gini(col)))
	p.field("palma", formatFloat(res.Palma(col)))
	if classOutFile != "" {
		p.ok("Saved %d rows to %s", res.EntityCount(), classOutFile)
	}
	return nil
}

func saveTable(path string, t *degree.Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := csvstore.WriteTable(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
