package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/adalundhe/wealthkg/core/analysis"
	"github.com/adalundhe/wealthkg/core/stats"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// =============================================================================
// Printer
// =============================================================================

// printer writes human-readable reports, colored only on a terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, color: !noColor && isTerminal(w)}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + colorReset
}

func (p *printer) heading(format string, args ...any) {
	fmt.Fprintln(p.w, p.paint(colorBold+colorCyan, fmt.Sprintf(format, args...)))
}

func (p *printer) field(label string, value string) {
	fmt.Fprintf(p.w, "  %s %s\n", p.paint(colorGray, fmt.Sprintf("%-18s", label+":")), value)
}

func (p *printer) warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.paint(colorYellow, fmt.Sprintf(format, args...)))
}

func (p *printer) ok(format string, args ...any) {
	fmt.Fprintln(p.w, p.paint(colorGreen, fmt.Sprintf(format, args...)))
}

// formatFloat prints NaN and infinities as "n/a".
func formatFloat(v float64) string {
	if !stats.IsFinite(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func (p *printer) summary(s stats.Summary) {
	p.field("n", fmt.Sprintf("%d", s.N))
	p.field("min", formatFloat(s.Min))
	p.field("q1", formatFloat(s.Q1))
	p.field("median", formatFloat(s.Median))
	p.field("q3", formatFloat(s.Q3))
	p.field("max", formatFloat(s.Max))
	p.field("mode", formatFloat(s.Mode))
	p.field("mean", formatFloat(s.Mean))
	p.field("std", formatFloat(s.StdDev))
	p.field("skewness", formatFloat(s.Skewness))
	p.field("kurtosis", formatFloat(s.Kurtosis))
}

func (p *printer) matrix(m analysis.Matrix) {
	if len(m.Classes) == 0 {
		p.warn("No classes to compare.")
		return
	}
	width := 8
	for _, c := range m.Classes {
		if len(c) > width {
			width = len(c)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-*s", width, "")
	for _, c := range m.Classes {
		fmt.Fprintf(&sb, "  %*s", width, c)
	}
	fmt.Fprintln(p.w, p.paint(colorGray, sb.String()))

	for i, c := range m.Classes {
		sb.Reset()
		fmt.Fprintf(&sb, "%-*s", width, c)
		for _, v := range m.Values[i] {
			fmt.Fprintf(&sb, "  %*s", width, formatFloat(v))
		}
		fmt.Fprintln(p.w, sb.String())
	}
}

// =============================================================================
// JSON
// =============================================================================

// jsonFloat encodes NaN and infinities as null, which encoding/json
// otherwise rejects.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type summaryJSON struct {
	N        int       `json:"n"`
	Min      jsonFloat `json:"min"`
	Q1       jsonFloat `json:"q1"`
	Median   jsonFloat `json:"median"`
	Q3       jsonFloat `json:"q3"`
	Max      jsonFloat `json:"max"`
	Mode     jsonFloat `json:"mode"`
	Mean     jsonFloat `json:"mean"`
	StdDev   jsonFloat `json:"std"`
	Skewness jsonFloat `json:"skewness"`
	Kurtosis jsonFloat `json:"kurtosis"`
}

func toSummaryJSON(s stats.Summary) summaryJSON {
	return summaryJSON{
		N:        s.N,
		Min:      jsonFloat(s.Min),
		Q1:       jsonFloat(s.Q1),
		Median:   jsonFloat(s.Median),
		Q3:       jsonFloat(s.Q3),
		Max:      jsonFloat(s.Max),
		Mode:     jsonFloat(s.Mode),
		Mean:     jsonFloat(s.Mean),
		StdDev:   jsonFloat(s.StdDev),
		Skewness: jsonFloat(s.Skewness),
		Kurtosis: jsonFloat(s.Kurtosis),
	}
}

type matrixJSON struct {
	Distance string        `json:"distance"`
	Classes  []string      `json:"classes"`
	Values   [][]jsonFloat `json:"values"`
}

func toMatrixJSON(dist analysis.Distance, m analysis.Matrix) *matrixJSON {
	out := &matrixJSON{Distance: dist.String(), Classes: m.Classes, Values: make([][]jsonFloat, len(m.Values))}
	for i, row := range m.Values {
		out.Values[i] = make([]jsonFloat, len(row))
		for j, v := range row {
			out.Values[i][j] = jsonFloat(v)
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
