// Package degree holds the per-entity degree rows produced by SPARQL count
// queries and the merge step that builds them.
package degree

import (
	"fmt"
	"sort"
	"strings"
)

// Column selects one of the count columns of a Row.
type Column int

const (
	Outgoing Column = iota
	Incoming
	Total
)

var columnNames = map[Column]string{
	Outgoing: "pCount",
	Incoming: "iCount",
	Total:    "totalCount",
}

// String returns the wire/CSV name of the column.
func (c Column) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseColumn accepts the CSV names (pCount, iCount, totalCount) and the
// short forms out, in and total.
func ParseColumn(s string) (Column, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pcount", "out", "outgoing":
		return Outgoing, nil
	case "icount", "in", "incoming":
		return Incoming, nil
	case "totalcount", "total", "all":
		return Total, nil
	}
	return Total, fmt.Errorf("unknown column %q", s)
}

// Count is one decoded (entity, count) binding from a degree query.
type Count struct {
	Entity string
	N      int
}

// Row is the degree of a single entity. Total is always Outgoing+Incoming.
type Row struct {
	Entity   string `json:"entity"`
	Outgoing int    `json:"pCount"`
	Incoming int    `json:"iCount"`
	Total    int    `json:"totalCount"`
}

// NewRow builds a row with Total derived from the two sides.
func NewRow(entity string, outgoing, incoming int) Row {
	return Row{
		Entity:   entity,
		Outgoing: outgoing,
		Incoming: incoming,
		Total:    outgoing + incoming,
	}
}

// Value returns the row's count for col.
func (r Row) Value(col Column) int {
	switch col {
	case Outgoing:
		return r.Outgoing
	case Incoming:
		return r.Incoming
	default:
		return r.Total
	}
}

// Table is an ordered, immutable sequence of rows for one class.
type Table struct {
	rows []Row
}

// NewTable wraps rows as given, recomputing Total on every row. Order and
// duplicates are preserved; use a Builder to dedupe and sort.
func NewTable(rows []Row) *Table {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = NewRow(r.Entity, r.Outgoing, r.Incoming)
	}
	return &Table{rows: out}
}

// EmptyTable returns a table with zero rows.
func EmptyTable() *Table {
	return &Table{}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Row returns the i-th row.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns a copy of the rows in table order.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Entities returns the entity identifiers in table order.
func (t *Table) Entities() []string {
	out := make([]string, t.Len())
	for i := range out {
		out[i] = t.rows[i].Entity
	}
	return out
}

// Ints returns the column values in table order.
func (t *Table) Ints(col Column) []int {
	out := make([]int, t.Len())
	for i := range out {
		out[i] = t.rows[i].Value(col)
	}
	return out
}

// Values returns the column values in table order as float64, the form the
// statistics package consumes.
func (t *Table) Values(col Column) []float64 {
	out := make([]float64, t.Len())
	for i := range out {
		out[i] = float64(t.rows[i].Value(col))
	}
	return out
}

// Builder collects rows and produces a deduplicated, sorted Table. It is the
// only mutation path for table contents.
type Builder struct {
	rows []Row
}

// NewBuilder returns a builder with capacity for n rows.
func NewBuilder(n int) *Builder {
	return &Builder{rows: make([]Row, 0, n)}
}

// Append adds rows in order.
func (b *Builder) Append(rows ...Row) *Builder {
	b.rows = append(b.rows, rows...)
	return b
}

// AppendTable adds every row of t.
func (b *Builder) AppendTable(t *Table) *Builder {
	if t == nil {
		return b
	}
	return b.Append(t.rows...)
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int {
	return len(b.rows)
}

// Build drops duplicate entities (first occurrence wins) and stable-sorts
// by Total descending. Ties keep their append order.
func (b *Builder) Build() *Table {
	seen := make(map[string]struct{}, len(b.rows))
	rows := make([]Row, 0, len(b.rows))
	for _, r := range b.rows {
		if _, dup := seen[r.Entity]; dup {
			continue
		}
		seen[r.Entity] = struct{}{}
		rows = append(rows, NewRow(r.Entity, r.Outgoing, r.Incoming))
	}
	sortByTotal(rows)
	return &Table{rows: rows}
}

func sortByTotal(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Total > rows[j].Total
	})
}
