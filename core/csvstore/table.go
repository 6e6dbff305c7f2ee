// Package csvstore persists degree tables as CSV files, one file per class.
package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/adalundhe/wealthkg/core/degree"
)

const entityColumn = "entity"

// Header is the column layout written by WriteTable.
var Header = []string{entityColumn, degree.Outgoing.String(), degree.Incoming.String(), degree.Total.String()}

// entityAliases are accepted in place of "entity" when reading.
var entityAliases = map[string]bool{entityColumn: true, "s": true}

// WriteTable writes t with a header row, in table order.
func WriteTable(w io.Writer, t *degree.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range t.Rows() {
		rec := []string{
			r.Entity,
			strconv.Itoa(r.Outgoing),
			strconv.Itoa(r.Incoming),
			strconv.Itoa(r.Total),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type layout struct {
	entity, out, in, total int
}

func parseHeader(header []string) (layout, error) {
	l := layout{entity: -1, out: -1, in: -1, total: -1}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case entityAliases[name]:
			l.entity = i
		case name == degree.Outgoing.String():
			l.out = i
		case name == degree.Incoming.String():
			l.in = i
		case name == degree.Total.String():
			l.total = i
		}
	}
	if l.entity < 0 {
		return l, errors.New("missing entity column")
	}
	if l.out < 0 || l.in < 0 {
		return l, fmt.Errorf("missing %s or %s column", degree.Outgoing, degree.Incoming)
	}
	return l, nil
}

// parseCount reads an integer cell. Empty and NaN cells are 0; float
// spellings such as "3.0" are accepted.
func parseCount(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(cell); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, nil
	}
	return int(f), nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// ReadTable reads a table written by WriteTable or by pandas to_csv. The
// header decides the column positions, so a leading index column is
// ignored. Totals are recomputed from the two directional counts.
func ReadTable(r io.Reader) (*degree.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return degree.EmptyTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	l, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []degree.Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out, err := parseCount(cell(rec, l.out))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, degree.Outgoing, err)
		}
		in, err := parseCount(cell(rec, l.in))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, degree.Incoming, err)
		}
		rows = append(rows, degree.NewRow(cell(rec, l.entity), out, in))
	}
	return degree.NewTable(rows), nil
}
