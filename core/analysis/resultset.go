package analysis

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adalundhe/wealthkg/core/degree"
)

const sampleCacheSize = 1024

type sampleKey struct {
	class     string
	col       degree.Column
	transform bool
}

// ResultSet maps class identifiers to degree tables, keeping the order in
// which classes were added. Each class appears once; adding a class again
// replaces its table.
type ResultSet struct {
	mu      sync.RWMutex
	classes []string
	tables  map[string]*degree.Table
	samples *lru.Cache[sampleKey, []float64]
}

// NewResultSet creates an empty ResultSet.
func NewResultSet() *ResultSet {
	samples, _ := lru.New[sampleKey, []float64](sampleCacheSize)
	return &ResultSet{
		tables:  make(map[string]*degree.Table),
		samples: samples,
	}
}

// Add stores table under class. Empty tables are kept.
func (rs *ResultSet) Add(class string, table *degree.Table) {
	if table == nil {
		table = degree.EmptyTable()
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, ok := rs.tables[class]; !ok {
		rs.classes = append(rs.classes, class)
	}
	rs.tables[class] = table
	rs.samples.Purge()
}

// Classes returns the class identifiers in insertion order.
func (rs *ResultSet) Classes() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return append([]string(nil), rs.classes...)
}

// SortedClasses returns the class identifiers in ascending order, the row
// and column order of distance matrices.
func (rs *ResultSet) SortedClasses() []string {
	classes := rs.Classes()
	sort.Strings(classes)
	return classes
}

// Table returns the table of class.
func (rs *ResultSet) Table(class string) (*degree.Table, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	t, ok := rs.tables[class]
	return t, ok
}

// Len returns the number of classes.
func (rs *ResultSet) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.classes)
}
