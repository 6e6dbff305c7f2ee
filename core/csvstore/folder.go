package csvstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/adalundhe/wealthkg/core/analysis"
	"github.com/adalundhe/wealthkg/core/degree"
)

// DefaultPattern selects the files ReadFolder loads.
const DefaultPattern = "*.csv"

const csvExt = ".csv"

// ClassKey derives the file stem of a class: the last path segment of its
// URI. Classes sharing a last segment overwrite each other's files.
func ClassKey(class string) string {
	key := class[strings.LastIndex(class, "/")+1:]
	if key == "" {
		return "class"
	}
	return key
}

// WriteFolder writes one <ClassKey>.csv per class of rs into dir, creating
// dir when needed.
func WriteFolder(dir string, rs *analysis.ResultSet) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	for _, class := range rs.Classes() {
		t, _ := rs.Table(class)
		path := filepath.Join(dir, ClassKey(class)+csvExt)
		if err := writeFile(path, t); err != nil {
			return fmt.Errorf("write %s: %w", class, err)
		}
	}

	slog.Info("result set saved", "dir", dir, "classes", rs.Len())
	return nil
}

func writeFile(path string, t *degree.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTable(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readFile(path string) (*degree.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTable(f)
}

// ReadFolder loads every file in dir whose name matches pattern (a glob,
// DefaultPattern when empty) in name order. The class key is the file name
// without extension. Files holding no rows are skipped.
func ReadFolder(dir, pattern string) (*analysis.ResultSet, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && matcher.Match(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	rs := analysis.NewResultSet()
	for _, name := range names {
		t, err := readFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if t.Empty() {
			slog.Debug("skipping empty class file", "file", name)
			continue
		}
		rs.Add(strings.TrimSuffix(name, filepath.Ext(name)), t)
	}
	return rs, nil
}
