// Package storage resolves where wealthkg keeps its config, saved result
// sets and response cache, following XDG on Unix.
package storage

import (
	"os"
	"path/filepath"
	"sync"
)

const appName = "wealthkg"

type dirKind int

const (
	kindConfig dirKind = iota
	kindData
	kindCache
)

var xdgVars = map[dirKind]string{
	kindConfig: "XDG_CONFIG_HOME",
	kindData:   "XDG_DATA_HOME",
	kindCache:  "XDG_CACHE_HOME",
}

// Dirs holds the per-user directories.
type Dirs struct {
	Config string // config.yaml
	Data   string // saved result sets
	Cache  string // regenerable endpoint responses
}

// ProjectDirs holds the per-project directory.
type ProjectDirs struct {
	Root   string // .wealthkg/
	Config string // .wealthkg/config.yaml
}

var (
	resolved     *Dirs
	resolveOnce  sync.Once
	resolveError error
)

// ResolveDirs returns the user directories. An XDG variable wins over the
// platform default. The result is computed once per process.
func ResolveDirs() (*Dirs, error) {
	resolveOnce.Do(func() {
		resolved = &Dirs{
			Config: resolve(kindConfig),
			Data:   resolve(kindData),
			Cache:  resolve(kindCache),
		}
	})
	return resolved, resolveError
}

func resolve(k dirKind) string {
	if dir := os.Getenv(xdgVars[k]); dir != "" {
		return filepath.Join(dir, appName)
	}
	return platformDefault(k)
}

// ResolveProjectDirs returns the .wealthkg directory under projectRoot.
func ResolveProjectDirs(projectRoot string) *ProjectDirs {
	root := filepath.Join(projectRoot, "."+appName)
	return &ProjectDirs{
		Root:   root,
		Config: filepath.Join(root, "config.yaml"),
	}
}

// UserConfigFile is the user-level config.yaml.
func (d *Dirs) UserConfigFile() string {
	return filepath.Join(d.Config, "config.yaml")
}

// ResponseCacheFile is the SQLite response cache database.
func (d *Dirs) ResponseCacheFile() string {
	return filepath.Join(d.Cache, "responses.db")
}

// ResultsDir is where a multi-class run saves its tables by default.
func (d *Dirs) ResultsDir(name string) string {
	return filepath.Join(d.Data, "results", name)
}
