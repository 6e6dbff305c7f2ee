package storage

import (
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

func resetResolved() {
	resolved = nil
	resolveOnce = sync.Once{}
	resolveError = nil
}

func TestResolveDirs(t *testing.T) {
	resetResolved()
	t.Cleanup(resetResolved)

	dirs, err := ResolveDirs()
	if err != nil {
		t.Fatalf("ResolveDirs failed: %v", err)
	}
	for name, dir := range map[string]string{"Config": dirs.Config, "Data": dirs.Data, "Cache": dirs.Cache} {
		if !strings.Contains(dir, appName) {
			t.Errorf("%s dir %q should contain %q", name, dir, appName)
		}
	}
}

func TestResolveDirs_XDGOverride(t *testing.T) {
	resetResolved()
	t.Cleanup(resetResolved)

	cfgHome, dataHome, cacheHome := t.TempDir(), t.TempDir(), t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	dirs, err := ResolveDirs()
	if err != nil {
		t.Fatalf("ResolveDirs failed: %v", err)
	}

	tests := []struct {
		got, want string
	}{
		{dirs.UserConfigFile(), filepath.Join(cfgHome, appName, "config.yaml")},
		{dirs.ResultsDir("run1"), filepath.Join(dataHome, appName, "results", "run1")},
		{dirs.ResponseCacheFile(), filepath.Join(cacheHome, appName, "responses.db")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %s, want %s", tt.got, tt.want)
		}
	}
}

func TestResolveDirs_Cached(t *testing.T) {
	resetResolved()
	t.Cleanup(resetResolved)

	a, _ := ResolveDirs()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	b, _ := ResolveDirs()
	if a != b {
		t.Error("ResolveDirs should return the first result")
	}
}

func TestPlatformDefault_Unix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix layout")
	}
	t.Setenv("HOME", "/home/ada")

	if got, want := platformDefault(kindData), "/home/ada/.local/share/wealthkg"; got != want {
		t.Errorf("data default = %s, want %s", got, want)
	}
	if got, want := platformDefault(kindCache), "/home/ada/.cache/wealthkg"; got != want {
		t.Errorf("cache default = %s, want %s", got, want)
	}
}

func TestResolveProjectDirs(t *testing.T) {
	dirs := ResolveProjectDirs("/test/project")

	if dirs.Root != filepath.Join("/test/project", ".wealthkg") {
		t.Errorf("Root: got %s", dirs.Root)
	}
	if dirs.Config != filepath.Join("/test/project", ".wealthkg", "config.yaml") {
		t.Errorf("Config: got %s", dirs.Config)
	}
}
