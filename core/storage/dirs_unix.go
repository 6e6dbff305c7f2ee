//go:build !windows

package storage

import (
	"os"
	"path/filepath"
)

var unixDefaults = map[dirKind][]string{
	kindConfig: {".config"},
	kindData:   {".local", "share"},
	kindCache:  {".cache"},
}

func platformDefault(k dirKind) string {
	parts := append([]string{os.Getenv("HOME")}, unixDefaults[k]...)
	return filepath.Join(append(parts, appName)...)
}
