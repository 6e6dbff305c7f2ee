//go:build windows

package storage

import (
	"os"
	"path/filepath"
)

func platformDefault(k dirKind) string {
	switch k {
	case kindCache:
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appName, "cache")
	case kindData:
		return filepath.Join(os.Getenv("APPDATA"), appName, "data")
	default:
		return filepath.Join(os.Getenv("APPDATA"), appName, "config")
	}
}
