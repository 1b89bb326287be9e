package config

import (
	"os"
	"path/filepath"
)

// CacheDir returns the directory for run lock files.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\fcparchive
//   - Unix: ~/.cache/fcparchive
func CacheDir() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "fcparchive")
	}
	return filepath.Join(cacheDir, "fcparchive")
}

// EnsureCacheDir creates the cache directory if it doesn't exist.
func EnsureCacheDir() error {
	return os.MkdirAll(CacheDir(), 0700)
}
