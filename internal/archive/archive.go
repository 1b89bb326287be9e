// Package archive defines the archive model and directory discovery.
package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Archive is a discovered source directory queued for transfer.
type Archive struct {
	// Path is the absolute path to the source directory.
	Path string

	// Name is the directory base name, e.g. "Wedding2024.fcpbundle".
	Name string

	// Key is the remote object key the archive is stored under.
	Key string
}

// New builds an Archive from a directory path. The path must exist and be
// a directory.
func New(path string) (Archive, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Archive{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Archive{}, fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return Archive{}, fmt.Errorf("%s is not a directory", abs)
	}

	name := filepath.Base(abs)
	return Archive{
		Path: abs,
		Name: name,
		Key:  name + ".zip",
	}, nil
}

// ChunkBase returns the base path chunk files and the manifest are named
// after: the archive's parent directory joined with the remote key.
// Chunk files are <base>.001, <base>.002, ... and the manifest <base>.md5.
func (a Archive) ChunkBase() string {
	return filepath.Join(filepath.Dir(a.Path), a.Key)
}

// DiskUsage walks the archive directory and returns the total size of all
// regular files. Used to preflight free disk space before splitting.
func (a Archive) DiskUsage() (int64, error) {
	var total int64
	err := filepath.WalkDir(a.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure %s: %w", a.Path, err)
	}
	return total, nil
}
