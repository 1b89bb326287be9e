// Package manifest persists and checks the md5 record that decides whether
// existing chunk files may be reused without re-splitting the archive.
//
// The manifest lives next to the chunk files as <base>.md5 in the format of
// `md5sum -b`: one "<32 hex> *<file name>" line per chunk, in part order.
// Trust is all-or-nothing: any missing, extra, or mismatching entry makes
// the whole chunk set untrusted.
package manifest

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/chunk"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/progress"
)

// Manifest maps a chunk file name (base name, not full path) to its md5
// digest in lowercase hex.
type Manifest map[string]string

// ChecksumMismatchError reports a chunk file whose digest differs from its
// manifest entry. The whole chunk set must be invalidated when this occurs.
type ChecksumMismatchError struct {
	File string
	Want string
	Got  string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: manifest %s, file %s", e.File, e.Want, e.Got)
}

// Path returns the manifest file path for a chunk base.
func Path(base string) string {
	return base + ".md5"
}

// Write computes the md5 of every chunk file in the set and persists the
// manifest atomically: the temp file is fully written and synced before it
// is renamed into place, so a crash mid-write never leaves a manifest that
// a later run would trust.
func Write(set *chunk.Set) error {
	path := Path(set.Base)
	tmpPath := path + ".tmp"

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create manifest temp file: %w", err)
	}
	defer os.Remove(tmpPath)

	bar := progress.New(set.TotalSize(), "hashing "+filepath.Base(set.Base))
	defer bar.Finish()

	w := bufio.NewWriter(tmp)
	for _, p := range set.Parts {
		digest, err := fileMD5(p.Path)
		if err != nil {
			tmp.Close()
			return err
		}
		bar.Add(p.Size)
		fmt.Fprintf(w, "%s *%s\n", digest, filepath.Base(p.Path))
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close manifest: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename manifest into place: %w", err)
	}
	return nil
}

// Load reads the manifest for a chunk base. Returns (nil, nil) when the
// manifest does not exist. A malformed line is an error; callers treat it
// the same as a missing manifest (untrusted).
func Load(base string) (Manifest, error) {
	f, err := os.Open(Path(base))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	m := make(Manifest)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		digest, name, ok := strings.Cut(line, " ")
		if !ok || len(digest) != 32 {
			return nil, fmt.Errorf("malformed manifest line: %q", line)
		}
		name = strings.TrimPrefix(name, "*")
		m[name] = strings.ToLower(digest)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return m, nil
}

// Verify checks every chunk file in the set against the manifest. The
// manifest must name exactly the scanned files: an entry without a file or
// a file without an entry fails verification, as does any digest mismatch.
func Verify(set *chunk.Set, m Manifest) error {
	if len(m) != set.Count() {
		return fmt.Errorf("manifest names %d files, chunk set has %d", len(m), set.Count())
	}
	bar := progress.New(set.TotalSize(), "checking "+filepath.Base(set.Base))
	defer bar.Finish()
	for _, p := range set.Parts {
		name := filepath.Base(p.Path)
		want, ok := m[name]
		if !ok {
			return fmt.Errorf("manifest has no entry for %s", name)
		}
		got, err := fileMD5(p.Path)
		if err != nil {
			return err
		}
		bar.Add(p.Size)
		if got != want {
			return &ChecksumMismatchError{File: name, Want: want, Got: got}
		}
	}
	return nil
}

// TrustedSet implements the trust decision for local chunks: the chunk set
// is returned only when chunk files exist with contiguous numbering, the
// manifest exists, and every digest matches. Anything else, including a
// missing manifest with files present, is untrusted.
func TrustedSet(base string) (*chunk.Set, bool) {
	set, err := chunk.Scan(base)
	if err != nil || set == nil {
		return nil, false
	}
	m, err := Load(base)
	if err != nil || m == nil {
		return nil, false
	}
	if err := Verify(set, m); err != nil {
		return nil, false
	}
	return set, true
}

// Invalidate deletes every chunk file and the manifest together. The chunk
// files and the manifest are one unit of trust; deleting only part of them
// would let a later run trust stale data. Missing files are fine, so
// invalidating an already-clean base is a no-op.
func Invalidate(base string) error {
	matches, err := filepath.Glob(base + ".[0-9][0-9][0-9]")
	if err != nil {
		return fmt.Errorf("failed to list chunks for %s: %w", base, err)
	}
	targets := append(matches, Path(base), Path(base)+".tmp")
	for _, path := range targets {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// MultipartTag computes the aggregate tag an S3-style store reports for a
// multipart object: the md5 of the concatenated binary part digests,
// suffixed with "-<part count>". It is derived entirely from the manifest,
// so the strong verification policy needs no extra remote reads.
func (m Manifest) MultipartTag(set *chunk.Set) (string, error) {
	agg := md5.New()
	for _, p := range set.Parts {
		name := filepath.Base(p.Path)
		digest, ok := m[name]
		if !ok {
			return "", fmt.Errorf("manifest has no entry for %s", name)
		}
		raw, err := hex.DecodeString(digest)
		if err != nil {
			return "", fmt.Errorf("manifest digest for %s is not hex: %w", name, err)
		}
		agg.Write(raw)
	}
	return fmt.Sprintf("%s-%d", hex.EncodeToString(agg.Sum(nil)), set.Count()), nil
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
