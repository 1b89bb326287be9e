// Package lock provides an advisory run lock so two invocations with the
// same bucket and source set cannot fight over chunk files and upload
// sessions. The lock is a JSON file in the user cache directory; staleness
// is decided by whether the recorded PID is still alive.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/config"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/logging"
)

// Info is the lock file payload.
type Info struct {
	PID        int       `json:"pid"`
	RunID      string    `json:"run_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	Bucket     string    `json:"bucket"`
	Sources    []string  `json:"sources"`
}

// HeldError reports that another live process holds the lock.
type HeldError struct {
	Path  string
	Owner Info
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("another run (pid %d, started %s) is already archiving this bucket and source set",
		e.Owner.PID, e.Owner.AcquiredAt.Format(time.RFC3339))
}

// Lock is a held advisory lock.
type Lock struct {
	path string
}

// signature derives a stable short identifier for a (bucket, sources) pair.
// Sources are absolutized and sorted so argument order and relative paths
// do not produce distinct locks.
func signature(bucket string, sources []string) string {
	abs := make([]string, 0, len(sources))
	for _, s := range sources {
		p, err := filepath.Abs(s)
		if err != nil {
			p = s
		}
		abs = append(abs, p)
	}
	sort.Strings(abs)

	h := sha256.New()
	h.Write([]byte(bucket))
	for _, p := range abs {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

func lockPath(bucket string, sources []string) string {
	return filepath.Join(config.CacheDir(), "run-"+signature(bucket, sources)+".lock")
}

// Acquire takes the run lock for the given bucket and source set. A lock
// held by a live process returns a HeldError; a lock left behind by a dead
// process is broken with a warning. The write is atomic so a concurrent
// reader never sees a partial file.
func Acquire(log *logging.Logger, bucket string, sources []string, runID string) (*Lock, error) {
	if err := config.EnsureCacheDir(); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	path := lockPath(bucket, sources)

	if data, err := os.ReadFile(path); err == nil {
		var owner Info
		if err := json.Unmarshal(data, &owner); err == nil && owner.PID > 0 && processAlive(owner.PID) {
			return nil, &HeldError{Path: path, Owner: owner}
		}
		log.Warnf("breaking stale lock %s (pid %d is gone)", filepath.Base(path), ownerPID(data))
	}

	info := Info{
		PID:        os.Getpid(),
		RunID:      runID,
		AcquiredAt: time.Now().UTC(),
		Bucket:     bucket,
		Sources:    append([]string(nil), sources...),
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file. Releasing twice is harmless.
func (l *Lock) Release() {
	if l == nil || l.path == "" {
		return
	}
	os.Remove(l.path)
	l.path = ""
}

func ownerPID(data []byte) int {
	var owner Info
	if json.Unmarshal(data, &owner) == nil {
		return owner.PID
	}
	return 0
}
