package manifest

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/chunk"
)

// writeChunkSet writes n chunk files under base and returns the scanned set.
func writeChunkSet(t *testing.T, base string, n int, size int) *chunk.Set {
	t.Helper()
	for i := 1; i <= n; i++ {
		data := make([]byte, size)
		for j := range data {
			data[j] = byte(i)
		}
		if err := os.WriteFile(chunk.PartPath(base, int32(i)), data, 0600); err != nil {
			t.Fatal(err)
		}
	}
	set, err := chunk.Scan(base)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return set
}

func TestWriteLoadRoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "Lib.fcpbundle.zip")
	set := writeChunkSet(t, base, 3, 64)

	if err := Write(set); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	m, err := Load(base)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(m))
	}
	if err := Verify(set, m); err != nil {
		t.Errorf("Verify failed on fresh manifest: %v", err)
	}

	// No temp file may survive a successful write.
	if _, err := os.Stat(Path(base) + ".tmp"); !os.IsNotExist(err) {
		t.Error("manifest temp file left behind")
	}
}

func TestLoadMissing(t *testing.T) {
	base := filepath.Join(t.TempDir(), "Lib.fcpbundle.zip")
	m, err := Load(base)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when file is missing")
	}
}

func TestVerifyMismatch(t *testing.T) {
	base := filepath.Join(t.TempDir(), "Lib.fcpbundle.zip")
	set := writeChunkSet(t, base, 5, 32)
	if err := Write(set); err != nil {
		t.Fatal(err)
	}

	// Tamper with chunk 3.
	if err := os.WriteFile(chunk.PartPath(base, 3), []byte("tampered"), 0600); err != nil {
		t.Fatal(err)
	}
	set, err := chunk.Scan(base)
	if err != nil {
		t.Fatal(err)
	}
	m, err := Load(base)
	if err != nil {
		t.Fatal(err)
	}

	err = Verify(set, m)
	var mismatch *ChecksumMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ChecksumMismatchError, got %v", err)
	}
	if mismatch.File != filepath.Base(chunk.PartPath(base, 3)) {
		t.Errorf("mismatch reported for %s", mismatch.File)
	}
}

func TestTrustedSet(t *testing.T) {
	base := filepath.Join(t.TempDir(), "Lib.fcpbundle.zip")

	// No chunks at all.
	if _, trusted := TrustedSet(base); trusted {
		t.Error("empty base must not be trusted")
	}

	set := writeChunkSet(t, base, 2, 16)

	// Chunks without a manifest are stale or foreign, never trusted.
	if _, trusted := TrustedSet(base); trusted {
		t.Error("chunks without manifest must not be trusted")
	}

	if err := Write(set); err != nil {
		t.Fatal(err)
	}
	got, trusted := TrustedSet(base)
	if !trusted {
		t.Fatal("fresh manifest must be trusted")
	}
	if got.Count() != 2 {
		t.Errorf("trusted set has %d parts, want 2", got.Count())
	}

	// An extra chunk not named by the manifest breaks trust entirely.
	if err := os.WriteFile(chunk.PartPath(base, 3), []byte("extra"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, trusted := TrustedSet(base); trusted {
		t.Error("extra chunk file must break trust")
	}
}

func TestInvalidateRemovesEverything(t *testing.T) {
	base := filepath.Join(t.TempDir(), "Lib.fcpbundle.zip")
	set := writeChunkSet(t, base, 4, 16)
	if err := Write(set); err != nil {
		t.Fatal(err)
	}

	if err := Invalidate(base); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	if remaining, _ := chunk.Scan(base); remaining != nil {
		t.Errorf("%d chunk files survived invalidation", remaining.Count())
	}
	if _, err := os.Stat(Path(base)); !os.IsNotExist(err) {
		t.Error("manifest survived invalidation")
	}

	// Invalidating twice is fine.
	if err := Invalidate(base); err != nil {
		t.Errorf("second Invalidate failed: %v", err)
	}
}

func TestMultipartTag(t *testing.T) {
	base := filepath.Join(t.TempDir(), "Lib.fcpbundle.zip")
	set := writeChunkSet(t, base, 2, 8)
	if err := Write(set); err != nil {
		t.Fatal(err)
	}
	m, err := Load(base)
	if err != nil {
		t.Fatal(err)
	}

	// Compute the expected aggregate by hand.
	agg := md5.New()
	for i := 1; i <= 2; i++ {
		data, err := os.ReadFile(chunk.PartPath(base, int32(i)))
		if err != nil {
			t.Fatal(err)
		}
		sum := md5.Sum(data)
		agg.Write(sum[:])
	}
	want := fmt.Sprintf("%s-2", hex.EncodeToString(agg.Sum(nil)))

	got, err := m.MultipartTag(set)
	if err != nil {
		t.Fatalf("MultipartTag failed: %v", err)
	}
	if got != want {
		t.Errorf("MultipartTag = %s, want %s", got, want)
	}
}
