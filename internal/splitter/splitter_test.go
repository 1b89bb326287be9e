package splitter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/archive"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/chunk"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/constants"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/logging"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/manifest"
)

func testLogger() *logging.Logger {
	log := logging.NewLogger()
	log.SetOutput(io.Discard)
	return log
}

func testArchive(t *testing.T, name string) archive.Archive {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "clip.mov"), bytes.Repeat([]byte{0xAB}, 64), 0600); err != nil {
		t.Fatal(err)
	}
	a, err := archive.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func writeStream(t *testing.T, base string, partSize int64, data []byte) {
	t.Helper()
	pw := newPartWriter(base, partSize, nil)
	// Feed in uneven pieces to exercise the boundary logic.
	for len(data) > 0 {
		n := 7
		if n > len(data) {
			n = len(data)
		}
		if _, err := pw.Write(data[:n]); err != nil {
			t.Fatal(err)
		}
		data = data[n:]
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPartWriter(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		partSize  int64
		wantSizes []int64
	}{
		{"single short part", 30, 100, []int64{30}},
		{"exact multiple", 200, 100, []int64{100, 100}},
		{"remainder part", 250, 100, []int64{100, 100, 50}},
		{"one byte over", 101, 100, []int64{100, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "Lib.fcpbundle.zip")
			data := make([]byte, tt.total)
			for i := range data {
				data[i] = byte(i)
			}
			writeStream(t, base, tt.partSize, data)

			set, err := chunk.Scan(base)
			if err != nil {
				t.Fatal(err)
			}
			if set == nil || set.Count() != len(tt.wantSizes) {
				t.Fatalf("got %d chunk files, want %d", set.Count(), len(tt.wantSizes))
			}
			var joined []byte
			for i, p := range set.Parts {
				if p.Size != tt.wantSizes[i] {
					t.Errorf("chunk %d size = %d, want %d", p.Number, p.Size, tt.wantSizes[i])
				}
				b, err := os.ReadFile(p.Path)
				if err != nil {
					t.Fatal(err)
				}
				joined = append(joined, b...)
			}
			if !bytes.Equal(joined, data) {
				t.Error("concatenated chunks do not reproduce the stream")
			}
		})
	}
}

func TestPartWriterPartLimit(t *testing.T) {
	base := filepath.Join(t.TempDir(), "Lib.fcpbundle.zip")
	pw := newPartWriter(base, 1, nil)

	// 999 one-byte parts fill the three-digit namespace exactly.
	n, err := pw.Write(make([]byte, constants.MaxParts))
	if err != nil {
		t.Fatalf("write up to the limit failed after %d bytes: %v", n, err)
	}

	// The next byte would need part 1000, which the suffix cannot name.
	n, err = pw.Write([]byte{0xFF})
	if err == nil {
		t.Fatal("expected error writing past the part limit")
	}
	if n != 0 {
		t.Errorf("wrote %d bytes past the limit", n)
	}
	if !strings.Contains(err.Error(), "part_size_mb") {
		t.Errorf("error %q does not tell the user how to recover", err)
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}

	if _, statErr := os.Stat(base + ".1000"); !os.IsNotExist(statErr) {
		t.Error("a four-digit chunk file was created")
	}
	set, err := chunk.Scan(base)
	if err != nil {
		t.Fatal(err)
	}
	if set.Count() != constants.MaxParts {
		t.Errorf("chunk count = %d, want %d", set.Count(), constants.MaxParts)
	}
}

func TestPartWriterEmptyStream(t *testing.T) {
	base := filepath.Join(t.TempDir(), "Lib.fcpbundle.zip")
	pw := newPartWriter(base, 100, nil)
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
	set, err := chunk.Scan(base)
	if err != nil {
		t.Fatal(err)
	}
	if set != nil {
		t.Errorf("empty stream produced %d chunk files", set.Count())
	}
}

func TestTailBuffer(t *testing.T) {
	var tb tailBuffer
	tb.Write([]byte("early noise\n"))
	big := strings.Repeat("x", stderrTailSize)
	tb.Write([]byte(big))
	if got := tb.String(); got != big {
		t.Errorf("tail length = %d, want %d", len(got), len(big))
	}

	var tb2 tailBuffer
	tb2.Write([]byte(strings.Repeat("a", stderrTailSize-10)))
	tb2.Write([]byte(strings.Repeat("b", 20)))
	got := tb2.String()
	if len(got) != stderrTailSize {
		t.Fatalf("tail length = %d, want %d", len(got), stderrTailSize)
	}
	if !strings.HasSuffix(got, strings.Repeat("b", 20)) {
		t.Error("tail lost the most recent writes")
	}
}

// stubSplitter writes a fixed chunk set, or fails.
type stubSplitter struct {
	sizes []int
	calls int
	err   error
}

func (s *stubSplitter) Split(ctx context.Context, a archive.Archive) (*chunk.Set, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	base := a.ChunkBase()
	for i, size := range s.sizes {
		if err := os.WriteFile(chunk.PartPath(base, int32(i+1)), bytes.Repeat([]byte{byte(i + 1)}, size), 0600); err != nil {
			return nil, err
		}
	}
	return chunk.Scan(base)
}

func TestEnsureChunkSetSplitsOnce(t *testing.T) {
	a := testArchive(t, "Lib.fcpbundle")
	stub := &stubSplitter{sizes: []int{40, 40, 10}}
	ad := NewAdapter(stub, testLogger())

	set, err := ad.EnsureChunkSet(context.Background(), a)
	if err != nil {
		t.Fatalf("EnsureChunkSet failed: %v", err)
	}
	if set.Count() != 3 {
		t.Fatalf("chunk count = %d, want 3", set.Count())
	}
	if _, err := os.Stat(manifest.Path(a.ChunkBase())); err != nil {
		t.Fatal("no manifest after split")
	}

	// A second call trusts the existing set and never re-splits.
	again, err := ad.EnsureChunkSet(context.Background(), a)
	if err != nil {
		t.Fatalf("second EnsureChunkSet failed: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("splitter ran %d times, want 1", stub.calls)
	}
	if again.Count() != 3 {
		t.Errorf("trusted set count = %d, want 3", again.Count())
	}
}

func TestEnsureChunkSetReplacesUntrustedFiles(t *testing.T) {
	a := testArchive(t, "Lib.fcpbundle")
	base := a.ChunkBase()

	// A chunk file with no manifest is stale debris from a crashed split.
	if err := os.WriteFile(chunk.PartPath(base, 1), []byte("stale"), 0600); err != nil {
		t.Fatal(err)
	}

	stub := &stubSplitter{sizes: []int{25}}
	ad := NewAdapter(stub, testLogger())
	set, err := ad.EnsureChunkSet(context.Background(), a)
	if err != nil {
		t.Fatalf("EnsureChunkSet failed: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("splitter ran %d times, want 1", stub.calls)
	}
	if set.Parts[0].Size != 25 {
		t.Error("stale chunk file survived the re-split")
	}
}

func TestEnsureChunkSetFailureLeavesNothing(t *testing.T) {
	a := testArchive(t, "Lib.fcpbundle")
	stub := &stubSplitter{err: errors.New("tool refused")}
	ad := NewAdapter(stub, testLogger())

	if _, err := ad.EnsureChunkSet(context.Background(), a); err == nil {
		t.Fatal("expected error from failing splitter")
	}
	if set, _ := chunk.Scan(a.ChunkBase()); set != nil {
		t.Error("chunk files survived a failed split")
	}
	if _, err := os.Stat(manifest.Path(a.ChunkBase())); !os.IsNotExist(err) {
		t.Error("manifest survived a failed split")
	}
}

func TestLookToolMissing(t *testing.T) {
	spec := ToolSpec{Program: "definitely-not-a-real-tool-9f2c", CheckArgs: []string{"-v"}, CheckText: ""}
	if _, err := LookTool(spec); err == nil {
		t.Fatal("expected error for missing tool")
	}
}

func TestSplitErrorMessage(t *testing.T) {
	err := &SplitError{Archive: "Lib.fcpbundle", Tool: "/usr/bin/zip", ExitCode: 15, Stderr: "zip I/O error"}
	msg := err.Error()
	for _, want := range []string{"Lib.fcpbundle", "/usr/bin/zip", "15", "zip I/O error"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}
