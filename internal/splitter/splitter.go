// Package splitter produces the chunk set for an archive by piping an
// external zip tool through a fixed-width part writer, and wraps the
// trust/invalidate/re-split decision around it.
package splitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/archive"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/chunk"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/constants"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/progress"
)

// stderrTailSize bounds how much tool stderr is kept for error reports.
const stderrTailSize = 4 * 1024

// Splitter produces a complete chunk set for an archive. Implementations
// must either terminate successfully with the full set on disk or leave the
// cleanup to the caller; they never write a manifest.
type Splitter interface {
	Split(ctx context.Context, a archive.Archive) (*chunk.Set, error)
}

// SplitError reports a failed split: the external tool failed, the disk
// preflight failed, or the produced output was unusable. The chunk set is
// invalidated before this error is returned, so nothing partial survives.
type SplitError struct {
	Archive  string
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *SplitError) Error() string {
	if e.Tool != "" {
		msg := fmt.Sprintf("split of %s failed: %s exited with %d", e.Archive, e.Tool, e.ExitCode)
		if e.Stderr != "" {
			msg += ": " + e.Stderr
		}
		return msg
	}
	return fmt.Sprintf("split of %s failed: %v", e.Archive, e.Err)
}

func (e *SplitError) Unwrap() error {
	return e.Err
}

// ZipSplitter runs `zip -q -r - <dir>` and cuts the streamed archive into
// fixed-size chunk files.
type ZipSplitter struct {
	tool     *Tool
	partSize int64
}

// NewZipSplitter creates a splitter using a located zip tool. partSize is
// the chunk file size in bytes; every chunk except the last is exactly this
// size.
func NewZipSplitter(tool *Tool, partSize int64) *ZipSplitter {
	return &ZipSplitter{tool: tool, partSize: partSize}
}

// Split compresses the archive directory and writes the chunk files
// <base>.001, <base>.002, ... next to it. The zip tool streams to stdout so
// no combined archive file ever exists on disk.
func (z *ZipSplitter) Split(ctx context.Context, a archive.Archive) (*chunk.Set, error) {
	base := a.ChunkBase()

	cmd := exec.CommandContext(ctx, z.tool.Path, "-q", "-r", "-", a.Name)
	cmd.Dir = filepath.Dir(a.Path)

	var stderr tailBuffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SplitError{Archive: a.Name, Err: fmt.Errorf("failed to open stdout pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		return nil, &SplitError{Archive: a.Name, Err: fmt.Errorf("failed to start %s: %w", z.tool.Path, err)}
	}

	bar := progress.New(-1, "splitting "+a.Name)
	pw := newPartWriter(base, z.partSize, bar)
	_, copyErr := io.Copy(pw, stdout)
	if copyErr != nil {
		// Unblock the tool so Wait cannot hang on a full pipe.
		stdout.Close()
	}
	closeErr := pw.Close()
	waitErr := cmd.Wait()
	bar.Finish()

	// A write-side failure kills the pipe, so report it ahead of the tool
	// exit status it induces.
	if copyErr != nil {
		return nil, &SplitError{Archive: a.Name, Err: fmt.Errorf("failed to write chunks: %w", copyErr)}
	}
	if waitErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &SplitError{
			Archive:  a.Name,
			Tool:     z.tool.Path,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      waitErr,
		}
	}
	if closeErr != nil {
		return nil, &SplitError{Archive: a.Name, Err: closeErr}
	}

	set, err := chunk.Scan(base)
	if err != nil {
		return nil, &SplitError{Archive: a.Name, Err: err}
	}
	if set == nil {
		return nil, &SplitError{Archive: a.Name, Err: fmt.Errorf("%s produced no output", z.tool.Path)}
	}
	return set, nil
}

// partWriter cuts a byte stream into numbered fixed-size chunk files. It
// refuses to open a part beyond constants.MaxParts: the three-digit suffix
// cannot name it, and a wider suffix would be invisible to the scanner.
type partWriter struct {
	base     string
	partSize int64
	bar      progress.Reporter

	file    *os.File
	number  int32
	written int64
}

func newPartWriter(base string, partSize int64, bar progress.Reporter) *partWriter {
	return &partWriter{base: base, partSize: partSize, bar: bar}
}

func (w *partWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if w.file == nil {
			if w.number >= constants.MaxParts {
				return total, fmt.Errorf("archive does not fit in %d chunk files of %d bytes; raise part_size_mb", constants.MaxParts, w.partSize)
			}
			w.number++
			f, err := os.OpenFile(chunk.PartPath(w.base, w.number), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
			if err != nil {
				return total, fmt.Errorf("failed to create chunk %03d: %w", w.number, err)
			}
			w.file = f
			w.written = 0
		}

		room := w.partSize - w.written
		n := int64(len(p))
		if n > room {
			n = room
		}
		wrote, err := w.file.Write(p[:n])
		total += wrote
		w.written += int64(wrote)
		if w.bar != nil {
			w.bar.Add(int64(wrote))
		}
		if err != nil {
			return total, fmt.Errorf("failed to write chunk %03d: %w", w.number, err)
		}
		p = p[wrote:]

		if w.written == w.partSize {
			if err := w.file.Close(); err != nil {
				return total, fmt.Errorf("failed to close chunk %03d: %w", w.number, err)
			}
			w.file = nil
		}
	}
	return total, nil
}

func (w *partWriter) Close() error {
	if w.file == nil {
		return nil
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close chunk %03d: %w", w.number, err)
	}
	w.file = nil
	return nil
}

// tailBuffer keeps the last stderrTailSize bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= stderrTailSize {
		t.buf.Reset()
		p = p[n-stderrTailSize:]
	} else if t.buf.Len()+n > stderrTailSize {
		trimmed := t.buf.Bytes()[t.buf.Len()+n-stderrTailSize:]
		rest := make([]byte, len(trimmed))
		copy(rest, trimmed)
		t.buf.Reset()
		t.buf.Write(rest)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	return string(bytes.TrimSpace(t.buf.Bytes()))
}
