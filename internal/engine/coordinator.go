package engine

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/archive"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/chunk"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/diskspace"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/manifest"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
)

// State is the per-archive position in the transfer state machine. Every
// archive ends in StateVerified, StateSkipped, or StateFailed.
type State string

const (
	StateDiscovered      State = "DISCOVERED"
	StateChunking        State = "CHUNKING"
	StateChunkVerified   State = "CHUNK_VERIFIED"
	StateSessionResolved State = "SESSION_RESOLVED"
	StatePartsReconciled State = "PARTS_RECONCILED"
	StateCompleted       State = "COMPLETED"
	StateVerified        State = "VERIFIED"
	StateSkipped         State = "SKIPPED"
	StateFailed          State = "FAILED"
)

// Result is the terminal record for one archive.
type Result struct {
	Archive       archive.Archive
	State         State
	Err           error
	BytesUploaded int64
	Duration      time.Duration
}

// Summary aggregates a run.
type Summary struct {
	Results       []Result
	Archived      int
	Skipped       int
	Failed        int
	BytesUploaded int64
	Duration      time.Duration
}

// Run processes the archives sequentially, each independently reaching a
// terminal state. Archives with resumable local chunks are processed
// first, then the rest in discovery order. One archive's failure never
// blocks another's attempt unless FailFast is set.
func (e *Engine) Run(ctx context.Context, archives []archive.Archive) (*Summary, error) {
	start := time.Now()
	e.log.Infof("run %s: %d archive(s), bucket %s", e.runID, len(archives), e.opts.Bucket)

	summary := &Summary{}
	for _, a := range orderForResume(archives) {
		if err := ctx.Err(); err != nil {
			e.log.Warnf("run canceled; %d archive(s) not attempted", len(archives)-len(summary.Results))
			summary.Duration = time.Since(start)
			return summary, err
		}

		res := e.processArchive(ctx, a)
		summary.Results = append(summary.Results, res)
		summary.BytesUploaded += res.BytesUploaded

		switch res.State {
		case StateVerified:
			summary.Archived++
			e.log.Infof("%s: %s in %s", a.Key, res.State, res.Duration.Round(time.Second))
		case StateSkipped:
			summary.Skipped++
		default:
			summary.Failed++
			e.log.Errorf("%s: %s: %v", a.Key, res.State, res.Err)
			if diskspace.IsInsufficientSpaceError(res.Err) {
				e.log.Warnf("%s: free up disk space next to the source, or archive fewer sources per run", a.Key)
			}
			if e.opts.OnFailure != nil {
				e.opts.OnFailure(a.Key, res.Err)
			}
			if e.opts.FailFast {
				e.log.Warnf("fail-fast: stopping after first failure")
				summary.Duration = time.Since(start)
				return summary, nil
			}
		}
	}

	summary.Duration = time.Since(start)
	e.log.Infof("run %s: %d archived, %d skipped, %d failed in %s",
		e.runID, summary.Archived, summary.Skipped, summary.Failed,
		summary.Duration.Round(time.Second))
	return summary, nil
}

// processArchive drives one archive through the state machine. Every error
// is converted into a FAILED result here; nothing propagates further up.
func (e *Engine) processArchive(ctx context.Context, a archive.Archive) Result {
	start := time.Now()
	res := Result{Archive: a, State: StateDiscovered}
	fail := func(err error) Result {
		res.State = StateFailed
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	base := a.ChunkBase()

	// Already-processed precheck: a remote object under the key means a
	// previous run completed. Local leftovers are verified and cleaned
	// rather than blindly deleted, healing a crash between completion
	// and cleanup without weakening the cleanup gate.
	info, err := e.store.HeadObject(ctx, e.opts.Bucket, a.Key)
	switch {
	case err == nil:
		set, scanErr := chunk.Scan(base)
		if scanErr == nil && set != nil {
			m, _ := manifest.Load(base)
			if vErr := e.verifyAgainst(info, a.Key, set, m); vErr != nil {
				return fail(vErr)
			}
			if cleanErr := manifest.Invalidate(base); cleanErr != nil {
				e.log.Warnf("%s: failed to clean local chunks: %v", a.Key, cleanErr)
			} else {
				e.log.Infof("%s: already processed; cleaned up leftover local chunks", a.Key)
			}
		} else {
			e.log.Infof("%s: already processed, skipping", a.Key)
		}
		res.State = StateSkipped
		res.Duration = time.Since(start)
		return res
	case !errors.Is(err, store.ErrObjectNotFound):
		return fail(err)
	}

	res.State = StateChunking
	set, err := e.chunks.EnsureChunkSet(ctx, a)
	if err != nil {
		return fail(err)
	}
	res.State = StateChunkVerified

	m, err := manifest.Load(base)
	if err != nil || m == nil {
		return fail(errors.New("chunk manifest disappeared after split"))
	}

	sess, err := e.resolveSession(ctx, a.Key)
	if err != nil {
		return fail(err)
	}
	res.State = StateSessionResolved

	parts, uploaded, err := e.reconcile(ctx, sess, set)
	res.BytesUploaded = uploaded
	if err != nil {
		// Staged remote parts are left in place for the next resume.
		return fail(err)
	}
	res.State = StatePartsReconciled

	if err := e.complete(ctx, sess, parts, set.Count()); err != nil {
		return fail(err)
	}
	res.State = StateCompleted

	if err := e.verify(ctx, a.Key, set, m); err != nil {
		// Local chunk files and manifest are retained on purpose.
		return fail(err)
	}

	// Cleanup is gated strictly on verification.
	if err := manifest.Invalidate(base); err != nil {
		e.log.Warnf("%s: verified but failed to clean local chunks: %v", a.Key, err)
	} else {
		e.log.Infof("%s: local chunk files and manifest removed", a.Key)
	}

	res.State = StateVerified
	res.Duration = time.Since(start)
	return res
}

// orderForResume puts archives that already have local chunk files and a
// manifest ahead of the rest, so interrupted work resumes before new work
// starts. Only presence is checked here; the authoritative checksum trust
// decision happens in EnsureChunkSet.
func orderForResume(archives []archive.Archive) []archive.Archive {
	var resumable, fresh []archive.Archive
	for _, a := range archives {
		if hasResumableChunks(a) {
			resumable = append(resumable, a)
		} else {
			fresh = append(fresh, a)
		}
	}
	return append(resumable, fresh...)
}

func hasResumableChunks(a archive.Archive) bool {
	base := a.ChunkBase()
	set, err := chunk.Scan(base)
	if err != nil || set == nil {
		return false
	}
	_, err = os.Stat(manifest.Path(base))
	return err == nil
}
