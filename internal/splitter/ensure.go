package splitter

import (
	"context"
	"fmt"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/archive"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/chunk"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/constants"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/diskspace"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/logging"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/manifest"
)

// Adapter wraps a Splitter with the chunk-set trust protocol: reuse a
// trusted set unchanged, otherwise invalidate whatever is there, split
// fresh, and record the manifest.
type Adapter struct {
	splitter Splitter
	log      *logging.Logger
}

// NewAdapter creates an Adapter.
func NewAdapter(s Splitter, log *logging.Logger) *Adapter {
	return &Adapter{splitter: s, log: log}
}

// EnsureChunkSet returns a trusted chunk set for the archive, splitting
// only when necessary. Calling it on an archive that already has a trusted
// set is an idempotent no-op. On any failure nothing partial survives: the
// chunk files and manifest are invalidated together before the error is
// returned.
func (ad *Adapter) EnsureChunkSet(ctx context.Context, a archive.Archive) (*chunk.Set, error) {
	base := a.ChunkBase()

	if set, ok := manifest.TrustedSet(base); ok {
		ad.log.Infof("%s: reusing %d trusted chunk files", a.Key, set.Count())
		return set, nil
	}

	// Anything on disk at this point is stale, foreign, or failed
	// verification. It goes away as one unit before a fresh split.
	if err := manifest.Invalidate(base); err != nil {
		return nil, &SplitError{Archive: a.Name, Err: err}
	}

	size, err := a.DiskUsage()
	if err != nil {
		return nil, &SplitError{Archive: a.Name, Err: err}
	}
	if err := diskspace.CheckAvailableSpace(base, size, constants.DiskSpaceMargin); err != nil {
		return nil, &SplitError{Archive: a.Name, Err: fmt.Errorf("disk preflight failed: %w", err)}
	}

	ad.log.Infof("%s: splitting %.1f MB archive", a.Key, float64(size)/(1024*1024))
	set, err := ad.splitter.Split(ctx, a)
	if err != nil {
		if cleanupErr := manifest.Invalidate(base); cleanupErr != nil {
			ad.log.Warnf("%s: failed to clean partial chunks: %v", a.Key, cleanupErr)
		}
		return nil, err
	}

	if err := manifest.Write(set); err != nil {
		if cleanupErr := manifest.Invalidate(base); cleanupErr != nil {
			ad.log.Warnf("%s: failed to clean chunks after manifest error: %v", a.Key, cleanupErr)
		}
		return nil, &SplitError{Archive: a.Name, Err: err}
	}

	ad.log.Infof("%s: wrote %d chunk files and manifest", a.Key, set.Count())
	return set, nil
}
