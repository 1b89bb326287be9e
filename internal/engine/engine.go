// Package engine implements the archive transfer engine: the session
// registry, part reconciler, completer, verifier, and the per-archive
// state machine that sequences them.
//
// The engine keeps no state of its own. The local chunk files, their md5
// manifest, and the remote session are the entire source of truth; a run
// killed at any point is resumed by running the engine again. No remote
// call is retried internally: re-running is the retry mechanism.
package engine

import (
	"github.com/google/uuid"
	"github.com/juju/ratelimit"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/logging"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/splitter"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
)

// Options configures one engine run.
type Options struct {
	// Bucket is the remote bucket or container.
	Bucket string

	// StorageClass is applied when a session is created.
	StorageClass string

	// Workers is the number of concurrent part uploads per archive.
	// 1 uploads sequentially.
	Workers int

	// BandwidthLimit caps aggregate upload read throughput in bytes per
	// second. 0 is unlimited.
	BandwidthLimit int64

	// FailFast stops the run at the first failed archive instead of
	// continuing with the rest.
	FailFast bool

	// OnFailure, when set, is called as each archive fails. Long batches
	// run unattended; this surfaces failures while the run is still going.
	OnFailure func(key string, err error)
}

// Engine drives archives from discovery to a verified remote object.
type Engine struct {
	store   store.ObjectStore
	chunks  *splitter.Adapter
	log     *logging.Logger
	opts    Options
	limiter *ratelimit.Bucket
	runID   string
}

// New creates an engine over a store backend and a chunk-set adapter.
func New(st store.ObjectStore, chunks *splitter.Adapter, log *logging.Logger, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	var limiter *ratelimit.Bucket
	if opts.BandwidthLimit > 0 {
		// One second of burst; all workers share the bucket.
		limiter = ratelimit.NewBucketWithRate(float64(opts.BandwidthLimit), opts.BandwidthLimit)
	}

	return &Engine{
		store:   st,
		chunks:  chunks,
		log:     log,
		opts:    opts,
		limiter: limiter,
		runID:   uuid.NewString(),
	}
}

// RunID identifies this engine instance in logs and the run lock.
func (e *Engine) RunID() string {
	return e.runID
}
