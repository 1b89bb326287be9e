package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/juju/ratelimit"
	"golang.org/x/sync/errgroup"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/chunk"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/progress"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/util/buffers"
)

// reconcile diffs the local chunk set against the parts the remote session
// already holds and uploads exactly the missing ones, in ascending part
// number. Remotely-known parts are never re-uploaded; their tags are
// reused. On success the returned list covers every part of the set.
//
// The second return value is the number of bytes actually uploaded during
// this call.
func (e *Engine) reconcile(ctx context.Context, sess store.Session, set *chunk.Set) ([]store.CompletedPart, int64, error) {
	remote, err := e.store.ListParts(ctx, sess)
	if err != nil {
		return nil, 0, &SessionResolutionError{Bucket: sess.Bucket, Key: sess.Key, Err: fmt.Errorf("failed to list remote parts: %w", err)}
	}

	have := make(map[int32]store.PartInfo, len(remote))
	for _, p := range remote {
		have[p.Number] = p
	}

	completed := make([]store.CompletedPart, 0, set.Count())
	var missing []chunk.Part
	var remaining int64
	for _, p := range set.Parts {
		info, ok := have[p.Number]
		if ok {
			if info.Size >= 0 && info.Size != p.Size {
				e.log.Warnf("%s: remote part %d reports %d bytes, local chunk has %d; verification will decide",
					sess.Key, p.Number, info.Size, p.Size)
			}
			completed = append(completed, store.CompletedPart{Number: p.Number, Tag: info.Tag})
			continue
		}
		missing = append(missing, p)
		remaining += p.Size
	}

	if len(missing) == 0 {
		e.log.Infof("%s: all %d parts already staged", sess.Key, set.Count())
		return completed, 0, nil
	}
	if len(completed) > 0 {
		e.log.Infof("%s: reusing %d staged parts, uploading %d of %d",
			sess.Key, len(completed), len(missing), set.Count())
	} else {
		e.log.Infof("%s: uploading %d parts (%.1f MB)",
			sess.Key, len(missing), float64(remaining)/(1024*1024))
	}

	ui := progress.NewPartUI(sess.Key, remaining)
	if ui.IsTerminal() {
		prev := e.log.Output()
		e.log.SetOutput(ui.LogWriter())
		defer e.log.SetOutput(prev)
	}
	defer ui.Wait()

	var uploaded int64
	if e.opts.Workers == 1 {
		for _, p := range missing {
			cp, err := e.uploadPart(ctx, sess, p, ui)
			if err != nil {
				return nil, uploaded, err
			}
			completed = append(completed, cp)
			uploaded += p.Size
		}
	} else {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.Workers)
		for _, p := range missing {
			p := p
			g.Go(func() error {
				cp, err := e.uploadPart(gctx, sess, p, ui)
				if err != nil {
					return err
				}
				mu.Lock()
				completed = append(completed, cp)
				uploaded += p.Size
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, uploaded, err
		}
	}

	sort.Slice(completed, func(i, j int) bool { return completed[i].Number < completed[j].Number })
	return completed, uploaded, nil
}

// uploadPart reads one chunk file through the pooled buffer and stages it
// with the store. The read goes through the shared rate-limit bucket when
// a bandwidth cap is configured.
func (e *Engine) uploadPart(ctx context.Context, sess store.Session, p chunk.Part, ui *progress.PartUI) (store.CompletedPart, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return store.CompletedPart{}, &PartUploadError{Key: sess.Key, Part: p.Number, Err: err}
	}
	defer f.Close()

	buf := buffers.Get()
	defer buffers.Put(buf)
	data := *buf
	if int64(len(data)) < p.Size {
		// The chunk was written by a run with a larger configured part
		// size; the pool cannot serve it.
		data = make([]byte, p.Size)
	} else {
		data = data[:p.Size]
	}

	var r io.Reader = f
	if e.limiter != nil {
		r = ratelimit.Reader(r, e.limiter)
	}
	pr := ui.PartReader(p.Number, p.Size, r)
	_, err = io.ReadFull(pr, data)
	pr.Close()
	if err != nil {
		return store.CompletedPart{}, &PartUploadError{Key: sess.Key, Part: p.Number, Err: fmt.Errorf("failed to read chunk: %w", err)}
	}

	tag, err := e.store.UploadPart(ctx, sess, p.Number, data)
	if err != nil {
		return store.CompletedPart{}, &PartUploadError{Key: sess.Key, Part: p.Number, Err: err}
	}

	e.log.Debugf("%s: part %d staged (%d bytes, tag %s)", sess.Key, p.Number, p.Size, tag)
	return store.CompletedPart{Number: p.Number, Tag: tag}, nil
}
