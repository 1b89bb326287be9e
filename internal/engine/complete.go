package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
)

// complete commits the session from the collected part tags. The tag list
// must cover exactly {1..n}: a gap or duplicate means reconciliation did
// not actually close the set, and the commit is refused before any remote
// call — a partial set must never be submitted.
func (e *Engine) complete(ctx context.Context, sess store.Session, parts []store.CompletedPart, n int) error {
	if len(parts) != n {
		return &CompletionError{
			Key:    sess.Key,
			Reason: fmt.Sprintf("have %d part tags, need %d", len(parts), n),
		}
	}

	sorted := make([]store.CompletedPart, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })
	for i, p := range sorted {
		if p.Number != int32(i+1) {
			return &CompletionError{
				Key:    sess.Key,
				Reason: fmt.Sprintf("part tags are not contiguous at position %d: part %d", i+1, p.Number),
			}
		}
		if p.Tag == "" {
			return &CompletionError{
				Key:    sess.Key,
				Reason: fmt.Sprintf("part %d has an empty tag", p.Number),
			}
		}
	}

	if err := e.store.CompleteSession(ctx, sess, sorted); err != nil {
		return &CompletionError{Key: sess.Key, Err: err}
	}
	e.log.Infof("%s: session completed with %d parts", sess.Key, n)
	return nil
}
