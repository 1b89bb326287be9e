package engine

import (
	"context"
	"sort"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
)

// resolveSession finds the live multipart session for an archive key,
// creating one when none exists. Sessions are keyed purely by (bucket,
// key): a run on another machine, or after a crash, discovers and resumes
// the same session instead of orphaning it. Nothing about the session is
// recorded locally.
func (e *Engine) resolveSession(ctx context.Context, key string) (store.Session, error) {
	sessions, err := e.store.ListSessions(ctx, e.opts.Bucket, key)
	if err != nil {
		return store.Session{}, &SessionResolutionError{Bucket: e.opts.Bucket, Key: key, Err: err}
	}

	switch len(sessions) {
	case 0:
		sess, err := e.store.CreateSession(ctx, e.opts.Bucket, key, e.opts.StorageClass)
		if err != nil {
			return store.Session{}, &SessionResolutionError{Bucket: e.opts.Bucket, Key: key, Err: err}
		}
		e.log.Infof("%s: created session %s", key, sess.UploadID)
		return sess, nil

	case 1:
		e.log.Infof("%s: resuming session %s", key, sessions[0].UploadID)
		return sessions[0], nil

	default:
		// Concurrent historical runs can leave several sessions for one
		// key. The newest one wins; stale siblings stay for `cleanup`.
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].Initiated.After(sessions[j].Initiated)
		})
		e.log.Warnf("%s: found %d sessions, resuming the newest (%s)", key, len(sessions), sessions[0].UploadID)
		return sessions[0], nil
	}
}
