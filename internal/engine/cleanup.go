package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/logging"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
)

// Cleanup aborts in-progress sessions older than maxAge and returns how
// many were aborted. This is remote garbage collection for sessions
// abandoned by crashed or superseded runs; an in-use session is protected
// only by the age threshold, so keep it comfortably above the longest
// plausible transfer.
func Cleanup(ctx context.Context, st store.ObjectStore, log *logging.Logger, bucket string, maxAge time.Duration) (int, error) {
	sessions, err := st.ListAllSessions(ctx, bucket)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	aborted := 0
	for _, sess := range sessions {
		if sess.Initiated.IsZero() {
			// Azure block blobs: no initiation time and no abort call;
			// the service expires uncommitted blocks after seven days.
			log.Infof("%s: session has no age; uncommitted blocks expire server-side", sess.Key)
			continue
		}
		age := time.Since(sess.Initiated)
		if age < maxAge {
			log.Debugf("%s: session %s is %s old, keeping", sess.Key, sess.UploadID, age.Round(time.Hour))
			continue
		}
		if err := st.AbortSession(ctx, sess); err != nil {
			return aborted, fmt.Errorf("failed to abort session %s for %s: %w", sess.UploadID, sess.Key, err)
		}
		log.Infof("%s: aborted session %s (%s old)", sess.Key, sess.UploadID, age.Round(time.Hour))
		aborted++
	}
	return aborted, nil
}
