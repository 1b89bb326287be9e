package engine

import (
	"context"
	"errors"
	"regexp"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/chunk"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/manifest"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
)

// multipartTagPattern matches the S3 aggregate ETag form "<md5 hex>-<N>".
// Other tag forms (Azure block blobs, single-part ETags, SSE-KMS) are not
// comparable to the manifest and skip the checksum check.
var multipartTagPattern = regexp.MustCompile(`^[0-9a-f]{32}-[0-9]+$`)

// verify confirms the committed remote object is equivalent to the local
// chunk set before any local cleanup is allowed.
//
// The default policy is size equivalence: the remote content length must
// equal the sum of the local chunk sizes. When the remote tag has the
// multipart aggregate form, the expected aggregate is also computed from
// the manifest digests and compared — this catches equal-size corruption
// with no extra remote reads. When the store cannot report a size at all,
// verification degrades to existence with a logged warning.
func (e *Engine) verify(ctx context.Context, key string, set *chunk.Set, m manifest.Manifest) error {
	info, err := e.store.HeadObject(ctx, e.opts.Bucket, key)
	if err != nil {
		if errors.Is(err, store.ErrObjectNotFound) {
			return &VerificationFailure{Key: key, Reason: "remote object does not exist"}
		}
		return &VerificationFailure{Key: key, Reason: "failed to read remote metadata", Err: err}
	}
	return e.verifyAgainst(info, key, set, m)
}

func (e *Engine) verifyAgainst(info store.ObjectInfo, key string, set *chunk.Set, m manifest.Manifest) error {
	if info.Size < 0 {
		e.log.Warnf("%s: store reports no object size; accepting existence only", key)
		return nil
	}

	want := set.TotalSize()
	if info.Size != want {
		return &VerificationFailure{
			Key:      key,
			Reason:   "remote size differs from local chunk set",
			WantSize: want,
			GotSize:  info.Size,
		}
	}

	if m != nil && multipartTagPattern.MatchString(info.Tag) {
		expected, err := m.MultipartTag(set)
		if err != nil {
			return &VerificationFailure{Key: key, Reason: "failed to derive aggregate checksum from manifest", Err: err}
		}
		if expected != info.Tag {
			return &VerificationFailure{
				Key:      key,
				Reason:   "remote aggregate checksum differs from manifest",
				WantSize: want,
				GotSize:  info.Size,
			}
		}
		e.log.Infof("%s: verified by size and aggregate checksum (%d bytes)", key, want)
		return nil
	}

	e.log.Infof("%s: verified by size (%d bytes)", key, want)
	return nil
}
