// Package store abstracts the remote object store behind the fixed command
// set the engine needs: multipart session lifecycle, part staging, and
// object lookup. Backends exist for S3 and Azure block blobs.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned by HeadObject when no object exists under
// the key. Callers branch on it with errors.Is.
var ErrObjectNotFound = errors.New("object not found")

// Session identifies one in-progress multipart upload on the remote store.
// Initiated is the zero time when the backend cannot report an age.
type Session struct {
	Bucket    string
	Key       string
	UploadID  string
	Initiated time.Time
}

// PartInfo describes a part the remote session already holds. Size is -1
// when the backend cannot report it.
type PartInfo struct {
	Number int32
	Tag    string
	Size   int64
}

// CompletedPart pairs a part number with the content tag the store returned
// when the part was staged. Completion requires the full contiguous set.
type CompletedPart struct {
	Number int32
	Tag    string
}

// ObjectInfo describes a committed remote object. Size is -1 when the
// backend cannot report a content length; the verifier then degrades to
// existence-only.
type ObjectInfo struct {
	Key          string
	Size         int64
	Tag          string
	StorageClass string
}

// ObjectStore is the remote authority for sessions, parts, and objects.
// Implementations never retry internally; every failure surfaces to the
// caller immediately.
type ObjectStore interface {
	// ListSessions returns the in-progress sessions for exactly this key.
	ListSessions(ctx context.Context, bucket, key string) ([]Session, error)

	// CreateSession starts a new multipart session. storageClass may be
	// empty for the backend default.
	CreateSession(ctx context.Context, bucket, key, storageClass string) (Session, error)

	// ListParts returns the parts the session already holds.
	ListParts(ctx context.Context, sess Session) ([]PartInfo, error)

	// UploadPart stages one part and returns its content tag.
	UploadPart(ctx context.Context, sess Session, number int32, data []byte) (string, error)

	// CompleteSession commits the session into one object. parts must
	// cover every part number exactly once; callers validate before
	// calling.
	CompleteSession(ctx context.Context, sess Session, parts []CompletedPart) error

	// AbortSession discards a session and its staged parts.
	AbortSession(ctx context.Context, sess Session) error

	// HeadObject returns metadata for a committed object, or
	// ErrObjectNotFound.
	HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error)

	// ListAllSessions returns every in-progress session in the bucket,
	// for the cleanup and sessions commands.
	ListAllSessions(ctx context.Context, bucket string) ([]Session, error)
}
