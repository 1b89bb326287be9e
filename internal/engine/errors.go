package engine

import "fmt"

// SessionResolutionError reports a failed session lookup or creation.
// There is no safe fallback: without knowing the remote session state the
// engine could orphan or duplicate a session, so the archive fails.
type SessionResolutionError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *SessionResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve session for %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *SessionResolutionError) Unwrap() error {
	return e.Err
}

// PartUploadError reports a failed part staging. Parts already staged
// remotely are preserved for the next run's resume.
type PartUploadError struct {
	Key  string
	Part int32
	Err  error
}

func (e *PartUploadError) Error() string {
	return fmt.Sprintf("failed to upload part %d of %s: %v", e.Part, e.Key, e.Err)
}

func (e *PartUploadError) Unwrap() error {
	return e.Err
}

// CompletionError reports an incomplete part set or a failed session
// commit. An incomplete set is detected before any remote call is made.
type CompletionError struct {
	Key    string
	Reason string
	Err    error
}

func (e *CompletionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot complete %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("failed to complete %s: %v", e.Key, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// VerificationFailure reports that a committed object could not be
// confirmed equivalent to the local chunk set. Local files are retained.
type VerificationFailure struct {
	Key      string
	Reason   string
	WantSize int64
	GotSize  int64
	Err      error
}

func (e *VerificationFailure) Error() string {
	if e.WantSize != e.GotSize {
		return fmt.Sprintf("verification of %s failed: %s (local %d bytes, remote %d bytes)",
			e.Key, e.Reason, e.WantSize, e.GotSize)
	}
	return fmt.Sprintf("verification of %s failed: %s", e.Key, e.Reason)
}

func (e *VerificationFailure) Unwrap() error {
	return e.Err
}
