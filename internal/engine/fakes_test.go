package engine

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/archive"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/chunk"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/logging"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
)

// testLogger returns a logger that keeps test output quiet.
func testLogger() *logging.Logger {
	log := logging.NewLogger()
	log.SetOutput(io.Discard)
	return log
}

// fakeSplitter writes chunk files with the given sizes, filled with the
// part number, and counts invocations.
type fakeSplitter struct {
	sizes []int
	calls int
	err   error
}

func (f *fakeSplitter) Split(ctx context.Context, a archive.Archive) (*chunk.Set, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	base := a.ChunkBase()
	for i, size := range f.sizes {
		data := make([]byte, size)
		for j := range data {
			data[j] = byte(i + 1)
		}
		if err := os.WriteFile(chunk.PartPath(base, int32(i+1)), data, 0600); err != nil {
			return nil, err
		}
	}
	return chunk.Scan(base)
}

// fakeStore is an in-memory ObjectStore recording every mutation, with an
// S3-like aggregate tag on completed objects so the checksum verification
// policy is exercised for real.
type fakeStore struct {
	mu sync.Mutex

	sessions map[string][]store.Session           // key -> sessions
	parts    map[string]map[int32]store.PartInfo  // uploadID -> staged parts
	digests  map[string]map[int32][md5.Size]byte  // uploadID -> raw part digests
	objects  map[string]store.ObjectInfo          // key -> committed object

	uploadedParts []int32 // every UploadPart call, in order
	completeCalls int
	abortedIDs    []string

	nextUploadID int

	// Failure and degradation knobs.
	failUploadPart map[int32]error
	failComplete   error
	sizeUnknown    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string][]store.Session),
		parts:    make(map[string]map[int32]store.PartInfo),
		digests:  make(map[string]map[int32][md5.Size]byte),
		objects:  make(map[string]store.ObjectInfo),
	}
}

// stage pre-loads a part into a session, as if a previous run uploaded it.
func (f *fakeStore) stage(sess store.Session, number int32, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stageLocked(sess, number, data)
}

func (f *fakeStore) stageLocked(sess store.Session, number int32, data []byte) {
	sum := md5.Sum(data)
	if f.parts[sess.UploadID] == nil {
		f.parts[sess.UploadID] = make(map[int32]store.PartInfo)
		f.digests[sess.UploadID] = make(map[int32][md5.Size]byte)
	}
	f.parts[sess.UploadID][number] = store.PartInfo{
		Number: number,
		Tag:    hex.EncodeToString(sum[:]),
		Size:   int64(len(data)),
	}
	f.digests[sess.UploadID][number] = sum
}

// putObject pre-loads a committed object, as if a previous run finished.
func (f *fakeStore) putObject(key string, size int64, tag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = store.ObjectInfo{Key: key, Size: size, Tag: tag}
}

func (f *fakeStore) ListSessions(ctx context.Context, bucket, key string) ([]store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Session(nil), f.sessions[key]...), nil
}

func (f *fakeStore) CreateSession(ctx context.Context, bucket, key, storageClass string) (store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextUploadID++
	sess := store.Session{
		Bucket:    bucket,
		Key:       key,
		UploadID:  fmt.Sprintf("upload-%d", f.nextUploadID),
		Initiated: time.Now(),
	}
	f.sessions[key] = append(f.sessions[key], sess)
	return sess, nil
}

func (f *fakeStore) ListParts(ctx context.Context, sess store.Session) ([]store.PartInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var parts []store.PartInfo
	for _, p := range f.parts[sess.UploadID] {
		parts = append(parts, p)
	}
	return parts, nil
}

func (f *fakeStore) UploadPart(ctx context.Context, sess store.Session, number int32, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failUploadPart[number]; ok {
		return "", err
	}
	f.uploadedParts = append(f.uploadedParts, number)
	f.stageLocked(sess, number, data)
	return f.parts[sess.UploadID][number].Tag, nil
}

func (f *fakeStore) CompleteSession(ctx context.Context, sess store.Session, parts []store.CompletedPart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	if f.failComplete != nil {
		return f.failComplete
	}

	agg := md5.New()
	var size int64
	for _, p := range parts {
		staged, ok := f.parts[sess.UploadID][p.Number]
		if !ok {
			return fmt.Errorf("part %d was never staged", p.Number)
		}
		sum := f.digests[sess.UploadID][p.Number]
		agg.Write(sum[:])
		size += staged.Size
	}
	f.objects[sess.Key] = store.ObjectInfo{
		Key:  sess.Key,
		Size: size,
		Tag:  fmt.Sprintf("%s-%d", hex.EncodeToString(agg.Sum(nil)), len(parts)),
	}

	delete(f.parts, sess.UploadID)
	delete(f.digests, sess.UploadID)
	remaining := f.sessions[sess.Key][:0]
	for _, s := range f.sessions[sess.Key] {
		if s.UploadID != sess.UploadID {
			remaining = append(remaining, s)
		}
	}
	f.sessions[sess.Key] = remaining
	return nil
}

func (f *fakeStore) AbortSession(ctx context.Context, sess store.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abortedIDs = append(f.abortedIDs, sess.UploadID)
	delete(f.parts, sess.UploadID)
	delete(f.digests, sess.UploadID)
	return nil
}

func (f *fakeStore) HeadObject(ctx context.Context, bucket, key string) (store.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return store.ObjectInfo{}, store.ErrObjectNotFound
	}
	if f.sizeUnknown {
		obj.Size = -1
	}
	return obj, nil
}

func (f *fakeStore) ListAllSessions(ctx context.Context, bucket string) ([]store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []store.Session
	for _, list := range f.sessions {
		all = append(all, list...)
	}
	return all, nil
}
