// Package buffers pools part-size byte slices so worker-pool uploads reuse
// memory instead of allocating one part buffer per upload.
package buffers

import (
	"sync"
	"sync/atomic"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/constants"
)

var (
	partSize int64 = constants.DefaultPartSize
	pool           = &sync.Pool{New: newBuffer}

	allocations int64
)

func newBuffer() interface{} {
	atomic.AddInt64(&allocations, 1)
	buf := make([]byte, atomic.LoadInt64(&partSize))
	return &buf
}

// Configure sets the pooled buffer size. Call once at startup, before any
// Get; buffers of another size handed to Put are dropped, so a mid-run
// change only wastes memory rather than corrupting anything.
func Configure(size int64) {
	if size > 0 {
		atomic.StoreInt64(&partSize, size)
	}
}

// Get retrieves a part-size buffer. Return it with Put when done.
//
//	buf := buffers.Get()
//	defer buffers.Put(buf)
//	n, err := io.ReadFull(r, (*buf)[:size])
func Get() *[]byte {
	return pool.Get().(*[]byte)
}

// Put returns a buffer to the pool. Only buffers of the configured size
// are kept.
func Put(buf *[]byte) {
	if buf != nil && int64(len(*buf)) == atomic.LoadInt64(&partSize) {
		pool.Put(buf)
	}
}

// Allocations returns how many buffers were actually allocated, for tests
// and debugging.
func Allocations() int64 {
	return atomic.LoadInt64(&allocations)
}
