package constants

import (
	"time"
)

// Chunking
const (
	// DefaultPartSize - size of each chunk file produced by the splitter (100 MB).
	// Every chunk except the last is exactly this size; the chunk number is
	// also the remote part number, so this value must not change between a
	// crashed run and its resume (a trusted manifest pins the old size).
	DefaultPartSize = 100 * 1024 * 1024

	// MinPartSize - S3 rejects multipart parts smaller than 5 MB (except the
	// last part). Azure blocks have no such floor, but the engine keeps one
	// limit for both backends.
	MinPartSize = 5 * 1024 * 1024

	// MaxPartSize - upper bound on configured part size (1 GB). Each in-flight
	// part occupies one buffer of this size, so the bound caps worker memory.
	MaxPartSize = 1 * 1024 * 1024 * 1024

	// MaxParts - S3 caps multipart uploads at 10,000 parts. The three-digit
	// chunk suffix caps us far below that already.
	MaxParts = 999
)

// Disk space safety margin
const (
	// DiskSpaceMargin - splitting doubles disk usage while chunks coexist
	// with the source archive; require this fraction of headroom on top of
	// the archive size before starting.
	DiskSpaceMargin = 1.10
)

// Upload workers
const (
	// DefaultUploadWorkers - parts upload sequentially unless configured
	// otherwise.
	DefaultUploadWorkers = 1

	// MaxUploadWorkers - each worker holds one part buffer; bound the pool.
	MaxUploadWorkers = 16
)

// Stale session cleanup
const (
	// DefaultSessionMaxAge - cleanup aborts multipart sessions older than
	// this many days unless overridden on the command line.
	DefaultSessionMaxAgeDays = 3
)

// HTTP client
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for the TLS handshake.
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPDialTimeout - timeout for establishing a connection.
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for the dialer.
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPExpectContinueTimeout - timeout for a 100-continue response.
	HTTPExpectContinueTimeout = 1 * time.Second
)

// Progress UI
const (
	// ProgressRefreshRate - refresh interval for multi-part upload bars.
	ProgressRefreshRate = 300 * time.Millisecond

	// ProgressThrottle - minimum interval between single-bar updates.
	ProgressThrottle = 100 * time.Millisecond
)
