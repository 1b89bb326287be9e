// Package progress provides progress reporting for long-running local and
// remote operations: a single bar for streamed work (splitting, hashing)
// and a multi-bar UI for concurrent part uploads.
package progress

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/constants"
)

// Reporter reports progress of one operation. Add is safe to call from the
// goroutine doing the work; implementations are not required to be
// goroutine-safe across callers.
type Reporter interface {
	Add(n int64)
	Finish()
}

// New returns a byte-counting progress bar on a terminal and a no-op
// reporter otherwise. Pass total -1 for streamed work of unknown size.
func New(total int64, description string) Reporter {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return noop{}
	}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(constants.ProgressThrottle),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	return &barReporter{bar: bar}
}

type barReporter struct {
	bar *progressbar.ProgressBar
}

func (r *barReporter) Add(n int64) {
	_ = r.bar.Add64(n)
}

func (r *barReporter) Finish() {
	_ = r.bar.Finish()
}

type noop struct{}

func (noop) Add(int64) {}
func (noop) Finish()   {}
