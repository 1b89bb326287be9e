package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/constants"
)

// PartUI manages one progress bar per in-flight part upload plus a total
// bar. On a non-terminal it renders nothing but still proxies reads.
type PartUI struct {
	progress   *mpb.Progress
	total      *mpb.Bar
	isTerminal bool
}

// NewPartUI creates the UI for one archive's part uploads. totalBytes is
// the number of bytes still to upload (already-staged parts excluded).
func NewPartUI(key string, totalBytes int64) *PartUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		enableWindowsANSI(os.Stderr)
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(constants.ProgressRefreshRate),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	ui := &PartUI{progress: p, isTerminal: isTerminal}
	if totalBytes > 0 {
		ui.total = p.New(totalBytes,
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(key+" "),
				decor.CountersKibiByte("% .1f / % .1f"),
			),
			mpb.AppendDecorators(
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30),
				decor.OnComplete(decor.EwmaETA(decor.ET_STYLE_GO, 30), "done"),
			),
		)
	}
	return ui
}

// PartReader wraps a part's data stream so the per-part bar and the total
// bar both advance as it is read. The returned reader must be fully drained
// or closed so the bar is removed.
func (u *PartUI) PartReader(number int32, size int64, r io.Reader) io.ReadCloser {
	bar := u.progress.New(size,
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding(" ").Rbound("]"),
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("  part %03d ", number)),
			decor.CountersKibiByte("% .1f / % .1f"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)
	if u.total != nil {
		r = u.total.ProxyReader(r)
	}
	return bar.ProxyReader(r)
}

// Wait blocks until all bars are done rendering. Call after the last part
// finished or failed; Shutdown is implied.
func (u *PartUI) Wait() {
	if u.total != nil && !u.total.Completed() {
		u.total.Abort(true)
	}
	u.progress.Wait()
}

// LogWriter returns a writer that prints safely above the active bars, or
// stderr when no bars render.
func (u *PartUI) LogWriter() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

// IsTerminal reports whether bars are actually rendering.
func (u *PartUI) IsTerminal() bool {
	return u.isTerminal
}
