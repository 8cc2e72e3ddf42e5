package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// UploadBar is a byte-level Reporter drawing a single mpb bar.
// On a non-terminal it prints one start line and one result line instead.
type UploadBar struct {
	out        io.Writer
	isTerminal bool

	mu       sync.Mutex
	progress *mpb.Progress
	bar      *mpb.Bar
	name     string
	total    int64
	started  time.Time
}

// NewUploadBar creates an upload bar writing to stderr.
func NewUploadBar() *UploadBar {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	if isTerminal {
		enableWindowsANSI(os.Stderr)
	}
	return &UploadBar{out: os.Stderr, isTerminal: isTerminal}
}

// newUploadBarTo creates a non-terminal upload bar writing to w.
func newUploadBarTo(w io.Writer) *UploadBar {
	return &UploadBar{out: w}
}

// IsTerminal returns true if output is to a terminal (progress bars are active)
func (u *UploadBar) IsTerminal() bool {
	return u.isTerminal
}

// Start creates the bar for a transfer of total bytes.
func (u *UploadBar) Start(total int64, description string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.name = filepath.Base(description)
	u.total = total
	u.started = time.Now()

	if !u.isTerminal {
		fmt.Fprintf(u.out, "Uploading: %s (%.1f MiB)\n", u.name, float64(total)/(1024*1024))
		return
	}

	u.progress = mpb.New(
		mpb.WithOutput(u.out),
		mpb.WithRefreshRate(300*time.Millisecond),
		mpb.WithWidth(60),
	)
	u.bar = u.progress.New(total,
		mpb.BarStyle().
			Lbound("[").
			Filler("█").
			Tip("█").
			Padding("░").
			Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(u.name, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  "),
			decor.AverageSpeed(decor.SizeB1024(0), "% .1f", decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)
}

// Update moves the bar to current bytes.
func (u *UploadBar) Update(current int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.bar != nil {
		u.bar.SetCurrent(current)
	}
}

// Finish completes the bar and prints a summary line.
func (u *UploadBar) Finish() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.bar != nil {
		u.bar.SetTotal(-1, true)
		u.progress.Wait()
		u.bar, u.progress = nil, nil
	}
	fmt.Fprintf(u.out, "✓ %s sent (%.1f MiB) in %s\n",
		u.name, float64(u.total)/(1024*1024), time.Since(u.started).Round(time.Millisecond))
}

// Error aborts the bar and prints the failure.
func (u *UploadBar) Error(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.bar != nil {
		u.bar.Abort(true)
		u.progress.Wait()
		u.bar, u.progress = nil, nil
	}
	if err != nil {
		fmt.Fprintf(u.out, "✗ %s: %v\n", u.name, err)
	}
}

// SetDescription renames the transfer shown on later lines.
func (u *UploadBar) SetDescription(desc string) {
	u.mu.Lock()
	u.name = filepath.Base(desc)
	u.mu.Unlock()
}
