package progress

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/loadfile/loadfile/internal/constants"
)

// Spinner is an indeterminate busy indicator with a status text.
// Start and Stop may be called repeatedly; a stopped spinner clears its line.
type Spinner struct {
	out io.Writer

	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{out: w}
}

// Start shows the spinner with status, or updates the status if it is
// already running.
func (s *Spinner) Start(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bar != nil {
		s.bar.Describe(status)
		return
	}

	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(s.out),
		progressbar.OptionSetDescription(status),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(constants.SpinnerInterval),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	s.done = make(chan struct{})

	bar, done := s.bar, s.done
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(constants.SpinnerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()
}

// Running reports whether the spinner is shown.
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bar != nil
}

// Stop removes the spinner. Stopping a stopped spinner is a no-op.
func (s *Spinner) Stop() {
	s.mu.Lock()
	bar, done := s.bar, s.done
	s.bar, s.done = nil, nil
	s.mu.Unlock()

	if bar == nil {
		return
	}
	close(done)
	s.wg.Wait()
	_ = bar.Finish()
}
