package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Spinner is the terminal indicator shown while a traversal runs. A deep
// scan produces no intermediate output, so the spinner keeps the input name
// and elapsed time visible on stderr until the measurement finishes or the
// surrounding context is cancelled.
type Spinner struct {
	message   string
	ctx       context.Context
	cancel    context.CancelFunc
	begun     time.Time
	done      chan struct{}
	stopped   chan struct{}
	started   bool
	cancelled bool
	width     int
	mu        sync.Mutex
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// newSpinner creates a spinner with the given message.
func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newMeasureSpinner creates a spinner labelled for a scan of the named
// input file.
func newMeasureSpinner(ctx context.Context, path string) *Spinner {
	return newSpinnerWithContext(ctx, "Measuring "+filepath.Base(path)+"...")
}

// newSpinnerWithContext creates a spinner that clears itself when ctx is
// cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the animation. The rendered line carries the elapsed scan
// time so a stuck traversal is distinguishable from a slow one.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.begun = time.Now()
	s.mu.Unlock()

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.ctx.Done():
				s.mu.Lock()
				s.cancelled = true
				s.mu.Unlock()
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.render(spinnerFrames[i%len(spinnerFrames)])
				i++
			}
		}
	}()
}

func (s *Spinner) render(frame string) {
	elapsed := time.Since(s.begun).Round(100 * time.Millisecond)
	line := fmt.Sprintf("%s %s",
		styleIconSpinner.Render(frame),
		StyleDim.Render(fmt.Sprintf("%s (%s)", s.message, elapsed)))
	s.mu.Lock()
	if w := len(s.message) + len(elapsed.String()) + 6; w > s.width {
		s.width = w
	}
	fmt.Fprintf(os.Stderr, "\r%s", line)
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. It is safe to call more
// than once, and safe on a spinner that was never started.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.cancelled = true
	}
	started := s.started
	s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if started {
		<-s.stopped
	}
	// Cancel only after the animation goroutine has exited so a normal
	// stop is never misread as context cancellation.
	s.cancel()
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	width := s.width
	if w := len(s.message) + 4; w > width {
		width = w
	}
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", width))
}

// StopWithSuccess stops the spinner and reports a completed scan.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and reports a failed scan.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the spinner observed context cancellation
// before it was stopped, as opposed to the scan completing.
func (s *Spinner) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}
