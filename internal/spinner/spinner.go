// Package spinner shows a one-line progress indicator on stderr while candidate
// sentences are scored and classified.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var frames = []string{"◜", "◠", "◝", "◞", "◡", "◟"}

// Spinner redraws a status line until stopped.
type Spinner struct {
	writer io.Writer
	delay  time.Duration

	mu      sync.Mutex
	active  bool
	message string
	started time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a spinner writing to writer. Cancelling ctx stops the animation goroutine.
func New(ctx context.Context, writer io.Writer, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		writer:  writer,
		delay:   100 * time.Millisecond,
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
	}
}

// Start begins the animation. Starting a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return
	}
	s.active = true
	s.started = time.Now()

	s.wg.Add(1)
	go s.run()
}

// Stop ends the animation and clears the line. Stopping an idle spinner is a no-op.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	// redirected output just gets a carriage return
	if IsTerminal(s.writer) {
		fmt.Fprint(s.writer, "\r\033[2K")
	} else {
		fmt.Fprint(s.writer, "\r")
	}
}

// Progress reports a stage count, e.g. "scoring 3/7 candidate sentences".
// Its signature matches detect.Progress.
func (s *Spinner) Progress(stage string, done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = fmt.Sprintf("%s %d/%d candidate sentences", stage, done, total)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (s *Spinner) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.delay)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(s.writer, s.line(frame))
		}
	}
}

// line renders one frame: glyph, message, and whole seconds elapsed.
func (s *Spinner) line(frame int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := time.Since(s.started).Truncate(time.Second)
	return fmt.Sprintf("\r%s %s (%s)", frames[frame%len(frames)], s.message, elapsed)
}

func (s *Spinner) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
