package batch

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker is an Observer that reports batch progress to a
// writer, typically os.Stderr. It rewrites a single status line as
// files complete.
type ProgressTracker struct {
	writer    io.Writer
	startTime time.Time
	started   bool
	failures  int
	mu        sync.Mutex
}

// NewProgressTracker creates a progress tracker writing to w.
func NewProgressTracker(w io.Writer) *ProgressTracker {
	return &ProgressTracker{writer: w}
}

var _ Observer = (*ProgressTracker)(nil)

// OnOutcome implements Observer.
func (p *ProgressTracker) OnOutcome(completed, total int, outcome Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.startTime = time.Now()
		p.started = true
	}
	if outcome.Status != StatusSuccess {
		p.failures++
	}

	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(completed) / elapsed.Seconds()
	}

	percentage := 0.0
	if total > 0 {
		percentage = float64(completed) / float64(total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%), %d failed - %.1f files/s",
		completed, total, percentage, p.failures, rate)
}

// Finish prints a trailing newline after the final progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since the first outcome was observed.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}
