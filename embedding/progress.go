package embedding

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports batch progress on a single rewritten line.
// Safe for concurrent use.
type ProgressTracker struct {
	mu         sync.Mutex
	writer     io.Writer
	total      int
	current    int
	nextReport int
	interval   int
	startTime  time.Time
	started    bool
}

// NewProgressTracker creates a tracker that reports every interval entries
// out of total.
func NewProgressTracker(writer io.Writer, total, interval int) *ProgressTracker {
	if interval < 1 {
		interval = 1
	}
	return &ProgressTracker{
		writer:   writer,
		total:    total,
		interval: interval,
	}
}

// Start resets the tracker and begins timing.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.nextReport = p.interval
}

// Increment advances progress by delta, reporting when a report boundary is
// crossed.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.current += delta
	if p.current > p.total {
		p.current = p.total
	}
	if p.current >= p.nextReport {
		p.report()
		p.nextReport = p.current + p.interval
	}
}

// Finish reports final progress and terminates the progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report writes the progress line. Caller holds the lock.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := float64(p.current) / elapsed.Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %.1f entries/s",
		p.current, p.total, percentage, rate)
}
