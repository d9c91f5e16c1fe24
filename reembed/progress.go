// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Tracker reports reembedding progress to a writer at a fixed item
// interval.
type Tracker struct {
	writer         io.Writer
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewTracker creates a progress tracker.
// writer: where to write progress output (typically os.Stderr)
// total: total number of fragments to process
// reportInterval: report progress every N fragments
func NewTracker(writer io.Writer, total, reportInterval int) *Tracker {
	if reportInterval <= 0 {
		reportInterval = 1
	}
	return &Tracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = time.Now()
	t.started = true
	t.current = 0
	t.lastReported = 0
}

// Update sets the current progress to the specified value.
func (t *Tracker) Update(current int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}

	if current > t.total {
		current = t.total
	}
	t.current = current

	if t.current-t.lastReported >= t.reportInterval {
		t.report()
		t.lastReported = t.current
	}
}

// Finish marks the operation as complete and prints final progress.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}

	t.current = t.total
	t.report()
	fmt.Fprintln(t.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return 0
	}
	return time.Since(t.startTime)
}

// report prints the current progress. Must be called with lock held.
func (t *Tracker) report() {
	elapsed := time.Since(t.startTime)
	rate := float64(t.current) / elapsed.Seconds()

	percentage := 0.0
	if t.total > 0 {
		percentage = float64(t.current) / float64(t.total) * 100.0
	}

	fmt.Fprintf(t.writer, "\rProgress: %d/%d (%.1f%%) - %.1f fragments/s",
		t.current, t.total, percentage, rate)
}
