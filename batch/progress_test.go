package batch

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerReports(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf)

	tracker.OnOutcome(1, 3, Outcome{Path: "a.pdf", Status: StatusSuccess})
	tracker.OnOutcome(2, 3, Outcome{Path: "b.pdf", Status: StatusFailure})
	tracker.OnOutcome(3, 3, Outcome{Path: "c.pdf", Status: StatusSuccess})
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "1/3")
	assert.Contains(t, output, "3/3 (100.0%)")
	assert.Contains(t, output, "1 failed")
	assert.True(t, strings.HasSuffix(output, "\n"))
}

func TestProgressTrackerCountsTimeoutsAsFailures(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf)

	tracker.OnOutcome(1, 2, Outcome{Path: "a.pdf", Status: StatusTimeout})

	assert.Contains(t, buf.String(), "1 failed")
}

func TestProgressTrackerBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf)

	tracker.Finish()

	assert.Zero(t, tracker.Elapsed())
	assert.Empty(t, buf.String())
}

func TestProgressTrackerElapsed(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf)

	tracker.OnOutcome(1, 1, Outcome{Path: "a.pdf", Status: StatusSuccess})
	time.Sleep(10 * time.Millisecond)

	assert.GreaterOrEqual(t, tracker.Elapsed(), 10*time.Millisecond)
}
