package batch

import (
	"fmt"
	"strings"
	"time"
)

// Status is the terminal state of one file's processing attempt.
type Status int

const (
	// StatusSuccess means the parse callback returned without error.
	StatusSuccess Status = iota + 1
	// StatusFailure means the file could not be resolved or parsed.
	StatusFailure
	// StatusTimeout means the per-file or batch deadline elapsed first.
	StatusTimeout
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Failure and timeout kinds recorded on outcomes.
const (
	KindNotFound     = "not found"
	KindInvalidPath  = "invalid path"
	KindParseFailure = "parse failure"
	KindParseTimeout = "parse timeout"
	KindBatchTimeout = "batch timeout"
	KindDispatch     = "dispatch failure"
)

// FileTask is one resolved, supported file paired with its per-file
// output subdirectory. Ephemeral: it exists only for one batch run.
type FileTask struct {
	// Path is the resolved input file path.
	Path string
	// OutputDir is the per-file output subdirectory.
	OutputDir string
	// Index is the task's position in the final outcome list.
	Index int
}

// Outcome records the terminal result for one file. Immutable once
// produced.
type Outcome struct {
	// Path is the input path this outcome accounts for.
	Path string
	// Status is the terminal state.
	Status Status
	// Kind classifies failures and timeouts. Empty on success.
	Kind string
	// OutputPath is the artifact path returned by the callback on success.
	OutputPath string
	// Error holds the failure message verbatim. Empty on success.
	Error string
	// Duration is the elapsed wall-clock time for this file.
	Duration time.Duration
}

// Result is the aggregate of one batch run. Read-only once returned.
type Result struct {
	// Total is every file considered: processed outcomes plus files
	// skipped for unsupported extensions.
	Total int
	// Succeeded, Failed and TimedOut count terminal outcome statuses.
	Succeeded int
	Failed    int
	TimedOut  int
	// Skipped counts files excluded for unsupported extensions. Tracked
	// separately from failures so the success rate stays unambiguous.
	Skipped int
	// Outcomes holds one entry per dispatched or immediately-failed
	// input, ordered by original input position.
	Outcomes []Outcome
	// Duration is the total wall-clock time of the run.
	Duration time.Duration
}

// SuccessRate returns the fraction of outcomes that succeeded, in [0, 1].
// Skipped files are not part of the denominator.
func (r *Result) SuccessRate() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(len(r.Outcomes))
}

// AverageDuration returns the mean per-file duration across outcomes.
func (r *Result) AverageDuration() time.Duration {
	if len(r.Outcomes) == 0 {
		return 0
	}
	var total time.Duration
	for _, outcome := range r.Outcomes {
		total += outcome.Duration
	}
	return total / time.Duration(len(r.Outcomes))
}

// FailedPaths returns the paths of all failed and timed-out outcomes,
// in result order. Useful for re-running just the failed subset.
func (r *Result) FailedPaths() []string {
	var paths []string
	for _, outcome := range r.Outcomes {
		if outcome.Status != StatusSuccess {
			paths = append(paths, outcome.Path)
		}
	}
	return paths
}

// Summary renders a human-readable report of the run.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed %d files in %s: %d succeeded, %d failed, %d timed out, %d skipped (%.1f%% success)",
		r.Total, r.Duration.Round(time.Millisecond), r.Succeeded, r.Failed, r.TimedOut, r.Skipped,
		r.SuccessRate()*100)
	for _, outcome := range r.Outcomes {
		if outcome.Status == StatusSuccess {
			continue
		}
		fmt.Fprintf(&b, "\n  %s: %s: %s", outcome.Path, outcome.Kind, outcome.Error)
	}
	return b.String()
}

// buildResult tallies outcome statuses into a Result.
func buildResult(outcomes []Outcome, skipped int, duration time.Duration) *Result {
	result := &Result{
		Total:    len(outcomes) + skipped,
		Skipped:  skipped,
		Outcomes: outcomes,
		Duration: duration,
	}
	for _, outcome := range outcomes {
		switch outcome.Status {
		case StatusSuccess:
			result.Succeeded++
		case StatusFailure:
			result.Failed++
		case StatusTimeout:
			result.TimedOut++
		}
	}
	return result
}
