package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testExtensions = NewExtensionSet(".pdf", ".md")

// writeTestFiles creates empty files with the given names under dir and
// returns their full paths.
func writeTestFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("content"), 0644))
		paths = append(paths, path)
	}
	return paths
}

func okParse(_ context.Context, inputPath, outputDir, _ string) (string, error) {
	return filepath.Join(outputDir, "out.md"), nil
}

func TestNewRunnerRequiresParseFunc(t *testing.T) {
	_, err := NewRunner(nil, testExtensions)

	assert.ErrorIs(t, err, ErrParseFuncRequired)
}

func TestProcessBatchValidation(t *testing.T) {
	runner, err := NewRunner(okParse, testExtensions)
	require.NoError(t, err)

	tmp := t.TempDir()
	outputDir := filepath.Join(tmp, "out")

	tests := []struct {
		name string
		req  *Request
	}{
		{"zero workers", &Request{Paths: []string{"a.pdf"}, OutputDir: outputDir, Workers: 0}},
		{"negative workers", &Request{Paths: []string{"a.pdf"}, OutputDir: outputDir, Workers: -1}},
		{"no paths", &Request{OutputDir: outputDir, Workers: 1}},
		{"no output dir", &Request{Paths: []string{"a.pdf"}, Workers: 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runner.ProcessBatch(context.Background(), tc.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	// Validation failures must not create the output directory
	_, statErr := os.Stat(outputDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessBatchMixedExtensions(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "a.md", "b.pdf", "c.exe")

	runner, err := NewRunner(okParse, testExtensions)
	require.NoError(t, err)

	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Outcomes, 2)
}

func TestProcessBatchOutputDirPerFile(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "report.pdf")

	var gotOutputDir string
	parse := func(_ context.Context, _, outputDir, _ string) (string, error) {
		gotOutputDir = outputDir
		return outputDir, nil
	}

	runner, err := NewRunner(parse, testExtensions)
	require.NoError(t, err)

	outputRoot := filepath.Join(tmp, "out")
	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: outputRoot,
		Workers:   1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, filepath.Join(outputRoot, "report"), gotOutputDir)
	assert.Equal(t, filepath.Join(outputRoot, "report"), result.Outcomes[0].OutputPath)
}

func TestProcessBatchNotFound(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "a.pdf")
	paths = append(paths, filepath.Join(tmp, "missing.pdf"))

	runner, err := NewRunner(okParse, testExtensions)
	require.NoError(t, err)

	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, StatusFailure, result.Outcomes[1].Status)
	assert.Equal(t, KindNotFound, result.Outcomes[1].Kind)
}

func TestProcessBatchPreservesInputOrder(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "a.pdf", "b.pdf", "c.pdf")

	// Completion order is the reverse of input order
	delays := map[string]time.Duration{
		"a.pdf": 90 * time.Millisecond,
		"b.pdf": 60 * time.Millisecond,
		"c.pdf": 30 * time.Millisecond,
	}
	parse := func(_ context.Context, inputPath, outputDir, _ string) (string, error) {
		time.Sleep(delays[filepath.Base(inputPath)])
		return outputDir, nil
	}

	runner, err := NewRunner(parse, testExtensions)
	require.NoError(t, err)

	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   3,
	})
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 3)
	for i, outcome := range result.Outcomes {
		assert.Equal(t, paths[i], outcome.Path)
	}
}

func TestProcessBatchSingleWorkerSerializes(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "a.pdf", "b.pdf", "c.pdf")

	var inFlight, maxInFlight atomic.Int32
	parse := func(_ context.Context, _, outputDir, _ string) (string, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			observed := maxInFlight.Load()
			if current <= observed || maxInFlight.CompareAndSwap(observed, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return outputDir, nil
	}

	runner, err := NewRunner(parse, testExtensions)
	require.NoError(t, err)

	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   1,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestProcessBatchParallelism(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "a.pdf", "b.pdf", "c.pdf")

	parse := func(_ context.Context, _, outputDir, _ string) (string, error) {
		time.Sleep(100 * time.Millisecond)
		return outputDir, nil
	}

	runner, err := NewRunner(parse, testExtensions)
	require.NoError(t, err)

	start := time.Now()
	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   3,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Succeeded)
	assert.Less(t, time.Since(start), 280*time.Millisecond)
}

func TestProcessBatchFailureIsolation(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "a.pdf", "b.pdf", "c.pdf")

	parse := func(_ context.Context, inputPath, outputDir, _ string) (string, error) {
		if filepath.Base(inputPath) == "b.pdf" {
			return "", errors.New("corrupt document")
		}
		return outputDir, nil
	}

	runner, err := NewRunner(parse, testExtensions)
	require.NoError(t, err)

	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, StatusFailure, result.Outcomes[1].Status)
	assert.Equal(t, KindParseFailure, result.Outcomes[1].Kind)
	assert.Contains(t, result.Outcomes[1].Error, "corrupt document")
	assert.Equal(t, []string{paths[1]}, result.FailedPaths())
}

func TestProcessBatchPerFileTimeout(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "slow.pdf", "fast.pdf")

	parse := func(ctx context.Context, inputPath, outputDir, _ string) (string, error) {
		if filepath.Base(inputPath) == "slow.pdf" {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return outputDir, nil
			}
		}
		return outputDir, nil
	}

	runner, err := NewRunner(parse, testExtensions)
	require.NoError(t, err)

	start := time.Now()
	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:          paths,
		OutputDir:      filepath.Join(tmp, "out"),
		Workers:        1,
		TimeoutPerFile: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	// The hung file times out and frees the worker for the next one
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.TimedOut)
	assert.Equal(t, StatusTimeout, result.Outcomes[0].Status)
	assert.Equal(t, KindParseTimeout, result.Outcomes[0].Kind)
	assert.Equal(t, StatusSuccess, result.Outcomes[1].Status)
}

func TestProcessBatchPerFileTimeoutHungCallback(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "hung.pdf")

	release := make(chan struct{})
	defer close(release)

	// Callback ignores ctx entirely
	parse := func(_ context.Context, _, _, _ string) (string, error) {
		<-release
		return "", nil
	}

	runner, err := NewRunner(parse, testExtensions)
	require.NoError(t, err)

	start := time.Now()
	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:          paths,
		OutputDir:      filepath.Join(tmp, "out"),
		Workers:        1,
		TimeoutPerFile: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, result.TimedOut)
	assert.Equal(t, KindParseTimeout, result.Outcomes[0].Kind)
}

func TestProcessBatchOverallTimeout(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "a.pdf", "b.pdf", "c.pdf")

	parse := func(ctx context.Context, _, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	runner, err := NewRunner(parse, testExtensions)
	require.NoError(t, err)

	start := time.Now()
	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   1,
		Timeout:   100 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 3, result.TimedOut)
	require.Len(t, result.Outcomes, 3)
	for i, outcome := range result.Outcomes {
		assert.Equal(t, paths[i], outcome.Path)
		assert.Equal(t, StatusTimeout, outcome.Status)
		assert.Equal(t, KindBatchTimeout, outcome.Kind)
	}
}

func TestProcessBatchOverallTimeoutPartialSuccess(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "fast.pdf", "slow.pdf")

	parse := func(ctx context.Context, inputPath, outputDir, _ string) (string, error) {
		if filepath.Base(inputPath) == "slow.pdf" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return outputDir, nil
	}

	runner, err := NewRunner(parse, testExtensions)
	require.NoError(t, err)

	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   2,
		Timeout:   150 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.TimedOut)
	assert.Equal(t, StatusSuccess, result.Outcomes[0].Status)
	assert.Equal(t, KindBatchTimeout, result.Outcomes[1].Kind)
}

func TestProcessBatchPanicRecovery(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "a.pdf", "b.pdf")

	parse := func(_ context.Context, inputPath, outputDir, _ string) (string, error) {
		if filepath.Base(inputPath) == "a.pdf" {
			panic("parser bug")
		}
		return outputDir, nil
	}

	runner, err := NewRunner(parse, testExtensions)
	require.NoError(t, err)

	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, StatusFailure, result.Outcomes[0].Status)
	assert.Contains(t, result.Outcomes[0].Error, "panicked")
}

func TestProcessBatchDirectoryShallow(t *testing.T) {
	tmp := t.TempDir()
	inputDir := filepath.Join(tmp, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(inputDir, "nested"), 0755))
	writeTestFiles(t, inputDir, "a.pdf", "b.md", "c.exe")
	writeTestFiles(t, filepath.Join(inputDir, "nested"), "deep.pdf")

	runner, err := NewRunner(okParse, testExtensions)
	require.NoError(t, err)

	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     []string{inputDir},
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Skipped)
}

func TestProcessBatchDirectoryRecursive(t *testing.T) {
	tmp := t.TempDir()
	inputDir := filepath.Join(tmp, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(inputDir, "nested"), 0755))
	writeTestFiles(t, inputDir, "a.pdf")
	writeTestFiles(t, filepath.Join(inputDir, "nested"), "deep.pdf")

	runner, err := NewRunner(okParse, testExtensions)
	require.NoError(t, err)

	result, err := runner.ProcessBatch(context.Background(), &Request{
		Paths:     []string{inputDir},
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   2,
		Recursive: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Succeeded)
}

type recordingObserver struct {
	mu       sync.Mutex
	events   []string
	lastSeen int
	total    int
	ordered  bool
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{ordered: true}
}

func (o *recordingObserver) OnOutcome(completed, total int, outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if completed != o.lastSeen+1 {
		o.ordered = false
	}
	o.lastSeen = completed
	o.total = total
	o.events = append(o.events, fmt.Sprintf("%s=%s", filepath.Base(outcome.Path), outcome.Status))
}

func TestProcessBatchObserver(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "a.pdf", "b.pdf", "c.pdf")

	observer := newRecordingObserver()
	runner, err := NewRunner(okParse, testExtensions, WithObserver(observer))
	require.NoError(t, err)

	_, err = runner.ProcessBatch(context.Background(), &Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   3,
	})
	require.NoError(t, err)

	assert.Len(t, observer.events, 3)
	assert.Equal(t, 3, observer.total)
	assert.True(t, observer.ordered, "completed counts must increase monotonically")
	for _, event := range observer.events {
		assert.True(t, strings.HasSuffix(event, "=success"), event)
	}
}

func TestExpandUnsupportedNotCounted(t *testing.T) {
	tmp := t.TempDir()
	paths := writeTestFiles(t, tmp, "a.pdf", "skip.exe")

	runner, err := NewRunner(okParse, testExtensions)
	require.NoError(t, err)

	exp := runner.Expand(&Request{Paths: paths, OutputDir: filepath.Join(tmp, "out")})

	assert.Len(t, exp.tasks, 1)
	assert.Len(t, exp.paths, 1)
	assert.Equal(t, 1, exp.skipped)
	assert.Empty(t, exp.failures)
}
