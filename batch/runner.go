package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// ParseFunc is the injected single-file parse callback. It must be safe
// to invoke concurrently with distinct inputPath/outputDir arguments.
// Honoring ctx cancellation is optional; the runner frees the worker
// slot on timeout either way.
type ParseFunc func(ctx context.Context, inputPath, outputDir, method string) (string, error)

// Observer receives one callback per resolved outcome. Calls are
// serialized by the runner, so implementations need no locking of
// their own.
type Observer interface {
	OnOutcome(completed, total int, outcome Outcome)
}

// Request describes one batch run. Owned by the caller.
type Request struct {
	// Paths is the ordered list of input files and/or directories.
	Paths []string
	// OutputDir is the root output directory, created if absent.
	OutputDir string
	// Method is an opaque parse-method selector forwarded to the callback.
	Method string
	// Recursive controls whether directories are walked recursively or
	// only their immediate children are considered.
	Recursive bool
	// Workers bounds the worker pool. Must be >= 1.
	Workers int
	// TimeoutPerFile bounds one file's processing time. Zero disables it.
	TimeoutPerFile time.Duration
	// Timeout bounds the whole run. Zero disables it. When it elapses,
	// unfinished tasks are marked timed out and the partial result is
	// returned.
	Timeout time.Duration
}

// Runner dispatches batch runs to a bounded worker pool. The parse
// callback and extension set are fixed at construction.
type Runner struct {
	parse      ParseFunc
	extensions ExtensionSet
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner) error

// WithObserver sets the per-outcome progress observer.
func WithObserver(observer Observer) Option {
	return func(r *Runner) error {
		r.observer = observer
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRunner creates a batch runner around a parse callback and the set
// of supported extensions.
func NewRunner(parse ParseFunc, extensions ExtensionSet, opts ...Option) (*Runner, error) {
	if parse == nil {
		return nil, ErrParseFuncRequired
	}

	r := &Runner{
		parse:      parse,
		extensions: extensions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Extensions returns the runner's supported extension set.
func (r *Runner) Extensions() ExtensionSet {
	return r.extensions
}

// expansion is the outcome of resolving a request's paths: dispatchable
// tasks, immediate failures keyed by outcome index, per-index paths, and
// the skipped-unsupported count.
type expansion struct {
	tasks    []FileTask
	failures map[int]Outcome
	paths    []string
	skipped  int
}

// Expand resolves the request's paths into file tasks. Directories are
// walked per the recursive flag. Non-existent and non-file paths become
// immediate failure outcomes so every input is accounted for; files with
// unsupported extensions are counted as skipped, not failed.
func (r *Runner) Expand(req *Request) *expansion {
	exp := &expansion{failures: make(map[int]Outcome)}

	addFile := func(path string) {
		if !r.extensions.Contains(path) {
			exp.skipped++
			return
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		exp.tasks = append(exp.tasks, FileTask{
			Path:      path,
			OutputDir: filepath.Join(req.OutputDir, stem),
			Index:     len(exp.paths),
		})
		exp.paths = append(exp.paths, path)
	}

	fail := func(path, kind string, err error) {
		exp.failures[len(exp.paths)] = Outcome{
			Path:   path,
			Status: StatusFailure,
			Kind:   kind,
			Error:  err.Error(),
		}
		exp.paths = append(exp.paths, path)
	}

	for _, path := range req.Paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				fail(path, KindNotFound, err)
			} else {
				fail(path, KindInvalidPath, err)
			}
			continue
		}

		switch {
		case info.Mode().IsRegular():
			addFile(path)

		case info.IsDir():
			r.expandDir(path, req.Recursive, addFile)

		default:
			// Special device, socket, etc.
			fail(path, KindInvalidPath, fmt.Errorf("not a regular file or directory"))
		}
	}

	return exp
}

// expandDir feeds a directory's files to addFile, recursively or only
// the immediate children.
func (r *Runner) expandDir(dir string, recursive bool, addFile func(string)) {
	if recursive {
		filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
			if err != nil {
				r.logger.Warn("skipping unreadable path", "path", path, "err", err)
				return nil
			}
			if entry.Type().IsRegular() {
				addFile(path)
			}
			return nil
		})
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Warn("skipping unreadable directory", "path", dir, "err", err)
		return
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			addFile(filepath.Join(dir, entry.Name()))
		}
	}
}

// ProcessBatch runs one batch request to completion. It never returns an
// error for per-file conditions; those are captured in the Result. The
// only returned errors are request-level misconfiguration, all wrapping
// ErrInvalidRequest.
func (r *Runner) ProcessBatch(ctx context.Context, req *Request) (*Result, error) {
	// Validate before touching the filesystem
	if req.Workers < 1 {
		return nil, fmt.Errorf("%w: worker count must be >= 1, got %d", ErrInvalidRequest, req.Workers)
	}
	if len(req.Paths) == 0 {
		return nil, fmt.Errorf("%w: no input paths", ErrInvalidRequest)
	}
	if req.OutputDir == "" {
		return nil, fmt.Errorf("%w: output directory is required", ErrInvalidRequest)
	}

	exp := r.Expand(req)

	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory: %v", ErrInvalidRequest, err)
	}

	start := time.Now()
	total := len(exp.paths)

	outcomes := make([]Outcome, total)
	resolved := make([]bool, total)

	var mu sync.Mutex
	completed := 0
	finalized := false

	// record stores one outcome at its input position and notifies the
	// observer. Serialization of observer calls happens here. Outcomes
	// arriving after finalization (stragglers past the batch deadline)
	// are dropped.
	record := func(index int, outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		if finalized || resolved[index] {
			return
		}
		outcomes[index] = outcome
		resolved[index] = true
		completed++
		if r.observer != nil {
			r.observer.OnOutcome(completed, total, outcome)
		}
	}

	for index, outcome := range exp.failures {
		record(index, outcome)
	}

	batchCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		batchCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	pool, err := ants.NewPool(req.Workers)
	if err != nil {
		return nil, fmt.Errorf("%w: creating worker pool: %v", ErrInvalidRequest, err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for _, task := range exp.tasks {
			if batchCtx.Err() != nil {
				return
			}
			task := task
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				record(task.Index, r.processOne(batchCtx, req, task))
			})
			if submitErr != nil {
				wg.Done()
				record(task.Index, Outcome{
					Path:   task.Path,
					Status: StatusFailure,
					Kind:   KindDispatch,
					Error:  submitErr.Error(),
				})
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		<-dispatched
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-batchCtx.Done():
	}

	mu.Lock()
	finalized = true
	for i, ok := range resolved {
		if ok {
			continue
		}
		outcomes[i] = Outcome{
			Path:   exp.paths[i],
			Status: StatusTimeout,
			Kind:   KindBatchTimeout,
			Error:  "batch deadline elapsed before completion",
		}
	}
	mu.Unlock()

	result := buildResult(outcomes, exp.skipped, time.Since(start))
	r.logger.Info("batch complete",
		"total", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"timed_out", result.TimedOut,
		"skipped", result.Skipped,
		"duration", result.Duration)
	return result, nil
}

// processOne runs the parse callback for a single task under the
// per-file timeout. On timeout the worker slot is freed; the underlying
// parse attempt keeps running unless the callback honors ctx.
func (r *Runner) processOne(ctx context.Context, req *Request, task FileTask) Outcome {
	start := time.Now()

	fileCtx := ctx
	var cancel context.CancelFunc
	if req.TimeoutPerFile > 0 {
		fileCtx, cancel = context.WithTimeout(ctx, req.TimeoutPerFile)
		defer cancel()
	}

	type parseResult struct {
		outputPath string
		err        error
	}
	resultCh := make(chan parseResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultCh <- parseResult{err: fmt.Errorf("parse callback panicked: %v", rec)}
			}
		}()
		outputPath, err := r.parse(fileCtx, task.Path, task.OutputDir, req.Method)
		resultCh <- parseResult{outputPath: outputPath, err: err}
	}()

	// A deadline on the batch context takes precedence over the
	// per-file one when classifying a timeout.
	timeoutKind := func() string {
		if ctx.Err() != nil {
			return KindBatchTimeout
		}
		return KindParseTimeout
	}

	select {
	case res := <-resultCh:
		duration := time.Since(start)
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) || fileCtx.Err() != nil {
				return Outcome{
					Path:     task.Path,
					Status:   StatusTimeout,
					Kind:     timeoutKind(),
					Error:    res.err.Error(),
					Duration: duration,
				}
			}
			return Outcome{
				Path:     task.Path,
				Status:   StatusFailure,
				Kind:     KindParseFailure,
				Error:    res.err.Error(),
				Duration: duration,
			}
		}
		return Outcome{
			Path:       task.Path,
			Status:     StatusSuccess,
			OutputPath: res.outputPath,
			Duration:   duration,
		}

	case <-fileCtx.Done():
		return Outcome{
			Path:     task.Path,
			Status:   StatusTimeout,
			Kind:     timeoutKind(),
			Error:    fileCtx.Err().Error(),
			Duration: time.Since(start),
		}
	}
}
