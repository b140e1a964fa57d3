// Package matcher executes extraction patterns against message text under a
// hard wall-clock deadline. Matching runs on a reusable worker pool so a
// pathological pattern cannot block the caller past the deadline; the
// underlying regexp2 engine is not preemptible, so cancellation is advisory
// and late results are discarded rather than surfaced.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/regexflow/regexflow/pkg/pattern"
	"github.com/regexflow/regexflow/pkg/types"
)

// DefaultTimeout bounds a single pattern execution.
const DefaultTimeout = 5000 * time.Millisecond

// matchTimeoutSlack is added to the regexp2 backstop so the engine-level
// timeout fires after the caller has already observed the deadline.
const matchTimeoutSlack = 500 * time.Millisecond

// ErrTimeout reports that pattern execution exceeded its deadline.
var ErrTimeout = errors.New("pattern execution timed out - possible catastrophic backtracking")

type job struct {
	re   *regexp2.Regexp
	src  string
	text string
	out  chan outcome
}

type outcome struct {
	fields  map[string]string
	matched bool
	err     error
}

// BoundedMatcher runs patterns against text with validation, a deadline, and
// a fixed worker pool reused across calls. Safe for concurrent use.
type BoundedMatcher struct {
	validator *pattern.Validator
	timeout   time.Duration
	jobs      chan job

	mu    sync.RWMutex
	cache map[string]*regexp2.Regexp

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option configures a BoundedMatcher.
type Option func(*BoundedMatcher)

// WithTimeout overrides the default per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(m *BoundedMatcher) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithValidator substitutes the pattern validator.
func WithValidator(v *pattern.Validator) Option {
	return func(m *BoundedMatcher) { m.validator = v }
}

// New creates a matcher with the given number of pool workers.
// workers <= 0 falls back to 4.
func New(workers int, opts ...Option) *BoundedMatcher {
	if workers <= 0 {
		workers = 4
	}
	m := &BoundedMatcher{
		validator: pattern.NewValidator(),
		timeout:   DefaultTimeout,
		jobs:      make(chan job),
		cache:     make(map[string]*regexp2.Regexp),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.worker()
	}
	return m
}

func (m *BoundedMatcher) worker() {
	defer m.wg.Done()
	for j := range m.jobs {
		fields, matched, err := extractFields(j.re, j.src, j.text)
		// Buffered channel: the send never blocks even when the caller
		// already gave up on this job.
		j.out <- outcome{fields: fields, matched: matched, err: err}
	}
}

// Close stops the worker pool. In-flight jobs finish; their results are dropped.
func (m *BoundedMatcher) Close() error {
	m.closeOnce.Do(func() { close(m.jobs) })
	m.wg.Wait()
	return nil
}

// Run validates patternSrc and executes it against text under the matcher's
// deadline. Matching is case-insensitive with find semantics. A zero match
// yields Matched=false with a nil error.
func (m *BoundedMatcher) Run(ctx context.Context, patternSrc, text string) types.ExtractionResult {
	return m.RunWithTimeout(ctx, patternSrc, text, m.timeout)
}

// RunWithTimeout is Run with a per-call deadline override.
func (m *BoundedMatcher) RunWithTimeout(ctx context.Context, patternSrc, text string, timeout time.Duration) types.ExtractionResult {
	start := time.Now()
	if timeout <= 0 {
		timeout = m.timeout
	}

	if err := m.validator.Validate(patternSrc); err != nil {
		return types.ExtractionResult{Err: err, Elapsed: time.Since(start)}
	}

	re, err := m.compile(patternSrc)
	if err != nil {
		return types.ExtractionResult{
			Err:     &pattern.ValidationError{Kind: pattern.InvalidSyntax, Message: err.Error()},
			Elapsed: time.Since(start),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := make(chan outcome, 1)
	select {
	case m.jobs <- job{re: re, src: patternSrc, text: text, out: out}:
	case <-ctx.Done():
		return types.ExtractionResult{Err: fmt.Errorf("%w (after %s)", ErrTimeout, timeout), Elapsed: time.Since(start)}
	}

	select {
	case res := <-out:
		return types.ExtractionResult{
			Matched: res.matched,
			Fields:  res.fields,
			Err:     res.err,
			Elapsed: time.Since(start),
		}
	case <-ctx.Done():
		// The worker keeps burning CPU until the regexp2 backstop fires;
		// its late result lands in the buffered channel and is discarded.
		return types.ExtractionResult{Err: fmt.Errorf("%w (after %s)", ErrTimeout, timeout), Elapsed: time.Since(start)}
	}
}

// Matches is the cheap boolean check used during template selection.
// Errors (including engine timeouts) are reported so the caller can skip the
// candidate rather than fail the whole selection.
func (m *BoundedMatcher) Matches(patternSrc, text string) (bool, error) {
	re, err := m.compile(patternSrc)
	if err != nil {
		return false, err
	}
	match, err := re.FindStringMatch(text)
	if err != nil {
		return false, err
	}
	return match != nil, nil
}

// Extract runs the extraction pass directly on the caller's goroutine.
// The regexp2 MatchTimeout backstop still bounds execution; this is the
// lighter evaluation path used for scoring.
func (m *BoundedMatcher) Extract(patternSrc, text string) (map[string]string, error) {
	re, err := m.compile(patternSrc)
	if err != nil {
		return nil, err
	}
	fields, _, err := extractFields(re, patternSrc, text)
	return fields, err
}

func (m *BoundedMatcher) compile(patternSrc string) (*regexp2.Regexp, error) {
	m.mu.RLock()
	re, ok := m.cache[patternSrc]
	m.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp2.Compile(patternSrc, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern: %w", err)
	}
	re.MatchTimeout = m.timeout + matchTimeoutSlack

	m.mu.Lock()
	m.cache[patternSrc] = re
	m.mu.Unlock()
	return re, nil
}
