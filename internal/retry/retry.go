// Package retry provides the bounded-retry executor used for every external
// call in the emission workflow (webservice, notification delivery,
// persistence), with exponential backoff, jitter and pluggable predicates.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Options parameterizes one retry policy.
type Options struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration

	// Predicate decides whether a failed attempt should be retried. A nil
	// predicate retries every error.
	Predicate func(error) bool
}

// Outcome reports how one retried operation ended.
type Outcome struct {
	Name     string
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Success reports whether the operation eventually succeeded.
func (o Outcome) Success() bool {
	return o.Err == nil
}

// Engine executes operations under a retry policy.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a retry engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Execute runs op until it succeeds, the predicate refuses the error, attempts
// are exhausted, or the context is cancelled. The inter-attempt delay is
// min(InitialDelay * BackoffMultiplier^(attempt-1), MaxDelay) plus up to 10%
// random jitter, slept without blocking a worker thread.
func (e *Engine) Execute(ctx context.Context, name string, opts Options, op func(ctx context.Context) error) Outcome {
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return Outcome{Name: name, Attempts: attempt, Elapsed: time.Since(start)}
		}

		if opts.Predicate != nil && !opts.Predicate(lastErr) {
			e.logger.Debug("Error not retryable, giving up",
				zap.String("operation", name),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			return Outcome{Name: name, Attempts: attempt, Elapsed: time.Since(start), Err: lastErr}
		}

		if attempt == opts.MaxAttempts {
			break
		}

		delay := backoff(opts, attempt)
		e.logger.Warn("Attempt failed, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", opts.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(lastErr))

		if err := sleep(ctx, delay); err != nil {
			return Outcome{Name: name, Attempts: attempt, Elapsed: time.Since(start), Err: err}
		}
	}

	return Outcome{Name: name, Attempts: opts.MaxAttempts, Elapsed: time.Since(start), Err: lastErr}
}

// backoff returns the delay before the attempt following attemptNumber.
func backoff(opts Options, attemptNumber int) time.Duration {
	multiplier := math.Pow(opts.BackoffMultiplier, float64(attemptNumber-1))
	delay := time.Duration(float64(opts.InitialDelay) * multiplier)
	if delay < 0 {
		// Multiplication overflowed. Substitute a value the jitter below
		// cannot overflow again.
		delay = time.Duration(math.MaxInt64 / 2)
	}
	// A zero MaxDelay leaves the backoff uncapped.
	if opts.MaxDelay > 0 && delay > opts.MaxDelay {
		delay = opts.MaxDelay
	}

	// Up to 10% jitter so simultaneous retries spread out
	jitterRange := delay / 10
	if jitterRange > 0 {
		delay += time.Duration(rand.Int63n(int64(jitterRange)))
	}

	return delay
}

// sleep suspends until the delay elapses or the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
