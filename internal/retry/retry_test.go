package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
)

func fastOptions() Options {
	return Options{
		MaxAttempts:       3,
		InitialDelay:      5 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          20 * time.Millisecond,
	}
}

func TestEngine_Execute_SucceedsFirstAttempt(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	calls := 0
	outcome := engine.Execute(context.Background(), "op", fastOptions(), func(ctx context.Context) error {
		calls++
		return nil
	})

	if !outcome.Success() {
		t.Fatalf("Execute() err = %v, want nil", outcome.Err)
	}
	if outcome.Attempts != 1 || calls != 1 {
		t.Errorf("attempts = %d, calls = %d, want 1 and 1", outcome.Attempts, calls)
	}
}

func TestEngine_Execute_SucceedsAfterFailures(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	calls := 0
	outcome := engine.Execute(context.Background(), "op", fastOptions(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if !outcome.Success() {
		t.Fatalf("Execute() err = %v, want nil", outcome.Err)
	}
	if outcome.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", outcome.Attempts)
	}
}

func TestEngine_Execute_ExhaustsAttempts(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	lastErr := errors.New("attempt 3")
	calls := 0
	outcome := engine.Execute(context.Background(), "op", fastOptions(), func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return lastErr
		}
		return errors.New("earlier failure")
	})

	if outcome.Success() {
		t.Fatalf("Execute() succeeded, want failure")
	}
	if calls != 3 || outcome.Attempts != 3 {
		t.Errorf("calls = %d, attempts = %d, want 3 and 3", calls, outcome.Attempts)
	}
	if !errors.Is(outcome.Err, lastErr) {
		t.Errorf("Err = %v, want the last attempt's error", outcome.Err)
	}

	// Two inter-attempt delays: 5ms then 10ms, before jitter
	if outcome.Elapsed < 15*time.Millisecond {
		t.Errorf("Elapsed = %v, want at least the backoff floor of 15ms", outcome.Elapsed)
	}
}

func TestEngine_Execute_PredicateStopsRetry(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	opts := fastOptions()
	opts.Predicate = emission.IsRetryableWebservice

	calls := 0
	rejection := &emission.RemoteRejectionError{Code: "E01", Message: "refused"}
	outcome := engine.Execute(context.Background(), "op", opts, func(ctx context.Context) error {
		calls++
		return rejection
	})

	if calls != 1 || outcome.Attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want exactly 1", calls, outcome.Attempts)
	}
	if !errors.Is(outcome.Err, rejection) {
		t.Errorf("Err = %v, want the rejection", outcome.Err)
	}
}

func TestEngine_Execute_ContextCancelled(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	opts := fastOptions()
	opts.InitialDelay = 5 * time.Second
	opts.MaxDelay = 5 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	outcome := engine.Execute(ctx, "op", opts, func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(outcome.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want context.DeadlineExceeded", outcome.Err)
	}
}

func TestBackoff_CapsAtMaxDelay(t *testing.T) {
	opts := Options{
		InitialDelay:      10 * time.Millisecond,
		BackoffMultiplier: 10,
		MaxDelay:          50 * time.Millisecond,
	}

	// Attempt 3 would be 1s uncapped; the cap plus 10% jitter bounds it
	d := backoff(opts, 3)
	if d < 50*time.Millisecond || d > 55*time.Millisecond {
		t.Errorf("backoff(3) = %v, want within [50ms, 55ms]", d)
	}
}

func TestBackoff_ZeroMaxDelayLeavesBackoffUncapped(t *testing.T) {
	opts := Options{
		InitialDelay:      5 * time.Millisecond,
		BackoffMultiplier: 2,
	}

	// Without a cap the second delay must still grow, never collapse to
	// zero and spin the attempts back to back.
	d := backoff(opts, 2)
	if d < 10*time.Millisecond || d > 11*time.Millisecond {
		t.Errorf("backoff(2) = %v, want within [10ms, 11ms]", d)
	}
}

func TestEngine_ExecuteBatch(t *testing.T) {
	engine := NewEngine(zap.NewNop())

	opts := fastOptions()
	opts.Predicate = func(error) bool { return false }

	ops := []Operation{
		{Name: "first", Run: func(ctx context.Context) error { return nil }},
		{Name: "second", Run: func(ctx context.Context) error { return errors.New("boom") }},
		{Name: "third", Run: func(ctx context.Context) error { return nil }},
	}

	outcome := engine.ExecuteBatch(context.Background(), ops, opts)

	if outcome.Succeeded != 2 || outcome.Failed != 1 {
		t.Errorf("succeeded = %d, failed = %d, want 2 and 1", outcome.Succeeded, outcome.Failed)
	}
	if len(outcome.Outcomes) != 3 {
		t.Fatalf("len(Outcomes) = %d, want 3", len(outcome.Outcomes))
	}

	// Outcomes come back in input order regardless of scheduling
	for i, name := range []string{"first", "second", "third"} {
		if outcome.Outcomes[i].Name != name {
			t.Errorf("Outcomes[%d].Name = %s, want %s", i, outcome.Outcomes[i].Name, name)
		}
	}
	if outcome.Outcomes[1].Success() {
		t.Errorf("Outcomes[1] succeeded, want failure")
	}
	if outcome.AvgAttempts != 1 {
		t.Errorf("AvgAttempts = %v, want 1", outcome.AvgAttempts)
	}
}

func TestPresets(t *testing.T) {
	ws := WebservicePreset()
	if ws.MaxAttempts != 3 || ws.InitialDelay != 2*time.Second || ws.Predicate == nil {
		t.Errorf("WebservicePreset() = %+v, want 3 attempts from 2s with a predicate", ws)
	}

	email := EmailPreset()
	if email.MaxAttempts != 5 || email.InitialDelay != 5*time.Second {
		t.Errorf("EmailPreset() = %+v, want 5 attempts from 5s", email)
	}

	db := PersistencePreset()
	if db.MaxAttempts != 3 || db.InitialDelay != time.Second {
		t.Errorf("PersistencePreset() = %+v, want 3 attempts from 1s", db)
	}
}
