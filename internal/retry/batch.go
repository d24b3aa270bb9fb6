package retry

import (
	"context"
	"sync"
	"time"
)

// Operation is one unit of a batch execution.
type Operation struct {
	Name string
	Run  func(ctx context.Context) error
}

// BatchOutcome aggregates the outcomes of a concurrent batch.
type BatchOutcome struct {
	Outcomes    []Outcome
	Succeeded   int
	Failed      int
	AvgAttempts float64
	AvgElapsed  time.Duration
}

// ExecuteBatch runs the operations concurrently, each under the same retry
// options, and returns one outcome per operation in input order. Operations
// share no mutable state, so there is no ordering requirement between them.
func (e *Engine) ExecuteBatch(ctx context.Context, ops []Operation, opts Options) BatchOutcome {
	outcomes := make([]Outcome, len(ops))

	var wg sync.WaitGroup
	for i, op := range ops {
		wg.Add(1)
		go func(i int, op Operation) {
			defer wg.Done()
			outcomes[i] = e.Execute(ctx, op.Name, opts, op.Run)
		}(i, op)
	}
	wg.Wait()

	result := BatchOutcome{Outcomes: outcomes}
	var totalAttempts int
	var totalElapsed time.Duration
	for _, o := range outcomes {
		if o.Success() {
			result.Succeeded++
		} else {
			result.Failed++
		}
		totalAttempts += o.Attempts
		totalElapsed += o.Elapsed
	}
	if len(outcomes) > 0 {
		result.AvgAttempts = float64(totalAttempts) / float64(len(outcomes))
		result.AvgElapsed = totalElapsed / time.Duration(len(outcomes))
	}
	return result
}
