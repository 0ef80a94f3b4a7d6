package broker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/llmbroker/budget"
	"github.com/randalmurphal/llmbroker/retry"
)

// Outcome is one slot of a batch: the result or error for the request at
// the same index in the input slice.
type Outcome struct {
	Index  int
	Result *Result
	Err    error
}

// BatchOption configures a RunAll execution.
type BatchOption func(*batchOptions)

type batchOptions struct {
	failFast bool
}

// WithFailFast cancels the remaining batch on the first fatal or
// budget-exceeded error. Already-dispatched siblings observe context
// cancellation at their next suspend point; not-yet-dispatched requests
// fail with context.Canceled. Retryable sibling failures never trigger
// fail-fast.
func WithFailFast() BatchOption {
	return func(o *batchOptions) { o.failFast = true }
}

// RunAll executes every request with at most concurrency calls in
// flight, all charging the same budget scope. The returned slice has
// exactly one outcome per input slot, in input order, regardless of
// completion order. A failing request does not disturb its siblings
// unless WithFailFast is set.
func (inv *Invoker) RunAll(ctx context.Context, reqs []Request, concurrency int, b *budget.Budget, opts ...BatchOption) []Outcome {
	var options batchOptions
	for _, opt := range opts {
		opt(&options)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	outcomes := make([]Outcome, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = Outcome{Index: i, Err: err}
				return nil
			}

			res, err := inv.Invoke(gctx, req, b)
			outcomes[i] = Outcome{Index: i, Result: res, Err: err}

			if options.failFast && terminalForBatch(err) {
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// terminalForBatch reports whether an error should abort a fail-fast
// batch: fatal classifications and budget ceilings, which no sibling can
// recover from.
func terminalForBatch(err error) bool {
	if err == nil {
		return false
	}
	var fatal *retry.FatalError
	if errors.As(err, &fatal) {
		return true
	}
	var exceeded *budget.ExceededError
	return errors.As(err, &exceeded)
}
