package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/llmbroker/model"
	"github.com/randalmurphal/llmbroker/provider"
	"github.com/randalmurphal/llmbroker/ratelimit"
)

var errMaxAttempts = errors.New("retry policy requires max attempts >= 1")

// FatalError wraps a provider error classified as fatal: the call was
// rejected outright and never retried.
type FatalError struct {
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal provider error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *FatalError) Unwrap() error { return e.Err }

// ExhaustedError reports that a retryable failure persisted through the
// policy's attempt limit.
type ExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error { return e.Last }

// Outcome is the result of executing one logical call, successful or not.
// Attempts and FailedUsage are populated on both paths so callers can
// account for partially billed work.
type Outcome struct {
	// Response is the successful response, nil on error.
	Response *provider.Response

	// Attempts is the number of attempts that reached the adapter.
	Attempts int

	// FailedUsage accumulates token usage from failed attempts that the
	// provider billed anyway (only when the spec is BilledOnFailure).
	FailedUsage provider.TokenUsage
}

// Executor runs single logical calls with rate limiting and retry.
type Executor struct {
	limiter        *ratelimit.Limiter
	policy         Policy
	attemptTimeout time.Duration
	logger         *slog.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithAttemptTimeout bounds each individual attempt. An attempt that
// exceeds it is classified retryable; on the final attempt it surfaces
// inside *ExhaustedError as a terminal timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Executor) { e.attemptTimeout = d }
}

// WithLogger sets the logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSleep replaces the backoff sleep function. Intended for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// NewExecutor creates an executor using the given limiter and policy.
func NewExecutor(limiter *ratelimit.Limiter, policy Policy, opts ...Option) *Executor {
	e := &Executor{
		limiter: limiter,
		policy:  policy,
		logger:  slog.Default(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs one logical call against the adapter, retrying per
// the policy. The returned Outcome is always non-nil so attempt counts
// and billable failed usage survive the error path.
func (e *Executor) Execute(ctx context.Context, spec model.Spec, req provider.Request, adapter provider.Adapter) (*Outcome, error) {
	out := &Outcome{}
	if err := e.policy.Validate(); err != nil {
		return out, err
	}

	retryableFailures := 0
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		// Every attempt consumes a rate-limit slot; the permit is never
		// released because the attempt reaches the provider.
		if _, err := e.limiter.Acquire(ctx, spec); err != nil {
			return out, err
		}

		out.Attempts++
		resp, err := e.send(ctx, req, adapter)
		if err == nil {
			out.Response = resp
			return out, nil
		}

		if spec.BilledOnFailure && resp != nil {
			out.FailedUsage.Add(resp.Usage)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}

		kind := provider.Classify(err)
		var delay time.Duration
		switch kind {
		case provider.KindFatal:
			return out, &FatalError{Err: err}

		case provider.KindRateLimited:
			// Always retryable, regardless of the attempt budget.
			if hint, ok := provider.RetryAfterHint(err); ok {
				delay = hint
			} else {
				delay = e.policy.Delay(out.Attempts)
			}

		case provider.KindRetryable:
			retryableFailures++
			if retryableFailures >= e.policy.MaxAttempts {
				return out, &ExhaustedError{Attempts: out.Attempts, Last: err}
			}
			delay = e.policy.Delay(retryableFailures)
		}

		e.logger.Debug("retrying model call",
			slog.String("model", spec.Name),
			slog.Int("attempt", out.Attempts),
			slog.String("kind", kind.String()),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		if err := e.sleep(ctx, delay); err != nil {
			return out, err
		}
	}
}

// send performs one attempt, applying the per-attempt timeout.
func (e *Executor) send(ctx context.Context, req provider.Request, adapter provider.Adapter) (*provider.Response, error) {
	if e.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.attemptTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := adapter.Send(ctx, req)
	if resp != nil && resp.Duration == 0 {
		resp.Duration = time.Since(start)
	}
	return resp, err
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
