package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/llmbroker/budget"
	"github.com/randalmurphal/llmbroker/model"
	"github.com/randalmurphal/llmbroker/provider"
	"github.com/randalmurphal/llmbroker/ratelimit"
	"github.com/randalmurphal/llmbroker/retry"
	"github.com/randalmurphal/llmbroker/tokens"
)

// DefaultMaxCorrections is the default total attempt cap for structured
// invocations, the first call included.
const DefaultMaxCorrections = 3

// Request describes one model invocation.
type Request struct {
	// Model is the registry name (or family alias) to invoke.
	Model string

	// System is the optional system prompt.
	System string

	// Prompt is the user prompt.
	Prompt string

	// Temperature overrides the provider default when non-nil.
	Temperature *float64

	// MaxTokens caps the response length. 0 uses the provider default
	// and assumes tokens.DefaultAssumedOutput for cost estimation.
	MaxTokens int

	// Ceiling, when positive, opens an implicit child budget scope
	// bounding this single request.
	Ceiling model.Cost

	// Policy overrides the invoker's retry policy when non-nil.
	Policy *retry.Policy
}

// Result is the outcome of one successful invocation.
type Result struct {
	// Text is the response text (for structured calls, the final
	// accepted response).
	Text string

	// Usage is the token usage across all attempts and corrections.
	Usage provider.TokenUsage

	// Cost is the reconciled actual cost charged to the budget.
	Cost model.Cost

	// Attempts is the number of attempts that reached a provider.
	Attempts int

	// Latency is the wall-clock duration of the whole invocation.
	Latency time.Duration

	// CeilingBreached reports that post-billing reconciliation pushed a
	// budget scope past its ceiling.
	CeilingBreached bool
}

// Invoker executes model calls with routing, rate limiting, retry, and
// budget accounting. Safe for concurrent use.
type Invoker struct {
	registry       *model.Registry
	limiter        *ratelimit.Limiter
	policy         retry.Policy
	attemptTimeout time.Duration
	corrections    int
	counter        tokens.Counter
	logger         *slog.Logger
	adapterFn      func(name string) (provider.Adapter, error)

	mu       sync.Mutex
	adapters map[string]provider.Adapter
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithAdapter binds a provider name to a concrete adapter.
func WithAdapter(name string, adapter provider.Adapter) Option {
	return func(inv *Invoker) { inv.adapters[name] = adapter }
}

// WithAdapterFunc sets a fallback constructor for provider names that
// have no bound adapter. Constructed adapters are cached per name.
func WithAdapterFunc(fn func(name string) (provider.Adapter, error)) Option {
	return func(inv *Invoker) { inv.adapterFn = fn }
}

// WithRetryPolicy sets the default retry policy. Requests may still
// override it per call.
func WithRetryPolicy(p retry.Policy) Option {
	return func(inv *Invoker) { inv.policy = p }
}

// WithAttemptTimeout bounds each individual provider attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(inv *Invoker) { inv.attemptTimeout = d }
}

// WithLogger sets the logger for invocation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(inv *Invoker) {
		if logger != nil {
			inv.logger = logger
		}
	}
}

// WithMaxCorrections caps total attempts for structured invocations,
// the first call included. Values < 1 keep the default.
func WithMaxCorrections(n int) Option {
	return func(inv *Invoker) {
		if n >= 1 {
			inv.corrections = n
		}
	}
}

// WithCounter replaces the token counter used for cost estimation.
func WithCounter(c tokens.Counter) Option {
	return func(inv *Invoker) {
		if c != nil {
			inv.counter = c
		}
	}
}

// WithLimiter replaces the per-model rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(inv *Invoker) {
		if l != nil {
			inv.limiter = l
		}
	}
}

// New creates an Invoker over the given model registry.
func New(registry *model.Registry, opts ...Option) *Invoker {
	inv := &Invoker{
		registry:    registry,
		limiter:     ratelimit.NewLimiter(),
		policy:      retry.DefaultPolicy(),
		corrections: DefaultMaxCorrections,
		counter:     tokens.NewEstimatingCounter(),
		logger:      slog.Default(),
		adapters:    make(map[string]provider.Adapter),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// adapterFor resolves the adapter for a provider name: explicit binding
// first, then the fallback constructor, then the global factory registry.
func (inv *Invoker) adapterFor(name string) (provider.Adapter, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if adapter, ok := inv.adapters[name]; ok {
		return adapter, nil
	}

	var adapter provider.Adapter
	var err error
	if inv.adapterFn != nil {
		adapter, err = inv.adapterFn(name)
	} else {
		adapter, err = provider.New(name, provider.FromEnv())
	}
	if err != nil {
		return nil, fmt.Errorf("resolving adapter for provider %q: %w", name, err)
	}
	inv.adapters[name] = adapter
	return adapter, nil
}

// Invoke executes one model call against the budget scope.
//
// The estimated cost is charged before dispatch; a rejected charge means
// the call is never sent. After the call, the speculative charge is
// reconciled against the provider-billed cost: over-estimates are
// refunded, under-estimates are force-charged (flagging CeilingBreached
// when that crosses a ceiling). On terminal errors the estimate is
// refunded in full and only billable failed-attempt usage remains
// charged.
func (inv *Invoker) Invoke(ctx context.Context, req Request, b *budget.Budget) (*Result, error) {
	start := time.Now()

	spec, err := inv.registry.Lookup(req.Model)
	if err != nil {
		return nil, &retry.FatalError{Err: err}
	}

	adapter, err := inv.adapterFor(spec.Provider)
	if err != nil {
		return nil, &retry.FatalError{Err: err}
	}

	estimated := tokens.EstimateUsage(inv.counter, req.System, req.Prompt, req.MaxTokens)
	if spec.ContextWindow > 0 && estimated.InputTokens > spec.ContextWindow {
		return nil, &retry.FatalError{Err: &provider.Error{
			Provider: spec.Provider,
			Op:       "invoke",
			Kind:     provider.KindFatal,
			Err: fmt.Errorf("%w: estimated %d input tokens, window %d",
				provider.ErrContextTooLong, estimated.InputTokens, spec.ContextWindow),
		}}
	}
	estimate := spec.Pricing.CostOf(estimated)

	scope := b
	if scope == nil {
		scope = budget.Open(req.Model, budget.Unlimited)
	}
	if req.Ceiling > 0 {
		child := scope.Child(req.Model, req.Ceiling)
		defer child.Close()
		scope = child
	}

	if err := scope.Charge(estimate); err != nil {
		// Rejected before dispatch: the call was never sent.
		return nil, err
	}

	policy := inv.policy
	if req.Policy != nil {
		policy = *req.Policy
	}
	exec := retry.NewExecutor(inv.limiter, policy,
		retry.WithAttemptTimeout(inv.attemptTimeout),
		retry.WithLogger(inv.logger))

	out, execErr := exec.Execute(ctx, spec, provider.Request{
		Model:       spec.Model,
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, adapter)

	failedCost := spec.Pricing.CostOf(out.FailedUsage)

	if execErr != nil {
		// The call produced nothing billable beyond failed attempts:
		// release the estimate, then record what was billed anyway.
		_ = scope.Refund(estimate)
		if failedCost > 0 {
			if vErr := scope.ForceCharge(failedCost); vErr != nil {
				inv.logger.Warn("failed-attempt billing crossed a ceiling",
					slog.String("model", spec.Name),
					slog.Any("violation", vErr))
			}
		}
		return nil, execErr
	}

	usage := out.Response.Usage
	actual := inv.billedCost(spec, out.Response) + failedCost

	breached := false
	switch {
	case actual > estimate:
		if vErr := scope.ForceCharge(actual - estimate); vErr != nil {
			var exceeded *budget.ExceededError
			if errors.As(vErr, &exceeded) {
				breached = true
				inv.logger.Warn("reconciliation crossed a ceiling",
					slog.String("model", spec.Name),
					slog.String("budget", exceeded.Name),
					slog.String("spent", exceeded.Spent.String()))
			}
		}
	case actual < estimate:
		_ = scope.Refund(estimate - actual)
	}

	usage.Add(out.FailedUsage)
	result := &Result{
		Text:            out.Response.Text,
		Usage:           usage,
		Cost:            actual,
		Attempts:        out.Attempts,
		Latency:         time.Since(start),
		CeilingBreached: breached,
	}

	inv.logger.Debug("model call complete",
		slog.String("model", spec.Name),
		slog.Int("attempts", result.Attempts),
		slog.String("cost", result.Cost.String()),
		slog.Duration("latency", result.Latency))

	return result, nil
}

// billedCost prefers the provider-reported billed amount, falling back
// to the registry pricing applied to reported usage.
func (inv *Invoker) billedCost(spec model.Spec, resp *provider.Response) model.Cost {
	if resp.BilledUSD > 0 {
		return model.USD(resp.BilledUSD)
	}
	return spec.Pricing.CostOf(resp.Usage)
}
