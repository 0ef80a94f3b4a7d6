package broker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/llmbroker/budget"
	"github.com/randalmurphal/llmbroker/model"
	"github.com/randalmurphal/llmbroker/provider"
	"github.com/randalmurphal/llmbroker/retry"
	"github.com/randalmurphal/llmbroker/tokens"
)

func testRegistry(t *testing.T) *model.Registry {
	t.Helper()
	r := model.NewRegistry()
	r.MustRegister(model.Spec{
		Name:     "sonnet",
		Provider: "test",
		Model:    "sonnet-4",
		Pricing: model.Pricing{
			InputPerToken:  model.PerMillionUSD(3),
			OutputPerToken: model.PerMillionUSD(15),
		},
		ContextWindow: 200000,
	})
	return r
}

func testPricing(r *model.Registry) model.Pricing {
	return r.MustLookup("sonnet").Pricing
}

// fastPolicy retries without meaningful waiting so tests stay quick.
func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Multiplier: 1}
}

func TestInvokeReconcilesToActualCost(t *testing.T) {
	registry := testRegistry(t)
	usage := provider.TokenUsage{InputTokens: 1000, OutputTokens: 500, TotalTokens: 1500}
	inv := New(registry, WithAdapter("test", provider.Func(
		func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Text: "done", Usage: usage}, nil
		})))

	b := budget.Open("run", budget.Unlimited)
	res, err := inv.Invoke(context.Background(), Request{Model: "sonnet", Prompt: "summarize"}, b)
	require.NoError(t, err)

	want := testPricing(registry).CostOf(usage)
	assert.Equal(t, want, res.Cost)
	assert.Equal(t, want, b.Spent(), "budget must hold the reconciled actual, not the estimate")
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "done", res.Text)
	assert.False(t, res.CeilingBreached)
}

func TestInvokePrefersProviderBilledCost(t *testing.T) {
	registry := testRegistry(t)
	inv := New(registry, WithAdapter("test", provider.Func(
		func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{
				Text:      "done",
				Usage:     provider.TokenUsage{InputTokens: 10, OutputTokens: 10},
				BilledUSD: 0.02,
			}, nil
		})))

	b := budget.Open("run", budget.Unlimited)
	res, err := inv.Invoke(context.Background(), Request{Model: "sonnet", Prompt: "hi"}, b)
	require.NoError(t, err)
	assert.Equal(t, model.USD(0.02), res.Cost)
	assert.Equal(t, model.USD(0.02), b.Spent())
}

func TestInvokeRejectedChargeNeverDispatches(t *testing.T) {
	registry := testRegistry(t)
	var calls atomic.Int64
	inv := New(registry, WithAdapter("test", provider.Func(
		func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			calls.Add(1)
			return &provider.Response{Text: "done"}, nil
		})))

	b := budget.Open("run", model.Micro) // far below any estimate
	_, err := inv.Invoke(context.Background(), Request{Model: "sonnet", Prompt: "summarize"}, b)

	var exceeded *budget.ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Zero(t, calls.Load(), "a rejected charge must abort before dispatch")
	assert.Equal(t, model.Cost(0), b.Spent())
}

func TestInvokeUnknownModelIsFatal(t *testing.T) {
	inv := New(testRegistry(t))

	_, err := inv.Invoke(context.Background(), Request{Model: "nope", Prompt: "hi"}, nil)

	var fatal *retry.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, model.ErrUnknownModel)
}

func TestInvokeContextWindowCheck(t *testing.T) {
	registry := model.NewRegistry()
	registry.MustRegister(model.Spec{
		Name: "tiny", Provider: "test", Model: "tiny-1", ContextWindow: 10,
	})
	var calls atomic.Int64
	inv := New(registry, WithAdapter("test", provider.Func(
		func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			calls.Add(1)
			return &provider.Response{}, nil
		})))

	longPrompt := make([]byte, 400) // ~100 tokens, window is 10
	for i := range longPrompt {
		longPrompt[i] = 'a'
	}

	b := budget.Open("run", budget.Unlimited)
	_, err := inv.Invoke(context.Background(), Request{Model: "tiny", Prompt: string(longPrompt)}, b)

	var fatal *retry.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, provider.ErrContextTooLong)
	assert.Zero(t, calls.Load())
	assert.Equal(t, model.Cost(0), b.Spent(), "nothing may be charged for a rejected oversize prompt")
}

func TestInvokeTerminalErrorRefundsEstimate(t *testing.T) {
	registry := testRegistry(t)
	inv := New(registry,
		WithRetryPolicy(fastPolicy()),
		WithAdapter("test", provider.Func(
			func(ctx context.Context, req provider.Request) (*provider.Response, error) {
				return nil, provider.NewError("test", "send", provider.KindFatal, provider.ErrAuth)
			})))

	b := budget.Open("run", budget.Unlimited)
	_, err := inv.Invoke(context.Background(), Request{Model: "sonnet", Prompt: "hi"}, b)

	require.Error(t, err)
	assert.Equal(t, model.Cost(0), b.Spent(), "estimate must be refunded when nothing was billed")
}

func TestInvokeFailedAttemptBillingRemains(t *testing.T) {
	registry := model.NewRegistry()
	registry.MustRegister(model.Spec{
		Name: "billed", Provider: "test", Model: "billed-1",
		Pricing:         model.Pricing{InputPerToken: model.PerMillionUSD(3)},
		BilledOnFailure: true,
	})

	failedUsage := provider.TokenUsage{InputTokens: 1000}
	inv := New(registry,
		WithRetryPolicy(fastPolicy()),
		WithAdapter("test", provider.Func(
			func(ctx context.Context, req provider.Request) (*provider.Response, error) {
				return &provider.Response{Usage: failedUsage}, provider.ErrUnavailable
			})))

	b := budget.Open("run", budget.Unlimited)
	_, err := inv.Invoke(context.Background(), Request{Model: "billed", Prompt: "hi"}, b)

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)

	// Two failed attempts, each billed for its usage.
	wantPer := registry.MustLookup("billed").Pricing.CostOf(failedUsage)
	assert.Equal(t, 2*wantPer, b.Spent())
}

func TestInvokeCeilingBreachedOnUnderestimate(t *testing.T) {
	registry := testRegistry(t)
	actualUsage := provider.TokenUsage{InputTokens: 1, OutputTokens: 10000}
	inv := New(registry, WithAdapter("test", provider.Func(
		func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Text: "long answer", Usage: actualUsage}, nil
		})))

	// The per-request ceiling admits exactly the estimate; the actual
	// cost then lands far above it.
	pricing := testPricing(registry)
	estimate := pricing.CostOf(tokens.EstimateUsage(nil, "", "hi", 1))

	b := budget.Open("run", budget.Unlimited)
	res, err := inv.Invoke(context.Background(), Request{
		Model: "sonnet", Prompt: "hi", MaxTokens: 1, Ceiling: estimate,
	}, b)
	require.NoError(t, err)

	actual := pricing.CostOf(actualUsage)
	assert.True(t, res.CeilingBreached, "post-billing reconciliation crossed the request ceiling")
	assert.Equal(t, actual, res.Cost)
	assert.Equal(t, actual, b.Spent(), "billed cost is recorded even past the ceiling")
}

func TestInvokeNilBudget(t *testing.T) {
	inv := New(testRegistry(t), WithAdapter("test", provider.Func(
		func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Text: "ok"}, nil
		})))

	res, err := inv.Invoke(context.Background(), Request{Model: "sonnet", Prompt: "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
}

func TestInvokeFamilyAliasLookup(t *testing.T) {
	inv := New(testRegistry(t), WithAdapter("test", provider.Func(
		func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Text: "ok", Model: req.Model}, nil
		})))

	res, err := inv.Invoke(context.Background(), Request{
		Model: "anthropic/claude-sonnet-4.5", Prompt: "hi",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
}
