// Package llmbroker provides the building blocks of an LLM request broker:
// model routing, per-model rate limiting, retry with error classification,
// scoped hard-stop cost budgets, structured-output parsing with
// self-correction, and bounded-concurrency batch execution.
//
// Each subpackage can be used independently:
//
//   - provider: adapter contract, error classification, factory registry
//   - model: model specs, fixed-point cost arithmetic, registry with
//     config files and hot-add watching
//   - ratelimit: per-model fixed-window request limiting
//   - retry: bounded retry with exponential backoff and jitter
//   - budget: nested spend scopes with atomic hard-stop ceilings
//   - structured: typed output extraction, decoding, correction prompts
//   - tokens: tokenizer-free token and usage estimation
//   - broker: the Invoker tying everything together, plus batching
//
// # Quick Start
//
// Register the models you route to, bind an adapter per provider, then
// invoke through a budget scope:
//
//	registry := model.NewRegistry()
//	registry.MustRegister(model.Spec{
//	    Name:     "sonnet",
//	    Provider: "openrouter",
//	    Model:    "anthropic/claude-sonnet-4.5",
//	    Pricing: model.Pricing{
//	        InputPerToken:  model.PerMillionUSD(3),
//	        OutputPerToken: model.PerMillionUSD(15),
//	    },
//	    Rate: model.RatePolicy{Requests: 60, Window: time.Minute},
//	})
//
//	inv := broker.New(registry, broker.WithAdapter("openrouter", adapter))
//
//	b := budget.Open("run", model.USD(5))
//	defer b.Close()
//
//	res, err := inv.Invoke(ctx, broker.Request{
//	    Model:  "sonnet",
//	    Prompt: "Summarize the attached report.",
//	}, b)
//
// # Design Philosophy
//
//   - Adapters are injected capabilities; no vendor SDK ships here
//   - Money is fixed-point (integer nanodollars), never floating point
//   - Budgets are hard stops checked before dispatch, reconciled after
//   - Every blocking operation takes a context and honors cancellation
//   - Interfaces for extensibility, concrete types for simplicity
package llmbroker
