// Package broker coordinates single and batched model invocations.
//
// An Invoker ties the pieces together: it resolves a model name through
// the registry, estimates and speculatively charges cost against a
// budget scope, dispatches through the per-model rate limiter and retry
// executor, and reconciles the speculative charge against what the
// provider actually billed.
//
//	inv := broker.New(registry,
//	    broker.WithAdapter("openrouter", adapter),
//	    broker.WithRetryPolicy(retry.DefaultPolicy()),
//	)
//
//	b := budget.Open("run", model.USD(5))
//	defer b.Close()
//
//	res, err := inv.Invoke(ctx, broker.Request{
//	    Model:  "sonnet",
//	    Prompt: "Summarize the attached report.",
//	}, b)
//
// InvokeStructured decodes the response into a typed value, re-prompting
// the model with a schema-guided correction on decode failure. RunAll
// executes a slice of requests with bounded concurrency, returning one
// outcome per input slot in input order.
package broker
