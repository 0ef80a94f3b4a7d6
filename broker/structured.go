package broker

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/llmbroker/budget"
	"github.com/randalmurphal/llmbroker/structured"
)

// InvokeStructured executes a model call and decodes the response into T.
//
// On decode failure the model is re-prompted with a correction request
// carrying T's JSON schema and the unparseable output. Every correction
// is a full invocation: charged against the budget, rate limited, and
// retried like any other call. At most inv's max-corrections total
// attempts are made (default DefaultMaxCorrections); persistent failure
// returns *structured.ExhaustedError. The Result aggregates usage, cost,
// and attempts across all correction calls.
func InvokeStructured[T any](ctx context.Context, inv *Invoker, req Request, b *budget.Budget) (T, *Result, error) {
	var zero T

	schema, err := structured.SchemaFor[T]()
	if err != nil {
		return zero, nil, err
	}

	total := &Result{}
	current := req
	var lastErr error

	for attempt := 1; attempt <= inv.corrections; attempt++ {
		res, err := inv.Invoke(ctx, current, b)
		if err != nil {
			return zero, nil, err
		}
		accumulate(total, res)

		value, decErr := structured.Decode[T](res.Text)
		if decErr == nil {
			total.Text = res.Text
			return value, total, nil
		}
		lastErr = decErr

		inv.logger.Debug("structured decode failed, requesting correction",
			slog.String("model", req.Model),
			slog.Int("attempt", attempt),
			slog.Any("error", decErr))

		current = req
		current.Prompt = structured.CorrectionPrompt(schema, res.Text, decErr)
	}

	return zero, total, &structured.ExhaustedError{Attempts: inv.corrections, Last: lastErr}
}

// accumulate folds one call's result into the running aggregate.
func accumulate(total, res *Result) {
	total.Usage.Add(res.Usage)
	total.Cost += res.Cost
	total.Attempts += res.Attempts
	total.Latency += res.Latency
	total.CeilingBreached = total.CeilingBreached || res.CeilingBreached
}
