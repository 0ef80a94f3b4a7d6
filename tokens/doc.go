// Package tokens estimates token counts for prompts and responses.
//
// Estimation is based on the rule-of-thumb that approximately 4
// characters equals 1 token for English text. This gives a fast,
// tokenizer-free estimate that is good enough for speculative cost
// charges and context-window checks; the actual billed usage reported
// by the provider always wins at reconciliation time.
//
// # Counter
//
// The Counter interface provides token counting methods:
//
//	counter := tokens.NewEstimatingCounter()
//	count := counter.Count("Hello, world!")     // ~3 tokens
//	fits := counter.FitsInLimit("text", 1000)   // true if <= 1000 tokens
//
// For one-off counting, use the convenience function:
//
//	count := tokens.EstimateTokens("Hello, world!")
//
// # Usage estimation
//
// EstimateUsage builds a provider.TokenUsage for a call before it is
// made: input from the prompt text, output assumed at the request's
// max-tokens cap (or DefaultAssumedOutput when unset).
package tokens
