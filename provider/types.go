package provider

import "time"

// Request is the normalized completion request sent to an adapter.
// It is an immutable value: callers construct a new Request per call.
type Request struct {
	// Model is the provider-specific model identifier.
	// Examples: "anthropic/claude-sonnet-4.5", "gpt-5-mini"
	Model string `json:"model"`

	// System sets the system message that guides the model's behavior.
	System string `json:"system,omitempty"`

	// Prompt is the user message content.
	Prompt string `json:"prompt"`

	// Temperature controls response randomness. Nil uses the provider default.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens limits the response length. 0 uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Metadata holds provider-specific request attributes not covered
	// by the standard fields.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TokenUsage tracks token consumption for one call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add combines token usage from another TokenUsage.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Response is the normalized output of a completion call.
type Response struct {
	// Text is the raw text response from the model.
	Text string `json:"text"`

	// Usage tracks token consumption for this request.
	Usage TokenUsage `json:"usage"`

	// Model is the actual model used (may differ from requested).
	Model string `json:"model"`

	// FinishReason indicates why the model stopped generating.
	// Common values: "stop", "length", "content_filter"
	FinishReason string `json:"finish_reason,omitempty"`

	// Duration is the time taken for the completion.
	Duration time.Duration `json:"duration"`

	// BilledUSD is the provider-reported cost in USD, when available.
	// Zero means the provider did not report a cost; callers fall back
	// to computing cost from Usage and the model's pricing.
	BilledUSD float64 `json:"billed_usd,omitempty"`
}
