package tokens

import (
	"github.com/randalmurphal/llmbroker/provider"
)

// DefaultAssumedOutput is the output-token assumption used for
// speculative cost estimates when a request does not cap max tokens.
const DefaultAssumedOutput = 1024

// EstimateUsage estimates the token usage of a call before it is made.
// Input tokens come from the prompt text via the counter; output tokens
// are assumed at maxTokens, or DefaultAssumedOutput when maxTokens is
// zero. The estimate deliberately leans high so speculative budget
// charges are refunded down rather than force-charged up.
func EstimateUsage(counter Counter, system, prompt string, maxTokens int) provider.TokenUsage {
	if counter == nil {
		counter = NewEstimatingCounter()
	}
	output := maxTokens
	if output <= 0 {
		output = DefaultAssumedOutput
	}
	input := counter.Count(system) + counter.Count(prompt)
	return provider.TokenUsage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
}
