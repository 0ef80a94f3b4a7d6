package tokens

import (
	"unicode/utf8"
)

// DefaultCharsPerToken is the default character-to-token ratio.
// Approximately 4 characters equals 1 token for English text.
const DefaultCharsPerToken = 4.0

// Counter estimates token counts for text.
type Counter interface {
	// Count estimates the number of tokens in the given text.
	Count(text string) int

	// FitsInLimit returns true if the text fits within the token limit.
	FitsInLimit(text string, limit int) bool
}

// EstimatingCounter uses a character-to-token ratio for estimation.
type EstimatingCounter struct {
	// CharsPerToken is the average characters per token.
	// Default is 4, which works well for English text.
	CharsPerToken float64
}

// NewEstimatingCounter creates a token counter with default settings.
func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{
		CharsPerToken: DefaultCharsPerToken,
	}
}

// NewEstimatingCounterWithRatio creates a token counter with a custom ratio.
// If charsPerToken is <= 0, the default ratio (4.0) is used.
func NewEstimatingCounterWithRatio(charsPerToken float64) *EstimatingCounter {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &EstimatingCounter{
		CharsPerToken: charsPerToken,
	}
}

// Count estimates the number of tokens in the given text.
// Actual token counts vary with the provider's tokenizer.
func (c *EstimatingCounter) Count(text string) int {
	// Count runes rather than bytes for better accuracy on non-ASCII text.
	runeCount := utf8.RuneCountInString(text)
	tokens := float64(runeCount) / c.CharsPerToken

	return int(tokens + 0.5)
}

// FitsInLimit returns true if the text fits within the token limit.
func (c *EstimatingCounter) FitsInLimit(text string, limit int) bool {
	return c.Count(text) <= limit
}

// EstimateTokens is a convenience function using the default estimator.
func EstimateTokens(text string) int {
	return NewEstimatingCounter().Count(text)
}
