package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/randalmurphal/llmbroker/provider"
)

// Cost is a monetary amount in nanodollars (1e-9 USD), fixed point.
// Integer arithmetic keeps repeated charges exact: for integer token
// counts and per-token rates, in*rate_in + out*rate_out never drifts.
type Cost int64

// Cost unit constants.
const (
	Nano   Cost = 1
	Micro  Cost = 1_000
	Milli  Cost = 1_000_000
	Cent   Cost = 10_000_000
	Dollar Cost = 1_000_000_000
)

// USD converts a dollar amount to Cost, rounding to the nearest nanodollar.
func USD(v float64) Cost {
	return Cost(math.Round(v * float64(Dollar)))
}

// PerMillionUSD converts a price in dollars per million tokens to a
// per-token Cost. $3.00 per million tokens is 3000 nanodollars per token.
func PerMillionUSD(v float64) Cost {
	return Cost(math.Round(v * float64(Dollar) / 1_000_000))
}

// USD returns the cost as a float64 dollar amount, for display only.
// Accounting must stay in Cost.
func (c Cost) USD() float64 {
	return float64(c) / float64(Dollar)
}

// String formats the cost as a dollar amount, e.g. "$1.25" or "-$0.000003".
func (c Cost) String() string {
	neg := c < 0
	if neg {
		c = -c
	}
	dollars := c / Dollar
	frac := c % Dollar

	s := fmt.Sprintf("%d.%09d", dollars, frac)
	// Trim trailing zeros but keep cents.
	s = strings.TrimRight(s, "0")
	if dot := strings.IndexByte(s, '.'); len(s)-dot-1 < 2 {
		s = s[:dot+1] + fmt.Sprintf("%02d", frac/Cent)
	}
	if neg {
		return "-$" + s
	}
	return "$" + s
}

// ParseCost parses a dollar amount like "1.25", "$0.50", or "-$3".
// Parsing is exact: no float conversion, at most 9 fractional digits.
func ParseCost(s string) (Cost, error) {
	orig := s
	s = strings.TrimSpace(s)

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, fmt.Errorf("parse cost %q: empty amount", orig)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cost %q: %w", orig, err)
	}

	var nanos int64
	if frac != "" {
		if len(frac) > 9 {
			return 0, fmt.Errorf("parse cost %q: more than 9 fractional digits", orig)
		}
		padded := frac + strings.Repeat("0", 9-len(frac))
		nanos, err = strconv.ParseInt(padded, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse cost %q: %w", orig, err)
		}
	}

	c := Cost(dollars)*Dollar + Cost(nanos)
	if neg {
		c = -c
	}
	return c, nil
}

// Pricing holds the per-call pricing for a model.
type Pricing struct {
	// InputPerToken is the cost charged per input token.
	InputPerToken Cost `json:"input_per_token" yaml:"input_per_token" toml:"input_per_token"`

	// OutputPerToken is the cost charged per output token.
	OutputPerToken Cost `json:"output_per_token" yaml:"output_per_token" toml:"output_per_token"`

	// FlatPerRequest is a flat cost applied to every request, if any.
	FlatPerRequest Cost `json:"flat_per_request" yaml:"flat_per_request" toml:"flat_per_request"`
}

// CostOf computes the exact cost of the given token usage.
func (p Pricing) CostOf(u provider.TokenUsage) Cost {
	return Cost(u.InputTokens)*p.InputPerToken +
		Cost(u.OutputTokens)*p.OutputPerToken +
		p.FlatPerRequest
}

// Zero reports whether the pricing charges nothing.
func (p Pricing) Zero() bool {
	return p.InputPerToken == 0 && p.OutputPerToken == 0 && p.FlatPerRequest == 0
}
