package model

import "strings"

// Family is a normalized model family alias usable as a registry key.
type Family string

// Known model families.
const (
	FamilyOpus    Family = "opus"
	FamilySonnet  Family = "sonnet"
	FamilyHaiku   Family = "haiku"
	FamilyGPT     Family = "gpt"
	FamilyGPTMini Family = "gpt-mini"
	FamilyGPTPro  Family = "gpt-pro"
)

// Normalize converts a full model identifier to its family alias.
// For example, "openrouter/anthropic/claude-sonnet-4.5" becomes "sonnet"
// and "gpt-5-mini" becomes "gpt-mini". Names that are already aliases or
// match no known pattern are returned as-is.
func Normalize(name string) string {
	switch Family(name) {
	case FamilyOpus, FamilySonnet, FamilyHaiku, FamilyGPT, FamilyGPTMini, FamilyGPTPro:
		return name
	}
	lower := strings.ToLower(name)

	if strings.Contains(lower, "opus") {
		return string(FamilyOpus)
	}
	if strings.Contains(lower, "sonnet") {
		return string(FamilySonnet)
	}
	if strings.Contains(lower, "haiku") {
		return string(FamilyHaiku)
	}

	if isGPTModel(lower) {
		if strings.Contains(lower, "-pro") {
			return string(FamilyGPTPro)
		}
		if strings.Contains(lower, "-mini") || strings.Contains(lower, "-nano") {
			return string(FamilyGPTMini)
		}
		return string(FamilyGPT)
	}

	return name
}

// isGPTModel matches GPT-5+ identifiers ("gpt-5", "gpt-5.1", ...), also
// behind a provider prefix. Older models like "gpt-4o" are not aliased.
func isGPTModel(lower string) bool {
	if strings.HasPrefix(lower, "gpt-5") {
		return true
	}
	if i := strings.LastIndexByte(lower, '/'); i >= 0 {
		return strings.HasPrefix(lower[i+1:], "gpt-5")
	}
	return false
}
