// Package structured turns free-form model output into typed Go values.
//
// Models rarely emit a bare JSON document: the payload usually arrives
// inside a fenced code block, surrounded by prose, or occasionally as
// YAML. The extractor locates the most plausible payload; Decode then
// unmarshals it into a caller-provided type. When decoding fails,
// SchemaFor and CorrectionPrompt build a follow-up prompt asking the
// model to re-emit output conforming to the target type's JSON schema.
package structured

import (
	"encoding/json"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extractor locates JSON and YAML payloads in model output.
type Extractor struct {
	// codeBlockRegex matches fenced code blocks.
	codeBlockRegex *regexp.Regexp
}

// codeBlock is one fenced block with its language specifier.
type codeBlock struct {
	language string
	content  string
}

// NewExtractor creates an extractor with compiled regexes.
func NewExtractor() *Extractor {
	return &Extractor{
		codeBlockRegex: regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```"),
	}
}

// ExtractJSON returns the first plausible JSON payload in the response.
// It prefers fenced ```json blocks, then bare fenced blocks whose content
// parses as JSON, then inline object or array lines outside any fence.
// The bool reports whether a payload was found.
func (e *Extractor) ExtractJSON(response string) (string, bool) {
	for _, block := range e.extractCodeBlocks(response) {
		if block.language == "json" {
			return strings.TrimSpace(block.content), true
		}
	}
	for _, block := range e.extractCodeBlocks(response) {
		if block.language != "" {
			continue
		}
		content := strings.TrimSpace(block.content)
		if json.Valid([]byte(content)) {
			return content, true
		}
	}

	// Inline JSON: a line (or trailing run of lines) forming an object
	// or array outside any code block.
	stripped := e.codeBlockRegex.ReplaceAllString(response, "")
	for _, line := range strings.Split(stripped, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 2 {
			continue
		}
		if (line[0] == '{' || line[0] == '[') && json.Valid([]byte(line)) {
			return line, true
		}
	}

	// Last resort: the whole response may be one multi-line document.
	whole := strings.TrimSpace(stripped)
	if len(whole) >= 2 && (whole[0] == '{' || whole[0] == '[') && json.Valid([]byte(whole)) {
		return whole, true
	}
	return "", false
}

// ExtractYAML returns the first fenced YAML block that parses, already
// re-marshalled as JSON so downstream decoding has a single input format.
func (e *Extractor) ExtractYAML(response string) (string, bool) {
	for _, block := range e.extractCodeBlocks(response) {
		if block.language != "yaml" && block.language != "yml" {
			continue
		}
		var data any
		if err := yaml.Unmarshal([]byte(block.content), &data); err != nil {
			continue
		}
		out, err := json.Marshal(data)
		if err != nil {
			continue
		}
		return string(out), true
	}
	return "", false
}

// extractCodeBlocks finds all fenced code blocks in the response.
func (e *Extractor) extractCodeBlocks(text string) []codeBlock {
	matches := e.codeBlockRegex.FindAllStringSubmatch(text, -1)
	blocks := make([]codeBlock, 0, len(matches))
	for _, match := range matches {
		if len(match) >= 3 {
			blocks = append(blocks, codeBlock{language: match[1], content: match[2]})
		}
	}
	return blocks
}

// ExtractJSON is a convenience function using a fresh extractor.
func ExtractJSON(response string) (string, bool) {
	return NewExtractor().ExtractJSON(response)
}
