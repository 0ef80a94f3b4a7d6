package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// ErrNoPayload indicates no JSON or YAML payload could be located in the
// model output.
var ErrNoPayload = errors.New("no structured payload found in response")

// ExhaustedError reports that decoding still failed after every allowed
// correction attempt.
type ExhaustedError struct {
	// Attempts is the total number of model calls made, corrections
	// included.
	Attempts int

	// Last is the decode error from the final attempt.
	Last error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("structured output still invalid after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the final decode error.
func (e *ExhaustedError) Unwrap() error { return e.Last }

// Decode extracts the structured payload from a model response and
// unmarshals it into T. JSON payloads are preferred; fenced YAML blocks
// are accepted as a fallback.
func Decode[T any](response string) (T, error) {
	var zero T

	ex := NewExtractor()
	payload, ok := ex.ExtractJSON(response)
	if !ok {
		payload, ok = ex.ExtractYAML(response)
	}
	if !ok {
		return zero, ErrNoPayload
	}

	var value T
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return zero, fmt.Errorf("decoding structured payload: %w", err)
	}
	return value, nil
}

// SchemaFor derives the JSON schema for T by reflection, compactly
// marshalled for embedding in a correction prompt.
func SchemaFor[T any]() (string, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var value T
	schema := reflector.Reflect(&value)
	out, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshalling schema: %w", err)
	}
	return string(out), nil
}

// CorrectionPrompt builds a follow-up prompt asking the model to re-emit
// its previous output as valid JSON conforming to the schema.
func CorrectionPrompt(schema, raw string, decodeErr error) string {
	var sb strings.Builder
	sb.WriteString("Your previous response could not be parsed as the required JSON.\n\n")
	sb.WriteString("Parse error: ")
	sb.WriteString(decodeErr.Error())
	sb.WriteString("\n\nPrevious response:\n")
	sb.WriteString(raw)
	sb.WriteString("\n\nRespond again with ONLY a JSON document conforming to this schema, inside a ```json code block, with no surrounding prose:\n")
	sb.WriteString(schema)
	return sb.String()
}
