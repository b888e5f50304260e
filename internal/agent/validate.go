package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// envelopeSchema constrains the tool-call envelope the UI renders: a named
// call with a JSON-object argument payload.
var envelopeSchema = map[string]any{
	"type":                 "object",
	"required":             []any{"name", "arguments"},
	"additionalProperties": false,
	"properties": map[string]any{
		"name": map[string]any{
			"type":      "string",
			"minLength": 1,
		},
		"arguments": map[string]any{
			"type": "object",
		},
	},
}

var (
	envelopeLoader     gojsonschema.JSONLoader
	envelopeLoaderOnce sync.Once
)

func loadEnvelopeSchema() gojsonschema.JSONLoader {
	envelopeLoaderOnce.Do(func() {
		envelopeLoader = gojsonschema.NewGoLoader(envelopeSchema)
	})
	return envelopeLoader
}

type envelopeValidationError struct {
	issues []string
}

func (e envelopeValidationError) Error() string {
	if len(e.issues) == 0 {
		return "tool call failed envelope validation"
	}
	return strings.Join(e.issues, "; ")
}

// ValidateToolCall checks that a tool call is displayable: the arguments must
// be valid JSON and the resulting envelope must satisfy the schema. Invalid
// calls degrade to a warning at the display layer, never a failure.
func ValidateToolCall(call ToolCall) error {
	args := strings.TrimSpace(call.Arguments)
	if args == "" {
		args = "{}"
	}
	var decoded any
	if err := json.Unmarshal([]byte(args), &decoded); err != nil {
		return fmt.Errorf("agent: tool arguments are not valid JSON: %w", err)
	}

	envelope := map[string]any{
		"name":      call.Name,
		"arguments": decoded,
	}
	result, err := gojsonschema.Validate(loadEnvelopeSchema(), gojsonschema.NewGoLoader(envelope))
	if err != nil {
		return fmt.Errorf("agent: envelope validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return envelopeValidationError{issues: issues}
}
