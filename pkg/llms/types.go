// Package llms provides structured-completion providers. Every pipeline
// stage sends a prompt plus a JSON schema and gets back raw JSON that
// conforms to the schema (or an error; the pipeline falls back
// deterministically on error).
package llms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyCompletion is returned when the provider responds with no usable
// content.
var ErrEmptyCompletion = errors.New("llm returned empty completion")

// ErrMalformedJSON is returned when the completion cannot be parsed as the
// requested schema.
var ErrMalformedJSON = errors.New("llm returned malformed JSON")

// CompletionRequest is one structured call.
type CompletionRequest struct {
	// System frames the model's role for this stage.
	System string
	// Prompt is the stage-specific user content.
	Prompt string
	// SchemaName labels the schema for providers that require a name.
	SchemaName string
	// Schema is a JSON Schema object the output must satisfy.
	Schema map[string]interface{}
}

// StructuredCompletion produces schema-conforming JSON from a prompt.
// Implementations must be safe for concurrent use.
type StructuredCompletion interface {
	Complete(ctx context.Context, req CompletionRequest) (json.RawMessage, error)
	ModelName() string
	Close() error
}

// Call issues a structured completion and decodes the typed output.
func Call[T any](ctx context.Context, c StructuredCompletion, req CompletionRequest) (*T, error) {
	raw, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedJSON, req.SchemaName, err)
	}
	return &out, nil
}

// extractJSON trims non-JSON chatter around a completion. Providers that
// cannot enforce schemas server-side (Anthropic prefill path) still wrap
// JSON in prose occasionally.
func extractJSON(s string) (json.RawMessage, error) {
	start := -1
	for i, c := range s {
		if c == '{' || c == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrMalformedJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
			}
		case '}', ']':
			if !inString {
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if !json.Valid([]byte(candidate)) {
						return nil, ErrMalformedJSON
					}
					return json.RawMessage(candidate), nil
				}
			}
		}
	}
	return nil, ErrMalformedJSON
}
