// Package query validates retrieval requests arriving over HTTP or MCP.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// MaxQueryLength bounds the query text in runes.
const MaxQueryLength = 2000

// ErrEmptyRequest is returned when no request body is supplied.
var ErrEmptyRequest = errors.New("empty request")

// Request is a retrieval request.
type Request struct {
	Query   string `json:"query"`
	Subject string `json:"subject,omitempty"`
}

// Schema returns the JSON schema every request must satisfy.
func Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The question to answer from the corpus.",
				"minLength":   1,
				"maxLength":   MaxQueryLength,
			},
			"subject": map[string]any{
				"type":        []any{"string", "null"},
				"description": "Optional subject label, e.g. Science or History.",
			},
		},
		"required":             []any{"query"},
		"additionalProperties": false,
	}
}

// SchemaJSON returns Schema encoded as JSON.
func SchemaJSON() json.RawMessage {
	b, err := json.Marshal(Schema())
	if err != nil {
		panic(err)
	}
	return b
}

// Validate checks data against Schema.
func Validate(data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return ErrEmptyRequest
	}

	schemaLoader := gojsonschema.NewGoLoader(Schema())
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("JSON validation failed: %s", strings.Join(errs, ", "))
}

// Decode validates data and unmarshals it into a Request.
func Decode(data []byte) (Request, error) {
	if err := Validate(data); err != nil {
		return Request{}, err
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	req.Subject = strings.TrimSpace(req.Subject)
	return req, nil
}
