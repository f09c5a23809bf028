package query

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantQuery   string
		wantSubject string
		wantErr     bool
	}{
		{name: "query only", body: `{"query":"What is Gravity?"}`, wantQuery: "What is Gravity?"},
		{name: "with subject", body: `{"query":"What is Gravity?","subject":" Science "}`, wantQuery: "What is Gravity?", wantSubject: "Science"},
		{name: "null subject", body: `{"query":"q","subject":null}`, wantQuery: "q"},
		{name: "missing query", body: `{"subject":"Science"}`, wantErr: true},
		{name: "empty query", body: `{"query":""}`, wantErr: true},
		{name: "wrong type", body: `{"query":42}`, wantErr: true},
		{name: "unknown field", body: `{"query":"q","top_k":3}`, wantErr: true},
		{name: "not json", body: `query=q`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Decode([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Decode(%s) succeeded, want error", tt.body)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%s) error: %v", tt.body, err)
			}
			if req.Query != tt.wantQuery || req.Subject != tt.wantSubject {
				t.Fatalf("Decode(%s) = %+v", tt.body, req)
			}
		})
	}
}

func TestValidateEmpty(t *testing.T) {
	if err := Validate([]byte("  ")); !errors.Is(err, ErrEmptyRequest) {
		t.Fatalf("Validate(blank) = %v, want ErrEmptyRequest", err)
	}
}

func TestValidateTooLong(t *testing.T) {
	body, _ := json.Marshal(Request{Query: strings.Repeat("a", MaxQueryLength+1)})
	err := Validate(body)
	if err == nil || !strings.Contains(err.Error(), "JSON validation failed") {
		t.Fatalf("Validate(long) = %v", err)
	}
}

func TestSchemaJSON(t *testing.T) {
	var decoded map[string]any
	if err := json.Unmarshal(SchemaJSON(), &decoded); err != nil {
		t.Fatalf("SchemaJSON not valid JSON: %v", err)
	}
	if decoded["type"] != "object" {
		t.Fatalf("schema type = %v", decoded["type"])
	}
}
