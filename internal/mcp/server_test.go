package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/corpus"
	"github.com/mwiater/gyan/internal/embedding"
	"github.com/mwiater/gyan/internal/providers"
	"github.com/mwiater/gyan/internal/rag"
	"github.com/mwiater/gyan/internal/tokenizer"
)

type unitGraph struct{}

func (unitGraph) Run(context.Context, embedding.Inputs) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (unitGraph) Close() error { return nil }

type echoGenerator struct{ prompt string }

func (g *echoGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	g.prompt = prompt
	return "Gravity is a force.", nil
}

func (g *echoGenerator) Health(context.Context) error { return nil }
func (g *echoGenerator) Close() error                 { return nil }

func makeServer(t *testing.T, entries []corpus.Entry, gen providers.Generator) *Server {
	t.Helper()
	store, _ := corpus.NewStore(entries, 3)
	retriever := rag.NewRetriever(
		tokenizer.New(tokenizer.NewDictionary(map[string][]int32{"gravity": {7000}})),
		embedding.New(unitGraph{}, 3),
		store,
		rag.NewRanker(appconfig.Default().Retrieval),
		false,
	)
	s, err := NewServer(rag.NewService(retriever, gen, appconfig.Default().Generator), "test")
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	return s
}

func sampleEntries() []corpus.Entry {
	return []corpus.Entry{
		{Text: "Gravity pulls objects together.", Vector: []float32{1, 0, 0}, Metadata: map[string]string{"subject": "Science"}},
		{Text: "Babur founded the Mughal empire.", Vector: []float32{0, 1, 0}, Metadata: map[string]string{"subject": "History"}},
		{Text: "Area of a circle is pi r squared.", Vector: []float32{0, 0, 1}, Metadata: map[string]string{"subject": "Science"}},
	}
}

func request(t *testing.T, args any) *gomcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}
	return &gomcp.CallToolRequest{Params: &gomcp.CallToolParamsRaw{Arguments: raw}}
}

func textOf(result *gomcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(*gomcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

func TestNewServerRequiresService(t *testing.T) {
	if _, err := NewServer(nil, "test"); err == nil {
		t.Fatal("expected error for nil service")
	}
}

func TestAsk(t *testing.T) {
	gen := &echoGenerator{}
	s := makeServer(t, sampleEntries(), gen)

	result, err := s.handleAsk(context.Background(), request(t, map[string]string{"query": "What is gravity?"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", textOf(result))
	}
	if textOf(result) != "Gravity is a force." {
		t.Fatalf("answer = %q", textOf(result))
	}
	if !strings.Contains(gen.prompt, "Gravity pulls objects together.") {
		t.Fatalf("prompt missing best passage: %q", gen.prompt)
	}
}

func TestAskWithoutGenerator(t *testing.T) {
	s := makeServer(t, sampleEntries(), nil)
	result, _ := s.handleAsk(context.Background(), request(t, map[string]string{"query": "What is gravity?"}))
	if result.IsError || textOf(result) != rag.AnswerModelNotLoaded {
		t.Fatalf("unexpected result %q (error=%v)", textOf(result), result.IsError)
	}
}

func TestAskInvalidArguments(t *testing.T) {
	s := makeServer(t, sampleEntries(), &echoGenerator{})
	for _, args := range []any{
		map[string]any{},
		map[string]any{"query": ""},
		map[string]any{"query": 5},
		map[string]any{"query": "q", "limit": 2},
	} {
		result, err := s.handleAsk(context.Background(), request(t, args))
		if err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if !result.IsError || !strings.Contains(textOf(result), "invalid arguments") {
			t.Fatalf("args %v: expected invalid arguments error, got %q", args, textOf(result))
		}
	}
}

func TestSearch(t *testing.T) {
	s := makeServer(t, sampleEntries(), nil)
	result, err := s.handleSearch(context.Background(), request(t, map[string]string{"query": "what is gravity"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", textOf(result))
	}

	var got SearchResult
	if err := json.Unmarshal([]byte(textOf(result)), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !got.Found || got.Text != "Gravity pulls objects together." || got.Metadata["subject"] != "Science" {
		t.Fatalf("unexpected match %+v", got)
	}
	if got.Boost != 0.05 || got.Candidates != 3 {
		t.Fatalf("boost = %v candidates = %d", got.Boost, got.Candidates)
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	s := makeServer(t, nil, nil)
	result, _ := s.handleSearch(context.Background(), request(t, map[string]string{"query": "gravity"}))
	if result.IsError || textOf(result) != rag.AnswerNoMatch {
		t.Fatalf("unexpected result %q", textOf(result))
	}
}

func TestListSubjects(t *testing.T) {
	s := makeServer(t, sampleEntries(), nil)
	result, err := s.handleListSubjects(context.Background(), request(t, map[string]any{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var rows []SubjectCount
	if err := json.Unmarshal([]byte(textOf(result)), &rows); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	want := []SubjectCount{{Subject: "History", Entries: 1}, {Subject: "Science", Entries: 2}}
	if len(rows) != len(want) {
		t.Fatalf("rows = %+v", rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("rows[%d] = %+v, want %+v", i, rows[i], want[i])
		}
	}
}
