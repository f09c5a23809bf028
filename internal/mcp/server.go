// Package mcp serves the retrieval service as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/query"
	"github.com/mwiater/gyan/internal/rag"
)

// Server wraps the MCP server around a retrieval service.
type Server struct {
	mcp     *gomcp.Server
	service *rag.Service
}

// SearchResult is the JSON payload of the search tool.
type SearchResult struct {
	Found      bool              `json:"found"`
	Text       string            `json:"text,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Score      float64           `json:"score"`
	Cosine     float64           `json:"cosine"`
	Boost      float64           `json:"boost"`
	Candidates int               `json:"candidates"`
}

// SubjectCount is one row of the list_subjects tool.
type SubjectCount struct {
	Subject string `json:"subject"`
	Entries int    `json:"entries"`
}

// NewServer registers the ask, search and list_subjects tools.
func NewServer(service *rag.Service, version string) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("retrieval service is required")
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcp: gomcp.NewServer(
			&gomcp.Implementation{
				Name:    "gyan",
				Version: version,
			},
			nil,
		),
		service: service,
	}
	s.registerTools()
	return s, nil
}

// Serve runs the server on stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the offline knowledge corpus. Returns a short answer grounded in the best matching passage.",
		InputSchema: query.SchemaJSON(),
	}, s.handleAsk)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "search",
		Description: "Find the corpus passage that best matches a question without generating an answer. Returns the passage, its metadata and its score.",
		InputSchema: query.SchemaJSON(),
	}, s.handleSearch)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_subjects",
		Description: "List the subjects present in the corpus with their entry counts.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleListSubjects)
}

func (s *Server) handleAsk(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	q, err := query.Decode(req.Params.Arguments)
	if err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	ctx = withRequestID(ctx, "ask")

	reply := s.service.Ask(ctx, q.Query, q.Subject)
	return toolText(reply.Answer), nil
}

func (s *Server) handleSearch(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	q, err := query.Decode(req.Params.Arguments)
	if err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	ctx = withRequestID(ctx, "search")

	res, err := s.service.Retriever().Retrieve(ctx, q.Query, q.Subject)
	if errors.Is(err, rag.ErrNoMatch) {
		return toolText(rag.AnswerNoMatch), nil
	}
	if err != nil {
		logging.LogEvent("request=%s search failed: %v", logging.RequestID(ctx), err)
		return toolError("%s", rag.AnswerUnavailable), nil
	}

	return toolJSON(SearchResult{
		Found:      true,
		Text:       res.Match.Entry.Text,
		Metadata:   res.Match.Entry.Metadata,
		Score:      res.Match.Score,
		Cosine:     res.Match.Cosine,
		Boost:      res.Match.Boost,
		Candidates: res.Candidates,
	})
}

func (s *Server) handleListSubjects(_ context.Context, _ *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	counts := s.service.Retriever().Store().Subjects()
	rows := make([]SubjectCount, 0, len(counts))
	for subject, n := range counts {
		rows = append(rows, SubjectCount{Subject: subject, Entries: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Subject < rows[j].Subject })
	return toolJSON(rows)
}

func withRequestID(ctx context.Context, tool string) context.Context {
	id := uuid.NewString()
	logging.LogEvent("request=%s mcp tool=%s", id, tool)
	return logging.WithRequestID(ctx, id)
}

func toolText(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

func toolJSON(v any) (*gomcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("encode result: %v", err), nil
	}
	return toolText(string(data)), nil
}

func toolError(format string, args ...any) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
