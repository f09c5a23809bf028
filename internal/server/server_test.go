package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/corpus"
	"github.com/mwiater/gyan/internal/embedding"
	"github.com/mwiater/gyan/internal/metrics"
	"github.com/mwiater/gyan/internal/providers"
	"github.com/mwiater/gyan/internal/rag"
	"github.com/mwiater/gyan/internal/tokenizer"
)

const testDim = 4

type stubGraph struct{}

func (stubGraph) Run(context.Context, embedding.Inputs) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

func (stubGraph) Close() error { return nil }

type stubGenerator struct {
	answer    string
	healthErr error
}

func (g stubGenerator) Generate(context.Context, string, int) (string, error) {
	return g.answer, nil
}

func (g stubGenerator) Health(context.Context) error { return g.healthErr }
func (g stubGenerator) Close() error                 { return nil }

func newTestServer(t *testing.T, entries []corpus.Entry, gen providers.Generator, agg *metrics.Aggregator) *Server {
	t.Helper()
	dict := tokenizer.NewDictionary(map[string][]int32{"gravity": {7000}})
	store, _ := corpus.NewStore(entries, testDim)
	retriever := rag.NewRetriever(
		tokenizer.New(dict),
		embedding.New(stubGraph{}, testDim),
		store,
		rag.NewRanker(appconfig.Default().Retrieval),
		false,
	).WithMetrics(agg)
	cfg := appconfig.Default()
	service := rag.NewService(retriever, gen, cfg.Generator).WithMetrics(agg)
	return New(service, agg, cfg)
}

func gravityCorpus() []corpus.Entry {
	return []corpus.Entry{
		{Text: "Rivers flow to the sea.", Vector: []float32{0, 1, 0, 0}, Metadata: map[string]string{"subject": "Geography"}},
		{Text: "Gravity pulls objects together.", Vector: []float32{1, 0, 0, 0}, Metadata: map[string]string{"subject": "Science"}},
	}
}

func post(t *testing.T, h http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	agg := metrics.NewAggregator("")
	srv := newTestServer(t, gravityCorpus(), stubGenerator{answer: "Gravity attracts masses."}, agg)

	rec := post(t, srv.Handler(), "/chat", `{"query":"What is Gravity?","subject":"Science"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "Gravity attracts masses." || resp.Outcome != rag.OutcomeAnswered {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.RequestID == "" || rec.Header().Get(RequestIDHeader) != resp.RequestID {
		t.Fatalf("request id mismatch: body %q header %q", resp.RequestID, rec.Header().Get(RequestIDHeader))
	}
	if snap := agg.Snapshot(); snap.Requests != 1 || snap.Outcomes[rag.OutcomeAnswered] != 1 {
		t.Fatalf("metrics not recorded: %+v", snap)
	}
}

func TestChatEchoesRequestID(t *testing.T) {
	srv := newTestServer(t, gravityCorpus(), stubGenerator{answer: "ok"}, nil)
	rec := post(t, srv.Handler(), "/chat", `{"query":"gravity"}`, map[string]string{RequestIDHeader: "abc-123"})

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RequestID != "abc-123" {
		t.Fatalf("requestId = %q, want abc-123", resp.RequestID)
	}
}

func TestChatSentinelsAreOK(t *testing.T) {
	tests := []struct {
		name    string
		entries []corpus.Entry
		gen     providers.Generator
		want    string
	}{
		{name: "no generator", entries: gravityCorpus(), gen: nil, want: rag.AnswerModelNotLoaded},
		{name: "empty corpus", entries: nil, gen: stubGenerator{answer: "unused"}, want: rag.AnswerNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.entries, tt.gen, nil)
			rec := post(t, srv.Handler(), "/chat", `{"query":"What is Gravity?"}`, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var resp ChatResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Answer != tt.want {
				t.Fatalf("answer = %q, want %q", resp.Answer, tt.want)
			}
		})
	}
}

func TestChatRejectsInvalidBody(t *testing.T) {
	srv := newTestServer(t, gravityCorpus(), stubGenerator{answer: "ok"}, nil)
	for _, body := range []string{``, `{}`, `{"query":""}`, `{"query":"q","extra":1}`, `not json`} {
		rec := post(t, srv.Handler(), "/chat", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
		var resp ErrResp
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("body %q: decode: %v", body, err)
		}
		if resp.OK || resp.Error == "" {
			t.Fatalf("body %q: unexpected error body %+v", body, resp)
		}
	}
}

func TestChatMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, gravityCorpus(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t, gravityCorpus(), nil, nil)
	rec := post(t, srv.Handler(), "/search", `{"query":"what is gravity"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Found || resp.Index != 1 || resp.Text != "Gravity pulls objects together." {
		t.Fatalf("unexpected match %+v", resp)
	}
	if resp.Boost != 0.05 || resp.Score < 1.0 {
		t.Fatalf("score = %v boost = %v", resp.Score, resp.Boost)
	}
	if resp.Metadata["subject"] != "Science" || resp.Candidates != 2 {
		t.Fatalf("unexpected metadata %+v candidates %d", resp.Metadata, resp.Candidates)
	}
	if !strings.HasPrefix(resp.Context, "Context:\n") {
		t.Fatalf("context = %q", resp.Context)
	}
}

func TestSearchNoMatch(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	rec := post(t, srv.Handler(), "/search", `{"query":"gravity"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Found || resp.Answer != rag.AnswerNoMatch {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name string
		gen  providers.Generator
		want string
	}{
		{name: "no generator", gen: nil, want: "not configured"},
		{name: "healthy", gen: stubGenerator{}, want: "ok"},
		{name: "down", gen: stubGenerator{healthErr: errors.New("connection refused")}, want: "unreachable: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, gravityCorpus(), tt.gen, nil)
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !resp.OK || resp.Entries != 2 || !resp.Embedder || resp.Generator != tt.want {
				t.Fatalf("unexpected health %+v", resp)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, gravityCorpus(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("disabled metrics status = %d, want 404", rec.Code)
	}

	agg := metrics.NewAggregator("")
	srv = newTestServer(t, gravityCorpus(), stubGenerator{answer: "ok"}, agg)
	post(t, srv.Handler(), "/chat", `{"query":"gravity"}`, nil)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap metrics.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Requests != 1 || len(snap.Stages) == 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestUnknownPath(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListenAndServeShutsDown(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	srv.listenAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
