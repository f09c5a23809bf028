// Package server exposes the retrieval service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/metrics"
	"github.com/mwiater/gyan/internal/query"
	"github.com/mwiater/gyan/internal/rag"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 5 * time.Second
	healthTimeout   = 3 * time.Second

	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
)

// ErrResp is the body of every non-2xx response.
type ErrResp struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Answer    string `json:"answer"`
	Outcome   string `json:"outcome"`
	RequestID string `json:"requestId"`
}

// SearchResponse is the body of a successful POST /search.
type SearchResponse struct {
	RequestID  string            `json:"requestId"`
	Found      bool              `json:"found"`
	Answer     string            `json:"answer,omitempty"`
	Text       string            `json:"text,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Index      int               `json:"index"`
	Score      float64           `json:"score"`
	Cosine     float64           `json:"cosine"`
	Boost      float64           `json:"boost"`
	Candidates int               `json:"candidates"`
	Context    string            `json:"context,omitempty"`
	TimingsMs  map[string]int64  `json:"timingsMs"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	OK        bool   `json:"ok"`
	Entries   int    `json:"entries"`
	Embedder  bool   `json:"embedder"`
	Generator string `json:"generator"`
}

// Server serves the HTTP API.
type Server struct {
	service        *rag.Service
	metrics        *metrics.Aggregator
	listenAddr     string
	readHeader     time.Duration
	requestTimeout time.Duration
}

// New builds a Server around service. agg may be nil.
func New(service *rag.Service, agg *metrics.Aggregator, cfg appconfig.Config) *Server {
	return &Server{
		service:        service,
		metrics:        agg,
		listenAddr:     cfg.Server.ListenAddr,
		readHeader:     cfg.ReadHeaderTimeout(),
		requestTimeout: cfg.RequestTimeout(),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /search", s.handleSearch)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.readHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.LogEvent("listening on %s (%d corpus entries)", srv.Addr, s.service.Retriever().Store().Len())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logging.LogEvent("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "gyan retrieval API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	retriever := s.service.Retriever()
	resp := HealthResponse{
		OK:        true,
		Entries:   retriever.Store().Len(),
		Embedder:  retriever.Embedder().Ready(),
		Generator: "not configured",
	}
	if gen := s.service.Generator(); gen != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := gen.Health(ctx); err != nil {
			resp.Generator = "unreachable: " + err.Error()
		} else {
			resp.Generator = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		writeJSON(w, http.StatusNotFound, ErrResp{OK: false, Error: "metrics disabled"})
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx, requestID, cancel := s.requestContext(w, r)
	defer cancel()

	req, err := decodeRequest(w, r, maxBodyBytes)
	if err != nil {
		logging.LogWarning("request=%s rejected /chat body: %v", requestID, err)
		writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: err.Error(), RequestID: requestID})
		return
	}

	reply := s.service.Ask(ctx, req.Query, req.Subject)
	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:    reply.Answer,
		Outcome:   reply.Outcome,
		RequestID: requestID,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, requestID, cancel := s.requestContext(w, r)
	defer cancel()

	req, err := decodeRequest(w, r, maxBodyBytes)
	if err != nil {
		logging.LogWarning("request=%s rejected /search body: %v", requestID, err)
		writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: err.Error(), RequestID: requestID})
		return
	}

	res, err := s.service.Retriever().Retrieve(ctx, req.Query, req.Subject)
	switch {
	case errors.Is(err, rag.ErrNoMatch):
		writeJSON(w, http.StatusOK, SearchResponse{
			RequestID:  requestID,
			Answer:     rag.AnswerNoMatch,
			Candidates: res.Candidates,
			TimingsMs:  timingsMs(res.Timings),
		})
	case err != nil:
		logging.LogEvent("request=%s search failed: %v", requestID, err)
		writeJSON(w, http.StatusInternalServerError, ErrResp{OK: false, Error: rag.AnswerUnavailable, RequestID: requestID})
	default:
		writeJSON(w, http.StatusOK, searchResponse(requestID, res))
	}
}

// requestContext tags the request with an ID, echoing a caller-supplied one.
func (s *Server) requestContext(w http.ResponseWriter, r *http.Request) (context.Context, string, context.CancelFunc) {
	requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)
	logging.LogEvent("request=%s %s %s from %s", requestID, r.Method, r.URL.Path, r.RemoteAddr)

	ctx := logging.WithRequestID(r.Context(), requestID)
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	return ctx, requestID, cancel
}

func searchResponse(requestID string, res rag.Result) SearchResponse {
	return SearchResponse{
		RequestID:  requestID,
		Found:      true,
		Text:       res.Match.Entry.Text,
		Metadata:   res.Match.Entry.Metadata,
		Index:      res.Match.Index,
		Score:      res.Match.Score,
		Cosine:     res.Match.Cosine,
		Boost:      res.Match.Boost,
		Candidates: res.Candidates,
		Context:    res.Context,
		TimingsMs:  timingsMs(res.Timings),
	}
}

func timingsMs(t rag.Timings) map[string]int64 {
	return map[string]int64{
		metrics.StageTokenize: t.Tokenize.Milliseconds(),
		metrics.StageEmbed:    t.Embed.Milliseconds(),
		metrics.StageRank:     t.Rank.Milliseconds(),
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (query.Request, error) {
	if r.Body == nil {
		return query.Request{}, query.ErrEmptyRequest
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return query.Request{}, fmt.Errorf("read body: %w", err)
	}
	return query.Decode(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
