package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mwiater/gyan/internal/corpus"
	"github.com/mwiater/gyan/internal/embedding"
	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/metrics"
	"github.com/mwiater/gyan/internal/tokenizer"
)

// ErrNoMatch is returned when no corpus entry can be selected.
var ErrNoMatch = errors.New("no relevant corpus entry")

// Timings records how long each retrieval stage took.
type Timings struct {
	Tokenize time.Duration `json:"tokenize"`
	Embed    time.Duration `json:"embed"`
	Rank     time.Duration `json:"rank"`
}

// Result is the retrieval half of a request.
type Result struct {
	Query      string  `json:"query"`
	Subject    string  `json:"subject,omitempty"`
	Tokens     []int32 `json:"-"`
	Match      Match   `json:"match"`
	Context    string  `json:"context"`
	Candidates int     `json:"candidates"`
	Timings    Timings `json:"timings"`
}

// Retriever runs tokenize, embed and rank over read-only state and is safe
// for concurrent use.
type Retriever struct {
	tokenizer     *tokenizer.Tokenizer
	embedder      *embedding.Embedder
	store         *corpus.Store
	ranker        *Ranker
	subjectFilter bool
	metrics       *metrics.Aggregator
}

// NewRetriever wires the retrieval pipeline. When applySubjectFilter is set,
// a non-empty subject restricts ranking to entries with that subject.
func NewRetriever(tok *tokenizer.Tokenizer, emb *embedding.Embedder, store *corpus.Store, ranker *Ranker, applySubjectFilter bool) *Retriever {
	return &Retriever{
		tokenizer:     tok,
		embedder:      emb,
		store:         store,
		ranker:        ranker,
		subjectFilter: applySubjectFilter,
	}
}

// WithMetrics records stage latencies into agg.
func (r *Retriever) WithMetrics(agg *metrics.Aggregator) *Retriever {
	r.metrics = agg
	return r
}

// Store returns the corpus the retriever ranks.
func (r *Retriever) Store() *corpus.Store {
	return r.store
}

// Tokenizer returns the tokenizer used for queries.
func (r *Retriever) Tokenizer() *tokenizer.Tokenizer {
	return r.tokenizer
}

// Embedder returns the query embedder.
func (r *Retriever) Embedder() *embedding.Embedder {
	return r.embedder
}

func (r *Retriever) candidates(subject string) []corpus.Entry {
	if r.subjectFilter && strings.TrimSpace(subject) != "" {
		return r.store.BySubject(strings.TrimSpace(subject))
	}
	return r.store.Entries()
}

// Retrieve selects the best entry for query. It returns ErrNoMatch when the
// candidate set is empty.
func (r *Retriever) Retrieve(ctx context.Context, query, subject string) (Result, error) {
	requestID := logging.RequestID(ctx)
	res := Result{Query: query, Subject: subject}

	start := time.Now()
	res.Tokens = r.tokenizer.Tokenize(query)
	res.Timings.Tokenize = time.Since(start)
	r.observe(requestID, metrics.StageTokenize, res.Timings.Tokenize, nil)

	start = time.Now()
	vec, err := r.embedder.EmbedTokens(ctx, res.Tokens)
	res.Timings.Embed = time.Since(start)
	r.observe(requestID, metrics.StageEmbed, res.Timings.Embed, err)
	if err != nil {
		return res, fmt.Errorf("embed query: %w", err)
	}

	entries := r.candidates(subject)
	res.Candidates = len(entries)

	start = time.Now()
	match, ok := r.ranker.Rank(vec, query, entries)
	res.Timings.Rank = time.Since(start)
	r.observe(requestID, metrics.StageRank, res.Timings.Rank, nil)
	if !ok {
		return res, ErrNoMatch
	}

	res.Match = match
	res.Context = FormatContext(match.Entry.Text)
	logging.LogEvent("request=%s best match score=%.4f cosine=%.4f boost=%.2f candidates=%d",
		requestID, match.Score, match.Cosine, match.Boost, res.Candidates)
	return res, nil
}

func (r *Retriever) observe(requestID, stage string, elapsed time.Duration, err error) {
	logging.LogStage(requestID, stage, elapsed)
	r.metrics.ObserveStage(stage, elapsed, err)
}
