// Package rag retrieves the best corpus passage for a query and turns it into
// a grounded answer.
package rag

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/corpus"
	"github.com/mwiater/gyan/internal/tokenizer"
)

// noMatchFloor is the running best before the scan starts. An entry must
// score strictly above it to be selected.
const noMatchFloor = -1.0

// Match is the selected entry with its score split into its two parts.
type Match struct {
	Entry  corpus.Entry `json:"entry"`
	Index  int          `json:"index"`
	Score  float64      `json:"score"`
	Cosine float64      `json:"cosine"`
	Boost  float64      `json:"boost"`
}

// Ranker scores entries by cosine similarity plus a keyword boost.
type Ranker struct {
	keywordBoost  float64
	minWordLength int
	stopwords     map[string]struct{}
}

// NewRanker builds a Ranker from retrieval settings. Zero values fall back to
// the defaults.
func NewRanker(cfg appconfig.RetrievalConfig) *Ranker {
	def := appconfig.Default().Retrieval
	if cfg.KeywordBoost == 0 {
		cfg.KeywordBoost = def.KeywordBoost
	}
	if cfg.MinWordLength <= 0 {
		cfg.MinWordLength = def.MinWordLength
	}
	if cfg.Stopwords == nil {
		cfg.Stopwords = def.Stopwords
	}
	stop := make(map[string]struct{}, len(cfg.Stopwords))
	for _, w := range cfg.Stopwords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Ranker{
		keywordBoost:  cfg.KeywordBoost,
		minWordLength: cfg.MinWordLength,
		stopwords:     stop,
	}
}

// ImportantWords splits the lowercased query on whitespace and keeps words
// longer than the minimum length that are not stopwords. Punctuation is kept
// and repeated words stay repeated.
func (r *Ranker) ImportantWords(query string) []string {
	var words []string
	for _, w := range strings.FieldsFunc(strings.ToLower(query), tokenizer.IsSpace) {
		if utf8.RuneCountInString(w) <= r.minWordLength {
			continue
		}
		if _, stop := r.stopwords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}

// Boost adds the keyword increment once per important word found in text.
func (r *Ranker) Boost(words []string, text string) float64 {
	lower := strings.ToLower(text)
	boost := 0.0
	for _, w := range words {
		if strings.Contains(lower, w) {
			boost += r.keywordBoost
		}
	}
	return boost
}

// Rank scans entries in order and returns the first entry with the highest
// score. ok is false when entries is empty or nothing beats the floor.
func (r *Ranker) Rank(queryVec []float32, queryText string, entries []corpus.Entry) (Match, bool) {
	words := r.ImportantWords(queryText)
	queryNorm := vectorNorm(queryVec)

	best := Match{Score: noMatchFloor, Index: -1}
	for i, entry := range entries {
		cosine := cosineSimilarity(queryVec, entry.Vector, queryNorm)
		boost := r.Boost(words, entry.Text)
		score := cosine + boost
		if score > best.Score {
			best = Match{Entry: entry, Index: i, Score: score, Cosine: cosine, Boost: boost}
		}
	}
	return best, best.Index >= 0
}

// CosineSimilarity returns dot(a,b)/(|a||b|). A zero norm, a length mismatch
// or a NaN result yields 0.
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b, vectorNorm(a))
}

func cosineSimilarity(a, b []float32, normA float64) float64 {
	if normA == 0 || len(a) != len(b) {
		return 0
	}
	normB := vectorNorm(b)
	if normB == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	sim := dot / (normA * normB)
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

func vectorNorm(v []float32) float64 {
	sum := 0.0
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}
