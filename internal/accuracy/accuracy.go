// internal/accuracy/accuracy.go
// Package accuracy replays a suite of known questions through retrieval and
// scores whether the expected passage wins.
package accuracy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/rag"
	"github.com/mwiater/gyan/internal/util"
)

const (
	// DefaultSuitePath is the bundled question suite.
	DefaultSuitePath = "internal/accuracy/accuracy_queries.json"
	// DefaultResultsDir receives one JSONL file per suite.
	DefaultResultsDir = "reports/accuracy"
)

// Retriever is the part of rag.Retriever a suite run needs.
type Retriever interface {
	Retrieve(ctx context.Context, query, subject string) (rag.Result, error)
}

// Options controls a suite run.
type Options struct {
	// ResultsDir receives <suite>.jsonl; empty disables result files.
	ResultsDir string
	// Timeout bounds each query; zero means no per-query limit.
	Timeout time.Duration
	// Out receives one progress line per query; nil discards them.
	Out io.Writer
}

// Run executes every test in suite, in order, and summarizes the outcome.
// Per-query failures are recorded in the results, not returned.
func Run(ctx context.Context, retriever Retriever, suite QuerySuite, opts Options) (Summary, error) {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	var resultsPath string
	if opts.ResultsDir != "" {
		if err := os.MkdirAll(opts.ResultsDir, 0o755); err != nil {
			return Summary{}, fmt.Errorf("error creating results directory: %w", err)
		}
		resultsPath = filepath.Join(opts.ResultsDir, util.Slugify(suiteName(suite))+".jsonl")
	}

	summary := Summary{Categories: make(map[string]CategorySummary)}
	total := len(suite.Tests)
	for i, t := range suite.Tests {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		iteration := i + 1
		result := runTest(ctx, retriever, t, opts.Timeout)

		summary.Total++
		if result.Found {
			summary.Found++
		}
		if result.Correct {
			summary.Correct++
		}
		if result.Error != "" {
			summary.Errors++
		}
		cat := summary.Categories[t.Category]
		cat.Total++
		if result.Correct {
			cat.Correct++
		}
		summary.Categories[t.Category] = cat

		fmt.Fprintf(out, "[%d/%d] %s - Result: correct=%t score=%.4f subject=%q\n",
			iteration, total, t.Query, result.Correct, result.Score, result.MatchedSubject)

		if resultsPath != "" {
			if err := appendResult(resultsPath, result); err != nil {
				logging.LogWarning("error writing accuracy result %d: %v", t.ID, err)
			}
		}
	}
	return summary, nil
}

func runTest(ctx context.Context, retriever Retriever, t QueryTest, timeout time.Duration) Result {
	result := Result{
		Timestamp:       time.Now().Format(time.RFC3339),
		TestID:          t.ID,
		Query:           t.Query,
		Subject:         t.Subject,
		Category:        t.Category,
		ExpectedSubject: t.ExpectedSubject,
		ExpectedText:    t.ExpectedText,
		MatchedIndex:    -1,
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := retriever.Retrieve(ctx, t.Query, t.Subject)
	result.RetrievalMs = time.Since(start).Milliseconds()
	result.Candidates = res.Candidates

	switch {
	case errors.Is(err, rag.ErrNoMatch):
		return result
	case err != nil:
		result.Error = err.Error()
		result.DeadlineExceeded = isDeadlineExceeded(err)
		return result
	}

	m := res.Match
	result.Found = true
	result.MatchedIndex = m.Index
	result.MatchedSubject = m.Entry.Subject()
	result.MatchedText = m.Entry.Text
	result.Score = m.Score
	result.Cosine = m.Cosine
	result.Boost = m.Boost
	result.Correct = matchesExpected(t, m)
	return result
}

// matchesExpected applies every expectation the test sets.
func matchesExpected(t QueryTest, m rag.Match) bool {
	if want := strings.TrimSpace(t.ExpectedText); want != "" {
		if !strings.Contains(strings.ToLower(m.Entry.Text), strings.ToLower(want)) {
			return false
		}
	}
	if want := strings.TrimSpace(t.ExpectedSubject); want != "" {
		if !strings.EqualFold(m.Entry.Subject(), want) {
			return false
		}
	}
	return true
}

// LoadSuite reads and checks a suite file.
func LoadSuite(path string) (QuerySuite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return QuerySuite{}, fmt.Errorf("error reading query suite: %w", err)
	}

	var suite QuerySuite
	if err := json.Unmarshal(raw, &suite); err != nil {
		return QuerySuite{}, fmt.Errorf("error parsing query suite: %w", err)
	}

	if len(suite.Tests) == 0 {
		return QuerySuite{}, fmt.Errorf("query suite contains no tests")
	}
	for _, t := range suite.Tests {
		if strings.TrimSpace(t.Query) == "" {
			return QuerySuite{}, fmt.Errorf("query suite test %d has an empty query", t.ID)
		}
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return suite, nil
}

func suiteName(suite QuerySuite) string {
	if strings.TrimSpace(suite.Name) == "" {
		return "accuracy"
	}
	return suite.Name
}

func appendResult(path string, result Result) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("error opening results file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(result); err != nil {
		return fmt.Errorf("error writing results: %w", err)
	}
	return nil
}

func isDeadlineExceeded(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "context deadline exceeded")
}
