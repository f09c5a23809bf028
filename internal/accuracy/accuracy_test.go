package accuracy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mwiater/gyan/internal/corpus"
	"github.com/mwiater/gyan/internal/rag"
)

type stubRetriever struct {
	matches map[string]rag.Match
	errs    map[string]error
	seen    []string
}

func (s *stubRetriever) Retrieve(ctx context.Context, query, subject string) (rag.Result, error) {
	s.seen = append(s.seen, query+"|"+subject)
	if err, ok := s.errs[query]; ok {
		return rag.Result{Query: query}, err
	}
	m, ok := s.matches[query]
	if !ok {
		return rag.Result{Query: query}, rag.ErrNoMatch
	}
	return rag.Result{Query: query, Subject: subject, Match: m, Candidates: 3}, nil
}

func entry(text, subject string) corpus.Entry {
	return corpus.Entry{Text: text, Metadata: map[string]string{"subject": subject}}
}

func TestMatchesExpected(t *testing.T) {
	m := rag.Match{Entry: entry("Gravity pulls objects together.", "Science")}

	tests := []struct {
		name string
		test QueryTest
		want bool
	}{
		{name: "no expectations", test: QueryTest{}, want: true},
		{name: "text case-insensitive", test: QueryTest{ExpectedText: "GRAVITY"}, want: true},
		{name: "text missing", test: QueryTest{ExpectedText: "babur"}, want: false},
		{name: "subject match", test: QueryTest{ExpectedSubject: "science"}, want: true},
		{name: "subject mismatch", test: QueryTest{ExpectedSubject: "History"}, want: false},
		{name: "both must hold", test: QueryTest{ExpectedText: "gravity", ExpectedSubject: "History"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesExpected(tt.test, m); got != tt.want {
				t.Fatalf("matchesExpected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRun(t *testing.T) {
	stub := &stubRetriever{
		matches: map[string]rag.Match{
			"What is Gravity?":   {Entry: entry("Gravity pulls objects together.", "Science"), Index: 0, Score: 0.91, Cosine: 0.86, Boost: 0.05},
			"Who was the first?":    {Entry: entry("The circle area is pi r squared.", "Maths"), Index: 2, Score: 0.4},
		},
		errs: map[string]error{
			"slow": context.DeadlineExceeded,
		},
	}
	suite := QuerySuite{
		Name: "School Subjects: v1",
		Tests: []QueryTest{
			{ID: 1, Query: "What is Gravity?", Subject: "Science", ExpectedText: "gravity", Category: "science"},
			{ID: 2, Query: "Who was the first?", ExpectedSubject: "History", Category: "history"},
			{ID: 3, Query: "nothing here", Category: "history"},
			{ID: 4, Query: "slow", Category: "science"},
		},
	}

	dir := t.TempDir()
	var out bytes.Buffer
	summary, err := Run(context.Background(), stub, suite, Options{ResultsDir: dir, Timeout: time.Second, Out: &out})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Total != 4 || summary.Found != 2 || summary.Correct != 1 || summary.Errors != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := summary.Categories["science"]; got.Total != 2 || got.Correct != 1 {
		t.Fatalf("science category = %+v", got)
	}
	if got := summary.Categories["history"]; got.Total != 2 || got.Correct != 0 {
		t.Fatalf("history category = %+v", got)
	}
	if got := summary.Accuracy(); got != 0.25 {
		t.Fatalf("Accuracy() = %v, want 0.25", got)
	}
	if stub.seen[0] != "What is Gravity?|Science" {
		t.Fatalf("subject not forwarded: %v", stub.seen)
	}
	if !strings.Contains(out.String(), "[1/4] What is Gravity?") {
		t.Fatalf("missing progress line: %q", out.String())
	}

	path := filepath.Join(dir, "school-subjects_-v1.jsonl")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	defer f.Close()

	var results []Result
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r Result
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("decode result line: %v", err)
		}
		results = append(results, r)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 result lines, got %d", len(results))
	}
	if !results[0].Correct || results[0].MatchedSubject != "Science" || results[0].Candidates != 3 {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[2].Found || results[2].MatchedIndex != -1 {
		t.Fatalf("no-match result should not be found: %+v", results[2])
	}
	if !results[3].DeadlineExceeded || results[3].Error == "" {
		t.Fatalf("expected deadline result: %+v", results[3])
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite := QuerySuite{Tests: []QueryTest{{ID: 1, Query: "q"}}}
	_, err := Run(ctx, &stubRetriever{}, suite, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoadSuite(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "basics.json")
	if err := os.WriteFile(good, []byte(`{"tests":[{"id":1,"query":"What is Gravity?","expected_subject":"Science"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	suite, err := LoadSuite(good)
	if err != nil {
		t.Fatalf("LoadSuite() error = %v", err)
	}
	if suite.Name != "basics" || len(suite.Tests) != 1 || suite.Tests[0].ExpectedSubject != "Science" {
		t.Fatalf("unexpected suite: %+v", suite)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"tests":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSuite(empty); err == nil {
		t.Fatal("expected error for empty suite")
	}

	blank := filepath.Join(dir, "blank.json")
	if err := os.WriteFile(blank, []byte(`{"tests":[{"id":7,"query":"  "}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSuite(blank); err == nil || !strings.Contains(err.Error(), "test 7") {
		t.Fatalf("expected blank query error, got %v", err)
	}

	if _, err := LoadSuite(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBundledSuiteLoads(t *testing.T) {
	suite, err := LoadSuite("accuracy_queries.json")
	if err != nil {
		t.Fatalf("LoadSuite() error = %v", err)
	}
	if suite.Name != "school-subjects" || len(suite.Tests) == 0 {
		t.Fatalf("unexpected bundled suite: %+v", suite)
	}
}

func TestIsDeadlineExceeded(t *testing.T) {
	if isDeadlineExceeded(nil) {
		t.Fatal("nil should not be a deadline error")
	}
	if !isDeadlineExceeded(errors.New("Post: context deadline exceeded")) {
		t.Fatal("expected string match")
	}
	if !isDeadlineExceeded(context.DeadlineExceeded) {
		t.Fatal("expected errors.Is match")
	}
}
