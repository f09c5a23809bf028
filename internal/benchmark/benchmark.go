// Package benchmark times repeated requests through the answering pipeline.
package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/rag"
	"github.com/mwiater/gyan/internal/util"
)

// DefaultResultsDir receives one JSON file per run.
const DefaultResultsDir = "reports/benchmarks"

// Asker answers a single query; *rag.Service satisfies it.
type Asker interface {
	Ask(ctx context.Context, query, subject string) rag.Reply
}

// Options controls a benchmark run.
type Options struct {
	Query       string
	Subject     string
	Iterations  int
	Concurrency int
}

// Run sends opts.Iterations requests through asker from opts.Concurrency
// workers and aggregates the stage timings.
func Run(ctx context.Context, asker Asker, opts Options) (*BenchmarkResult, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, fmt.Errorf("benchmark query is required")
	}
	if opts.Iterations <= 0 {
		return nil, fmt.Errorf("benchmark iterations must be positive, got %d", opts.Iterations)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Concurrency > opts.Iterations {
		opts.Concurrency = opts.Iterations
	}

	logging.LogEvent("Running benchmark: query=%q iterations=%d concurrency=%d", opts.Query, opts.Iterations, opts.Concurrency)

	result := &BenchmarkResult{
		Query:          opts.Query,
		Subject:        opts.Subject,
		BenchmarkCount: opts.Iterations,
		Concurrency:    opts.Concurrency,
		Outcomes:       make(map[string]int),
		Iterations:     make([]IterationResult, 0, opts.Iterations),
	}

	jobs := make(chan int)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	start := time.Now()
	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				iter := runIteration(ctx, asker, opts, i)
				mu.Lock()
				result.Iterations = append(result.Iterations, iter)
				result.Outcomes[iter.Outcome]++
				mu.Unlock()
				logging.LogDebug("Iteration %d complete: outcome=%s total=%s", i, iter.Outcome, iter.Stats.TotalExecutionTime)
			}
		}()
	}

feed:
	for i := 1; i <= opts.Iterations; i++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	result.WallTime = time.Since(start)

	sort.Slice(result.Iterations, func(a, b int) bool {
		return result.Iterations[a].Iteration < result.Iterations[b].Iteration
	})
	calculateAggregates(result)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func runIteration(ctx context.Context, asker Asker, opts Options, iteration int) IterationResult {
	start := time.Now()
	reply := asker.Ask(ctx, opts.Query, opts.Subject)
	total := time.Since(start)

	stats := IterationStats{TotalExecutionTime: total}
	if reply.Result != nil {
		t := reply.Result.Timings
		stats.TokenizeTime = t.Tokenize
		stats.EmbedTime = t.Embed
		stats.RankTime = t.Rank
		if reply.Outcome == rag.OutcomeAnswered || reply.Outcome == rag.OutcomeGenerateFailed {
			stats.GenerateTime = max(total-t.Tokenize-t.Embed-t.Rank, 0)
		}
	}
	return IterationResult{Iteration: iteration, Outcome: reply.Outcome, Stats: stats}
}

// calculateAggregates calculates the average, min, and max statistics for a benchmark result.
func calculateAggregates(result *BenchmarkResult) {
	if len(result.Iterations) == 0 {
		return
	}

	result.MinStats = result.Iterations[0].Stats
	result.MaxStats = result.Iterations[0].Stats

	var sum IterationStats
	for _, iter := range result.Iterations {
		s := iter.Stats
		sum.TotalExecutionTime += s.TotalExecutionTime
		sum.TokenizeTime += s.TokenizeTime
		sum.EmbedTime += s.EmbedTime
		sum.RankTime += s.RankTime
		sum.GenerateTime += s.GenerateTime

		result.MinStats.TotalExecutionTime = min(result.MinStats.TotalExecutionTime, s.TotalExecutionTime)
		result.MinStats.TokenizeTime = min(result.MinStats.TokenizeTime, s.TokenizeTime)
		result.MinStats.EmbedTime = min(result.MinStats.EmbedTime, s.EmbedTime)
		result.MinStats.RankTime = min(result.MinStats.RankTime, s.RankTime)
		result.MinStats.GenerateTime = min(result.MinStats.GenerateTime, s.GenerateTime)

		result.MaxStats.TotalExecutionTime = max(result.MaxStats.TotalExecutionTime, s.TotalExecutionTime)
		result.MaxStats.TokenizeTime = max(result.MaxStats.TokenizeTime, s.TokenizeTime)
		result.MaxStats.EmbedTime = max(result.MaxStats.EmbedTime, s.EmbedTime)
		result.MaxStats.RankTime = max(result.MaxStats.RankTime, s.RankTime)
		result.MaxStats.GenerateTime = max(result.MaxStats.GenerateTime, s.GenerateTime)
	}

	count := time.Duration(len(result.Iterations))
	result.AverageStats = IterationStats{
		TotalExecutionTime: sum.TotalExecutionTime / count,
		TokenizeTime:       sum.TokenizeTime / count,
		EmbedTime:          sum.EmbedTime / count,
		RankTime:           sum.RankTime / count,
		GenerateTime:       sum.GenerateTime / count,
	}
}

// WriteResults writes result as indented JSON under dir and returns the file path.
func WriteResults(dir string, result *BenchmarkResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating results directory: %w", err)
	}
	fileName := filepath.Join(dir, fmt.Sprintf("%s-%d.json", util.Slugify(result.Query), result.BenchmarkCount))

	file, err := os.Create(fileName)
	if err != nil {
		return "", fmt.Errorf("error creating result file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return "", fmt.Errorf("error writing results to file: %w", err)
	}

	logging.LogEvent("Benchmark results written to %s", fileName)
	return fileName, nil
}
