package benchmark

import "time"

// IterationStats holds the stage timings of one request.
type IterationStats struct {
	TotalExecutionTime time.Duration `json:"totalExecutionTime"`
	TokenizeTime       time.Duration `json:"tokenizeTime"`
	EmbedTime          time.Duration `json:"embedTime"`
	RankTime           time.Duration `json:"rankTime"`
	GenerateTime       time.Duration `json:"generateTime"`
}

// IterationResult is one timed request.
type IterationResult struct {
	Iteration int            `json:"iteration"`
	Outcome   string         `json:"outcome"`
	Stats     IterationStats `json:"stats"`
}

// BenchmarkResult holds every iteration of a run plus its aggregates.
type BenchmarkResult struct {
	Query          string            `json:"query"`
	Subject        string            `json:"subject,omitempty"`
	BenchmarkCount int               `json:"benchmarkCount"`
	Concurrency    int               `json:"concurrency"`
	WallTime       time.Duration     `json:"wallTime"`
	Outcomes       map[string]int    `json:"outcomes"`
	Iterations     []IterationResult `json:"iterations"`
	AverageStats   IterationStats    `json:"averageStats"`
	MinStats       IterationStats    `json:"minStats"`
	MaxStats       IterationStats    `json:"maxStats"`
}
