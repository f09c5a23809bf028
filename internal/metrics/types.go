// internal/metrics/types.go
package metrics

import (
	"math"
	"time"
)

// Stage names recorded by the retrieval pipeline.
const (
	StageTokenize = "tokenize"
	StageEmbed    = "embed"
	StageRank     = "rank"
	StageGenerate = "generate"
	StageTotal    = "total"
)

// RunningStat holds the necessary values for online calculation of mean, variance, and stddev.
type RunningStat struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"-"` // Sum of squares of differences from the current mean
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Add folds value into the statistic using Welford's online algorithm.
func (rs *RunningStat) Add(value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}

// StdDev returns the sample standard deviation, or 0 below two samples.
func (rs RunningStat) StdDev() float64 {
	if rs.Count < 2 {
		return 0
	}
	return math.Sqrt(rs.M2 / float64(rs.Count-1))
}

// StageStats is the latency summary of one pipeline stage in milliseconds.
type StageStats struct {
	Stage     string      `json:"stage"`
	Millis    RunningStat `json:"latency_ms"`
	StdDevMs  float64     `json:"stddev_ms"`
	Errors    int64       `json:"errors"`
	LastError string      `json:"last_error,omitempty"`
}

// Snapshot is the document served at /metrics and written on shutdown.
type Snapshot struct {
	StartedUTC     time.Time        `json:"started_utc"`
	LastUpdatedUTC time.Time        `json:"last_updated_utc"`
	Requests       int64            `json:"requests"`
	Outcomes       map[string]int64 `json:"outcomes"`
	Stages         []StageStats     `json:"stages"`
}
