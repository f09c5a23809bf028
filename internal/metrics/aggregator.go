// internal/metrics/aggregator.go
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mwiater/gyan/internal/logging"
)

// Aggregator collects per-stage latency statistics for the retrieval pipeline.
type Aggregator struct {
	mutex    sync.Mutex
	started  time.Time
	updated  time.Time
	requests int64
	outcomes map[string]int64
	stages   map[string]*StageStats
	filePath string
}

// NewAggregator creates an Aggregator that persists to filePath on Save.
// An empty filePath keeps the statistics in memory only.
func NewAggregator(filePath string) *Aggregator {
	now := time.Now().UTC()
	return &Aggregator{
		started:  now,
		updated:  now,
		outcomes: make(map[string]int64),
		stages:   make(map[string]*StageStats),
		filePath: filePath,
	}
}

// ObserveStage records one run of stage. A non-nil err counts as a failure.
func (a *Aggregator) ObserveStage(stage string, elapsed time.Duration, err error) {
	if a == nil {
		return
	}
	a.mutex.Lock()
	defer a.mutex.Unlock()

	stats, ok := a.stages[stage]
	if !ok {
		stats = &StageStats{Stage: stage}
		a.stages[stage] = stats
	}
	stats.Millis.Add(float64(elapsed) / float64(time.Millisecond))
	if err != nil {
		stats.Errors++
		stats.LastError = err.Error()
	}
	a.updated = time.Now().UTC()
}

// ObserveRequest counts one finished request under outcome.
func (a *Aggregator) ObserveRequest(outcome string) {
	if a == nil {
		return
	}
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.requests++
	a.outcomes[outcome]++
	a.updated = time.Now().UTC()
}

// Snapshot returns a copy of the current statistics, stages sorted by name.
func (a *Aggregator) Snapshot() Snapshot {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	snap := Snapshot{
		StartedUTC:     a.started,
		LastUpdatedUTC: a.updated,
		Requests:       a.requests,
		Outcomes:       make(map[string]int64, len(a.outcomes)),
		Stages:         make([]StageStats, 0, len(a.stages)),
	}
	for k, v := range a.outcomes {
		snap.Outcomes[k] = v
	}
	for _, s := range a.stages {
		copied := *s
		copied.StdDevMs = s.Millis.StdDev()
		snap.Stages = append(snap.Stages, copied)
	}
	sort.Slice(snap.Stages, func(i, j int) bool {
		return snap.Stages[i].Stage < snap.Stages[j].Stage
	})
	return snap
}

// Save writes the snapshot to the aggregator's file as indented JSON.
func (a *Aggregator) Save() error {
	if a == nil || a.filePath == "" {
		return nil
	}
	logging.LogEvent("[METRICS] Saving metrics to %s", a.filePath)

	data, err := json.MarshalIndent(a.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	if dir := filepath.Dir(a.filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	return os.WriteFile(a.filePath, data, 0o644)
}

// Close saves the metrics.
func (a *Aggregator) Close() error {
	return a.Save()
}
