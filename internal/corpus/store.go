// Package corpus holds the precomputed passages the ranker scans.
package corpus

import (
	"errors"
	"math"
	"strings"
)

// ErrEmptyPath is returned when a loader is given no file path.
var ErrEmptyPath = errors.New("corpus path is empty")

// Entry is one passage with its precomputed embedding.
type Entry struct {
	Text     string            `json:"text"`
	Vector   []float32         `json:"vector"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Subject returns metadata["subject"], or "" when absent.
func (e Entry) Subject() string {
	return e.Metadata["subject"]
}

// LoadReport summarizes one load. Loaded == Total - Invalid.
type LoadReport struct {
	Source  string `json:"source"`
	Total   int    `json:"total"`
	Loaded  int    `json:"loaded"`
	Invalid int    `json:"invalid"`
}

// Store is an immutable, ordered set of entries. Safe for concurrent reads.
type Store struct {
	entries   []Entry
	dimension int
}

// NewStore keeps the entries of the expected dimension with finite vectors,
// in order, and reports how many were rejected.
func NewStore(entries []Entry, dimension int) (*Store, LoadReport) {
	report := LoadReport{Total: len(entries)}
	kept := make([]Entry, 0, len(entries))
	for i, e := range entries {
		if reason := validate(e, dimension); reason != "" {
			report.Invalid++
			warnf("corpus entry %d skipped: %s", i, reason)
			continue
		}
		kept = append(kept, e)
	}
	report.Loaded = len(kept)
	return &Store{entries: kept, dimension: dimension}, report
}

func validate(e Entry, dimension int) string {
	if len(e.Vector) != dimension {
		return "dimension " + itoa(len(e.Vector)) + ", expected " + itoa(dimension)
	}
	for _, v := range e.Vector {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return "vector has a missing or non-finite component"
		}
	}
	return ""
}

// Len returns the number of loaded entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Dimension is the vector width every entry shares.
func (s *Store) Dimension() int {
	return s.dimension
}

// Entries returns the entries in load order. Callers must not modify them.
func (s *Store) Entries() []Entry {
	if s == nil {
		return nil
	}
	return s.entries
}

// BySubject returns the entries whose subject equals subject, ignoring case.
func (s *Store) BySubject(subject string) []Entry {
	var out []Entry
	for _, e := range s.Entries() {
		if strings.EqualFold(e.Subject(), subject) {
			out = append(out, e)
		}
	}
	return out
}

// Subjects counts entries per subject ("" for entries without one).
func (s *Store) Subjects() map[string]int {
	counts := make(map[string]int)
	for _, e := range s.Entries() {
		counts[e.Subject()]++
	}
	return counts
}
