// internal/providers/provider.go

// Package providers defines the answer-generation collaborator and the guard
// that serializes access to it.
package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/mwiater/gyan/internal/appconfig"
)

var (
	// ErrGenerationTimeout is returned when a generation call exceeds its budget.
	// Callers may retry.
	ErrGenerationTimeout = errors.New("generation timed out")
	// ErrUnsupportedHostType is returned for a host type no backend serves.
	ErrUnsupportedHostType = errors.New("unsupported generator host type")
)

// Generator produces an answer for a fully rendered prompt.
type Generator interface {
	// Generate returns at most maxTokens tokens of completion for prompt.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	// Health reports whether the backing host is reachable.
	Health(ctx context.Context) error
	// Close releases any resources held by the generator.
	Close() error
}

// HostIdentifier returns a string identifier for a given host, preferring the name over the URL.
func HostIdentifier(host appconfig.Host, fallback string) string {
	if name := strings.TrimSpace(host.Name); name != "" {
		return name
	}
	if url := strings.TrimSpace(host.URL); url != "" {
		return url
	}
	return fallback
}
