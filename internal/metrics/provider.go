// internal/metrics/provider.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/gyan/internal/providers"
)

// Generator is a decorator that wraps a providers.Generator to record generation latency.
type Generator struct {
	wrapped    providers.Generator
	aggregator *Aggregator
}

var _ providers.Generator = (*Generator)(nil)

// NewGenerator creates a new metrics-enabled generator that wraps an existing one.
func NewGenerator(wrapped providers.Generator, aggregator *Aggregator) *Generator {
	return &Generator{wrapped: wrapped, aggregator: aggregator}
}

// Generate times the wrapped call under StageGenerate.
func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	out, err := g.wrapped.Generate(ctx, prompt, maxTokens)
	g.aggregator.ObserveStage(StageGenerate, time.Since(start), err)
	return out, err
}

// Health passes the call through to the wrapped generator.
func (g *Generator) Health(ctx context.Context) error {
	return g.wrapped.Health(ctx)
}

// Close passes the call through to the wrapped generator.
func (g *Generator) Close() error {
	return g.wrapped.Close()
}
