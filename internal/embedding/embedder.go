// Package embedding produces sentence vectors from token sequences.
package embedding

import (
	"context"
	"fmt"

	"github.com/mwiater/gyan/internal/tokenizer"
)

// Inputs are the three arrays fed to the model for one sequence.
type Inputs struct {
	IDs     []int32
	Mask    []int32
	Segment []int32
}

// ForRole returns the array for role.
func (in Inputs) ForRole(role Role) []int32 {
	switch role {
	case RoleMask:
		return in.Mask
	case RoleSegment:
		return in.Segment
	default:
		return in.IDs
	}
}

// Graph is a loaded inference graph. Implementations must allow concurrent Run calls.
type Graph interface {
	Run(ctx context.Context, in Inputs) ([]float32, error)
	Close() error
}

// Embedder turns token sequences into fixed-width vectors. A nil graph puts
// it in degraded mode where every vector is zero.
type Embedder struct {
	graph     Graph
	dimension int
}

func New(graph Graph, dimension int) *Embedder {
	return &Embedder{graph: graph, dimension: dimension}
}

// Ready reports whether a graph is loaded.
func (e *Embedder) Ready() bool {
	return e != nil && e.graph != nil
}

// Dimension is the width of every vector e returns.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// BuildInputs derives the attention mask (1 where id != 0) and an all-zero
// segment array from tokens.
func BuildInputs(tokens []int32) Inputs {
	mask := make([]int32, len(tokens))
	for i, id := range tokens {
		if id != tokenizer.PadID {
			mask[i] = 1
		}
	}
	return Inputs{
		IDs:     append([]int32(nil), tokens...),
		Mask:    mask,
		Segment: make([]int32, len(tokens)),
	}
}

// EmbedTokens runs the graph once over tokens.
func (e *Embedder) EmbedTokens(ctx context.Context, tokens []int32) ([]float32, error) {
	if !e.Ready() {
		return make([]float32, e.dimension), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec, err := e.graph.Run(ctx, BuildInputs(tokens))
	if err != nil {
		return nil, fmt.Errorf("run inference graph: %w", err)
	}
	if len(vec) != e.dimension {
		return nil, fmt.Errorf("inference graph returned %d values, expected %d", len(vec), e.dimension)
	}
	return vec, nil
}

// Close releases the graph.
func (e *Embedder) Close() error {
	if !e.Ready() {
		return nil
	}
	return e.graph.Close()
}
