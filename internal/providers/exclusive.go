package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Exclusive admits one Generate call at a time to the wrapped generator.
// Waiters leave the queue when their context ends, and each admitted call is
// bounded by timeout.
type Exclusive struct {
	next    Generator
	slot    chan struct{}
	timeout time.Duration
}

var _ Generator = (*Exclusive)(nil)

// NewExclusive guards next. A timeout <= 0 leaves calls bounded only by the
// caller's context.
func NewExclusive(next Generator, timeout time.Duration) *Exclusive {
	return &Exclusive{
		next:    next,
		slot:    make(chan struct{}, 1),
		timeout: timeout,
	}
}

func (e *Exclusive) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-e.slot }()

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	out, err := e.next.Generate(callCtx, prompt, maxTokens)
	if err != nil {
		// A deadline inside the provider (its HTTP client or request timeout)
		// counts as a generation timeout too, unless the caller's own
		// context is what ended.
		if ctx.Err() == nil {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w after %s", ErrGenerationTimeout, e.timeout)
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %w", ErrGenerationTimeout, err)
			}
		}
		return "", err
	}
	return out, nil
}

func (e *Exclusive) Health(ctx context.Context) error {
	return e.next.Health(ctx)
}

func (e *Exclusive) Close() error {
	return e.next.Close()
}
