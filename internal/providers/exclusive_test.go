package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type blockingGenerator struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
}

func (g *blockingGenerator) Generate(ctx context.Context, prompt string, _ int) (string, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		seen := g.maxSeen.Load()
		if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	select {
	case <-time.After(g.delay):
		return "answer to " + prompt, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *blockingGenerator) Health(context.Context) error { return nil }
func (g *blockingGenerator) Close() error                 { return nil }

func TestExclusiveSerializesCalls(t *testing.T) {
	inner := &blockingGenerator{delay: 10 * time.Millisecond}
	gen := NewExclusive(inner, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := gen.Generate(context.Background(), "q", 10); err != nil {
				t.Errorf("Generate() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := inner.maxSeen.Load(); got != 1 {
		t.Fatalf("expected at most one concurrent call, saw %d", got)
	}
}

func TestExclusiveTimeout(t *testing.T) {
	gen := NewExclusive(&blockingGenerator{delay: time.Second}, 20*time.Millisecond)
	_, err := gen.Generate(context.Background(), "q", 10)
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
}

// deadlineGenerator fails the way a provider does when its own request
// timeout fires before the guard's.
type deadlineGenerator struct{}

func (deadlineGenerator) Generate(context.Context, string, int) (string, error) {
	return "", fmt.Errorf("generate request: %w", context.DeadlineExceeded)
}

func (deadlineGenerator) Health(context.Context) error { return nil }
func (deadlineGenerator) Close() error                 { return nil }

func TestExclusiveProviderDeadlineIsTimeout(t *testing.T) {
	gen := NewExclusive(deadlineGenerator{}, time.Second)
	_, err := gen.Generate(context.Background(), "q", 10)
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen = NewExclusive(deadlineGenerator{}, 0)
	if _, err := gen.Generate(ctx, "q", 10); errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("caller cancellation must not be reported as a generation timeout")
	}
}

func TestExclusiveWaiterCancel(t *testing.T) {
	gen := NewExclusive(&blockingGenerator{delay: 200 * time.Millisecond}, time.Second)

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = gen.Generate(context.Background(), "holder", 10)
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := gen.Generate(ctx, "waiter", 10)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected waiter to give up with its own deadline, got %v", err)
	}
	if errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("waiter cancellation must not be reported as a generation timeout")
	}
}
