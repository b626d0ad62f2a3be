package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/antigravity/decision-support/memory/embedder/cache"
)

// countingEmbedder tracks how many times the backend was hit.
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return []float32{1, 0, 0}, nil
}

func (c *countingEmbedder) Dimensions() int { return 3 }

func (c *countingEmbedder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestCache_RepeatTextSkipsBackend(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := cache.New(inner, 100)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cached.Close()

	ctx := context.Background()
	if _, err := cached.Embed(ctx, "aftershocks near the harbor"); err != nil {
		t.Fatalf("Failed to embed: %v", err)
	}

	// Ristretto admits entries asynchronously.
	time.Sleep(100 * time.Millisecond)

	if _, err := cached.Embed(ctx, "aftershocks near the harbor"); err != nil {
		t.Fatalf("Failed to embed: %v", err)
	}
	if inner.count() != 1 {
		t.Errorf("Expected 1 backend call, got %d", inner.count())
	}
}

func TestCache_WhitespaceVariantsShareEntry(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := cache.New(inner, 100)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cached.Close()

	ctx := context.Background()
	cached.Embed(ctx, "evacuate the waterfront")
	time.Sleep(100 * time.Millisecond)
	// Keys are content hashes of the trimmed text.
	cached.Embed(ctx, "  evacuate the waterfront\n")

	if inner.count() != 1 {
		t.Errorf("Expected trimmed variants to share one entry, got %d calls", inner.count())
	}
}

func TestCache_DistinctTextsHitBackend(t *testing.T) {
	inner := &countingEmbedder{}
	cached, err := cache.New(inner, 100)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cached.Close()

	ctx := context.Background()
	cached.Embed(ctx, "first narrative")
	cached.Embed(ctx, "second narrative")

	if inner.count() != 2 {
		t.Errorf("Expected 2 backend calls, got %d", inner.count())
	}
}

func TestCache_DimensionsPassThrough(t *testing.T) {
	cached, err := cache.New(&countingEmbedder{}, 100)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cached.Close()

	if cached.Dimensions() != 3 {
		t.Errorf("Expected inner dimensions, got %d", cached.Dimensions())
	}
}
