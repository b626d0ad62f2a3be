// Package cache decorates an embedder with a ristretto cache keyed by the
// content hash of the input text. Ingestion embeds the same chunk text
// whenever a case is re-submitted with overlapping content; the cache makes
// those repeats free without touching the gateway.
package cache

import (
	"context"
	"fmt"
	"log"

	"github.com/dgraph-io/ristretto"

	"github.com/antigravity/decision-support/memory"
	"github.com/antigravity/decision-support/snapshot"
)

// CachedEmbedder wraps an inner embedder with an in-process vector cache.
type CachedEmbedder struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// New creates a caching embedder. maxVectors bounds how many embeddings are
// retained (cost = 1 per vector).
func New(inner memory.Embedder, maxVectors int64) (*CachedEmbedder, error) {
	if maxVectors <= 0 {
		maxVectors = 4096
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxVectors * 10,
		MaxCost:     maxVectors,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for the text when present, otherwise
// delegates to the inner embedder and caches the result. Errors are never
// cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := snapshot.ContentHash(text)
	if v, ok := c.cache.Get(key); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if !c.cache.Set(key, vec, 1) {
		log.Printf("[EMBED CACHE] Dropped entry for key=%.12s", key)
	}
	return vec, nil
}

// Dimensions returns the inner embedder's vector size.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Close releases the cache.
func (c *CachedEmbedder) Close() {
	c.cache.Close()
}
