// Package mock provides a deterministic, offline embedder for tests and
// MOCK_MODE. Each token maps to a stable pseudo-random unit direction and a
// text embeds to the normalized sum of its token directions, so texts that
// share words score high cosine similarity while unrelated texts stay near
// zero. No semantic model is involved.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// MockEmbedder generates deterministic bag-of-tokens embeddings.
type MockEmbedder struct {
	dimensions int
}

// New creates a mock embedder with the default 384 dimensions (matching
// all-MiniLM-L6-v2 so it can stand in for the real local embedder).
func New() *MockEmbedder {
	return &MockEmbedder{dimensions: 384}
}

// NewWithDimensions creates a mock embedder with a custom vector size.
func NewWithDimensions(dims int) *MockEmbedder {
	return &MockEmbedder{dimensions: dims}
}

// Embed creates a deterministic embedding from text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding := make([]float32, m.dimensions)
	for _, token := range tokenize(text) {
		addTokenVector(embedding, token)
	}
	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// addTokenVector accumulates the token's stable pseudo-random direction.
// Hash seeds a simple LCG, the same scheme the original mock used per text.
func addTokenVector(embedding []float32, token string) {
	h := fnv.New64a()
	h.Write([]byte(token))
	seed := h.Sum64()

	for i := range embedding {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] += float32(int64(seed)) / float32(math.MaxInt64)
	}
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()[]")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// normalize converts the embedding to a unit vector.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
