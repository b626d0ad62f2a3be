package memory

import (
	"context"

	"github.com/antigravity/decision-support/snapshot"
)

// Hit is one raw nearest-neighbor result from the vector store: a stored
// snapshot and its similarity to the query embedding. Similarity is whatever
// the store's metric produced; the retrieval engine owns normalization into
// [0,1].
type Hit struct {
	Snapshot   *snapshot.DecisionSnapshot
	Similarity float32
}

// Store is the Vector Memory Store capability: persist snapshot vectors with
// metadata and answer k-nearest-neighbor queries. A query issued after an
// Upsert returns observes that upsert within the same process. The core
// assumes nothing about the index algorithm beyond this contract.
//
// Implementations: ChromemStore (embedded, this repo), or any ANN-capable
// backend (qdrant, pgvector) behind the same interface.
type Store interface {
	// Upsert persists a snapshot with its embedding. Re-upserting the same
	// snapshot ID replaces the stored document.
	Upsert(ctx context.Context, snap *snapshot.DecisionSnapshot) error

	// Query returns up to k nearest snapshots for the embedding, ordered by
	// decreasing similarity. An empty store yields an empty result, not an
	// error.
	Query(ctx context.Context, embedding []float32, k int) ([]Hit, error)

	// ContentHashes reports the content hashes currently stored for a case
	// study. Ingestion uses it for the (case_study_id, content_hash)
	// idempotency check.
	ContentHashes(ctx context.Context, caseStudyID string) (map[string]bool, error)

	// DeleteCase removes every snapshot of a case study. Only explicit
	// re-ingestion calls this.
	DeleteCase(ctx context.Context, caseStudyID string) error

	// Close releases resources.
	Close() error
}

// Embedder is the Embedding Gateway capability: map text to a fixed-length
// vector. Implementations: MockEmbedder (tests, MOCK_MODE), OpenAI-compatible
// HTTP embedder, ONNX embedder (local, behind the onnx build tag). Failures
// surface as core.ErrProvider after the caller's retry policy is exhausted.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
