// Package retrieval implements the read side of the case-study memory:
// embed a query narrative once, oversample the vector store, normalize and
// de-duplicate hits into a ranked per-case result list.
package retrieval

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/antigravity/decision-support/core"
	"github.com/antigravity/decision-support/memory"
	"github.com/antigravity/decision-support/snapshot"
)

// scoreEpsilon is the band within which two similarity scores count as tied
// and the lexicographic tie-break applies.
const scoreEpsilon = 1e-6

// Config tunes the engine.
type Config struct {
	// Oversample multiplies top_k for the raw store query, so per-case
	// de-duplication still leaves enough distinct cases. Default: 3.
	Oversample int

	// Retry bounds the query-embedding retries.
	Retry core.RetryPolicy
}

// Engine answers similarity queries against the vector memory store.
// Retrieval is read-only and takes no locks; any number of queries may run
// concurrently with each other and with ingestion.
type Engine struct {
	store    memory.Store
	embedder memory.Embedder
	cfg      Config
}

// New creates a retrieval engine.
func New(store memory.Store, embedder memory.Embedder, cfg Config) *Engine {
	if cfg.Oversample <= 1 {
		cfg.Oversample = 3
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = core.DefaultRetry
	}
	return &Engine{store: store, embedder: embedder, cfg: cfg}
}

// Retrieve returns up to topK distinct case studies ranked by similarity to
// queryText. Fewer than topK distinct cases returns all available; an empty
// memory returns an empty list. A query embedding that cannot be produced
// after retries reports core.ErrRetrievalUnavailable.
func (e *Engine) Retrieve(ctx context.Context, queryText string, topK int) ([]snapshot.RetrievalResult, error) {
	if isBlank(queryText) {
		return nil, core.Validationf("query_text is empty")
	}
	if topK < 1 {
		return nil, core.Validationf("top_k must be >= 1, got %d", topK)
	}

	var queryVec []float32
	err := e.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		vec, err := e.embedder.Embed(ctx, queryText)
		if err != nil {
			return err
		}
		queryVec = vec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", core.ErrRetrievalUnavailable, err)
	}

	hits, err := e.store.Query(ctx, queryVec, topK*e.cfg.Oversample)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}
	if len(hits) == 0 {
		return []snapshot.RetrievalResult{}, nil
	}

	results := dedupeByCase(hits)
	sortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	log.Printf("[RETRIEVAL] hits=%d cases=%d top_k=%d", len(hits), len(results), topK)
	return results, nil
}

// dedupeByCase keeps only the highest-scoring snapshot per case study and
// converts raw store similarity into a [0,1] score.
func dedupeByCase(hits []memory.Hit) []snapshot.RetrievalResult {
	best := make(map[string]snapshot.RetrievalResult)
	for _, hit := range hits {
		score := normalizeScore(hit.Similarity)
		prev, ok := best[hit.Snapshot.CaseStudyID]
		if !ok || score > prev.SimilarityScore {
			best[hit.Snapshot.CaseStudyID] = snapshot.RetrievalResult{
				CaseStudyID:     hit.Snapshot.CaseStudyID,
				SimilarityScore: score,
				Snapshot:        *hit.Snapshot,
			}
		}
	}
	results := make([]snapshot.RetrievalResult, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}
	return results
}

// sortResults orders by descending score. Scores are quantized to
// scoreEpsilon buckets first, so the comparator is a strict weak ordering
// and near-equal scores fall back to ascending case study ID regardless of
// input order.
func sortResults(results []snapshot.RetrievalResult) {
	bucket := func(score float64) int64 {
		return int64(math.Round(score / scoreEpsilon))
	}
	sort.Slice(results, func(i, j int) bool {
		bi, bj := bucket(results[i].SimilarityScore), bucket(results[j].SimilarityScore)
		if bi != bj {
			return bi > bj
		}
		return results[i].CaseStudyID < results[j].CaseStudyID
	})
}

// normalizeScore maps the store's cosine similarity into [0,1]. Cosine
// already lives in [-1,1]; anything negative is noise for this corpus and
// clamps to zero.
func normalizeScore(similarity float32) float64 {
	s := float64(similarity)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
