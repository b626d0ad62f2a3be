package support_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/antigravity/decision-support/core"
	"github.com/antigravity/decision-support/memory"
	"github.com/antigravity/decision-support/reason"
	"github.com/antigravity/decision-support/retrieval"
	"github.com/antigravity/decision-support/snapshot"
	"github.com/antigravity/decision-support/support"
)

type scriptedStore struct {
	hits []memory.Hit
}

func (s *scriptedStore) Upsert(ctx context.Context, snap *snapshot.DecisionSnapshot) error {
	return nil
}

func (s *scriptedStore) Query(ctx context.Context, embedding []float32, k int) ([]memory.Hit, error) {
	return s.hits, nil
}

func (s *scriptedStore) ContentHashes(ctx context.Context, caseStudyID string) (map[string]bool, error) {
	return nil, nil
}

func (s *scriptedStore) DeleteCase(ctx context.Context, caseStudyID string) error { return nil }
func (s *scriptedStore) Close() error                                             { return nil }

type staticEmbedder struct {
	err error
}

func (e *staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0, 0}, nil
}

func (e *staticEmbedder) Dimensions() int { return 3 }

func fastRetry() core.RetryPolicy {
	return core.RetryPolicy{Attempts: 1, BaseDelay: time.Millisecond}
}

func newService(store memory.Store, embedder memory.Embedder) *support.Service {
	retriever := retrieval.New(store, embedder, retrieval.Config{Retry: fastRetry()})
	synth := reason.New(nil, reason.Config{})
	return support.New(retriever, synth, support.Config{TopK: 3})
}

func TestSupport_Validation(t *testing.T) {
	svc := newService(&scriptedStore{}, &staticEmbedder{})

	if _, err := svc.Support(context.Background(), "  \n"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected validation error for blank narrative, got %v", err)
	}
}

func TestSupport_OversizedNarrative(t *testing.T) {
	retriever := retrieval.New(&scriptedStore{}, &staticEmbedder{}, retrieval.Config{Retry: fastRetry()})
	svc := support.New(retriever, reason.New(nil, reason.Config{}), support.Config{MaxNarrativeBytes: 50})

	_, err := svc.Support(context.Background(), strings.Repeat("x", 100))
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestSupport_WithEvidence(t *testing.T) {
	store := &scriptedStore{hits: []memory.Hit{{
		Snapshot: &snapshot.DecisionSnapshot{
			CaseStudyID:          "kobe_1995",
			InferredTimeWindow:   "first 24 hours",
			DecisionContext:      "Aftershocks near the harbor forced an evacuation.",
			RisksPerceived:       []string{"aftershocks"},
			ActionTakenNarrative: "ordered evacuation of the waterfront",
		},
		Similarity: 0.85,
	}}}
	svc := newService(store, &staticEmbedder{})

	resp, err := svc.Support(context.Background(), "Strong earthquake hit the coastal city.")
	if err != nil {
		t.Fatalf("Failed to get decision support: %v", err)
	}
	if resp.SchemaVersion != support.SchemaVersion {
		t.Errorf("Expected schema version %s, got %s", support.SchemaVersion, resp.SchemaVersion)
	}
	if resp.RequestID == "" {
		t.Error("Expected a request id")
	}
	if resp.Degraded {
		t.Error("Expected a non-degraded response")
	}
	if resp.RetrievedCases != 1 {
		t.Errorf("Expected 1 retrieved case, got %d", resp.RetrievedCases)
	}
	if len(resp.Recommendation.HistoricalBasis) != 1 {
		t.Fatalf("Expected 1 basis entry, got %d", len(resp.Recommendation.HistoricalBasis))
	}
	if resp.Recommendation.HistoricalBasis[0].CaseStudyID != "kobe_1995" {
		t.Errorf("Expected kobe_1995 cited, got %s", resp.Recommendation.HistoricalBasis[0].CaseStudyID)
	}
}

func TestSupport_DegradesWhenRetrievalDown(t *testing.T) {
	svc := newService(&scriptedStore{}, &staticEmbedder{err: errors.New("backend down")})

	resp, err := svc.Support(context.Background(), "Flooding is spreading through the valley.")
	if err != nil {
		t.Fatalf("Expected degraded response, got error: %v", err)
	}
	if !resp.Degraded {
		t.Error("Expected degraded flag")
	}
	if len(resp.Recommendation.HistoricalBasis) != 0 {
		t.Error("Degraded response must not cite historical cases")
	}
	// The narrative itself still drives the risk list.
	found := false
	for _, r := range resp.Recommendation.TopRisks {
		if r == "flooding" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected flooding from the narrative, got %v", resp.Recommendation.TopRisks)
	}
}
