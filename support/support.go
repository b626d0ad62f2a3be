// Package support implements the decision-support façade: one call that
// validates a situation narrative, retrieves similar historical cases and
// synthesizes a recommendation set, degrading to narrative-only output
// instead of failing when memory or generation cannot deliver in time.
package support

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/antigravity/decision-support/core"
	"github.com/antigravity/decision-support/reason"
	"github.com/antigravity/decision-support/retrieval"
	"github.com/antigravity/decision-support/snapshot"
)

// SchemaVersion identifies the response envelope shape.
const SchemaVersion = "1.0"

// Config tunes the façade.
type Config struct {
	// TopK is the number of distinct cases requested from retrieval.
	// Default: 5.
	TopK int

	// Deadline bounds one whole decision-support call, retrieval and
	// synthesis together. Default: 20s.
	Deadline time.Duration

	// MaxNarrativeBytes rejects oversized narratives up front.
	// Default: 64 KiB.
	MaxNarrativeBytes int
}

// Response is the envelope returned for every decision-support call.
type Response struct {
	SchemaVersion  string                     `json:"schema_version"`
	RequestID      string                     `json:"request_id"`
	Recommendation snapshot.RecommendationSet `json:"recommendation"`

	// Degraded is true when historical memory could not contribute and
	// the recommendation is narrative-only.
	Degraded bool `json:"degraded"`

	// RetrievedCases counts distinct cases retrieval returned, before the
	// eligibility threshold was applied.
	RetrievedCases int `json:"retrieved_cases"`
}

// Service ties retrieval and synthesis behind one deadline.
type Service struct {
	retriever   *retrieval.Engine
	synthesizer *reason.Synthesizer
	cfg         Config
}

// New creates a decision-support service.
func New(retriever *retrieval.Engine, synthesizer *reason.Synthesizer, cfg Config) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 20 * time.Second
	}
	if cfg.MaxNarrativeBytes <= 0 {
		cfg.MaxNarrativeBytes = 64 << 10
	}
	return &Service{retriever: retriever, synthesizer: synthesizer, cfg: cfg}
}

// Support answers one decision-support request. Validation problems are the
// only errors it returns; retrieval failure and deadline exhaustion both
// degrade to a narrative-only recommendation.
func (s *Service) Support(ctx context.Context, narrative string) (*Response, error) {
	if isBlank(narrative) {
		return nil, core.Validationf("current_narrative is empty")
	}
	if len(narrative) > s.cfg.MaxNarrativeBytes {
		return nil, core.Validationf("current_narrative exceeds %d bytes", s.cfg.MaxNarrativeBytes)
	}

	requestID := uuid.New().String()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	results, err := s.retriever.Retrieve(ctx, narrative, s.cfg.TopK)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			return nil, err
		}
		// Memory being unreachable must not take decision support down
		// with it.
		log.Printf("[SUPPORT] req=%s retrieval degraded: %v", requestID, err)
		rec := s.synthesizer.NarrativeOnly(ctx, narrative)
		return &Response{
			SchemaVersion:  SchemaVersion,
			RequestID:      requestID,
			Recommendation: *rec,
			Degraded:       true,
		}, nil
	}

	rec := s.synthesizer.Synthesize(ctx, narrative, results)
	log.Printf("[SUPPORT] req=%s cases=%d basis=%d risks=%d actions=%d",
		requestID, len(results), len(rec.HistoricalBasis), len(rec.TopRisks), len(rec.RecommendedActions))

	return &Response{
		SchemaVersion:  SchemaVersion,
		RequestID:      requestID,
		Recommendation: *rec,
		RetrievedCases: len(results),
	}, nil
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
