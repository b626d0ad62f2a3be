// Package snapshot defines the persistent and transient data model of the
// decision-support core: case studies, their immutable decision snapshots,
// retrieval results, and recommendation sets.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DecisionSnapshot is an immutable chunk of a case study together with the
// fields inferred from it and its embedding vector. Snapshots are created by
// the ingestion pipeline, never mutated afterwards, and deleted only when
// their case study is explicitly re-ingested.
type DecisionSnapshot struct {
	SnapshotID  string `json:"snapshot_id"`
	CaseStudyID string `json:"case_study_id"`
	SourceID    string `json:"source_id"`

	// Inferred context (linguistic, not numeric).
	InferredTimeWindow string `json:"inferred_time_window"`
	LocationContext    string `json:"location_context,omitempty"`

	// Narrative fields.
	DecisionContext      string   `json:"decision_context"`
	RisksPerceived       []string `json:"risks_perceived"`
	ActionsConsidered    []string `json:"actions_considered,omitempty"`
	ActionTakenNarrative string   `json:"action_taken_narrative"`

	// ContentHash is the SHA-256 of the snapshot's source text; together
	// with CaseStudyID it is the idempotency key for ingestion.
	ContentHash string `json:"content_hash"`

	Embedding []float32 `json:"-"`
}

// ContentHash returns the hex SHA-256 of the trimmed source text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// SnapshotID derives the deterministic storage ID for a snapshot, so that
// re-upserting an identical chunk overwrites rather than duplicates.
func SnapshotID(caseStudyID, contentHash string) string {
	short := contentHash
	if len(short) > 16 {
		short = short[:16]
	}
	return caseStudyID + "#" + short
}

// EmbeddingText returns the text the embedding gateway receives for this
// snapshot. It is the raw decision context so that query narratives and
// stored chunks live in the same lexical space.
func (s *DecisionSnapshot) EmbeddingText() string {
	return s.DecisionContext
}

// RetrievalResult is a transient, request-scoped view of the best snapshot
// of one case study. A retrieval result set never contains two entries with
// the same CaseStudyID.
type RetrievalResult struct {
	CaseStudyID     string           `json:"case_study_id"`
	SimilarityScore float64          `json:"similarity_score"`
	Snapshot        DecisionSnapshot `json:"-"`
}

// HistoricalBasisEntry is one formally cited piece of retrieved evidence.
// Its CaseStudyID always appears in the retrieval result set that produced
// the enclosing RecommendationSet.
type HistoricalBasisEntry struct {
	CaseStudyID        string  `json:"case_study_id"`
	InferredTimeWindow string  `json:"inferred_time_window"`
	Excerpt            string  `json:"excerpt"`
	SimilarityScore    float64 `json:"similarity_score"`
}

// RecommendationSet is the transient output of the reasoning synthesizer.
// TopRisks and RecommendedActions may legitimately be empty.
type RecommendationSet struct {
	TopRisks           []string               `json:"top_risks"`
	RecommendedActions []string               `json:"recommended_actions"`
	Explanation        string                 `json:"explanation"`
	HistoricalBasis    []HistoricalBasisEntry `json:"historical_basis"`
}

// String summarizes a snapshot for logging.
func (s *DecisionSnapshot) String() string {
	return fmt.Sprintf("snapshot{case=%s hash=%.12s risks=%d}",
		s.CaseStudyID, s.ContentHash, len(s.RisksPerceived))
}
