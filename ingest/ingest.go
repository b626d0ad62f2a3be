// Package ingest implements the ingestion pipeline: raw case-study text in,
// embedded decision snapshots in the vector memory store out. Ingestion is
// idempotent on (case_study_id, content_hash) and serialized per case study
// while unrelated cases proceed in parallel.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/antigravity/decision-support/core"
	"github.com/antigravity/decision-support/memory"
	"github.com/antigravity/decision-support/snapshot"
)

// Status values reported by an ingestion call.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
)

// Config tunes the pipeline.
type Config struct {
	// MaxRawTextBytes rejects oversized submissions before any gateway
	// call. Default: 1 MiB.
	MaxRawTextBytes int

	// SentencesPerChunk and OverlapSentences shape the chunk windows.
	// Defaults: 5 and 1.
	SentencesPerChunk int
	OverlapSentences  int

	// MaxChunkChars hard-caps a chunk so it fits the embedding gateway's
	// input limit. Default: 2000.
	MaxChunkChars int

	// Workers bounds concurrent chunk embeddings within one call.
	// Default: 4.
	Workers int

	// Retry bounds the per-chunk embedding retries.
	Retry core.RetryPolicy
}

// Result reports what one ingestion call persisted.
type Result struct {
	// Status is "success" when every new chunk was persisted, "partial"
	// when some chunks failed to embed and were skipped.
	Status string `json:"status"`

	// SnapshotsCreated counts chunks actually persisted by this call.
	// Chunks already present for the case do not count.
	SnapshotsCreated int `json:"snapshots_created"`
}

// Pipeline turns raw case-study text into stored decision snapshots.
type Pipeline struct {
	store    memory.Store
	embedder memory.Embedder
	cfg      Config
	chunker  *chunker

	// locks serializes ingestion per case_study_id. Never a global mutex:
	// unrelated cases must not queue behind each other.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an ingestion pipeline.
func New(store memory.Store, embedder memory.Embedder, cfg Config) *Pipeline {
	if cfg.MaxRawTextBytes <= 0 {
		cfg.MaxRawTextBytes = 1 << 20
	}
	if cfg.SentencesPerChunk <= 0 {
		cfg.SentencesPerChunk = 5
	}
	if cfg.OverlapSentences <= 0 {
		cfg.OverlapSentences = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = core.DefaultRetry
	}
	return &Pipeline{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		chunker:  newChunker(cfg.SentencesPerChunk, cfg.OverlapSentences, cfg.MaxChunkChars),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Ingest chunks, embeds and stores rawText under caseStudyID. Chunks whose
// content hash is already stored for the case are skipped and do not count
// toward SnapshotsCreated, so identical input reports 0 the second time.
func (p *Pipeline) Ingest(ctx context.Context, caseStudyID, rawText, sourceID string) (*Result, error) {
	return p.ingest(ctx, caseStudyID, rawText, sourceID, false)
}

// Reingest replaces the case's whole snapshot set: existing snapshots are
// deleted first, then rawText is ingested from scratch.
func (p *Pipeline) Reingest(ctx context.Context, caseStudyID, rawText, sourceID string) (*Result, error) {
	return p.ingest(ctx, caseStudyID, rawText, sourceID, true)
}

func (p *Pipeline) ingest(ctx context.Context, caseStudyID, rawText, sourceID string, replace bool) (*Result, error) {
	if err := p.validate(caseStudyID, rawText); err != nil {
		return nil, err
	}
	if sourceID == "" {
		sourceID = "manual_input"
	}

	// Single writer per case study. Queued callers re-read the hash set
	// when their turn comes, so each call resolves against the state left
	// by the previous one.
	lock := p.lockFor(caseStudyID)
	lock.Lock()
	defer lock.Unlock()

	runID := uuid.New().String()[:8]

	if replace {
		if err := p.store.DeleteCase(ctx, caseStudyID); err != nil {
			return nil, fmt.Errorf("replace case %s: %w", caseStudyID, err)
		}
	}

	existing, err := p.store.ContentHashes(ctx, caseStudyID)
	if err != nil {
		return nil, fmt.Errorf("read content hashes: %w", err)
	}

	chunks := p.chunker.chunk(rawText)
	candidates := make([]*snapshot.DecisionSnapshot, 0, len(chunks))
	seenThisCall := make(map[string]bool)
	for _, text := range chunks {
		hash := snapshot.ContentHash(text)
		if existing[hash] || seenThisCall[hash] {
			continue
		}
		seenThisCall[hash] = true
		candidates = append(candidates, buildSnapshot(caseStudyID, sourceID, text, hash))
	}

	log.Printf("[INGEST] run=%s case=%s chunks=%d new=%d", runID, caseStudyID, len(chunks), len(candidates))
	if len(candidates) == 0 {
		return &Result{Status: StatusSuccess, SnapshotsCreated: 0}, nil
	}

	embedded, failed := p.embedAll(ctx, candidates)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(embedded) == 0 {
		return nil, fmt.Errorf("%w: all %d chunks failed to embed for case %s",
			core.ErrIngestionFailed, len(candidates), caseStudyID)
	}

	// Upserts happen after every embedding settled, so the created count
	// reflects one consistent view of this call's writes.
	created := 0
	for _, snap := range embedded {
		if err := p.store.Upsert(ctx, snap); err != nil {
			log.Printf("[INGEST] run=%s upsert failed for %s: %v", runID, snap.SnapshotID, err)
			failed++
			continue
		}
		created++
	}

	status := StatusSuccess
	if failed > 0 {
		status = StatusPartial
	}
	log.Printf("[INGEST] run=%s case=%s status=%s created=%d failed=%d", runID, caseStudyID, status, created, failed)
	return &Result{Status: status, SnapshotsCreated: created}, nil
}

// embedAll embeds candidate snapshots with bounded concurrency, retrying
// each with exponential backoff. Chunks that still fail are dropped; order
// of the survivors is preserved.
func (p *Pipeline) embedAll(ctx context.Context, candidates []*snapshot.DecisionSnapshot) ([]*snapshot.DecisionSnapshot, int) {
	type slot struct {
		snap *snapshot.DecisionSnapshot
		err  error
	}
	slots := make([]slot, len(candidates))

	sem := make(chan struct{}, p.cfg.Workers)
	var wg sync.WaitGroup
	for i, snap := range candidates {
		wg.Add(1)
		go func(i int, snap *snapshot.DecisionSnapshot) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
				vec, err := p.embedder.Embed(ctx, snap.EmbeddingText())
				if err != nil {
					return err
				}
				snap.Embedding = vec
				return nil
			})
			slots[i] = slot{snap: snap, err: err}
		}(i, snap)
	}
	wg.Wait()

	var embedded []*snapshot.DecisionSnapshot
	failed := 0
	for _, s := range slots {
		if s.err != nil {
			failed++
			log.Printf("[INGEST] chunk embed failed for %s: %v", s.snap.SnapshotID, s.err)
			continue
		}
		embedded = append(embedded, s.snap)
	}
	return embedded, failed
}

func (p *Pipeline) validate(caseStudyID, rawText string) error {
	if caseStudyID == "" {
		return core.Validationf("case_study_id is required")
	}
	if isBlank(rawText) {
		return core.Validationf("raw_text is empty")
	}
	if len(rawText) > p.cfg.MaxRawTextBytes {
		return core.Validationf("raw_text exceeds %d bytes", p.cfg.MaxRawTextBytes)
	}
	return nil
}

func (p *Pipeline) lockFor(caseStudyID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[caseStudyID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[caseStudyID] = lock
	}
	return lock
}

func buildSnapshot(caseStudyID, sourceID, text, hash string) *snapshot.DecisionSnapshot {
	fields := snapshot.InferFields(text)
	return &snapshot.DecisionSnapshot{
		SnapshotID:           snapshot.SnapshotID(caseStudyID, hash),
		CaseStudyID:          caseStudyID,
		SourceID:             sourceID,
		InferredTimeWindow:   fields.TimeWindow,
		LocationContext:      fields.Location,
		DecisionContext:      text,
		RisksPerceived:       fields.Risks,
		ActionsConsidered:    fields.ActionsConsidered,
		ActionTakenNarrative: fields.ActionTakenNarrative,
		ContentHash:          hash,
	}
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
