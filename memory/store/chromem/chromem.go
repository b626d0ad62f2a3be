// Package chromem adapts chromem-go, a pure Go embedded vector database, to
// the memory.Store contract. All decision snapshots live in one collection
// with cosine similarity; the full snapshot is serialized into the document
// content so queries can reconstruct it without a second lookup.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/antigravity/decision-support/memory"
	"github.com/antigravity/decision-support/snapshot"
)

const defaultCollection = "decision_snapshots"

// hashIndexFile is the sidecar holding the per-case content-hash index next
// to chromem's persisted collections, so idempotency survives a restart.
const hashIndexFile = "content_hashes.json"

// Config configures the chromem-backed store.
type Config struct {
	// Collection is the collection name. Default: "decision_snapshots".
	Collection string

	// PersistPath, when set, stores the index on disk via chromem's
	// persistent DB. Empty means fully in-memory.
	PersistPath string
}

// ChromemStore wraps chromem-go behind memory.Store.
type ChromemStore struct {
	db  *chromem.DB
	col *chromem.Collection

	// indexPath is the sidecar file for the hash mirror; empty when the
	// store is in-memory.
	indexPath string

	// hashes mirrors the (case_study_id -> content_hash set) view of every
	// write that went through this adapter. It backs the idempotency check
	// with the same-process read-after-write guarantee the contract asks
	// for, without requiring list-by-metadata support from the index. For
	// persistent stores it is saved to indexPath on every write and loaded
	// back in New.
	mu     sync.RWMutex
	hashes map[string]map[string]bool
}

// New creates a chromem-based store.
func New(cfg Config) (*ChromemStore, error) {
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}

	var db *chromem.DB
	var err error
	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	// nil embedding func: callers always provide embeddings. Default
	// distance is cosine similarity.
	col, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s := &ChromemStore{
		db:     db,
		col:    col,
		hashes: make(map[string]map[string]bool),
	}
	if cfg.PersistPath != "" {
		s.indexPath = filepath.Join(cfg.PersistPath, hashIndexFile)
		if err := s.loadHashIndex(); err != nil {
			return nil, fmt.Errorf("load hash index: %w", err)
		}
	}
	return s, nil
}

// loadHashIndex restores the hash mirror written by a previous process. A
// missing file is a fresh store.
func (s *ChromemStore) loadHashIndex() error {
	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.hashes)
}

// saveHashIndexLocked writes the mirror to the sidecar. Callers hold mu.
func (s *ChromemStore) saveHashIndexLocked() error {
	if s.indexPath == "" {
		return nil
	}
	data, err := json.Marshal(s.hashes)
	if err != nil {
		return err
	}
	return os.WriteFile(s.indexPath, data, 0o644)
}

// Upsert persists a snapshot with its embedding. The deterministic snapshot
// ID makes re-adding an identical chunk a replace, never a duplicate.
func (s *ChromemStore) Upsert(ctx context.Context, snap *snapshot.DecisionSnapshot) error {
	if len(snap.Embedding) == 0 {
		return fmt.Errorf("snapshot %s has no embedding", snap.SnapshotID)
	}

	content, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	doc := chromem.Document{
		ID:        snap.SnapshotID,
		Content:   string(content),
		Embedding: snap.Embedding,
		Metadata: map[string]string{
			"case_study_id":        snap.CaseStudyID,
			"content_hash":         snap.ContentHash,
			"source_id":            snap.SourceID,
			"inferred_time_window": snap.InferredTimeWindow,
		},
	}

	if err := s.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	set, ok := s.hashes[snap.CaseStudyID]
	if !ok {
		set = make(map[string]bool)
		s.hashes[snap.CaseStudyID] = set
	}
	set[snap.ContentHash] = true
	saveErr := s.saveHashIndexLocked()
	s.mu.Unlock()
	if saveErr != nil {
		return fmt.Errorf("persist hash index: %w", saveErr)
	}

	log.Printf("[CHROMEM] Stored %s", snap)
	return nil
}

// Query returns up to k nearest snapshots by cosine similarity.
func (s *ChromemStore) Query(ctx context.Context, embedding []float32, k int) ([]memory.Hit, error) {
	// chromem rejects nResults larger than the collection size.
	count := s.col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]memory.Hit, 0, len(results))
	for i, res := range results {
		var snap snapshot.DecisionSnapshot
		if err := json.Unmarshal([]byte(res.Content), &snap); err != nil {
			log.Printf("[CHROMEM] Skipping result #%d: %v", i+1, err)
			continue
		}
		snap.Embedding = res.Embedding
		hits = append(hits, memory.Hit{Snapshot: &snap, Similarity: res.Similarity})
	}
	return hits, nil
}

// ContentHashes reports the stored content hashes for a case study.
func (s *ChromemStore) ContentHashes(ctx context.Context, caseStudyID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.hashes[caseStudyID]))
	for h := range s.hashes[caseStudyID] {
		out[h] = true
	}
	return out, nil
}

// DeleteCase removes every snapshot of a case study. Used only by explicit
// re-ingestion.
func (s *ChromemStore) DeleteCase(ctx context.Context, caseStudyID string) error {
	err := s.col.Delete(ctx, map[string]string{"case_study_id": caseStudyID}, nil)
	if err != nil {
		return fmt.Errorf("delete case %s: %w", caseStudyID, err)
	}

	s.mu.Lock()
	delete(s.hashes, caseStudyID)
	saveErr := s.saveHashIndexLocked()
	s.mu.Unlock()
	if saveErr != nil {
		return fmt.Errorf("persist hash index: %w", saveErr)
	}

	log.Printf("[CHROMEM] Deleted snapshots for case=%s", caseStudyID)
	return nil
}

// Close releases resources. The in-memory DB has nothing to release; the
// persistent DB flushes on every write already.
func (s *ChromemStore) Close() error {
	return nil
}
