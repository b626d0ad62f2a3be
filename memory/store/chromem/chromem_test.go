package chromem_test

import (
	"context"
	"testing"

	"github.com/antigravity/decision-support/memory/store/chromem"
	"github.com/antigravity/decision-support/snapshot"
)

func newSnapshot(caseID, text string, embedding []float32) *snapshot.DecisionSnapshot {
	hash := snapshot.ContentHash(text)
	return &snapshot.DecisionSnapshot{
		SnapshotID:           snapshot.SnapshotID(caseID, hash),
		CaseStudyID:          caseID,
		SourceID:             "manual_input",
		InferredTimeWindow:   "first 24 hours",
		DecisionContext:      text,
		RisksPerceived:       []string{"aftershocks"},
		ActionTakenNarrative: "ordered evacuation",
		ContentHash:          hash,
		Embedding:            embedding,
	}
}

func TestStore_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.New(chromem.Config{})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	a := newSnapshot("kobe_1995", "harbor collapse after the quake", []float32{1, 0, 0})
	b := newSnapshot("tohoku_2011", "tsunami flooding along the coast", []float32{0, 1, 0})
	if err := store.Upsert(ctx, a); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if err := store.Upsert(ctx, b); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	hits, err := store.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits, got %d", len(hits))
	}
	if hits[0].Snapshot.CaseStudyID != "kobe_1995" {
		t.Errorf("Expected kobe_1995 nearest, got %s", hits[0].Snapshot.CaseStudyID)
	}
	if hits[0].Similarity < 0.99 {
		t.Errorf("Expected near-perfect similarity, got %f", hits[0].Similarity)
	}
	// The snapshot round-trips through the document content.
	if hits[0].Snapshot.ActionTakenNarrative != "ordered evacuation" {
		t.Errorf("Snapshot fields lost in round-trip: %+v", hits[0].Snapshot)
	}
}

func TestStore_QueryClampsK(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.New(chromem.Config{})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.Upsert(ctx, newSnapshot("only", "single snapshot", []float32{1, 0, 0})); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	hits, err := store.Query(ctx, []float32{1, 0, 0}, 50)
	if err != nil {
		t.Fatalf("Failed to query with oversized k: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("Expected 1 hit, got %d", len(hits))
	}
}

func TestStore_QueryEmptyStore(t *testing.T) {
	store, err := chromem.New(chromem.Config{})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	hits, err := store.Query(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Failed to query empty store: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Expected no hits, got %d", len(hits))
	}
}

func TestStore_ContentHashesTrackWrites(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.New(chromem.Config{})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	snap := newSnapshot("kobe_1995", "some chunk text", []float32{1, 0, 0})
	if err := store.Upsert(ctx, snap); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	hashes, err := store.ContentHashes(ctx, "kobe_1995")
	if err != nil {
		t.Fatalf("Failed to read content hashes: %v", err)
	}
	if !hashes[snap.ContentHash] {
		t.Error("Expected the written hash to be visible immediately")
	}

	other, err := store.ContentHashes(ctx, "other_case")
	if err != nil {
		t.Fatalf("Failed to read content hashes: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no hashes for unrelated case, got %d", len(other))
	}
}

func TestStore_UpsertIdenticalChunkReplaces(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.New(chromem.Config{})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	snap := newSnapshot("kobe_1995", "identical chunk", []float32{1, 0, 0})
	if err := store.Upsert(ctx, snap); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if err := store.Upsert(ctx, snap); err != nil {
		t.Fatalf("Failed to re-upsert: %v", err)
	}

	hits, err := store.Query(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("Expected a replace, not a duplicate: %d hits", len(hits))
	}
}

func TestStore_PersistentReopenKeepsHashIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := chromem.New(chromem.Config{PersistPath: dir})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	snap := newSnapshot("kobe_1995", "harbor collapse after the quake", []float32{1, 0, 0})
	if err := store.Upsert(ctx, snap); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	// A new process over the same path must still see the written hashes,
	// or re-ingesting identical text would re-embed and recount everything.
	reopened, err := chromem.New(chromem.Config{PersistPath: dir})
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	hashes, err := reopened.ContentHashes(ctx, "kobe_1995")
	if err != nil {
		t.Fatalf("Failed to read content hashes: %v", err)
	}
	if !hashes[snap.ContentHash] {
		t.Error("Expected the hash index to survive a reopen")
	}

	hits, err := reopened.Query(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Failed to query reopened store: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("Expected the persisted snapshot back, got %d hits", len(hits))
	}
}

func TestStore_PersistentReopenDeleteSurvives(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := chromem.New(chromem.Config{PersistPath: dir})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	snap := newSnapshot("doomed", "chunk to be deleted", []float32{1, 0, 0})
	if err := store.Upsert(ctx, snap); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if err := store.DeleteCase(ctx, "doomed"); err != nil {
		t.Fatalf("Failed to delete case: %v", err)
	}
	store.Close()

	reopened, err := chromem.New(chromem.Config{PersistPath: dir})
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	hashes, err := reopened.ContentHashes(ctx, "doomed")
	if err != nil {
		t.Fatalf("Failed to read content hashes: %v", err)
	}
	if len(hashes) != 0 {
		t.Errorf("Expected deleted case absent after reopen, got %d hashes", len(hashes))
	}
}

func TestStore_DeleteCase(t *testing.T) {
	ctx := context.Background()
	store, err := chromem.New(chromem.Config{})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.Upsert(ctx, newSnapshot("doomed", "chunk one here", []float32{1, 0, 0})); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if err := store.Upsert(ctx, newSnapshot("kept", "chunk two here", []float32{0, 1, 0})); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	if err := store.DeleteCase(ctx, "doomed"); err != nil {
		t.Fatalf("Failed to delete case: %v", err)
	}

	hashes, err := store.ContentHashes(ctx, "doomed")
	if err != nil {
		t.Fatalf("Failed to read content hashes: %v", err)
	}
	if len(hashes) != 0 {
		t.Errorf("Expected no hashes after delete, got %d", len(hashes))
	}

	hits, err := store.Query(ctx, []float32{0, 1, 0}, 5)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	for _, h := range hits {
		if h.Snapshot.CaseStudyID == "doomed" {
			t.Error("Deleted case still appears in query results")
		}
	}
}
