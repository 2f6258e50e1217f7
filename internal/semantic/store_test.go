package semantic

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
)

// stubEmbedder maps known texts to fixed vectors so distances are exact.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vector, ok := s.vectors[text]
		if !ok {
			vector = []float32{0, 0, 1}
		}
		out[i] = vector
	}
	return out, nil
}

func openTestStore(t *testing.T, embedder Embedder) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "vectors.db"), embedder)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestQueryRanksByDistance(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"dragons":            {1, 0, 0},
		"the sleeping dragon": {0.9, 0.1, 0},
		"harbor tolls":        {0, 1, 0},
	}}
	store := openTestStore(t, embedder)
	ctx := context.Background()

	if err := store.Index(ctx, "lore", []Document{
		{UID: 1, Lang: "en", Text: "the sleeping dragon"},
		{UID: 2, Lang: "en", Text: "harbor tolls"},
	}); err != nil {
		t.Fatalf("index: %v", err)
	}

	hits, err := store.Query(ctx, "lore", "dragons", 2, "en")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].UID != 1 {
		t.Fatalf("expected dragon entry nearest, got uid %d", hits[0].UID)
	}
	if hits[0].Distance >= hits[1].Distance {
		t.Fatalf("hits not ordered by distance: %v", hits)
	}
	if hits[0].Distance < 0 || hits[0].Distance > 2 {
		t.Fatalf("distance out of range: %f", hits[0].Distance)
	}
}

func TestQueryCapsAtK(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	store := openTestStore(t, embedder)
	ctx := context.Background()

	documents := make([]Document, 10)
	for i := range documents {
		documents[i] = Document{UID: int64(i + 1), Lang: "en", Text: "entry"}
	}
	if err := store.Index(ctx, "lore", documents); err != nil {
		t.Fatalf("index: %v", err)
	}

	hits, err := store.Query(ctx, "lore", "anything", 3, "en")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}

	if hits, err = store.Query(ctx, "lore", "anything", 0, "en"); err != nil || hits != nil {
		t.Fatalf("k=0 must return nothing, got %v, %v", hits, err)
	}
}

func TestQueryLanguageFilter(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	store := openTestStore(t, embedder)
	ctx := context.Background()

	if err := store.Index(ctx, "lore", []Document{
		{UID: 1, Lang: "en", Text: "the dragon"},
		{UID: 2, Lang: "ru", Text: "дракон"},
	}); err != nil {
		t.Fatalf("index: %v", err)
	}

	hits, err := store.Query(ctx, "lore", "дракон", 5, "ru")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 || hits[0].UID != 2 {
		t.Fatalf("expected only the russian document, got %v", hits)
	}

	hits, err = store.Query(ctx, "lore", "dragon", 5, "")
	if err != nil {
		t.Fatalf("query unfiltered: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected both documents unfiltered, got %v", hits)
	}
}

func TestQueryIsolatesCollections(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	store := openTestStore(t, embedder)
	ctx := context.Background()

	if err := store.Index(ctx, "lore", []Document{{UID: 1, Lang: "en", Text: "a"}}); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := store.Index(ctx, "rumors", []Document{{UID: 2, Lang: "en", Text: "b"}}); err != nil {
		t.Fatalf("index: %v", err)
	}

	hits, err := store.Query(ctx, "lore", "a", 5, "")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 || hits[0].UID != 1 {
		t.Fatalf("collection leak: %v", hits)
	}
}

func TestIndexReplacesExisting(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"old": {1, 0, 0},
		"new": {0, 1, 0},
	}}
	store := openTestStore(t, embedder)
	ctx := context.Background()

	if err := store.Index(ctx, "lore", []Document{{UID: 1, Lang: "en", Text: "old"}}); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := store.Index(ctx, "lore", []Document{{UID: 1, Lang: "en", Text: "new"}}); err != nil {
		t.Fatalf("re-index: %v", err)
	}

	hits, err := store.Query(ctx, "lore", "new", 5, "")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected single row after replace, got %d", len(hits))
	}
	if hits[0].Text != "new" {
		t.Fatalf("expected replaced text, got %q", hits[0].Text)
	}
	if hits[0].Distance > 1e-6 {
		t.Fatalf("expected exact match distance ~0, got %f", hits[0].Distance)
	}
}

func TestEmbedderFailurePropagates(t *testing.T) {
	store := openTestStore(t, &stubEmbedder{vectors: map[string][]float32{}})

	failing := &stubEmbedder{err: errors.New("quota exceeded")}
	store.embedder = failing

	if err := store.Index(context.Background(), "lore", []Document{{UID: 1, Text: "x"}}); err == nil {
		t.Fatal("expected index error")
	}
	if _, err := store.Query(context.Background(), "lore", "x", 3, ""); err == nil {
		t.Fatal("expected query error")
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vector := []float32{0.5, -1.25, 3.75, float32(math.Pi)}
	decoded := decodeVector(encodeVector(vector))
	if len(decoded) != len(vector) {
		t.Fatalf("length mismatch: %d", len(decoded))
	}
	for i := range vector {
		if decoded[i] != vector[i] {
			t.Fatalf("component %d mismatch: %f != %f", i, decoded[i], vector[i])
		}
	}
}
