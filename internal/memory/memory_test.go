package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atlasos/atlas/internal/provider"
	"github.com/atlasos/atlas/internal/store"
)

// fakeEmbedder maps known words onto fixed unit vectors so similarity is
// deterministic without a network call.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, req *provider.EmbeddingRequest) (*provider.EmbeddingResponse, error) {
	for word, vec := range f.vectors {
		if containsWord(req.Input, word) {
			return &provider.EmbeddingResponse{Vector: vec}, nil
		}
	}
	return &provider.EmbeddingResponse{Vector: []float32{0, 0, 1}}, nil
}

func containsWord(text, word string) bool {
	for i := 0; i+len(word) <= len(text); i++ {
		if text[i:i+len(word)] == word {
			return true
		}
	}
	return false
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Options{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "atlas.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3.0}
	got := DecodeVector(EncodeVector(v))
	if len(got) != 3 {
		t.Fatalf("decoded length = %d", len(got))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d: got %f, want %f", i, got[i], v[i])
		}
	}
	if DecodeVector([]byte{1, 2, 3}) != nil {
		t.Error("truncated blob should decode to nil")
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := CosineSimilarity(a, a); got < 0.999 {
		t.Errorf("identical vectors: %f", got)
	}
	if got := CosineSimilarity(a, []float32{0, 1, 0}); got != 0 {
		t.Errorf("orthogonal vectors: %f", got)
	}
	if got := CosineSimilarity(a, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched dims: %f", got)
	}
}

func TestIndexAndSearch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	emb := &fakeEmbedder{vectors: map[string][]float32{
		"fitness": {1, 0, 0},
		"budget":  {0, 1, 0},
	}}

	ix := NewIndexer(st, emb, "", nil)
	if err := ix.Index(ctx, "goal", "goal-1", "Goal: fitness plan for spring"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := ix.Index(ctx, "goal", "goal-2", "Goal: budget review"); err != nil {
		t.Fatalf("index: %v", err)
	}

	s := NewSearcher(st, emb, "")
	results, err := s.Search(ctx, "how is my fitness goal", 5, 0.5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Chunk.RefID != "goal-1" {
		t.Errorf("top result = %s", results[0].Chunk.RefID)
	}
}

func TestIndexEmptyContentRemovesChunk(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	emb := &fakeEmbedder{vectors: map[string][]float32{}}
	ix := NewIndexer(st, emb, "", nil)

	if err := ix.Index(ctx, "task", "task-1", "Task: write report"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := ix.Index(ctx, "task", "task-1", "   "); err != nil {
		t.Fatalf("reindex empty: %v", err)
	}

	n, err := st.CountChunks(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("chunk count = %d, want 0", n)
	}
}

func TestIndexReplacesExistingChunk(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	emb := &fakeEmbedder{vectors: map[string][]float32{"budget": {0, 1, 0}}}
	ix := NewIndexer(st, emb, "", nil)

	if err := ix.Index(ctx, "goal", "goal-1", "Goal: budget v1"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := ix.Index(ctx, "goal", "goal-1", "Goal: budget v2"); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	n, err := st.CountChunks(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("chunk count = %d, want 1", n)
	}
}
