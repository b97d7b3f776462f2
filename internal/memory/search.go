package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/atlasos/atlas/internal/provider"
	"github.com/atlasos/atlas/internal/store"
)

// Result is one scored chunk from a semantic search.
type Result struct {
	Chunk store.MemoryChunk
	Score float32
}

// Searcher answers semantic queries against the chunk table.
type Searcher struct {
	store    *store.Store
	embedder provider.Embedder
	model    string
}

// NewSearcher creates a searcher using the given embedding model.
func NewSearcher(st *store.Store, embedder provider.Embedder, model string) *Searcher {
	return &Searcher{store: st, embedder: embedder, model: model}
}

// Search embeds the query and returns up to topK chunks scoring at or above
// minScore, best first. Chunks with a mismatched embedding dimension are
// skipped.
func (s *Searcher) Search(ctx context.Context, query string, topK int, minScore float64) ([]Result, error) {
	emb, err := s.embedder.Embed(ctx, &provider.EmbeddingRequest{Input: query, Model: s.model})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var candidates []Result
	err = s.store.EachChunk(ctx, func(c *store.MemoryChunk) error {
		stored := DecodeVector(c.Embedding)
		if len(stored) != len(emb.Vector) {
			return nil
		}
		score := CosineSimilarity(emb.Vector, stored)
		if float64(score) < minScore {
			return nil
		}
		candidates = append(candidates, Result{Chunk: *c, Score: score})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}
