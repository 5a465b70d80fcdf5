package rag

import (
	"context"
	"sort"
	"sync"

	"github.com/xxxsen/notebookrag/internal/model"
)

// Retriever returns the top k chunks of one owner's collection scoring
// strictly above threshold.
type Retriever interface {
	Retrieve(ctx context.Context, query []float32, ownerID, collectionID string, k int, threshold float64) ([]model.RetrievedSource, error)
}

// MemoryRetriever scores chunks in process. Chunks keep the order they were
// added in, which is the tie break for equal scores.
type MemoryRetriever struct {
	mu     sync.RWMutex
	chunks []*model.Chunk
}

func NewMemoryRetriever() *MemoryRetriever {
	return &MemoryRetriever{}
}

func (m *MemoryRetriever) Add(chunks ...*model.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
}

func (m *MemoryRetriever) Retrieve(ctx context.Context, query []float32, ownerID, collectionID string, k int, threshold float64) ([]model.RetrievedSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []model.RetrievedSource{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.RetrievedSource, 0, k)
	for _, chunk := range m.chunks {
		if chunk.OwnerID != ownerID || chunk.CollectionID != collectionID {
			continue
		}
		score := Similarity(query, chunk.Embedding)
		if score <= threshold {
			continue
		}
		out = append(out, model.RetrievedSource{
			ChunkID:    chunk.ID,
			Content:    chunk.Content,
			Similarity: score,
			FileName:   chunk.Metadata.FileName,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
