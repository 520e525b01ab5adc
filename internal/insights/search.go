package insights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"sentimeter/internal/services"
	"sentimeter/internal/store"
)

// SearchResult is one semantic search hit.
type SearchResult struct {
	EntryID    uuid.UUID `json:"entry_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	Similarity float64   `json:"similarity"`
}

// EmbeddingStore provides the embedded entries semantic search ranks.
type EmbeddingStore interface {
	Embedded(ctx context.Context, userID int) ([]store.EmbeddedEntry, error)
}

// QueryEmbedder embeds the search query on demand.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// SemanticSearch ranks a user's entries by cosine similarity to a query.
type SemanticSearch struct {
	entries  EmbeddingStore
	embedder QueryEmbedder
	enc      *services.EncryptionService
}

func NewSemanticSearch(entries EmbeddingStore, embedder QueryEmbedder, enc *services.EncryptionService) *SemanticSearch {
	return &SemanticSearch{entries: entries, embedder: embedder, enc: enc}
}

// Search returns the topK most similar entries, most similar first.
func (s *SemanticSearch) Search(ctx context.Context, userID int, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := s.entries.Embedded(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		sim := CosineSimilarity(qvec, c.Embedding)
		body, err := s.enc.DecryptEntryBody(c.Body)
		if err != nil {
			return nil, fmt.Errorf("decrypt entry body: %w", err)
		}
		results = append(results, SearchResult{
			EntryID:    c.ID,
			Body:       body,
			CreatedAt:  c.CreatedAt,
			Similarity: sim,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// CosineSimilarity returns the cosine of the angle between two vectors, or 0
// when the dimensions differ or either vector is zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
