package insights

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentimeter/internal/models"
	"sentimeter/internal/services"
	"sentimeter/internal/store"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)

	// Degenerate inputs collapse to zero rather than NaN.
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 2}))
}

type fakeEmbeddingStore struct {
	entries []store.EmbeddedEntry
}

func (f *fakeEmbeddingStore) Embedded(context.Context, int) ([]store.EmbeddedEntry, error) {
	return f.entries, nil
}

type fakeEmbedder struct {
	vec []float64
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	return f.vec, nil
}

func testEncryption(t *testing.T) *services.EncryptionService {
	t.Helper()
	enc, err := services.NewEncryptionService(
		bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 32))
	require.NoError(t, err)
	return enc
}

func TestSearchRanksBySimilarity(t *testing.T) {
	enc := testEncryption(t)

	encrypt := func(s string) string {
		out, err := enc.EncryptEntryBody(s)
		require.NoError(t, err)
		return out
	}

	near := uuid.New()
	far := uuid.New()
	fake := &fakeEmbeddingStore{entries: []store.EmbeddedEntry{
		{ID: far, Body: encrypt("rough day at work"), Embedding: models.Vector{0, 1}},
		{ID: near, Body: encrypt("sunny walk in the park"), Embedding: models.Vector{1, 0.1}},
	}}

	search := NewSemanticSearch(fake, &fakeEmbedder{vec: []float64{1, 0}}, enc)
	results, err := search.Search(context.Background(), 1, "nice weather", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, near, results[0].EntryID)
	assert.Equal(t, "sunny walk in the park", results[0].Body)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchHonorsTopK(t *testing.T) {
	enc := testEncryption(t)
	body, err := enc.EncryptEntryBody("entry")
	require.NoError(t, err)

	entries := make([]store.EmbeddedEntry, 5)
	for i := range entries {
		entries[i] = store.EmbeddedEntry{ID: uuid.New(), Body: body, Embedding: models.Vector{1, float64(i)}}
	}
	search := NewSemanticSearch(&fakeEmbeddingStore{entries: entries}, &fakeEmbedder{vec: []float64{1, 0}}, enc)

	results, err := search.Search(context.Background(), 1, "anything", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
