package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/rag-answer-plane/services/retrieval"
)

func TestStore_AddAndRetrieve(t *testing.T) {
	store := NewStore()

	n := store.Add(retrieval.Document{
		Source:  "ocean.md",
		Content: "Tides are caused by the gravitational pull of the moon on the ocean.",
	}, 500)
	require.Equal(t, 1, n)
	store.Add(retrieval.Document{
		Source:  "recipes.md",
		Content: "Knead the dough until smooth and let it rise for an hour.",
	}, 500)

	chunks, err := store.Retrieve(context.Background(), "what causes the tides", retrieval.Options{TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, "ocean.md", chunks[0].Source)
	assert.Equal(t, 0, chunks[0].Rank)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
	}
}

func TestStore_RanksByOverlap(t *testing.T) {
	store := NewStore()
	store.Add(retrieval.Document{Source: "a", Content: "the moon pulls the tides"}, 500)
	store.Add(retrieval.Document{Source: "b", Content: "the moon is a rock"}, 500)

	chunks, err := store.Retrieve(context.Background(), "moon tides", retrieval.Options{TopK: 5})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "a", chunks[0].Source)
	assert.Greater(t, chunks[0].Score, chunks[1].Score)
	assert.Equal(t, []int{0, 1}, []int{chunks[0].Rank, chunks[1].Rank})
}

func TestStore_TopKAndMinScore(t *testing.T) {
	store := NewStore()
	for _, src := range []string{"a", "b", "c", "d"} {
		store.Add(retrieval.Document{Source: src, Content: "shared term alpha"}, 500)
	}

	chunks, err := store.Retrieve(context.Background(), "alpha", retrieval.Options{TopK: 2})
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	chunks, err = store.Retrieve(context.Background(), "alpha missing words here", retrieval.Options{TopK: 5, MinScore: 0.9})
	require.NoError(t, err)
	assert.Empty(t, chunks, "partial overlap falls below the min score")
}

func TestStore_EmptyQueryAndNoMatches(t *testing.T) {
	store := NewStore()
	store.Add(retrieval.Document{Source: "a", Content: "content"}, 500)

	chunks, err := store.Retrieve(context.Background(), "   ", retrieval.Options{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = store.Retrieve(context.Background(), "zebra", retrieval.Options{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestStore_ChunksLongDocuments(t *testing.T) {
	store := NewStore()

	long := ""
	for i := 0; i < 200; i++ {
		long += "tide moon gravity ocean water pull "
	}
	n := store.Add(retrieval.Document{Source: "long.md", Content: long}, 500)

	assert.Greater(t, n, 1)
	assert.Equal(t, n, store.Len())
}

func TestSplitDocument_BreaksOnWhitespace(t *testing.T) {
	doc := retrieval.Document{Source: "x", Content: "alpha beta gamma delta epsilon"}

	chunks := retrieval.SplitDocument(doc, 12)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 12)
		assert.Equal(t, strings.TrimSpace(c), c)
	}
}
