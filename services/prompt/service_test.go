package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/rag-answer-plane/models"
)

func TestHeuristicCounter(t *testing.T) {
	c := HeuristicCounter{}

	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 1, c.Count("hi"))
	assert.Equal(t, 2, c.Count("hello wo"))
	assert.Equal(t, 25, c.Count(strings.Repeat("a", 100)))
}

func TestBuilder_IncludesContextAndQuestion(t *testing.T) {
	b := NewBuilder(HeuristicCounter{}, 5)
	chunks := []models.RetrievedChunk{
		{Text: "the moon orbits the earth", Source: "astro.md", Score: 0.9, Rank: 0},
		{Text: "tides follow the moon", Source: "ocean.md", Score: 0.8, Rank: 1},
	}

	p := b.Build("what causes tides?", chunks, 10000)

	assert.Equal(t, SystemPrompt, p.System)
	assert.Contains(t, p.User, "[astro.md]")
	assert.Contains(t, p.User, "[ocean.md]")
	assert.Contains(t, p.User, "Question:\nwhat causes tides?")
	assert.Len(t, p.Included, 2)
	assert.Greater(t, p.Tokens, 0)
}

func TestBuilder_RespectsMaxChunks(t *testing.T) {
	b := NewBuilder(HeuristicCounter{}, 2)
	chunks := []models.RetrievedChunk{
		{Text: "one", Source: "a", Score: 0.9, Rank: 0},
		{Text: "two", Source: "b", Score: 0.8, Rank: 1},
		{Text: "three", Source: "c", Score: 0.7, Rank: 2},
	}

	p := b.Build("q", chunks, 10000)

	require.Len(t, p.Included, 2)
	assert.Equal(t, "a", p.Included[0].Source)
	assert.Equal(t, "b", p.Included[1].Source)
	assert.NotContains(t, p.User, "[c]")
}

func TestBuilder_RespectsTokenBudget(t *testing.T) {
	b := NewBuilder(HeuristicCounter{}, 10)
	big := models.RetrievedChunk{Text: strings.Repeat("lorem ipsum ", 500), Source: "big.txt", Score: 0.9, Rank: 0}
	small := models.RetrievedChunk{Text: "short note", Source: "small.txt", Score: 0.8, Rank: 1}

	base := HeuristicCounter{}.Count(SystemPrompt) + HeuristicCounter{}.Count("Question:\nq")
	p := b.Build("q", []models.RetrievedChunk{big, small}, base+50)

	// The oversized chunk is skipped, not truncated; the small one still fits.
	require.Len(t, p.Included, 1)
	assert.Equal(t, "small.txt", p.Included[0].Source)
	assert.LessOrEqual(t, p.Tokens, base+50)
}

func TestBuilder_NoChunksStillAsksTheQuestion(t *testing.T) {
	b := NewBuilder(HeuristicCounter{}, 5)

	p := b.Build("anything?", nil, 100)

	assert.Empty(t, p.Included)
	assert.NotContains(t, p.User, "Context:")
	assert.Contains(t, p.User, "Question:\nanything?")
}
