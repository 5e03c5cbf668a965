package prompt

import (
	"fmt"
	"strings"

	"github.com/upb/rag-answer-plane/models"
)

// SystemPrompt instructs the model to answer strictly from the supplied
// context and to cite sources in square brackets.
const SystemPrompt = "You are an assistant that answers questions using only the provided context. " +
	"Cite the sources you used in square brackets (e.g. [report.pdf]). " +
	"If the context does not contain the answer, say you do not know."

const contextSeparator = "\n\n---\n\n"

// Prompt is an assembled generation request: the system and user messages
// plus the chunks that actually made it in, which is what citations are
// built from.
type Prompt struct {
	System   string
	User     string
	Included []models.RetrievedChunk
	Tokens   int
}

// Builder assembles prompts by greedily packing ranked chunks under a token
// budget. Chunks are taken in retrieval order; one that does not fit is
// skipped rather than truncated so a citation never points at a partial span.
type Builder struct {
	counter   TokenCounter
	maxChunks int
}

// NewBuilder creates a builder that includes at most maxChunks chunks per
// prompt.
func NewBuilder(counter TokenCounter, maxChunks int) *Builder {
	if maxChunks <= 0 {
		maxChunks = 1
	}
	return &Builder{counter: counter, maxChunks: maxChunks}
}

// Build packs chunks into a prompt for query, spending at most maxTokens on
// the whole prompt (system message, context block, and question). The query
// and system message are always included; context yields to them.
func (b *Builder) Build(query string, chunks []models.RetrievedChunk, maxTokens int) Prompt {
	base := b.counter.Count(SystemPrompt) + b.counter.Count(questionBlock(query))
	budget := maxTokens - base

	var (
		parts    []string
		included []models.RetrievedChunk
		spent    int
	)
	for _, c := range chunks {
		if len(included) >= b.maxChunks {
			break
		}
		piece := formatChunk(c)
		cost := b.counter.Count(piece)
		if spent+cost > budget {
			continue
		}
		parts = append(parts, piece)
		included = append(included, c)
		spent += cost
	}

	var user strings.Builder
	if len(parts) > 0 {
		user.WriteString("Context:\n")
		user.WriteString(strings.Join(parts, contextSeparator))
		user.WriteString("\n\n")
	}
	user.WriteString(questionBlock(query))

	return Prompt{
		System:   SystemPrompt,
		User:     user.String(),
		Included: included,
		Tokens:   base + spent,
	}
}

func formatChunk(c models.RetrievedChunk) string {
	return fmt.Sprintf("[%s]\n%s", c.Source, strings.TrimSpace(c.Text))
}

func questionBlock(query string) string {
	return "Question:\n" + query
}
