package retrieval

import (
	"context"

	"github.com/upb/rag-answer-plane/models"
)

// Retriever fetches ranked context chunks for a query. Retrieval is an
// external collaborator of the answer pipeline; implementations may sit in
// front of a vector index, a search service, or the in-memory store.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts Options) ([]models.RetrievedChunk, error)
}

// Options configures retrieval behavior.
type Options struct {
	// TopK limits how many chunks are returned.
	TopK int

	// MinScore drops chunks below this relevance score.
	MinScore float64
}

// Document is a raw source document prior to chunking.
type Document struct {
	Source  string
	Content string
}
