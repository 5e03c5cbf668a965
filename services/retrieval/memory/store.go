package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/upb/rag-answer-plane/models"
	"github.com/upb/rag-answer-plane/services/retrieval"
)

// Store is a brute-force in-memory retriever that scores chunks by lexical
// overlap with the query. It exists so the service runs end to end without a
// vector index; swap in a real Retriever for production retrieval quality.
//
// Scores are normalized to [0,1]: the fraction of distinct query terms that
// appear in the chunk.
type Store struct {
	mu     sync.RWMutex
	chunks []indexedChunk
}

type indexedChunk struct {
	text   string
	source string
	terms  map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add chunks a document and indexes every span. It returns the number of
// chunks indexed. Safe for concurrent use with Retrieve.
func (s *Store) Add(doc retrieval.Document, chunkSize int) int {
	spans := retrieval.SplitDocument(doc, chunkSize)

	indexed := make([]indexedChunk, 0, len(spans))
	for _, span := range spans {
		indexed = append(indexed, indexedChunk{
			text:   span,
			source: doc.Source,
			terms:  termSet(span),
		})
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, indexed...)
	s.mu.Unlock()

	return len(indexed)
}

// Len returns the number of indexed chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Clear drops all indexed chunks.
func (s *Store) Clear() {
	s.mu.Lock()
	s.chunks = nil
	s.mu.Unlock()
}

// Retrieve returns the top-scoring chunks for the query, ranked descending,
// with ordinal ranks assigned after sorting.
func (s *Store) Retrieve(_ context.Context, query string, opts retrieval.Options) ([]models.RetrievedChunk, error) {
	queryTerms := termSet(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	s.mu.RLock()
	scored := make([]models.RetrievedChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		score := overlap(queryTerms, c.terms)
		if score <= 0 || score < opts.MinScore {
			continue
		}
		scored = append(scored, models.RetrievedChunk{
			Text:   c.text,
			Source: c.source,
			Score:  score,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > opts.TopK {
		scored = scored[:opts.TopK]
	}
	for i := range scored {
		scored[i].Rank = i
	}
	return scored, nil
}

// overlap returns the fraction of query terms present in the chunk.
func overlap(query, chunk map[string]struct{}) float64 {
	var hits int
	for term := range query {
		if _, ok := chunk[term]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

func termSet(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		terms[word] = struct{}{}
	}
	return terms
}
