package models

import "fmt"

// RetrievedChunk is a single span of source text returned by retrieval,
// together with its normalized relevance score and position in the ranked
// result list. Chunks are passed by value into scoring and never mutated.
type RetrievedChunk struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
}

// Validate checks the chunk against the retrieval contract. A violation here
// is a programming error on the caller's side, not a runtime condition the
// pipeline recovers from.
func (c RetrievedChunk) Validate() error {
	if c.Text == "" {
		return fmt.Errorf("chunk rank %d: empty text", c.Rank)
	}
	if c.Score < 0 || c.Score > 1 {
		return fmt.Errorf("chunk rank %d: relevance score %f outside [0,1]", c.Rank, c.Score)
	}
	if c.Rank < 0 {
		return fmt.Errorf("chunk rank must be non-negative, got %d", c.Rank)
	}
	return nil
}

// Citation links an answer back to the source chunk that supported it.
type Citation struct {
	Source string `json:"source"`
	Rank   int    `json:"rank"`
}

// FallbackReason distinguishes why an answer degraded. Callers must be able
// to tell a provider outage apart from a low-confidence retrieval, so these
// are separate values rather than a single boolean.
type FallbackReason string

const (
	FallbackNone                  FallbackReason = ""
	FallbackEmptyRetrieval        FallbackReason = "empty_retrieval"
	FallbackLowConfidence         FallbackReason = "low_confidence"
	FallbackInsufficientBudget    FallbackReason = "insufficient_budget"
	FallbackGenerationUnavailable FallbackReason = "generation_unavailable"
)

// TokenUsage records token consumption reported for one query.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Answer is the single, always well-formed result of one query through the
// pipeline. Fallback is true exactly when confidence fell below threshold,
// the token budget ran out before generation completed, retrieval was empty,
// or the generation provider was unavailable.
type Answer struct {
	Text       string         `json:"text"`
	Citations  []Citation     `json:"citations"`
	Fallback   bool           `json:"fallback"`
	Reason     FallbackReason `json:"reason,omitempty"`
	Confidence float64        `json:"confidence"`
	Usage      TokenUsage     `json:"usage"`
}
