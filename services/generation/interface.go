package generation

import (
	"context"
	"time"
)

// Provider is the external text-generation collaborator. The pipeline makes
// at most one Complete call per query and treats any failure as a fallback
// condition, never as a crash.
type Provider interface {
	// Name returns the provider name (e.g. "openai").
	Name() string

	// Complete generates an answer for the assembled prompt.
	Complete(ctx context.Context, req *Request) (*Result, error)

	// IsAvailable checks if the provider is currently reachable.
	IsAvailable(ctx context.Context) bool
}

// Request is a unified generation request.
type Request struct {
	// System is the system message framing the task.
	System string `json:"system"`

	// User is the user message: packed context plus the question.
	User string `json:"user"`

	// MaxTokens caps the response length. The pipeline sets this to the
	// tokens it managed to reserve for the generation phase.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Timeout for the request.
	Timeout time.Duration `json:"-"`
}

// Result is a unified generation response.
type Result struct {
	// Text is the generated answer.
	Text string `json:"text"`

	// Usage is the token usage the provider reported. Zero-valued when the
	// provider does not report usage; callers fall back to their estimates.
	Usage Usage `json:"usage"`

	// FinishReason indicates why generation stopped ("stop", "length", ...).
	FinishReason string `json:"finish_reason,omitempty"`

	// Latency of the provider call.
	Latency time.Duration `json:"-"`
}

// Usage is token usage as reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderError is an error from a generation provider.
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error.
func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	if provErr, ok := err.(*ProviderError); ok {
		return provErr.Retryable
	}
	return false
}
