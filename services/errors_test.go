package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "bad chunk", nil)

	assert.ErrorIs(t, err, ErrEmptyQuery, "errors of the same type match")
	assert.NotErrorIs(t, err, ErrInternal)
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapInternal("something failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestDomainError_TypeHelpers(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrMalformedChunk)

	assert.True(t, IsValidationError(wrapped))
	assert.False(t, IsInternalError(wrapped))
	assert.False(t, IsExternalError(wrapped))
	assert.Equal(t, ErrorTypeValidation, GetErrorType(wrapped))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeBudget, "over budget", nil).
		WithDetail("phase", "generation")

	assert.Equal(t, "generation", err.Details["phase"])
}
