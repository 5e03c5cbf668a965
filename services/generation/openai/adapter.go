package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/upb/rag-answer-plane/services/generation"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config holds the adapter settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Adapter implements generation.Provider against an OpenAI-compatible
// chat-completions endpoint.
type Adapter struct {
	config     Config
	httpClient *http.Client
}

// NewAdapter creates a new OpenAI adapter.
func NewAdapter(config Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	return &Adapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "openai"
}

// chatRequest is the wire format of a chat-completions request.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete performs a chat completion, retrying transient failures with
// exponential backoff.
func (a *Adapter) Complete(ctx context.Context, req *generation.Request) (*generation.Result, error) {
	startTime := time.Now()

	body, err := json.Marshal(chatRequest{
		Model: a.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, generation.NewProviderError(a.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, false, err)
	}

	backoff := retry.WithMaxRetries(uint64(a.config.MaxRetries), retry.NewExponential(a.config.RetryDelay))

	var parsed chatResponse
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			a.config.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return generation.NewProviderError(a.Name(), "REQUEST_ERROR", "failed to create request", 0, false, err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)

		httpResp, err := a.httpClient.Do(httpReq)
		if err != nil {
			return retry.RetryableError(
				generation.NewProviderError(a.Name(), "HTTP_ERROR", "http request failed", 0, true, err))
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return generation.NewProviderError(a.Name(), "READ_ERROR", "failed to read response", httpResp.StatusCode, false, err)
		}

		if httpResp.StatusCode != http.StatusOK {
			provErr := a.errorFromStatus(httpResp.StatusCode, respBody)
			if provErr.Retryable {
				return retry.RetryableError(provErr)
			}
			return provErr
		}

		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return generation.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "failed to unmarshal response", httpResp.StatusCode, false, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(parsed.Choices) == 0 {
		return nil, generation.NewProviderError(a.Name(), "EMPTY_RESPONSE", "no choices in response", 0, false, nil)
	}

	return &generation.Result{
		Text:         parsed.Choices[0].Message.Content,
		FinishReason: parsed.Choices[0].FinishReason,
		Usage: generation.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
		Latency: time.Since(startTime),
	}, nil
}

// IsAvailable checks provider reachability via the models endpoint.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (a *Adapter) errorFromStatus(status int, body []byte) *generation.ProviderError {
	var parsed chatResponse
	message := fmt.Sprintf("provider returned status %d", status)
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		message = parsed.Error.Message
	}

	switch {
	case status == http.StatusTooManyRequests:
		return generation.NewProviderError(a.Name(), "RATE_LIMITED", message, status, true, nil)
	case status >= 500:
		return generation.NewProviderError(a.Name(), "SERVER_ERROR", message, status, true, nil)
	case status == http.StatusUnauthorized:
		return generation.NewProviderError(a.Name(), "UNAUTHORIZED", message, status, false, nil)
	default:
		return generation.NewProviderError(a.Name(), "REQUEST_REJECTED", message, status, false, nil)
	}
}
