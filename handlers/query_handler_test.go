package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/rag-answer-plane/models"
	"github.com/upb/rag-answer-plane/services"
	"github.com/upb/rag-answer-plane/services/retrieval"
	"go.uber.org/zap"
)

type stubPipeline struct {
	answer    *models.Answer
	err       error
	gotQuery  string
	gotChunks []models.RetrievedChunk
	callCount int
}

func (s *stubPipeline) Answer(_ context.Context, query string, chunks []models.RetrievedChunk) (*models.Answer, error) {
	s.callCount++
	s.gotQuery = query
	s.gotChunks = chunks
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

type stubRetriever struct {
	chunks  []models.RetrievedChunk
	err     error
	gotOpts retrieval.Options
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, opts retrieval.Options) ([]models.RetrievedChunk, error) {
	s.gotOpts = opts
	return s.chunks, s.err
}

func postQuery(t *testing.T, handler *QueryHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.HandleQuery(rec, req)
	return rec
}

func TestHandleQuery_Success(t *testing.T) {
	pipeline := &stubPipeline{answer: &models.Answer{
		Text:       "the moon causes tides",
		Citations:  []models.Citation{{Source: "astro.md", Rank: 0}},
		Confidence: 0.8,
		Usage:      models.TokenUsage{PromptTokens: 100, CompletionTokens: 30, TotalTokens: 130},
	}}
	retriever := &stubRetriever{chunks: []models.RetrievedChunk{
		{Text: "gravity", Source: "astro.md", Score: 0.9, Rank: 0},
	}}
	handler := NewQueryHandler(pipeline, retriever, 5, 0, zap.NewNop())

	rec := postQuery(t, handler, QueryRequest{Query: "what causes tides?"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "the moon causes tides", resp.Answer)
	assert.False(t, resp.Fallback)
	assert.Equal(t, 0.8, resp.Confidence)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "astro.md", resp.Citations[0].Source)

	assert.Equal(t, "what causes tides?", pipeline.gotQuery)
	assert.Len(t, pipeline.gotChunks, 1)
	assert.Equal(t, 5, retriever.gotOpts.TopK, "default top-k applies when unset")
}

func TestHandleQuery_RefusalSubstitutesMessage(t *testing.T) {
	pipeline := &stubPipeline{answer: &models.Answer{
		Text:      "",
		Citations: []models.Citation{},
		Fallback:  true,
		Reason:    models.FallbackLowConfidence,
	}}
	handler := NewQueryHandler(pipeline, &stubRetriever{}, 5, 0, zap.NewNop())

	rec := postQuery(t, handler, QueryRequest{Query: "q"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, RefusalMessage, resp.Answer)
	assert.True(t, resp.Fallback)
	assert.Equal(t, string(models.FallbackLowConfidence), resp.Reason)
	assert.Empty(t, resp.Citations)
}

func TestHandleQuery_CaveatedAnswerKeepsGeneratedText(t *testing.T) {
	pipeline := &stubPipeline{answer: &models.Answer{
		Text:       "probably the moon",
		Citations:  []models.Citation{{Source: "astro.md"}},
		Fallback:   true,
		Reason:     models.FallbackLowConfidence,
		Confidence: 0.4,
	}}
	handler := NewQueryHandler(pipeline, &stubRetriever{}, 5, 0, zap.NewNop())

	rec := postQuery(t, handler, QueryRequest{Query: "q"})

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "probably the moon", resp.Answer, "caveated text is not replaced")
	assert.True(t, resp.Fallback)
}

func TestHandleQuery_InlineChunksBypassRetrieval(t *testing.T) {
	pipeline := &stubPipeline{answer: &models.Answer{Text: "ok", Citations: []models.Citation{}}}
	retriever := &stubRetriever{err: errors.New("retriever must not be called")}
	handler := NewQueryHandler(pipeline, retriever, 5, 0, zap.NewNop())

	rec := postQuery(t, handler, QueryRequest{
		Query: "q",
		Chunks: []models.RetrievedChunk{
			{Text: "supplied", Source: "inline.md", Score: 0.7, Rank: 0},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, pipeline.gotChunks, 1)
	assert.Equal(t, "inline.md", pipeline.gotChunks[0].Source)
}

func TestHandleQuery_TopKOverride(t *testing.T) {
	pipeline := &stubPipeline{answer: &models.Answer{Text: "ok", Citations: []models.Citation{}}}
	retriever := &stubRetriever{}
	handler := NewQueryHandler(pipeline, retriever, 5, 0, zap.NewNop())

	postQuery(t, handler, QueryRequest{Query: "q", TopK: 2})

	assert.Equal(t, 2, retriever.gotOpts.TopK)
}

func TestHandleQuery_MissingQueryRejected(t *testing.T) {
	pipeline := &stubPipeline{}
	handler := NewQueryHandler(pipeline, &stubRetriever{}, 5, 0, zap.NewNop())

	rec := postQuery(t, handler, QueryRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, pipeline.callCount)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp["error"])
}

func TestHandleQuery_MalformedBodyRejected(t *testing.T) {
	handler := NewQueryHandler(&stubPipeline{}, &stubRetriever{}, 5, 0, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.HandleQuery(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuery_PipelineValidationErrorMapsTo400(t *testing.T) {
	pipeline := &stubPipeline{err: services.ErrEmptyQuery}
	handler := NewQueryHandler(pipeline, &stubRetriever{
		chunks: []models.RetrievedChunk{{Text: "x", Source: "s", Score: 0.5, Rank: 0}},
	}, 5, 0, zap.NewNop())

	rec := postQuery(t, handler, QueryRequest{Query: "q"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuery_RetrieverFailureMapsTo500(t *testing.T) {
	pipeline := &stubPipeline{}
	retriever := &stubRetriever{err: errors.New("index offline")}
	handler := NewQueryHandler(pipeline, retriever, 5, 0, zap.NewNop())

	rec := postQuery(t, handler, QueryRequest{Query: "q"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 0, pipeline.callCount)
}
