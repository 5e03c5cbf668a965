package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/rag-answer-plane/middleware"
	"github.com/upb/rag-answer-plane/models"
	"github.com/upb/rag-answer-plane/services/retrieval"
	"github.com/upb/rag-answer-plane/utils"
	"go.uber.org/zap"
)

// RefusalMessage is the user-facing text substituted for refused answers.
const RefusalMessage = "I don't have enough information to answer confidently."

// QueryRequest represents a query request
type QueryRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k,omitempty" validate:"gte=0,lte=50"`

	// Chunks optionally supplies pre-retrieved context, bypassing the
	// document store. Used by callers that run their own retrieval.
	Chunks []models.RetrievedChunk `json:"chunks,omitempty"`
}

// QueryResponse represents a query response
type QueryResponse struct {
	Answer     string            `json:"answer"`
	Citations  []models.Citation `json:"citations"`
	Fallback   bool              `json:"fallback"`
	Reason     string            `json:"reason,omitempty"`
	Confidence float64           `json:"confidence"`
	Usage      models.TokenUsage `json:"usage"`
	RequestID  string            `json:"request_id,omitempty"`
}

// AnswerService defines the interface for the answer pipeline
type AnswerService interface {
	Answer(ctx context.Context, query string, chunks []models.RetrievedChunk) (*models.Answer, error)
}

// QueryHandler handles query-related HTTP requests
type QueryHandler struct {
	pipeline  AnswerService
	retriever retrieval.Retriever
	topK      int
	minScore  float64
	logger    *zap.Logger
}

// NewQueryHandler creates a new QueryHandler. topK and minScore are the
// retrieval defaults applied when the request does not override them.
func NewQueryHandler(pipeline AnswerService, retriever retrieval.Retriever, topK int, minScore float64, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		pipeline:  pipeline,
		retriever: retriever,
		topK:      topK,
		minScore:  minScore,
		logger:    logger,
	}
}

// HandleQuery handles POST /api/v1/query
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var queryReq QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&queryReq); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&queryReq); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	chunks := queryReq.Chunks
	if chunks == nil {
		topK := queryReq.TopK
		if topK == 0 {
			topK = h.topK
		}
		retrieved, err := h.retriever.Retrieve(ctx, queryReq.Query, retrieval.Options{
			TopK:     topK,
			MinScore: h.minScore,
		})
		if err != nil {
			h.logger.Error("retrieval failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			HandleServiceError(w, err, h.logger)
			return
		}
		chunks = retrieved
	}

	answer, err := h.pipeline.Answer(ctx, queryReq.Query, chunks)
	if err != nil {
		h.logger.Error("answer pipeline failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	response := QueryResponse{
		Answer:     answer.Text,
		Citations:  answer.Citations,
		Fallback:   answer.Fallback,
		Reason:     string(answer.Reason),
		Confidence: answer.Confidence,
		Usage:      answer.Usage,
		RequestID:  requestID,
	}
	if response.Answer == "" && answer.Fallback {
		response.Answer = RefusalMessage
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
