package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/upb/rag-answer-plane/middleware"
	"github.com/upb/rag-answer-plane/services/retrieval"
	"github.com/upb/rag-answer-plane/services/retrieval/memory"
	"github.com/upb/rag-answer-plane/utils"
	"go.uber.org/zap"
)

// IngestRequest represents a document ingestion request
type IngestRequest struct {
	Documents []IngestDocument `json:"documents" validate:"required,min=1,dive"`
}

// IngestDocument is one document to chunk and index
type IngestDocument struct {
	Source  string `json:"source" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// IngestResponse reports how much the store grew
type IngestResponse struct {
	Documents   int `json:"documents"`
	Chunks      int `json:"chunks"`
	TotalChunks int `json:"total_chunks"`
}

// IngestHandler handles document ingestion HTTP requests
type IngestHandler struct {
	store     *memory.Store
	chunkSize int
	logger    *zap.Logger
}

// NewIngestHandler creates a new IngestHandler
func NewIngestHandler(store *memory.Store, chunkSize int, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		store:     store,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// HandleIngest handles POST /api/v1/ingest
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var ingestReq IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&ingestReq); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&ingestReq); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	added := 0
	for _, doc := range ingestReq.Documents {
		added += h.store.Add(retrieval.Document{
			Source:  doc.Source,
			Content: doc.Content,
		}, h.chunkSize)
	}

	h.logger.Info("documents ingested",
		zap.String("request_id", requestID),
		zap.Int("documents", len(ingestReq.Documents)),
		zap.Int("chunks", added))

	_ = utils.WriteOK(w, IngestResponse{
		Documents:   len(ingestReq.Documents),
		Chunks:      added,
		TotalChunks: h.store.Len(),
	})
}
