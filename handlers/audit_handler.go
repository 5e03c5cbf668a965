package handlers

import (
	"net/http"
	"strconv"

	"github.com/upb/rag-answer-plane/middleware"
	"github.com/upb/rag-answer-plane/services/audit"
	"github.com/upb/rag-answer-plane/utils"
	"go.uber.org/zap"
)

const defaultAuditLimit = 50

// AuditHandler exposes the query audit log over HTTP
type AuditHandler struct {
	service *audit.Service
	logger  *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service *audit.Service, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger,
	}
}

// HandleRecentQueries handles GET /api/v1/queries
func (h *AuditHandler) HandleRecentQueries(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	if h.service == nil || !h.service.Enabled() {
		_ = utils.WriteNotFound(w, "Audit logging is not configured")
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			_ = utils.WriteBadRequest(w, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	records, err := h.service.RecentQueries(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read audit records",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, map[string]interface{}{
		"queries": records,
		"count":   len(records),
	})
}
