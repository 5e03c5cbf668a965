package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/rag-answer-plane/services/audit"
	"go.uber.org/zap"
)

func TestHandleRecentQueries_DisabledAudit(t *testing.T) {
	handler := NewAuditHandler(audit.NewService(nil, zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	handler.HandleRecentQueries(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queries", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRecentQueries_ReturnsRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, query, decision").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "query", "decision", "reason", "confidence",
			"prompt_tokens", "completion_tokens", "latency_ms", "created_at",
		}).AddRow(uuid.NewString(), "what causes tides?", "direct_answer", "", 0.8, 120, 40, 900, now))

	handler := NewAuditHandler(audit.NewService(db, zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	handler.HandleRecentQueries(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queries", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Queries []audit.Record `json:"queries"`
		Count   int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Queries, 1)
	assert.Equal(t, "what causes tides?", resp.Queries[0].Query)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRecentQueries_LimitOverride(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, query, decision").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "query", "decision", "reason", "confidence",
			"prompt_tokens", "completion_tokens", "latency_ms", "created_at",
		}))

	handler := NewAuditHandler(audit.NewService(db, zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	handler.HandleRecentQueries(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queries?limit=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRecentQueries_InvalidLimit(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := NewAuditHandler(audit.NewService(db, zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	handler.HandleRecentQueries(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queries?limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
