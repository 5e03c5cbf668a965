package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/rag-answer-plane/models"
	"go.uber.org/zap"
)

// Record is one answered query's outcome, persisted for later analysis of
// fallback rates and token spend.
type Record struct {
	ID               uuid.UUID
	Query            string
	Decision         string
	Reason           models.FallbackReason
	Confidence       float64
	PromptTokens     int
	CompletionTokens int
	LatencyMs        int
	CreatedAt        time.Time
}

// Service writes query outcomes to PostgreSQL. A nil database disables
// auditing: every method becomes a no-op so the pipeline does not need a
// separate code path for audit-less deployments.
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService creates a new audit Service. db may be nil.
func NewService(db *sql.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Enabled reports whether audit persistence is configured.
func (s *Service) Enabled() bool {
	return s.db != nil
}

// InitSchema creates the audit table when it does not exist yet.
func (s *Service) InitSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	query := `
		CREATE TABLE IF NOT EXISTS query_audit (
			id                UUID PRIMARY KEY,
			query             TEXT NOT NULL,
			decision          TEXT NOT NULL,
			reason            TEXT NOT NULL DEFAULT '',
			confidence        DOUBLE PRECISION NOT NULL,
			prompt_tokens     INTEGER NOT NULL,
			completion_tokens INTEGER NOT NULL,
			latency_ms        INTEGER NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL
		)
	`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create query_audit table: %w", err)
	}
	return nil
}

// LogQuery persists one query outcome.
func (s *Service) LogQuery(ctx context.Context, rec Record) error {
	if s.db == nil {
		return nil
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO query_audit
		(id, query, decision, reason, confidence, prompt_tokens, completion_tokens, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Query, rec.Decision, string(rec.Reason), rec.Confidence,
		rec.PromptTokens, rec.CompletionTokens, rec.LatencyMs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// RecentQueries returns the most recent query outcomes, newest first.
func (s *Service) RecentQueries(ctx context.Context, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, query, decision, reason, confidence, prompt_tokens, completion_tokens, latency_ms, created_at
		FROM query_audit
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		var reason string
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Decision, &reason, &rec.Confidence,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.LatencyMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Reason = models.FallbackReason(reason)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// CleanupOldRecords removes audit rows older than the retention window.
func (s *Service) CleanupOldRecords(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s.db == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM query_audit WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info("cleaned up old audit records",
		zap.Int64("rows_deleted", deleted),
		zap.Time("cutoff", cutoff))
	return deleted, nil
}
