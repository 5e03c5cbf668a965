package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/upb/rag-answer-plane/config"
	"github.com/upb/rag-answer-plane/internal/observability"
	"github.com/upb/rag-answer-plane/services/answer"
	"github.com/upb/rag-answer-plane/services/audit"
	"github.com/upb/rag-answer-plane/services/generation"
	"github.com/upb/rag-answer-plane/services/generation/openai"
	"github.com/upb/rag-answer-plane/services/prompt"
	"github.com/upb/rag-answer-plane/services/retrieval/memory"
	"github.com/upb/rag-answer-plane/services/scoring"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *sql.DB
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Domain services
	Store    *memory.Store
	Provider generation.Provider
	Audit    *audit.Service
	Pipeline *answer.Service
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewMetrics()
	}

	deps.Store = memory.NewStore()
	deps.Audit = audit.NewService(deps.DB, logger)

	deps.Provider = openai.NewAdapter(openai.Config{
		APIKey:     cfg.Generator.APIKey,
		BaseURL:    cfg.Generator.BaseURL,
		Model:      cfg.Generator.Model,
		Timeout:    cfg.Generator.Timeout,
		MaxRetries: cfg.Generator.MaxRetries,
		RetryDelay: cfg.Generator.RetryDelay,
	})

	deps.Pipeline = answer.NewService(
		answer.Config{
			ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
			ConfidenceFloor:     cfg.Pipeline.ConfidenceFloor,
			MaxTokensPerQuery:   cfg.Pipeline.MaxTokensPerQuery,
			MaxChunksInPrompt:   cfg.Pipeline.MaxChunksInPrompt,
			ChunkRelevanceFloor: cfg.Pipeline.ChunkRelevanceFloor,
			MinGenerationTokens: cfg.Pipeline.MinGenerationTokens,
			Weights: scoring.Weights{
				TopRelevance: cfg.Pipeline.TopRelevanceWeight,
				Coverage:     cfg.Pipeline.CoverageWeight,
				Dispersion:   cfg.Pipeline.DispersionWeight,
			},
		},
		deps.Provider,
		prompt.NewCounter(),
		deps.Audit,
		deps.Metrics,
		logger,
	)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the audit database when configured. Audit logging is
// optional: with no database config the service runs without persistence.
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		d.Logger.Info("no database configured, audit logging disabled")
		return nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}
	d.DB = db

	if err := audit.NewService(db, d.Logger).InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))
	return nil
}

// Close releases held resources.
func (d *Dependencies) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
