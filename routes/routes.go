package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/rag-answer-plane/app"
	"github.com/upb/rag-answer-plane/handlers"
	"github.com/upb/rag-answer-plane/middleware"
	"github.com/upb/rag-answer-plane/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(deps.Config.Server.WriteTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Provider, deps.Logger)
	queryHandler := handlers.NewQueryHandler(
		deps.Pipeline,
		deps.Store,
		deps.Config.Retrieval.TopK,
		deps.Config.Retrieval.MinScore,
		deps.Logger,
	)
	ingestHandler := handlers.NewIngestHandler(deps.Store, deps.Config.Retrieval.ChunkSize, deps.Logger)
	auditHandler := handlers.NewAuditHandler(deps.Audit, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// Prometheus metrics
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", queryHandler.HandleQuery)
		r.Post("/ingest", ingestHandler.HandleIngest)
		r.Get("/queries", auditHandler.HandleRecentQueries)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "Route not found")
	})

	return r
}
