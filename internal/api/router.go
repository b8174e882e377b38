// Package api assembles the HTTP router for the budget service.
package api

import (
	"net/http"

	"github.com/dvloznov/smart-budget/internal/api/handlers"
	"github.com/dvloznov/smart-budget/internal/api/middleware"
	"github.com/dvloznov/smart-budget/internal/jobs"
	"github.com/dvloznov/smart-budget/internal/tools"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterConfig holds the dependencies of the HTTP API.
type RouterConfig struct {
	Toolkit   *tools.Toolkit
	Publisher jobs.Publisher
	Store     jobs.JobStore
	Log       zerolog.Logger

	// DataDir is the only local directory request bodies may read from.
	// Exports stay under the toolkit output directory.
	DataDir        string
	// Bucket is the only bucket gs:// paths in request bodies may name.
	Bucket         string
	// AllowedOrigins defaults to any origin.
	AllowedOrigins []string
}

// NewRouter creates the chi router with middleware and all routes.
func NewRouter(cfg RouterConfig) http.Handler {
	paths := handlers.PathPolicy{
		DataDir:   cfg.DataDir,
		OutputDir: cfg.Toolkit.OutputDir(),
		Bucket:    cfg.Bucket,
	}
	budgetHandler := handlers.NewBudgetHandler(cfg.Toolkit, paths, cfg.Log)
	runsHandler := handlers.NewRunsHandler(cfg.Publisher, cfg.Store, paths, cfg.Log)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Log))
	r.Use(middleware.Logger(cfg.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         3600,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/import", budgetHandler.Import)
		r.Post("/categorize", budgetHandler.Categorize)
		r.Post("/analyze", budgetHandler.Analyze)
		r.Post("/anomalies", budgetHandler.Anomalies)
		r.Post("/export/transactions", budgetHandler.ExportTransactions)
		r.Post("/export/analytics", budgetHandler.ExportAnalytics)
		r.Get("/rules", budgetHandler.Rules)

		r.Post("/runs", runsHandler.CreateRun)
		r.Get("/runs", runsHandler.ListRuns)
		r.Get("/runs/{id}", runsHandler.GetRun)
	})

	return r
}
