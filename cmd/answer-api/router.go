// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/insurelex/answer-engine/internal/config"
	"github.com/insurelex/answer-engine/internal/observability"
	"github.com/insurelex/answer-engine/pkg/engine"
)

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, eng *engine.Engine, cfg *config.Config) http.Handler {
	h := newHandlers(logger, eng)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Server.WriteTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"answer-engine"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", h.Query)
		r.Post("/analyze", h.Analyze)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.Ingest)
			r.Delete("/{docID}", h.DeleteDocument)
		})
	})

	return r
}
