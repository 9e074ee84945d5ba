package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"diary-rag/internal/handlers"
	"diary-rag/internal/rag"
	"diary-rag/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Entries      storage.EntryStore
	Retriever    *rag.Retriever
	Orchestrator handlers.OrchestratorFactory
	DB           handlers.Pinger
}

// NewRouter creates the HTTP router with all API routes registered.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(LoggerMiddleware)

	entryHandler := handlers.NewEntryHandler(deps.Entries)
	retrieveHandler := handlers.NewRetrieveHandler(deps.Retriever)
	indexHandler := handlers.NewIndexHandler(deps.Orchestrator)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.Route("/api", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", entryHandler.Create)
			r.Get("/", entryHandler.List)
			r.Put("/{id}", entryHandler.Update)
			r.Delete("/{id}", entryHandler.Delete)
		})
		r.Post("/retrieve", retrieveHandler.Retrieve)
		r.Route("/index", func(r chi.Router) {
			r.Post("/", indexHandler.Run)
			r.Get("/stats", indexHandler.Stats)
		})
	})

	r.Get("/healthz", healthHandler.Check)

	return r
}
