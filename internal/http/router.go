package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docsync-ai/internal/handlers"
	"docsync-ai/internal/rag"
	"docsync-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Folders     handlers.FolderService
	Admin       handlers.FolderAdmin
	Retriever   rag.Retriever
	Engine      rag.Engine
	VectorStore vectorstore.VectorStore
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	folders := handlers.NewFoldersHandler(deps.Folders, deps.Admin)
	retrieve := handlers.NewRetrieveHandler(deps.Retriever)
	ask := handlers.NewAskHandler(deps.Engine)
	health := handlers.NewHealthHandler(deps.VectorStore, deps.Folders)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", health)

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", folders.List)
			r.Post("/", folders.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", folders.Status)
				r.Delete("/", folders.Delete)
				r.Get("/status", folders.Status)
				r.Get("/stats", folders.Stats)
				r.Post("/sync", folders.Sync)
				r.Put("/provider", folders.SetProvider)
				r.Method(http.MethodPost, "/retrieve", retrieve)
				r.Method(http.MethodPost, "/ask", ask)
			})
		})
	})

	return r
}
