package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/larpforge/storyai/internal/api"
	"github.com/larpforge/storyai/internal/api/handlers"
	"github.com/larpforge/storyai/internal/api/middleware"
)

type RouterConfig struct {
	QueryHandler  *handlers.QueryHandler
	LoreHandler   *handlers.LoreHandler
	LARPHandler   *handlers.LARPHandler
	ObjectHandler *handlers.ObjectHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/query", cfg.QueryHandler.Query)

	r.Route("/lore", func(r chi.Router) {
		r.Post("/", cfg.LoreHandler.Create)
		r.Get("/", cfg.LoreHandler.List)
		r.Get("/{id}", cfg.LoreHandler.Get)
		r.Put("/{id}", cfg.LoreHandler.Update)
		r.Delete("/{id}", cfg.LoreHandler.Delete)
	})

	r.Route("/larps", func(r chi.Router) {
		r.Post("/", cfg.LARPHandler.Create)
		r.Get("/", cfg.LARPHandler.List)
		r.Get("/{id}", cfg.LARPHandler.Get)
	})

	r.Route("/objects", func(r chi.Router) {
		r.Post("/reindex", cfg.ObjectHandler.Reindex)
		r.Delete("/{entity_id}", cfg.ObjectHandler.Remove)
	})

	return r
}
