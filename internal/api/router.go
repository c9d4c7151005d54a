package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/aifeed/aifeed/internal/ai"
	"github.com/aifeed/aifeed/internal/api/handlers"
	"github.com/aifeed/aifeed/internal/metrics"
	"github.com/aifeed/aifeed/internal/storage"
)

// NewRouter creates the HTTP router with the post API, the generation
// trigger, health and metrics endpoints.
func NewRouter(store storage.PostStore, registry ai.Registry, gen handlers.Generator) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(RequestLogger)
	r.Use(Metrics)
	r.Use(Recovery)
	r.Use(CORS)

	r.Get("/healthz", handlers.Health())
	r.Method("GET", "/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/posts", handlers.ListPosts(store))
		api.Post("/posts", handlers.CreatePost(store))
		api.Get("/posts/slug/{slug}", handlers.GetPostBySlug(store))
		api.Get("/posts/{id}", handlers.GetPost(store))
		api.Put("/posts/{id}", handlers.UpdatePost(store))
		api.Delete("/posts/{id}", handlers.DeletePost(store))

		api.Get("/generate-post", handlers.GeneratePost(gen))
		api.Post("/generate-post", handlers.GeneratePost(gen))

		api.Get("/providers", handlers.ListProviders(registry))
	})

	return r
}
