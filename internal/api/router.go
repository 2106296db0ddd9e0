package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/onepage/internal/editor"
	"github.com/starford/onepage/internal/projects"
)

// NewRouter creates a chi router with all API routes mounted.
// Public pages and slug checks are open to anonymous viewers; everything
// else requires a resolved viewer. events, if non-nil, is mounted at
// GET /events.
func NewRouter(svc *projects.Service, hub *editor.Hub, auth Auth, events http.Handler) chi.Router {
	h := NewHandler(svc, hub, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth))

	// Public reads.
	r.Get("/pages/{slug}", h.GetPage)
	r.Get("/slugs/{slug}", h.CheckSlug)

	r.Group(func(r chi.Router) {
		r.Use(RequireViewer)

		// Projects.
		r.Get("/projects", h.ListProjects)
		r.Post("/projects", h.CreateProject)
		r.Post("/projects/import", h.ImportProject)
		r.Get("/projects/{id}", h.GetProject)
		r.Delete("/projects/{id}", h.DeleteProject)
		r.Put("/projects/{id}/slug", h.RenameSlug)

		// Editor.
		r.Route("/projects/{id}/editor", h.editorRoutes)

		// Cache.
		r.Post("/cache/warm", h.WarmCache)

		// SSE endpoint (protected by same auth middleware).
		if events != nil {
			r.Get("/events", h.Events)
		}
	})

	return r
}
