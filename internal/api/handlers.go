package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/onepage/internal/editor"
	"github.com/starford/onepage/internal/projects"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *projects.Service
	hub    *editor.Hub
	events http.Handler
}

// NewHandler creates a new Handler.
func NewHandler(svc *projects.Service, hub *editor.Hub, events http.Handler) *Handler {
	return &Handler{svc: svc, hub: hub, events: events}
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List the viewer's projects, newest first
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), Viewer(r.Context()))
	if err != nil {
		writeError(w, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: items})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	true	"Project to create"
//	@Success		201		{object}	models.Document
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ProjectName == "" || req.Slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("projectName and slug are required"))
		return
	}
	seed := req.Seed == nil || *req.Seed
	doc, err := h.svc.Create(r.Context(), Viewer(r.Context()), req.ProjectName, req.Slug, seed)
	if err != nil {
		writeError(w, "create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ImportProject handles POST /api/projects/import. The body is a Markdown
// outline with YAML frontmatter.
//
//	@Summary		Create a project from Markdown
//	@Tags			projects
//	@Accept			plain
//	@Produce		json
//	@Success		201	{object}	models.Document
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/import [post]
func (h *Handler) ImportProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	doc, err := h.svc.Import(r.Context(), Viewer(r.Context()), body)
	if err != nil {
		writeError(w, "import project", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetProject handles GET /api/projects/{id}.
//
//	@Summary		Get an owned project
//	@Tags			projects
//	@Produce		json
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{object}	models.Document
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), Viewer(r.Context()))
	if err != nil {
		writeError(w, "get project", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteProject handles DELETE /api/projects/{id}. A live editor of the
// project is dropped without saving.
//
//	@Summary		Delete an owned project
//	@Tags			projects
//	@Param			id	path	string	true	"Project id"
//	@Success		204	"Project deleted"
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, viewer := chi.URLParam(r, "id"), Viewer(ctx)
	if _, err := h.svc.Get(ctx, id, viewer); err != nil {
		writeError(w, "delete project", err)
		return
	}
	h.hub.Discard(id)
	if err := h.svc.Delete(ctx, id, viewer); err != nil {
		writeError(w, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameSlug handles PUT /api/projects/{id}/slug. The live editor is
// flushed and closed first so it cannot write the old slug back.
//
//	@Summary		Move a project to a new slug
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Project id"
//	@Param			body	body		RenameSlugRequest	true	"New slug"
//	@Success		200		{object}	models.Document
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/slug [put]
func (h *Handler) RenameSlug(w http.ResponseWriter, r *http.Request) {
	var req RenameSlugRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	id, viewer := chi.URLParam(r, "id"), Viewer(ctx)
	if _, err := h.svc.Get(ctx, id, viewer); err != nil {
		writeError(w, "rename slug", err)
		return
	}
	if err := h.hub.Close(ctx, id); err != nil {
		writeError(w, "rename slug", err)
		return
	}
	doc, err := h.svc.Rename(ctx, id, viewer, req.Slug)
	if err != nil {
		writeError(w, "rename slug", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// CheckSlug handles GET /api/slugs/{slug}.
//
//	@Summary		Check whether a slug is free
//	@Tags			projects
//	@Produce		json
//	@Param			slug	path		string	true	"Slug"
//	@Param			except	query		string	false	"Project id allowed to hold the slug"
//	@Success		200		{object}	SlugResponse
//	@Router			/slugs/{slug} [get]
func (h *Handler) CheckSlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	ok, err := h.svc.SlugAvailable(r.Context(), slug, r.URL.Query().Get("except"))
	if err != nil {
		writeError(w, "check slug", err)
		return
	}
	writeJSON(w, http.StatusOK, SlugResponse{Slug: slug, Available: ok})
}

// GetPage handles GET /api/pages/{slug}, the public read of a page.
//
//	@Summary		Get a published page
//	@Tags			pages
//	@Produce		json
//	@Param			slug	path		string	true	"Slug"
//	@Success		200		{object}	projects.Page
//	@Failure		404		{object}	errResponse
//	@Router			/pages/{slug} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Public(r.Context(), chi.URLParam(r, "slug"), Viewer(r.Context()))
	if err != nil {
		writeError(w, "get page", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// WarmCache handles POST /api/cache/warm.
//
//	@Summary		Cache the most recently updated pages
//	@Tags			pages
//	@Produce		json
//	@Param			limit	query		int	false	"How many pages"
//	@Success		200		{object}	WarmResponse
//	@Security		BearerAuth
//	@Router			/cache/warm [post]
func (h *Handler) WarmCache(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	n, err := h.svc.Warm(r.Context(), limit)
	if err != nil {
		writeError(w, "warm cache", err)
		return
	}
	writeJSON(w, http.StatusOK, WarmResponse{Warmed: n})
}

// Events handles GET /api/events. Following one project requires owning it.
//
//	@Summary		Stream editor and project events
//	@Tags			events
//	@Produce		text/event-stream
//	@Param			project	query	string	false	"Project id"
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("project"); id != "" {
		if _, err := h.svc.Get(r.Context(), id, Viewer(r.Context())); err != nil {
			writeError(w, "events", err)
			return
		}
	}
	h.events.ServeHTTP(w, r)
}
