// Package projects coordinates the store, the cache and ownership rules for
// page documents.
package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/onepage/internal/apperr"
	"github.com/starford/onepage/internal/blocktree"
	"github.com/starford/onepage/internal/cache"
	"github.com/starford/onepage/internal/importer"
	"github.com/starford/onepage/internal/models"
	"github.com/starford/onepage/internal/store"
)

// DefaultWarmLimit is how many recent projects Warm caches by default.
const DefaultWarmLimit = 50

// Page is a published document together with what the viewer may do.
type Page struct {
	Document models.Document `json:"document"`
	Editable bool            `json:"editable"`
}

// Service coordinates store and cache operations.
type Service struct {
	store  store.Store
	cache  cache.Cache
	logger *slog.Logger

	maxPerOwner int
	newID       func() string
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMaxPerOwner caps the number of projects a single owner may create.
// Zero means no cap.
func WithMaxPerOwner(n int) Option {
	return func(s *Service) { s.maxPerOwner = n }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDFunc overrides the document id generator.
func WithIDFunc(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a project service. A nil cache disables caching.
func NewService(st store.Store, c cache.Cache, logger *slog.Logger, opts ...Option) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  st,
		cache:  c,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create stores a new project owned by owner. With seed set the page starts
// with a hero block; otherwise it is empty.
func (s *Service) Create(ctx context.Context, owner, name, slug string, seed bool) (models.Document, error) {
	name, slug = strings.TrimSpace(name), strings.TrimSpace(slug)
	if name == "" || slug == "" {
		return models.Document{}, fmt.Errorf("projects: %w: project name and slug are required", apperr.ErrInvalidDocument)
	}
	var blocks []models.Block
	if seed {
		blocks = models.SeedBlocks(blocktree.NewID())
	}
	return s.create(ctx, owner, name, slug, blocks)
}

func (s *Service) create(ctx context.Context, owner, name, slug string, blocks []models.Block) (models.Document, error) {
	if s.maxPerOwner > 0 {
		existing, err := s.store.ListByOwner(ctx, owner)
		if err != nil {
			return models.Document{}, err
		}
		if len(existing) >= s.maxPerOwner {
			return models.Document{}, fmt.Errorf("projects: owner %s reached %d projects: %w", owner, s.maxPerOwner, apperr.ErrForbidden)
		}
	}
	ok, err := s.store.SlugAvailable(ctx, slug, "")
	if err != nil {
		return models.Document{}, err
	}
	if !ok {
		return models.Document{}, fmt.Errorf("projects: slug %q: %w", slug, apperr.ErrConflict)
	}

	now := s.now().UTC()
	doc := models.Document{
		ID:          s.newID(),
		Slug:        slug,
		ProjectName: name,
		Blocks:      blocks,
		OwnerID:     owner,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return models.Document{}, err
	}
	s.logger.Info("projects: created", slog.String("id", doc.ID), slog.String("slug", slug))
	return doc, nil
}

// Import creates a project from a Markdown outline.
func (s *Service) Import(ctx context.Context, owner string, markdown []byte) (models.Document, error) {
	res, err := importer.Parse(markdown, importer.Options{})
	if err != nil {
		return models.Document{}, fmt.Errorf("projects: import: %w: %v", apperr.ErrInvalidDocument, err)
	}
	if res.ProjectName == "" || res.Slug == "" {
		return models.Document{}, fmt.Errorf("projects: import: %w: project name and slug are required", apperr.ErrInvalidDocument)
	}
	return s.create(ctx, owner, res.ProjectName, res.Slug, res.Blocks)
}

// Load returns a document without an ownership check. The editor hub uses
// it and applies ownership itself.
func (s *Service) Load(ctx context.Context, id string) (models.Document, error) {
	return s.store.Load(ctx, id)
}

// Get returns a document the viewer owns.
func (s *Service) Get(ctx context.Context, id, viewer string) (models.Document, error) {
	doc, err := s.store.Load(ctx, id)
	if err != nil {
		return models.Document{}, err
	}
	if !doc.IsOwner(viewer) {
		return models.Document{}, apperr.ErrForbidden
	}
	return doc, nil
}

// Public returns the page published under slug, reading through the cache.
func (s *Service) Public(ctx context.Context, slug, viewer string) (Page, error) {
	doc, err := s.cache.Get(ctx, slug)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrMiss):
		doc, err = s.store.LoadBySlug(ctx, slug)
		if err != nil {
			return Page{}, err
		}
		s.cacheSet(ctx, doc)
	default:
		s.logger.Warn("projects: cache read failed", slog.String("slug", slug), slog.String("error", err.Error()))
		doc, err = s.store.LoadBySlug(ctx, slug)
		if err != nil {
			return Page{}, err
		}
	}
	return Page{Document: doc, Editable: doc.IsOwner(viewer)}, nil
}

// Save stamps and persists doc and drops its cached copy. It is the
// autosave target of live editors.
func (s *Service) Save(ctx context.Context, doc models.Document) error {
	now := s.now().UTC()
	doc.UpdatedAt = &now
	if doc.CreatedAt == nil {
		doc.CreatedAt = &now
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return err
	}
	s.invalidate(ctx, doc.Slug)
	return nil
}

// Rename moves an owned project to a new slug.
func (s *Service) Rename(ctx context.Context, id, viewer, newSlug string) (models.Document, error) {
	newSlug = strings.TrimSpace(newSlug)
	if newSlug == "" {
		return models.Document{}, fmt.Errorf("projects: %w: slug is required", apperr.ErrInvalidDocument)
	}
	doc, err := s.Get(ctx, id, viewer)
	if err != nil {
		return models.Document{}, err
	}
	if doc.Slug == newSlug {
		return doc, nil
	}
	ok, err := s.store.SlugAvailable(ctx, newSlug, id)
	if err != nil {
		return models.Document{}, err
	}
	if !ok {
		return models.Document{}, fmt.Errorf("projects: slug %q: %w", newSlug, apperr.ErrConflict)
	}
	old := doc.Slug
	doc.Slug = newSlug
	if err := s.Save(ctx, doc); err != nil {
		return models.Document{}, err
	}
	s.invalidate(ctx, old)
	return s.store.Load(ctx, id)
}

// Delete removes an owned project.
func (s *Service) Delete(ctx context.Context, id, viewer string) error {
	doc, err := s.Get(ctx, id, viewer)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, doc.Slug)
	s.logger.Info("projects: deleted", slog.String("id", id))
	return nil
}

// List returns the owner's projects, newest first.
func (s *Service) List(ctx context.Context, owner string) ([]models.Summary, error) {
	items, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Summary{}
	}
	return items, nil
}

// SlugAvailable reports whether slug is free for project exceptID (empty
// for a new project).
func (s *Service) SlugAvailable(ctx context.Context, slug, exceptID string) (bool, error) {
	if strings.TrimSpace(slug) == "" {
		return false, fmt.Errorf("projects: %w: slug is required", apperr.ErrInvalidDocument)
	}
	return s.store.SlugAvailable(ctx, slug, exceptID)
}

// Warm caches the limit most recently updated projects and returns how
// many were cached.
func (s *Service) Warm(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultWarmLimit
	}
	docs, err := s.store.Recent(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("projects: warm: %w", err)
	}
	n := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if s.cacheSet(ctx, doc) {
			n++
		}
	}
	s.logger.Info("projects: cache warmed", slog.Int("count", n))
	return n, nil
}

// Invalidate drops the cached copy of the page under slug.
func (s *Service) Invalidate(ctx context.Context, slug string) {
	s.invalidate(ctx, slug)
}

func (s *Service) cacheSet(ctx context.Context, doc models.Document) bool {
	if err := s.cache.Set(ctx, doc); err != nil {
		s.logger.Warn("projects: cache write failed", slog.String("slug", doc.Slug), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *Service) invalidate(ctx context.Context, slug string) {
	if slug == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, slug); err != nil {
		s.logger.Warn("projects: cache invalidate failed", slog.String("slug", slug), slog.String("error", err.Error()))
	}
}
