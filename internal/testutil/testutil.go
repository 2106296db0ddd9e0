// Package testutil provides shared test helpers.
package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/onepage/internal/models"
)

// Eventually polls fn every tick until it returns true or timeout elapses,
// and fails the test with msg in the latter case.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Document returns a valid document owned by owner with a small tree:
// hero, features{f1, f2}, cta.
func Document(id, slug, owner string) models.Document {
	return models.Document{
		ID:          id,
		Slug:        slug,
		ProjectName: "Project " + slug,
		OwnerID:     owner,
		Blocks: []models.Block{
			{ID: "hero", Kind: models.KindBlock, Category: models.CategoryHero, Title: "Hello"},
			{ID: "features", Kind: models.KindBlock, Category: models.CategoryFeatureGroup, Children: []models.Block{
				{ID: "f1", Kind: models.KindInline, Title: "Fast"},
				{ID: "f2", Kind: models.KindInline, Title: "Simple"},
			}},
			{ID: "cta", Kind: models.KindBlock, Category: models.CategoryCTA, CTAButtons: []models.CTAButton{
				{ID: "btn", Text: "Start", URL: "/start"},
			}},
		},
	}
}
