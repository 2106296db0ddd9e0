package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Document is one published page: a project name, a public slug and the
// root-level block sequence. It is always serialized wholesale.
type Document struct {
	ID          string     `json:"id,omitempty"`
	Slug        string     `json:"slug,omitempty"`
	ProjectName string     `json:"projectName"`
	Blocks      []Block    `json:"blocks"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	OwnerID     string     `json:"userId,omitempty"`
}

// Validate reports a missing project name or slug. A document failing
// validation is never persisted.
func (d *Document) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ProjectName, validation.Required),
		validation.Field(&d.Slug, validation.Required),
	)
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := d
	out.Blocks = CloneBlocks(d.Blocks)
	if d.CreatedAt != nil {
		t := *d.CreatedAt
		out.CreatedAt = &t
	}
	if d.UpdatedAt != nil {
		t := *d.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// IsOwner reports whether viewerID owns the document.
func (d *Document) IsOwner(viewerID string) bool {
	return viewerID != "" && d.OwnerID == viewerID
}

// Summary is the lightweight listing form of a document.
type Summary struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	ProjectName string    `json:"projectName"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SeedBlocks returns the starter tree of a new document: a single hero block.
func SeedBlocks(heroID string) []Block {
	return []Block{{
		ID:          heroID,
		Kind:        KindBlock,
		Category:    CategoryHero,
		Title:       "Welcome to My Project",
		RichContent: "This is a powerful tool that helps you build amazing things.",
		Style: &Style{
			BgColor:   "#f8fafc",
			Padding:   "2rem",
			TextAlign: "center",
		},
	}}
}
