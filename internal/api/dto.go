package api

import (
	"github.com/starford/onepage/internal/editor"
	"github.com/starford/onepage/internal/models"
	"github.com/starford/onepage/internal/session"
)

// CreateProjectRequest is the request body for creating a project. Seed
// defaults to true.
type CreateProjectRequest struct {
	ProjectName string `json:"projectName" example:"My Launch" validate:"required"`
	Slug        string `json:"slug" example:"my-launch" validate:"required"`
	Seed        *bool  `json:"seed,omitempty"`
}

// RenameSlugRequest is the request body for moving a project to a new slug.
type RenameSlugRequest struct {
	Slug string `json:"slug" example:"new-slug" validate:"required"`
}

// ProjectListResponse wraps the viewer's projects.
type ProjectListResponse struct {
	Projects []models.Summary `json:"projects" validate:"required"`
}

// SlugResponse reports slug availability.
type SlugResponse struct {
	Slug      string `json:"slug" example:"my-launch"`
	Available bool   `json:"available"`
}

// WarmResponse reports how many pages were cached.
type WarmResponse struct {
	Warmed int `json:"warmed" example:"50"`
}

// EditorResponse is returned by every editor gesture. ID carries the id of
// a created block or button.
type EditorResponse struct {
	ID       string       `json:"id,omitempty"`
	Changed  *bool        `json:"changed,omitempty"`
	Position string       `json:"position,omitempty"`
	State    editor.State `json:"state"`
}

// MoveRequest relocates a block relative to a target.
type MoveRequest struct {
	TargetID string          `json:"targetId"`
	Position models.Position `json:"position"`
}

// ResizeRequest applies a size preset.
type ResizeRequest struct {
	Size models.Size `json:"size" example:"medium"`
}

// BackgroundRequest sets a block background color.
type BackgroundRequest struct {
	Color string `json:"color" example:"#ffffff"`
}

// RenameProjectRequest changes the project name.
type RenameProjectRequest struct {
	ProjectName string `json:"projectName"`
}

// Gesture types accepted by POST /projects/{id}/editor/gestures.
const (
	GestureSelect            = "select"
	GestureClearSelection    = "clear-selection"
	GestureHover             = "hover"
	GestureUnhover           = "unhover"
	GestureBeginEdit         = "begin-edit"
	GestureBlur              = "blur"
	GestureBeginDrag         = "begin-drag"
	GestureDragOver          = "drag-over"
	GestureDragLeave         = "drag-leave"
	GestureDrop              = "drop"
	GestureEndDrag           = "end-drag"
	GestureToggleColorPicker = "toggle-color-picker"
)

// GestureRequest is one pointer or keyboard interaction. Only the fields
// relevant to Type are read.
type GestureRequest struct {
	Type     string        `json:"type" validate:"required"`
	ID       string        `json:"id,omitempty"`
	Field    session.Field `json:"field,omitempty"`
	Value    string        `json:"value,omitempty"`
	PointerY float64       `json:"pointerY,omitempty"`
	Top      float64       `json:"top,omitempty"`
	Height   float64       `json:"height,omitempty"`
}
