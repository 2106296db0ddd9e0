package blocktree

import "github.com/google/uuid"

// IDFunc mints a fresh block id.
type IDFunc func() string

// NewID returns a random block id.
func NewID() string {
	return "block-" + uuid.NewString()
}

// NewButtonID returns a random CTA button id.
func NewButtonID() string {
	return "button-" + uuid.NewString()
}
