// Package models defines the domain types for onepage.
package models

// Kind is the layout mode of a block: its own row or flowing with siblings.
type Kind string

const (
	KindBlock  Kind = "block"
	KindInline Kind = "inline"
)

// Category is a descriptive tag that only decides which editing
// affordances are offered for a block.
type Category string

const (
	CategoryNone         Category = ""
	CategoryText         Category = "text"
	CategoryCTA          Category = "cta"
	CategoryHero         Category = "hero"
	CategoryFeatureGroup Category = "feature-group"
	CategoryTestimonial  Category = "testimonial"
	CategoryFAQ          Category = "faq"
)

// Position is where a dragged or inserted block lands relative to a target.
type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
	PositionInside Position = "inside"
)

// Valid reports whether p is one of the three drop positions.
func (p Position) Valid() bool {
	switch p {
	case PositionBefore, PositionAfter, PositionInside:
		return true
	}
	return false
}

// Style holds optional presentation attributes of a block.
type Style struct {
	BgColor      string `json:"bgColor,omitempty"`
	BorderColor  string `json:"borderColor,omitempty"`
	Padding      string `json:"padding,omitempty"`
	Margin       string `json:"margin,omitempty"`
	BorderRadius string `json:"borderRadius,omitempty"`
	TextAlign    string `json:"textAlign,omitempty"` // left, center, right
	Width        string `json:"width,omitempty"`     // percentage or "auto"
	Layout       string `json:"layout,omitempty"`    // row, column
}

// Merge returns a copy of s with every non-empty field of patch applied.
func (s *Style) Merge(patch Style) *Style {
	out := Style{}
	if s != nil {
		out = *s
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&out.BgColor, patch.BgColor)
	set(&out.BorderColor, patch.BorderColor)
	set(&out.Padding, patch.Padding)
	set(&out.Margin, patch.Margin)
	set(&out.BorderRadius, patch.BorderRadius)
	set(&out.TextAlign, patch.TextAlign)
	set(&out.Width, patch.Width)
	set(&out.Layout, patch.Layout)
	return &out
}

// ButtonStyle holds colors of a call-to-action button.
type ButtonStyle struct {
	BgColor   string `json:"bgColor,omitempty"`
	TextColor string `json:"textColor,omitempty"`
}

// CTAButton is a link button rendered on cta and hero blocks.
type CTAButton struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	URL     string       `json:"url"`
	Variant string       `json:"variant,omitempty"`
	Style   *ButtonStyle `json:"style,omitempty"`
}

// Block is a node in the content tree. ID is unique across the whole tree.
type Block struct {
	ID          string      `json:"id"`
	Kind        Kind        `json:"type"`
	Category    Category    `json:"blockType,omitempty"`
	Title       string      `json:"title,omitempty"`
	RichContent string      `json:"content,omitempty"`
	Style       *Style      `json:"style,omitempty"`
	Children    []Block     `json:"children,omitempty"`
	CTAButtons  []CTAButton `json:"ctaButtons,omitempty"`
}

// Clone returns a deep copy of b. Empty slices come back as nil.
func (b Block) Clone() Block {
	out := b
	if b.Style != nil {
		st := *b.Style
		out.Style = &st
	}
	out.Children = CloneBlocks(b.Children)
	if len(b.CTAButtons) > 0 {
		out.CTAButtons = make([]CTAButton, len(b.CTAButtons))
		for i, btn := range b.CTAButtons {
			out.CTAButtons[i] = btn
			if btn.Style != nil {
				bs := *btn.Style
				out.CTAButtons[i].Style = &bs
			}
		}
	} else {
		out.CTAButtons = nil
	}
	return out
}

// CloneBlocks deep-copies a block sequence.
func CloneBlocks(blocks []Block) []Block {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}
