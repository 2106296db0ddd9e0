package models

import "fmt"

// Template names a starter block offered by the add-block menu.
type Template string

const (
	TemplateEmpty Template = "empty"
	TemplateText  Template = "text"
	TemplateCTA   Template = "cta"
)

// NewBlock builds a starter block from a template. buttonID is only used
// by TemplateCTA.
func NewBlock(t Template, kind Kind, id, buttonID string) (Block, error) {
	if kind == "" {
		kind = KindBlock
	}
	switch t {
	case TemplateEmpty, "":
		return Block{ID: id, Kind: kind}, nil
	case TemplateText:
		return Block{
			ID:          id,
			Kind:        kind,
			Category:    CategoryText,
			Title:       "New Text Block",
			RichContent: "Add your content here...",
			Style: &Style{
				BgColor:     "#ffffff",
				Padding:     "2rem",
				BorderColor: "#e2e8f0",
				TextAlign:   "left",
			},
		}, nil
	case TemplateCTA:
		return Block{
			ID:       id,
			Kind:     kind,
			Category: CategoryCTA,
			Style: &Style{
				BgColor:   "transparent",
				Padding:   "1rem",
				TextAlign: "center",
			},
			CTAButtons: []CTAButton{NewButton(buttonID)},
		}, nil
	}
	return Block{}, fmt.Errorf("unknown block template %q", t)
}

// NewButton returns the default primary call-to-action button.
func NewButton(id string) CTAButton {
	return CTAButton{
		ID:      id,
		Text:    "Click Here",
		URL:     "#",
		Variant: "primary",
		Style:   &ButtonStyle{BgColor: "#3b82f6", TextColor: "#ffffff"},
	}
}

// Size is a preset block width.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Width returns the style width of the preset, or "" for an unknown size.
func (s Size) Width() string {
	switch s {
	case SizeSmall:
		return "25%"
	case SizeMedium:
		return "50%"
	case SizeLarge:
		return "100%"
	}
	return ""
}

// Toggled returns the other layout mode.
func (k Kind) Toggled() Kind {
	if k == KindInline {
		return KindBlock
	}
	return KindInline
}
