package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func roundTrip(t *testing.T, doc Document) Document {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return out
}

func TestDocumentRoundTrip_Full(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	doc := Document{
		ID:          "doc-1",
		Slug:        "my-page",
		ProjectName: "My Page",
		OwnerID:     "user-1",
		CreatedAt:   &created,
		UpdatedAt:   &updated,
		Blocks: []Block{
			{
				ID:          "hero",
				Kind:        KindBlock,
				Category:    CategoryHero,
				Title:       "Hello",
				RichContent: "<b>world</b>",
				Style:       &Style{BgColor: "#fff", TextAlign: "center", Width: "50%", Layout: "row"},
				CTAButtons: []CTAButton{
					{ID: "btn-1", Text: "Go", URL: "https://example.com", Variant: "primary",
						Style: &ButtonStyle{BgColor: "#3b82f6", TextColor: "#ffffff"}},
				},
				Children: []Block{
					{ID: "f1", Kind: KindInline, Title: "Fast"},
					{ID: "f2", Kind: KindInline, Children: []Block{{ID: "f2a", Kind: KindBlock}}},
				},
			},
		},
	}
	if diff := cmp.Diff(doc, roundTrip(t, doc)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentRoundTrip_OptionalFieldsAbsent(t *testing.T) {
	doc := Document{
		ProjectName: "Bare",
		Blocks:      []Block{{ID: "a", Kind: KindBlock}, {ID: "b", Kind: KindInline}},
	}
	got := roundTrip(t, doc)
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if got.Blocks[0].Style != nil || got.Blocks[0].Children != nil || got.Blocks[0].CTAButtons != nil {
		t.Error("absent optional fields should stay absent")
	}
}

func TestDocumentJSONFieldNames(t *testing.T) {
	doc := Document{ProjectName: "P", OwnerID: "u", Blocks: []Block{{ID: "x", Kind: KindInline, Category: CategoryCTA, RichContent: "c"}}}
	data, _ := json.Marshal(doc)
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	if raw["userId"] != "u" {
		t.Errorf("owner should serialize as userId: %s", data)
	}
	block := raw["blocks"].([]any)[0].(map[string]any)
	if block["type"] != "inline" || block["blockType"] != "cta" || block["content"] != "c" {
		t.Errorf("unexpected block encoding: %s", data)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Block{
		ID:         "a",
		Style:      &Style{BgColor: "#000"},
		Children:   []Block{{ID: "b", Style: &Style{Padding: "1rem"}}},
		CTAButtons: []CTAButton{{ID: "btn", Style: &ButtonStyle{BgColor: "red"}}},
	}
	c := orig.Clone()
	c.Style.BgColor = "#fff"
	c.Children[0].Style.Padding = "0"
	c.CTAButtons[0].Style.BgColor = "blue"
	if orig.Style.BgColor != "#000" || orig.Children[0].Style.Padding != "1rem" || orig.CTAButtons[0].Style.BgColor != "red" {
		t.Error("clone shares state with original")
	}
}

func TestDocumentValidate(t *testing.T) {
	cases := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{"valid", Document{ProjectName: "P", Slug: "p"}, false},
		{"missing name", Document{Slug: "p"}, true},
		{"missing slug", Document{ProjectName: "P"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.doc.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestStyleMerge(t *testing.T) {
	var nilStyle *Style
	got := nilStyle.Merge(Style{Width: "25%"})
	if got.Width != "25%" {
		t.Errorf("width = %q", got.Width)
	}
	base := &Style{BgColor: "#fff", Width: "100%"}
	merged := base.Merge(Style{Width: "50%"})
	if merged.BgColor != "#fff" || merged.Width != "50%" {
		t.Errorf("merged = %+v", merged)
	}
	if base.Width != "100%" {
		t.Error("merge mutated receiver")
	}
}
