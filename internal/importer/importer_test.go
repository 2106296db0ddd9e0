package importer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/onepage/internal/blocktree"
	"github.com/starford/onepage/internal/models"
)

func seq(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func testOpts() Options {
	return Options{NewID: seq("b"), NewButtonID: seq("btn")}
}

const page = `---
projectName: Acme Launch
slug: acme
---
# Ship faster

Everything you need.
In one page.

## Features

- Fast
- Simple

## Get started

Try it today.

[Sign up](/signup) [Docs](https://example.com/docs)
`

func TestParse_FullPage(t *testing.T) {
	res, err := Parse([]byte(page), testOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ProjectName != "Acme Launch" || res.Slug != "acme" {
		t.Errorf("name/slug = %q/%q", res.ProjectName, res.Slug)
	}
	if len(res.Blocks) != 3 {
		t.Fatalf("len(blocks) = %d, want 3", len(res.Blocks))
	}

	hero := res.Blocks[0]
	if hero.Category != models.CategoryHero || hero.Title != "Ship faster" {
		t.Errorf("hero = %+v", hero)
	}
	if hero.RichContent != "Everything you need. In one page." {
		t.Errorf("hero content = %q", hero.RichContent)
	}

	features := res.Blocks[1]
	if features.Category != models.CategoryFeatureGroup || features.Style.Layout != "row" {
		t.Errorf("features = %+v", features)
	}
	var titles []string
	for _, c := range features.Children {
		if c.Kind != models.KindInline {
			t.Errorf("child %s kind = %q", c.ID, c.Kind)
		}
		titles = append(titles, c.Title)
	}
	if diff := cmp.Diff([]string{"Fast", "Simple"}, titles); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}

	cta := res.Blocks[2]
	if cta.Category != models.CategoryCTA || cta.RichContent != "Try it today." {
		t.Errorf("cta = %+v", cta)
	}
	if len(cta.CTAButtons) != 2 {
		t.Fatalf("buttons = %+v", cta.CTAButtons)
	}
	if b := cta.CTAButtons[1]; b.ID != "btn2" || b.Text != "Docs" || b.URL != "https://example.com/docs" {
		t.Errorf("second button = %+v", b)
	}

	if err := blocktree.Validate(res.Blocks); err != nil {
		t.Errorf("imported tree invalid: %v", err)
	}
}

func TestParse_TitleFallbacks(t *testing.T) {
	res, err := Parse([]byte("---\ntitle: My Page!\n---\nHello there.\n"), testOpts())
	if err != nil {
		t.Fatal(err)
	}
	if res.ProjectName != "My Page!" || res.Slug != "my-page" {
		t.Errorf("name/slug = %q/%q", res.ProjectName, res.Slug)
	}
	if len(res.Blocks) != 1 || res.Blocks[0].Category != models.CategoryText || res.Blocks[0].Title != "" {
		t.Errorf("blocks = %+v", res.Blocks)
	}

	res, err = Parse([]byte("# Hello World\n"), testOpts())
	if err != nil {
		t.Fatal(err)
	}
	if res.ProjectName != "Hello World" || res.Slug != "hello-world" {
		t.Errorf("name/slug = %q/%q", res.ProjectName, res.Slug)
	}
}

func TestParse_InvalidFrontmatterIsBody(t *testing.T) {
	res, err := Parse([]byte("---\n: bad: {{{\n---\n# Title\n"), testOpts())
	if err != nil {
		t.Fatal(err)
	}
	if res.Slug != "title" {
		t.Errorf("slug = %q", res.Slug)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "\n\n", "---\nslug: x\n---\n"} {
		if _, err := Parse([]byte(in), testOpts()); !errors.Is(err, ErrEmpty) {
			t.Errorf("Parse(%q) err = %v, want ErrEmpty", in, err)
		}
	}
}

func TestParse_MixedLinkLineIsText(t *testing.T) {
	res, err := Parse([]byte("## About\nRead [the docs](/docs) first.\n"), testOpts())
	if err != nil {
		t.Fatal(err)
	}
	b := res.Blocks[0]
	if len(b.CTAButtons) != 0 || b.Category != models.CategoryText {
		t.Errorf("block = %+v", b)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":    "hello-world",
		"  --Acme 2.0--": "acme-2-0",
		"Ünïcode":        "n-code",
		"":               "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
