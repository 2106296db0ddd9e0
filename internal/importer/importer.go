// Package importer turns a Markdown outline with YAML frontmatter into a
// page document.
package importer

import (
	"bytes"
	"errors"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/onepage/internal/blocktree"
	"github.com/starford/onepage/internal/models"
)

// ErrEmpty is returned for input that yields no blocks.
var ErrEmpty = errors.New("importer: no content")

var (
	linkRe     = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	slugDropRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// Result is an imported page. Blocks carry freshly minted ids.
type Result struct {
	ProjectName string
	Slug        string
	Blocks      []models.Block
}

// Options supplies id generators; zero values use the blocktree defaults.
type Options struct {
	NewID       blocktree.IDFunc
	NewButtonID blocktree.IDFunc
}

type frontmatter struct {
	Title       string `yaml:"title"`
	ProjectName string `yaml:"projectName"`
	Slug        string `yaml:"slug"`
}

// Parse converts data. A "# " heading becomes the hero block, each "## "
// heading opens a text section, list items become inline children of the
// current section (turning it into a feature group) and a line holding only
// Markdown links becomes call-to-action buttons.
func Parse(data []byte, opts Options) (*Result, error) {
	if opts.NewID == nil {
		opts.NewID = blocktree.NewID
	}
	if opts.NewButtonID == nil {
		opts.NewButtonID = blocktree.NewButtonID
	}

	fm, body := splitFrontmatter(data)
	b := builder{opts: opts}
	for _, line := range strings.Split(body, "\n") {
		b.line(strings.TrimSpace(line))
	}
	b.flush()
	if len(b.blocks) == 0 {
		return nil, ErrEmpty
	}

	res := &Result{ProjectName: fm.ProjectName, Slug: fm.Slug, Blocks: b.blocks}
	if res.ProjectName == "" {
		res.ProjectName = fm.Title
	}
	if res.ProjectName == "" {
		res.ProjectName = b.heroTitle
	}
	if res.Slug == "" {
		res.Slug = Slugify(res.ProjectName)
	}
	return res, nil
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	s = slugDropRe.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// splitFrontmatter separates YAML frontmatter between leading --- lines from
// the body. Missing or invalid frontmatter leaves the whole input as body.
func splitFrontmatter(data []byte) (frontmatter, string) {
	const delim = "---"
	var fm frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data)
	}
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return frontmatter{}, string(data)
	}
	body := rest[idx+1+len(delim):]
	return fm, strings.TrimLeft(string(body), "\n\r")
}

type builder struct {
	opts      Options
	blocks    []models.Block
	cur       *models.Block
	para      []string
	heroTitle string
}

func (b *builder) line(l string) {
	switch {
	case l == "":
		b.endParagraph()
	case strings.HasPrefix(l, "# "):
		b.flush()
		title := strings.TrimSpace(l[2:])
		if b.heroTitle == "" {
			b.heroTitle = title
		}
		b.cur = &models.Block{
			ID:       b.opts.NewID(),
			Kind:     models.KindBlock,
			Category: models.CategoryHero,
			Title:    title,
			Style:    &models.Style{BgColor: "#f8fafc", Padding: "2rem", TextAlign: "center"},
		}
	case strings.HasPrefix(l, "## "):
		b.flush()
		b.cur = b.section(strings.TrimSpace(l[3:]))
	case strings.HasPrefix(l, "- ") || strings.HasPrefix(l, "* "):
		b.endParagraph()
		sec := b.ensure()
		sec.Category = models.CategoryFeatureGroup
		sec.Style = sec.Style.Merge(models.Style{Layout: "row"})
		sec.Children = append(sec.Children, models.Block{
			ID:    b.opts.NewID(),
			Kind:  models.KindInline,
			Title: strings.TrimSpace(l[2:]),
		})
	case onlyLinks(l):
		b.endParagraph()
		sec := b.ensure()
		if sec.Category == models.CategoryText {
			sec.Category = models.CategoryCTA
		}
		for _, m := range linkRe.FindAllStringSubmatch(l, -1) {
			btn := models.NewButton(b.opts.NewButtonID())
			btn.Text, btn.URL = m[1], m[2]
			sec.CTAButtons = append(sec.CTAButtons, btn)
		}
	default:
		b.ensure()
		b.para = append(b.para, l)
	}
}

func (b *builder) section(title string) *models.Block {
	return &models.Block{
		ID:       b.opts.NewID(),
		Kind:     models.KindBlock,
		Category: models.CategoryText,
		Title:    title,
		Style:    &models.Style{Padding: "2rem", TextAlign: "left"},
	}
}

// ensure returns the open block, opening an untitled text section when the
// body starts without a heading.
func (b *builder) ensure() *models.Block {
	if b.cur == nil {
		b.cur = b.section("")
	}
	return b.cur
}

func (b *builder) endParagraph() {
	if b.cur == nil || len(b.para) == 0 {
		return
	}
	p := strings.Join(b.para, " ")
	if b.cur.RichContent != "" {
		b.cur.RichContent += "\n\n"
	}
	b.cur.RichContent += p
	b.para = nil
}

func (b *builder) flush() {
	b.endParagraph()
	if b.cur != nil {
		b.blocks = append(b.blocks, *b.cur)
		b.cur = nil
	}
}

// onlyLinks reports whether l is one or more Markdown links and nothing else.
func onlyLinks(l string) bool {
	if !linkRe.MatchString(l) {
		return false
	}
	return strings.TrimSpace(linkRe.ReplaceAllString(l, "")) == ""
}
