package mcpserver

// BlockSchemaContract describes the page document that tools read and
// change, so that LLM consumers address blocks correctly.
const BlockSchemaContract = `# onepage Block Schema

A page is a document with a project name, a public slug and an ordered
tree of blocks. Blocks are addressed only by id; ids are unique across the
whole tree.

## Document

` + "```" + `json
{
  "id": "uuid",
  "slug": "my-launch",          // REQUIRED, unique across all pages
  "projectName": "My Launch",   // REQUIRED
  "userId": "owner id",
  "blocks": [ Block, ... ]
}
` + "```" + `

## Block

` + "```" + `json
{
  "id": "block-…",               // REQUIRED, unique in the tree
  "type": "block | inline",      // own row, or flows with siblings
  "blockType": "text | cta | hero | feature-group | testimonial | faq",
  "title": "optional heading",
  "content": "optional body text",
  "style": {
    "bgColor": "#ffffff", "borderColor": "#e2e8f0",
    "padding": "2rem", "margin": "0", "borderRadius": "8px",
    "textAlign": "left | center | right",
    "width": "25% | 50% | 100% | auto",
    "layout": "row | column"
  },
  "children": [ Block, ... ],
  "ctaButtons": [
    { "id": "button-…", "text": "Click Here", "url": "#", "variant": "primary",
      "style": { "bgColor": "#3b82f6", "textColor": "#ffffff" } }
  ]
}
` + "```" + `

## Rules

1. **blockType is descriptive only.** Any block may hold children and buttons.
2. **Moves** take a target block and a position: ` + "`" + `before` + "`" + `, ` + "`" + `after` + "`" + ` or
   ` + "`" + `inside` + "`" + ` (appended as the last child). A block can never be moved inside
   itself or one of its descendants; such a move is rejected and nothing changes.
3. **Unknown ids are ignored.** An operation naming a block that no longer
   exists leaves the page unchanged.
4. **Edits are saved automatically** after a short quiet period. Call the
   ` + "`" + `save` + "`" + ` tool to persist immediately.
5. **Undo/redo** walk the edit history of the page one change at a time.
`
