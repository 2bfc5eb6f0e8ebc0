package mcpserver

// BlogFormat describes the Markdown accepted by the blog import.
const BlogFormat = `# Blog Import Format

A post is a Markdown file with optional YAML frontmatter.

` + "```" + `markdown
---
title: Human-readable title     # optional if the body starts with "# Title"
excerpt: One-sentence summary   # optional, derived from the body when empty
date: 2025-01-15                # optional, YYYY-MM-DD
image: https://example.com/a.png # optional cover image URL
status: draft                   # draft (default) or published
tags:
  - go
  - web
---

Body text in standard Markdown. Inline #tags are added to the tag list.
` + "```" + `

## Rules

1. The ` + "`" + `---` + "`" + ` fences must open the file. Invalid YAML is treated as body text.
2. A title is required, from frontmatter or the first ` + "`" + `# ` + "`" + ` heading.
3. The body is rendered to HTML. The read-time label is computed at 200 words per minute.
4. ` + "`" + `image` + "`" + ` must be an absolute URL; ` + "`" + `date` + "`" + ` must be YYYY-MM-DD.
`
