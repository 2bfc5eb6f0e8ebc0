// Package parser reads Markdown files with YAML frontmatter and turns them
// into blog post drafts.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"github.com/starford/folio/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Frontmatter holds the fields a post file may declare.
type Frontmatter struct {
	Title   string   `yaml:"title"`
	Excerpt string   `yaml:"excerpt"`
	Date    string   `yaml:"date"`
	Tags    []string `yaml:"tags"`
	Image   string   `yaml:"image"`
	Status  string   `yaml:"status"`
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	// Frontmatter is nil when the file has none or it is not valid YAML.
	Frontmatter *Frontmatter
	Body        string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, title and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}, nil
}

// BlogDraft converts a Markdown file into an unsaved blog post. The body is
// rendered to HTML; empty excerpt, read time and status are derived.
func BlogDraft(data []byte) (models.BlogPost, error) {
	r, err := Parse(data)
	if err != nil {
		return models.BlogPost{}, err
	}

	body := r.Body
	if r.Frontmatter == nil || r.Frontmatter.Title == "" {
		body = stripTitleHeading(body, r.Title)
	}
	var html bytes.Buffer
	if err := goldmark.Convert([]byte(body), &html); err != nil {
		return models.BlogPost{}, fmt.Errorf("render markdown: %w", err)
	}

	post := models.BlogPost{
		Title:   r.Title,
		Content: strings.TrimSpace(html.String()),
		Tags:    r.Tags,
	}
	if fm := r.Frontmatter; fm != nil {
		post.Excerpt = fm.Excerpt
		post.Date = fm.Date
		post.Image = fm.Image
		post.Status = strings.ToLower(fm.Status)
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	return post.WithDerivedFields(), nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (*Frontmatter, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm Frontmatter
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole file as body.
		return nil, string(data), nil
	}

	return &fm, body, nil
}

// extractTags collects frontmatter tags followed by inline #tags, deduplicated.
func extractTags(body string, fm *Frontmatter) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if fm != nil {
		for _, s := range fm.Tags {
			add(s)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter title if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm *Frontmatter, body string) string {
	if fm != nil && fm.Title != "" {
		return fm.Title
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// stripTitleHeading drops the H1 the title was taken from so it is not
// repeated in the post body.
func stripTitleHeading(body, title string) string {
	if title == "" {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "# "+title {
			return strings.Join(append(lines[:i:i], lines[i+1:]...), "\n")
		}
	}
	return body
}
