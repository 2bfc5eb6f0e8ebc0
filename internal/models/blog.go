package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Blog post statuses, also used as filter views.
const (
	BlogStatusDraft     = "draft"
	BlogStatusPublished = "published"
)

var BlogFilters = []string{FilterAll, BlogStatusDraft, BlogStatusPublished}

const (
	wordsPerMinute = 200
	excerptLength  = 160
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// BlogPost is an article with a rich-text (HTML) body.
type BlogPost struct {
	ID       string   `json:"_id,omitempty"`
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Content  string   `json:"content"`
	Date     string   `json:"date"`
	ReadTime string   `json:"readTime"`
	Image    string   `json:"image"`
	Tags     []string `json:"tags"`
	Status   string   `json:"status"`
}

func (b BlogPost) GetID() string { return b.ID }

func (b BlogPost) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Title, validation.Required),
		validation.Field(&b.Excerpt, validation.Required),
		validation.Field(&b.Content, validation.Required),
		validation.Field(&b.Date, validation.Date("2006-01-02")),
		validation.Field(&b.Image, is.URL),
		validation.Field(&b.Status, validation.Required, validation.In(BlogStatusDraft, BlogStatusPublished)),
	)
}

func (b BlogPost) SearchText() string {
	return joinText(b.Title, b.Excerpt, strings.Join(b.Tags, " "))
}

func (b BlogPost) MatchesFilter(filter string) bool {
	switch filter {
	case "", FilterAll:
		return true
	case BlogStatusDraft, BlogStatusPublished:
		return b.Status == filter
	}
	return false
}

// FlagValue exposes "published" as a flag over the status field.
func (b BlogPost) FlagValue(flag string) (bool, bool) {
	if flag == "published" {
		return b.Status == BlogStatusPublished, true
	}
	return false, false
}

func (b BlogPost) FlagPatch(flag string, v bool) map[string]any {
	if flag != "published" {
		return nil
	}
	status := BlogStatusDraft
	if v {
		status = BlogStatusPublished
	}
	return map[string]any{"status": status}
}

// WithDerivedFields fills an empty read-time label, excerpt and status from the body.
func (b BlogPost) WithDerivedFields() BlogPost {
	text := PlainText(b.Content)
	if b.ReadTime == "" && text != "" {
		b.ReadTime = ReadTime(text)
	}
	if b.Excerpt == "" && text != "" {
		b.Excerpt = truncate(text, excerptLength)
	}
	if b.Status == "" {
		b.Status = BlogStatusDraft
	}
	return b
}

// PlainText strips markup from a rich-text body and collapses whitespace.
func PlainText(html string) string {
	s := htmlTagRe.ReplaceAllString(html, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// ReadTime returns the "N min read" label for text.
func ReadTime(text string) string {
	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	cut := strings.TrimSpace(string(r[:n]))
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
