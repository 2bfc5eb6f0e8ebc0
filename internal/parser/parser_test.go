package parser

import (
	"strings"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - web\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) < 2 || r.Tags[0] != "go" || r.Tags[1] != "web" {
		t.Errorf("tags = %v, want [go web]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := &Frontmatter{Tags: []string{"go", " "}}
	tags := extractTags("Notes on #go and #testing today", fm)
	if len(tags) != 2 || tags[0] != "go" || tags[1] != "testing" {
		t.Errorf("tags = %v, want [go testing]", tags)
	}
}

func TestBlogDraft_FromFrontmatter(t *testing.T) {
	input := []byte(`---
title: Shipping a CMS
excerpt: How the admin works.
date: 2024-05-01
image: https://example.com/cover.png
status: Published
tags: [go, cms]
---
Some **bold** words.
`)
	post, err := BlogDraft(input)
	if err != nil {
		t.Fatal(err)
	}
	if post.Title != "Shipping a CMS" || post.Excerpt != "How the admin works." {
		t.Errorf("post = %+v", post)
	}
	if post.Date != "2024-05-01" {
		t.Errorf("date = %q", post.Date)
	}
	if post.Status != "published" {
		t.Errorf("status = %q", post.Status)
	}
	if !strings.Contains(post.Content, "<strong>bold</strong>") {
		t.Errorf("content = %q", post.Content)
	}
	if post.ReadTime != "1 min read" {
		t.Errorf("read time = %q", post.ReadTime)
	}
	if err := post.Validate(); err != nil {
		t.Errorf("imported draft should validate: %v", err)
	}
}

func TestBlogDraft_TitleFromHeading(t *testing.T) {
	post, err := BlogDraft([]byte("# First post\n\nHello there, this is the body.\n"))
	if err != nil {
		t.Fatal(err)
	}
	if post.Title != "First post" {
		t.Errorf("title = %q", post.Title)
	}
	if strings.Contains(post.Content, "<h1>") {
		t.Errorf("title heading should be removed from content: %q", post.Content)
	}
	if post.Excerpt != "Hello there, this is the body." {
		t.Errorf("excerpt = %q", post.Excerpt)
	}
	if post.Status != "draft" || post.Tags == nil {
		t.Errorf("post = %+v", post)
	}
}
