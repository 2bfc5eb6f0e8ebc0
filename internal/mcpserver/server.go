// Package mcpserver exposes dashboard tools over the Model Context Protocol
// (stdio transport) so an assistant can triage the inbox and read content.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/panel"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/shell"
)

// Server wraps the MCP server with dashboard tools. It drives its own
// navigator, so every tool switches to the panel it works on.
type Server struct {
	mcp *server.MCPServer
	nav *shell.Navigator
}

// New creates an MCP server with all tools registered.
func New(nav *shell.Navigator, version string) *Server {
	s := &Server{nav: nav}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List the records of a dashboard panel (messages, reviews, blog, skills, education, projects, experience)."),
		mcp.WithString("panel", mcp.Required(), mcp.Description("Panel id")),
		mcp.WithString("filter", mcp.Description("Optional filter view, e.g. unread or featured")),
		mcp.WithString("search", mcp.Description("Optional case-insensitive search text")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("toggle_flag",
		mcp.WithDescription("Flip a boolean flag of a record, e.g. mark a message read or feature a skill."),
		mcp.WithString("panel", mcp.Required(), mcp.Description("Panel id")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id (_id)")),
		mcp.WithString("flag", mcp.Required(), mcp.Description("Flag name: read, starred, archived, active, featured or published")),
	), s.toggleFlag)

	s.mcp.AddTool(mcp.NewTool("message_counts",
		mcp.WithDescription("Count inbox messages per view (all, unread, read, starred, archived)."),
	), s.messageCounts)

	s.mcp.AddTool(mcp.NewTool("get_site_content",
		mcp.WithDescription("Read the site copy: hero texts, intro, resume link and about sections."),
	), s.getSiteContent)

	s.mcp.AddTool(mcp.NewTool("import_blog_post",
		mcp.WithDescription("Create a draft blog post from Markdown. "+
			"The file MUST follow the blog import format; read it via get_blog_format "+
			"or the folio://blog-format resource first."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown with YAML frontmatter")),
	), s.importBlogPost)

	s.mcp.AddTool(mcp.NewTool("get_blog_format",
		mcp.WithDescription("Returns the Markdown format accepted by import_blog_post."),
	), s.getBlogFormat)

	s.mcp.AddResource(
		mcp.NewResource("folio://blog-format", "Blog Import Format",
			mcp.WithResourceDescription("Markdown and frontmatter accepted when importing blog posts."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBlogFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// open switches to a list panel, which loads it.
func (s *Server) open(ctx context.Context, id string) (panel.Controller, error) {
	if err := s.nav.Switch(ctx, id); err != nil {
		return nil, err
	}
	return s.nav.Collection(id)
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("panel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.open(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(apperr.UserMessage(err)), nil
	}
	snap := c.Snapshot(req.GetString("filter", ""), req.GetString("search", ""))
	return jsonResult(snap)
}

func (s *Server) toggleFlag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("panel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recID, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	flag, err := req.RequireString("flag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c, err := s.open(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(apperr.UserMessage(err)), nil
	}
	if err := c.ToggleFlag(ctx, recID, flag); err != nil {
		return mcp.NewToolResultError(apperr.UserMessage(err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("toggled %s on %s %s", flag, id, recID)), nil
}

func (s *Server) messageCounts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.open(ctx, shell.PanelMessages)
	if err != nil {
		return mcp.NewToolResultError(apperr.UserMessage(err)), nil
	}
	return jsonResult(c.Counts())
}

func (s *Server) getSiteContent(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.nav.Switch(ctx, shell.PanelContent); err != nil {
		return mcp.NewToolResultError(apperr.UserMessage(err)), nil
	}
	doc, err := s.nav.Content()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc.State().Doc)
}

func (s *Server) importBlogPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	md, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	draft, err := parser.BlogDraft([]byte(md))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.nav.Switch(ctx, shell.PanelBlog); err != nil {
		return mcp.NewToolResultError(apperr.UserMessage(err)), nil
	}
	post, err := s.nav.Panels().Blog.Create(ctx, draft)
	if err != nil {
		return mcp.NewToolResultError(apperr.UserMessage(err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created %s post %s: %s", post.Status, post.ID, post.Title)), nil
}

func (s *Server) getBlogFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BlogFormat), nil
}

func (s *Server) readBlogFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "folio://blog-format",
			MIMEType: "text/markdown",
			Text:     BlogFormat,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
