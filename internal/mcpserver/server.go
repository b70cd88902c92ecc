// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the badge injector as tools over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/nbbadge/internal/inject"
	"github.com/starford/nbbadge/internal/storage"
)

const formatURI = "nbbadge://badge-format"

// Server wraps the MCP server with badge tools.
type Server struct {
	mcp      *server.MCPServer
	injector *inject.Injector
	store    storage.Provider
	defaults inject.Options
}

// New creates a new MCP server. defaults supplies the batch options used
// when a tool call does not override them.
func New(injector *inject.Injector, store storage.Provider, defaults inject.Options, version string) *Server {
	s := &Server{injector: injector, store: store, defaults: defaults}

	s.mcp = server.NewMCPServer(
		"nbbadge",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("inject_badges",
		mcp.WithDescription("Insert or refresh the \"Open in Colab\" badge cell at the top of every notebook "+
			"under the configured root. Returns a JSON report of processed and failed notebooks."),
		mcp.WithBoolean("recursive", mcp.Description("Scan subdirectories (defaults to the server configuration)")),
		mcp.WithBoolean("dry_run", mcp.Description("Compute the report without writing any file")),
	), s.injectBadges)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List notebooks the injector would process."),
		mcp.WithBoolean("recursive", mcp.Description("Scan subdirectories (defaults to the server configuration)")),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("badge_link",
		mcp.WithDescription("Return the Colab link and badge markup for a notebook path."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Notebook path relative to the root (e.g. lessons/intro.ipynb)")),
	), s.badgeLink)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Badge Cell Format",
			mcp.WithResourceDescription("The exact badge cell written to each notebook."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func (s *Server) injectBadges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := s.defaults
	opts.Recursive = req.GetBool("recursive", s.defaults.Recursive)
	opts.DryRun = req.GetBool("dry_run", s.defaults.DryRun)

	report, err := s.injector.Inject(ctx, opts)
	if report == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := toJSON(report)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s\n%s", err.Error(), out)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) listNotebooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := s.store.List(req.GetBool("recursive", s.defaults.Recursive))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no notebooks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) badgeLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !storage.IsNotebook(path) {
		return mcp.NewToolResultError(fmt.Sprintf("not a notebook: %s", path)), nil
	}
	out := toJSON(struct {
		Href     string `json:"href"`
		Markdown string `json:"markdown"`
	}{
		Href:     s.injector.Builder().Link(path),
		Markdown: s.injector.Builder().Source(path),
	})
	return mcp.NewToolResultText(out), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     BadgeFormatContract,
		},
	}, nil
}

// toJSON indents v without escaping the badge markup.
func toJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
	return strings.TrimRight(buf.String(), "\n")
}
