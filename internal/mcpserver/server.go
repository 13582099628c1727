// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes coursemark tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/coursemark/internal/apperr"
	"github.com/starford/coursemark/internal/diag"
	"github.com/starford/coursemark/internal/exportservice"
)

const gapSyntaxURI = "coursemark://gap-syntax"

// Server wraps the MCP server with coursemark tools.
type Server struct {
	mcp *server.MCPServer
	svc *exportservice.Service
}

// New creates a new MCP server with all coursemark tools registered.
func New(svc *exportservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"coursemark",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_courses",
		mcp.WithDescription("List every exported course of the library with its export status."),
	), s.listCourses)

	s.mcp.AddTool(mcp.NewTool("read_export",
		mcp.WithDescription("Read the LiaScript markdown and the diagnostics report of an exported course."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Library path of the course bundle (e.g. java/course.json)")),
	), s.readExport)

	s.mcp.AddTool(mcp.NewTool("export_course",
		mcp.WithDescription("Export a course bundle of the library again and store the result."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Library path of the course bundle (.json, .yaml or .yml)")),
	), s.exportCourse)

	s.mcp.AddTool(mcp.NewTool("convert_markdown",
		mcp.WithDescription("Convert a markdown fragment to LiaScript: headers become nested section tags "+
			"and code fences lose unsupported annotations."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Markdown fragment")),
	), s.convertMarkdown)

	s.mcp.AddTool(mcp.NewTool("convert_cloze",
		mcp.WithDescription("Rewrite {T: [...]} and {C: [...]} gap directives into LiaScript gaps. "+
			"Read the contract first via get_dialect_contract or the "+gapSyntaxURI+" resource."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Cloze text with gap directives")),
	), s.convertCloze)

	s.mcp.AddTool(mcp.NewTool("search_exports",
		mcp.WithDescription("Full-text search through exported course markdown and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchExports)

	s.mcp.AddTool(mcp.NewTool("get_dialect_contract",
		mcp.WithDescription("Returns the gap-fill syntax accepted in cloze texts and what it becomes in LiaScript."),
	), s.getDialectContract)

	// Resource: gap syntax contract.
	s.mcp.AddResource(
		mcp.NewResource(gapSyntaxURI, "Gap Syntax Contract",
			mcp.WithResourceDescription("Gap-fill mini-language of cloze texts and its LiaScript rendering."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGapSyntaxResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCourses(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListCourses(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no courses exported"), nil
	}
	return jsonResult(items)
}

func (s *Server) readExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetCourse(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not exported: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) exportCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Reexport(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	status := "complete"
	if d.Incomplete {
		status = "incomplete, see read_export for the report"
	}
	return mcp.NewToolResultText(fmt.Sprintf("exported: %s (%s)", path, status)), nil
}

func (s *Server) convertMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.svc.ConvertMarkdown(ctx, text)
	if len(res.Diagnostics) == 0 {
		return mcp.NewToolResultText(res.Markdown), nil
	}
	msgs := make([]string, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		msgs[i] = diag.Message(d)
	}
	return jsonResult(map[string]any{
		"markdown": res.Markdown,
		"problems": msgs,
	})
}

func (s *Server) convertCloze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.svc.ConvertCloze(ctx, text)
	if len(res.Causes) == 0 {
		return mcp.NewToolResultText(res.Text), nil
	}
	return jsonResult(res)
}

func (s *Server) searchExports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func (s *Server) getDialectContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(GapSyntaxContract), nil
}

func (s *Server) readGapSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      gapSyntaxURI,
			MIMEType: "text/markdown",
			Text:     GapSyntaxContract,
		},
	}, nil
}
