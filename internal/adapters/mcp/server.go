// Package mcpadapter exposes analysis and archive operations as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/openplag/internal/core/domain"
	"github.com/kirillkom/openplag/internal/core/ports"
)

const Version = "0.1.0"

type Server struct {
	analyzer ports.DocumentAnalyzer
	archive  ports.DocumentArchiver
	mcp      *server.MCPServer
}

func NewServer(analyzer ports.DocumentAnalyzer, archive ports.DocumentArchiver) (*Server, error) {
	if analyzer == nil || archive == nil {
		return nil, fmt.Errorf("mcp server: analyzer and archive are required")
	}
	s := &Server{
		analyzer: analyzer,
		archive:  archive,
		mcp:      server.NewMCPServer("openplag", Version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s, nil
}

// Listen serves JSON-RPC over the given streams until ctx is done or stdin closes.
func (s *Server) Listen(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, stdin, stdout)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("check_document",
		mcp.WithDescription("Score a document against the local archive and the public web and classify the overlap severity."),
		mcp.WithString("text", mcp.Required(), mcp.Description("plain text of the document to check")),
		mcp.WithBoolean("skip_web", mcp.Description("compare against the local archive only")),
	), s.handleCheck)

	s.mcp.AddTool(mcp.NewTool("archive_document",
		mcp.WithDescription("Store a document in the local archive so later checks compare against it."),
		mcp.WithString("submitter", mcp.Required(), mcp.Description("name of the author or submitter")),
		mcp.WithString("content", mcp.Required(), mcp.Description("plain text of the document")),
		mcp.WithString("filename", mcp.Description("original file name, for display")),
	), s.handleArchive)

	s.mcp.AddTool(mcp.NewTool("archive_stats",
		mcp.WithDescription("Report how many documents the local archive holds."),
	), s.handleStats)
}

func (s *Server) handleCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.analyzer.Analyze(ctx, text, ports.AnalyzeOptions{SkipWeb: req.GetBool("skip_web", false)})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(report)
}

func (s *Server) handleArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	submitter, err := req.RequireString("submitter")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.archive.Archive(ctx, ports.ArchiveRequest{
		Submitter: submitter,
		Filename:  req.GetString("filename", ""),
		Content:   content,
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.archive.Stats(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(stats)
}

// toolError reports caller mistakes as tool results and everything else as protocol errors.
func toolError(err error) (*mcp.CallToolResult, error) {
	if domain.IsKind(err, domain.ErrInvalidInput) || domain.IsKind(err, domain.ErrUnsupportedFormat) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
