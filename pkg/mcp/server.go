package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/prerender-tools/cachectl/pkg/models"
)

// Operations are the cache actions exposed as tools.
type Operations interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	SubmitURL(ctx context.Context, pageURL string) (models.SubmissionResult, error)
	SubmitBulk(ctx context.Context, text string) (models.BatchReport, error)
	CacheSitemap(ctx context.Context, sitemapURL string) (models.SitemapReport, error)
	Delete(ctx context.Context, pageURL string) error
	Refresh(ctx context.Context, pageURL string) (models.RefreshReport, error)
	ClearAll(ctx context.Context) (models.ClearReport, error)
}

// History reads the operation journal.
type History interface {
	Query(ctx context.Context, opts models.JournalQueryOpts) ([]models.JournalEntry, error)
	Stats(ctx context.Context) ([]models.JournalStat, error)
}

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	ops     Operations
	history History
	version string
	log     *slog.Logger
}

// New creates a new MCP Server. history may be nil when the journal is
// disabled.
func New(ops Operations, history History, version string) *Server {
	return &Server{
		ops:     ops,
		history: history,
		version: version,
		log:     slog.Default().With("component", "mcp"),
	}
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, *replyError(nil, CodeParseError, "parse error: %v", err))
			continue
		}

		resp := s.dispatch(ctx, &req)
		if resp == nil {
			continue
		}
		s.writeResponse(w, *resp)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	if req.isNotification() {
		s.log.Debug("notification", "method", req.Method)
		return nil
	}

	switch req.Method {
	case "initialize":
		return reply(req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      Implementation{Name: serverName, Version: s.version},
			Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
		})
	case "ping":
		return reply(req.ID, struct{}{})
	case "tools/list":
		return reply(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return replyError(req.ID, CodeMethodNotFound, "unknown method: %s", req.Method)
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return replyError(req.ID, CodeInvalidParams, "invalid params: %v", err)
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return reply(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}

	s.log.Debug("tool call", "tool", params.Name)
	return reply(req.ID, handler(ctx, s, params.Arguments))
}

func (s *Server) writeResponse(w io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("marshal response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.log.Error("write response", "error", err)
	}
}
