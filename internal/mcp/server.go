package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"foodprice/internal/domain"
	"foodprice/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the renamer.
// It exposes the rename run, manifest inspection and run history as tools.
type Server struct {
	mcp      *server.MCPServer
	renames  *service.RenameService
	defaults Defaults
	log      *slog.Logger
}

// Defaults fill in tool arguments the client leaves out.
type Defaults struct {
	ManifestPath   string
	NewColumnNames []string
	TargetFolder   string
}

// Deps holds everything the server needs from the CLI layer.
type Deps struct {
	Store    domain.RunLogStore // nil disables list_runs
	Defaults Defaults
	Logger   *slog.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		defaults: deps.Defaults,
		log:      logger,
	}
	s.renames = service.NewRenameService(deps.Store, s, logger)

	s.mcp = server.NewMCPServer(
		"renamer-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerRenameTools()
	s.registerHistoryTools()
	s.registerResources()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// Emit forwards service events to every connected client as notifications.
func (s *Server) Emit(_ context.Context, event string, data any) {
	params := map[string]any{"event": event}
	if rl, ok := data.(domain.RunLog); ok {
		params["run"] = rl
	}
	s.mcp.SendNotificationToAllClients("notifications/"+event, params)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
