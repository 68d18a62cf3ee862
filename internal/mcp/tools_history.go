package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recorded rename runs, newest first"),
		mcp.WithString("manifestPath", mcp.Description("Only runs of this manifest (optional)")),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20)")),
	), s.handleListRuns)
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	runs, err := s.renames.History(stringArg(args, "manifestPath", ""), intArg(args, "limit", 20))
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return textResult("No runs recorded."), nil
	}
	return jsonResult(runs)
}
