package mcpserver

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
)

const manifestURI = "renamer://manifest"

func (s *Server) registerResources() {
	// ── renamer://manifest ─────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		manifestURI,
		"Configured bronze manifest",
		mcp.WithMIMEType("application/yaml"),
	), s.handleManifestResource)
}

func (s *Server) handleManifestResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.defaults.ManifestPath == "" {
		return nil, fmt.Errorf("no manifest configured")
	}
	data, err := os.ReadFile(s.defaults.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      manifestURI,
			MIMEType: "application/yaml",
			Text:     string(data),
		},
	}, nil
}
