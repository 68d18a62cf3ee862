package mcpserver

import (
	"context"
	"fmt"

	"foodprice/internal/manifest"
	"foodprice/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerRenameTools() {
	s.mcp.AddTool(mcp.NewTool("rename_columns",
		mcp.WithDescription("Rename the selected columns of every raw CSV listed in a manifest to the given names, keep only those columns, and write the files plus an annotated manifest to the target folder. Overwrites existing outputs."),
		mcp.WithString("manifestPath", mcp.Description("Path to the bronze metadata.yaml (optional, defaults to the configured manifest)")),
		mcp.WithArray("newColumnNames",
			mcp.Description("New column names, paired by position with each file's selected_columns (optional, defaults to the configured names)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("targetFolder", mcp.Description("Output folder (optional, defaults to the configured target)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRenameColumns)

	s.mcp.AddTool(mcp.NewTool("describe_manifest",
		mcp.WithDescription("List the files of a manifest with their resolved paths and selected columns, without touching any file"),
		mcp.WithString("manifestPath", mcp.Description("Path to the bronze metadata.yaml (optional, defaults to the configured manifest)")),
	), s.handleDescribeManifest)
}

type fileSummary struct {
	FileName string   `json:"fileName"`
	Output   string   `json:"output"`
	Rows     int      `json:"rows"`
	Renamed  []string `json:"renamed"`
}

func (s *Server) handleRenameColumns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	names, err := stringListArg(args, "newColumnNames", s.defaults.NewColumnNames)
	if err != nil {
		return nil, err
	}
	run := service.RunRequest{
		ManifestPath:   stringArg(args, "manifestPath", s.defaults.ManifestPath),
		NewColumnNames: names,
		TargetFolder:   stringArg(args, "targetFolder", s.defaults.TargetFolder),
		Trigger:        service.TriggerMCP,
	}
	if run.ManifestPath == "" {
		return nil, fmt.Errorf("manifestPath is required")
	}

	result, err := s.renames.Run(ctx, run)
	if err != nil {
		return nil, err
	}

	files := make([]fileSummary, len(result.Files))
	for i, f := range result.Files {
		renamed := make([]string, len(f.Renamed))
		for j, p := range f.Renamed {
			renamed[j] = p.Old + " -> " + p.New
		}
		files[i] = fileSummary{FileName: f.FileName, Output: f.Output, Rows: f.Rows, Renamed: renamed}
	}
	return jsonResult(map[string]any{
		"manifest":       result.ManifestPath,
		"outputManifest": result.OutputManifest,
		"files":          files,
		"rowsWritten":    result.RowsWritten(),
		"durationMs":     result.Duration.Milliseconds(),
	})
}

type manifestFile struct {
	FileName        string   `json:"fileName"`
	Path            string   `json:"path"`
	SelectedColumns []string `json:"selectedColumns"`
}

func (s *Server) handleDescribeManifest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := stringArg(req.GetArguments(), "manifestPath", s.defaults.ManifestPath)
	if path == "" {
		return nil, fmt.Errorf("manifestPath is required")
	}

	doc, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	entries, err := doc.Entries()
	if err != nil {
		return nil, err
	}

	sourceDir := manifest.SourceDir(path)
	files := make([]manifestFile, 0, len(entries))
	for _, e := range entries {
		name, err := e.FileName()
		if err != nil {
			return nil, err
		}
		cols, err := e.SelectedColumns()
		if err != nil {
			return nil, err
		}
		if cols == nil {
			cols = []string{}
		}
		files = append(files, manifestFile{
			FileName:        name,
			Path:            manifest.ResolveFile(sourceDir, name),
			SelectedColumns: cols,
		})
	}
	return jsonResult(map[string]any{
		"manifest": path,
		"files":    files,
	})
}
