// Package renamer promotes raw ("bronze") CSV files to the "silver" stage by
// renaming the columns a manifest selects to canonical names.
package renamer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"foodprice/internal/domain"
	"foodprice/internal/etl"
	"foodprice/internal/manifest"
)

const (
	// DefaultTargetFolder is where outputs go when Options.TargetFolder is empty.
	DefaultTargetFolder = "data/silver"

	description = "The columns were renamed based on the provided list of new column names."
)

// Description is the text recorded in each entry's `preprocessing` field.
func Description() string { return description }

// Options configure a Renamer.
type Options struct {
	// NewColumnNames are paired by position with each entry's selected columns.
	NewColumnNames []string
	TargetFolder   string
	Logger         *slog.Logger
}

// FileResult describes one processed manifest entry.
type FileResult struct {
	FileName string           `json:"fileName"`
	Source   string           `json:"source"`
	Output   string           `json:"output"`
	Rows     int              `json:"rows"`
	Renamed  []etl.ColumnPair `json:"renamed"`
}

// Result summarises a completed run.
type Result struct {
	ManifestPath   string        `json:"manifestPath"`
	OutputManifest string        `json:"outputManifest"`
	Files          []FileResult  `json:"files"`
	Duration       time.Duration `json:"duration"`
}

// RowsWritten is the number of data rows across all output files.
func (r *Result) RowsWritten() int {
	n := 0
	for _, f := range r.Files {
		n += f.Rows
	}
	return n
}

// Renamer runs the bronze → silver column rename.
type Renamer struct {
	names  []string
	target string
	engine *etl.Engine
	log    *slog.Logger
}

// New creates a Renamer that reads and writes CSV files.
func New(opts Options) *Renamer {
	target := opts.TargetFolder
	if target == "" {
		target = DefaultTargetFolder
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Renamer{
		names:  append([]string(nil), opts.NewColumnNames...),
		target: target,
		engine: etl.NewCSVEngine(),
		log:    logger,
	}
}

// TargetFolder returns the folder outputs are written to.
func (r *Renamer) TargetFolder() string { return r.target }

// Run processes every entry of the manifest at manifestPath in order, then
// writes the annotated manifest next to the outputs. The first error aborts
// the run; files already written stay on disk.
func (r *Renamer) Run(ctx context.Context, manifestPath string) (*Result, error) {
	start := time.Now()

	doc, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	sourceDir := manifest.SourceDir(manifestPath)

	if err := os.MkdirAll(r.target, 0755); err != nil {
		return nil, domain.NewIOError("create target folder", r.target, err)
	}

	entries, err := doc.Entries()
	if err != nil {
		return nil, err
	}

	result := &Result{ManifestPath: manifestPath}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fr, err := r.processEntry(ctx, sourceDir, entry)
		if err != nil {
			return nil, err
		}
		result.Files = append(result.Files, *fr)
	}

	result.OutputManifest = manifest.OutputPath(r.target, manifestPath)
	if err := doc.Save(result.OutputManifest); err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	r.log.Info("rename run finished",
		"manifest", manifestPath,
		"target", r.target,
		"files", len(result.Files),
		"rows", result.RowsWritten(),
		"duration", result.Duration,
	)
	return result, nil
}

func (r *Renamer) processEntry(ctx context.Context, sourceDir string, entry *manifest.Entry) (*FileResult, error) {
	fileName, err := entry.FileName()
	if err != nil {
		return nil, err
	}
	selected, err := entry.SelectedColumns()
	if err != nil {
		return nil, err
	}

	src := manifest.ResolveFile(sourceDir, fileName)
	dst := manifest.OutputPath(r.target, fileName)
	renames := etl.PairColumns(selected, r.names)
	if len(renames) < len(r.names) {
		r.log.Warn("fewer selected columns than new names",
			"file", fileName,
			"selected", len(selected),
			"names", len(r.names),
		)
	}

	res, err := r.engine.Process(ctx, src, dst, []etl.Transformer{
		&etl.RenameTransform{Pairs: renames},
		&etl.SelectTransform{Fields: r.names},
	})
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", fileName, err)
	}

	entry.SetPreprocessing(Description())
	entry.SetRenamedColumns(renames)

	r.log.Info("wrote silver file", "source", src, "output", dst, "rows", res.RowsWritten)
	return &FileResult{
		FileName: fileName,
		Source:   src,
		Output:   dst,
		Rows:     res.RowsWritten,
		Renamed:  renames,
	}, nil
}
