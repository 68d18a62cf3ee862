package etl

import (
	"context"
	"time"
)

// ── Engine ─────────────────────────────────────────────────
// Orchestrates: source.Read → transform chain → destination.Write.

// ProcessResult is the outcome of processing one file.
type ProcessResult struct {
	Source      string        `json:"source"`
	Output      string        `json:"output"`
	Header      []string      `json:"header"`
	RowsRead    int           `json:"rowsRead"`
	RowsWritten int           `json:"rowsWritten"`
	Duration    time.Duration `json:"duration"`
}

// Engine moves one file at a time from a Source to a Destination.
type Engine struct {
	Source Source
	Dest   Destination
}

// NewCSVEngine returns an Engine that reads and writes CSV files.
func NewCSVEngine() *Engine {
	return &Engine{Source: CSVFileSource{}, Dest: &CSVFileWriter{}}
}

// Process reads srcPath, applies ts in order and writes the result to dstPath.
// Nothing is written if reading or any transform fails.
func (e *Engine) Process(ctx context.Context, srcPath, dstPath string, ts []Transformer) (*ProcessResult, error) {
	start := time.Now()
	result := &ProcessResult{Source: srcPath, Output: dstPath}

	table, err := e.Source.Read(ctx, srcPath)
	if err != nil {
		return nil, err
	}
	result.RowsRead = len(table.Rows)

	out, err := ApplyTransformers(table, ts)
	if err != nil {
		return nil, err
	}

	written, err := e.Dest.Write(ctx, dstPath, out)
	if err != nil {
		return nil, err
	}

	result.Header = out.Header
	result.RowsWritten = written
	result.Duration = time.Since(start)
	return result, nil
}
