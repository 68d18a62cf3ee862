package etl

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"foodprice/internal/domain"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes a table into a target file.

// Destination writes a table and reports the number of data rows written.
type Destination interface {
	Write(ctx context.Context, path string, t *Table) (int, error)
}

// CSVFileWriter writes comma-separated output: header row first, one line per
// row, "\n" line endings, no index column. Existing files are overwritten.
type CSVFileWriter struct{}

func (w *CSVFileWriter) Write(ctx context.Context, path string, t *Table) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, domain.NewIOError("create", path, err)
	}
	defer f.Close()

	if err := writeCSV(bufio.NewWriter(f), t); err != nil {
		return 0, domain.NewIOError("write", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, domain.NewIOError("close", path, err)
	}
	return len(t.Rows), nil
}

func writeCSV(bw *bufio.Writer, t *Table) error {
	writer := csv.NewWriter(bw)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return bw.Flush()
}
