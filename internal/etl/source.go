package etl

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"foodprice/internal/domain"
)

// ── Source ──────────────────────────────────────────────────
// A Source loads a whole dataset from a file.

// Source reads a file into a Table.
type Source interface {
	Read(ctx context.Context, path string) (*Table, error)
}

// CSVFileSource reads comma-separated files with a header row.
type CSVFileSource struct{}

func (CSVFileSource) Read(ctx context.Context, path string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadCSVFile(path)
}

// ReadCSVFile loads a CSV file. The first record is the header. Rows shorter
// than the header are padded with empty cells; longer rows are a parse error.
// Blank header cells become "Unnamed: <i>" and repeated labels get a ".<n>"
// suffix so every column stays addressable by name.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewNotFoundError("raw file", path, err)
		}
		return nil, domain.NewIOError("open", path, err)
	}
	defer f.Close()

	t, err := parseCSV(f)
	if err != nil {
		return nil, domain.NewParseError("csv", path, err)
	}
	return t, nil
}

func parseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("no columns to parse from file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = normalizeHeader(header)

	t := &Table{Header: header}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if len(row) > len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", line, len(header), len(row))
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for used[name] {
			suffix[h]++
			name = fmt.Sprintf("%s.%d", h, suffix[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}
