package etl

import (
	"foodprice/internal/domain"
)

// ── Transformer ────────────────────────────────────────────
// Transformers rewrite a table between source and destination.
// They are composable: each takes a table and returns the rewritten one.

// Transformer processes a whole table.
type Transformer interface {
	Transform(*Table) (*Table, error)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(*Table) (*Table, error)

func (f TransformerFunc) Transform(t *Table) (*Table, error) { return f(t) }

// ── Built-in Transforms ────────────────────────────────────

// RenameTransform relabels columns. Every header equal to a pair's Old
// becomes its New; headers matching no pair are left alone. A column that is
// not renamed but already carries one of the new labels is dropped, so the
// renamed column is the only one answering to that label.
type RenameTransform struct {
	Pairs []ColumnPair
}

func (t *RenameTransform) Transform(in *Table) (*Table, error) {
	mapping := make(map[string]string, len(t.Pairs))
	targets := make(map[string]bool, len(t.Pairs))
	for _, p := range t.Pairs {
		mapping[p.Old] = p.New
		targets[p.New] = true
	}

	keep := make([]int, 0, len(in.Header))
	header := make([]string, 0, len(in.Header))
	for i, h := range in.Header {
		if to, ok := mapping[h]; ok {
			header = append(header, to)
			keep = append(keep, i)
			continue
		}
		if targets[h] {
			continue
		}
		header = append(header, h)
		keep = append(keep, i)
	}
	if len(keep) == len(in.Header) {
		return &Table{Header: header, Rows: in.Rows}, nil
	}

	rows := make([][]string, len(in.Rows))
	for r, row := range in.Rows {
		kept := make([]string, len(keep))
		for i, j := range keep {
			kept[i] = row[j]
		}
		rows[r] = kept
	}
	return &Table{Header: header, Rows: rows}, nil
}

// SelectTransform keeps exactly the listed columns, in the listed order.
// A listed column that is absent is an error.
type SelectTransform struct {
	Fields []string
}

func (t *SelectTransform) Transform(in *Table) (*Table, error) {
	idx := make([]int, len(t.Fields))
	for i, f := range t.Fields {
		j := in.Index(f)
		if j < 0 {
			return nil, domain.NewMissingKeyError(f, "columns")
		}
		idx[i] = j
	}

	out := &Table{
		Header: append([]string(nil), t.Fields...),
		Rows:   make([][]string, len(in.Rows)),
	}
	for r, row := range in.Rows {
		selected := make([]string, len(idx))
		for i, j := range idx {
			selected[i] = row[j]
		}
		out.Rows[r] = selected
	}
	return out, nil
}

// ── Helpers ────────────────────────────────────────────────

// ApplyTransformers runs a chain of transformers, stopping at the first error.
func ApplyTransformers(t *Table, ts []Transformer) (*Table, error) {
	for _, tr := range ts {
		var err error
		t, err = tr.Transform(t)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}
