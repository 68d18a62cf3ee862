package etl

// ── Table ──────────────────────────────────────────────────
// Common intermediate data format.
// The CSV source emits a Table, transforms rewrite it, destinations consume it.
// Column order is significant and values are kept as the exact strings read.

// Table is a header row plus data rows. Every row has len(Header) cells.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Index returns the position of the first column labelled name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// ColumnPair links an original column label to its new label.
type ColumnPair struct {
	Old string `json:"old" yaml:"old"`
	New string `json:"new" yaml:"new"`
}

// PairColumns pairs original names with new names by position. The result
// has min(len(olds), len(news)) pairs; surplus names on either side are
// ignored.
func PairColumns(olds, news []string) []ColumnPair {
	n := min(len(olds), len(news))
	pairs := make([]ColumnPair, n)
	for i := 0; i < n; i++ {
		pairs[i] = ColumnPair{Old: olds[i], New: news[i]}
	}
	return pairs
}
