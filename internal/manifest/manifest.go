// Package manifest reads and writes the YAML metadata document that lists raw
// data files and their selected columns.
//
// The document is kept as a yaml.Node tree rather than decoded into structs:
// key order, comments and fields this package does not know about are written
// back unchanged.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"foodprice/internal/domain"
	"foodprice/internal/etl"
)

const (
	keyFiles           = "files"
	keyFileName        = "file_name"
	keySelectedColumns = "selected_columns"
	keyPreprocessing   = "preprocessing"
	keyRenamedColumns  = "renamed_columns"
)

// Document is a parsed manifest.
type Document struct {
	path string
	doc  *yaml.Node
	root *yaml.Node
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewNotFoundError("manifest", path, err)
		}
		return nil, domain.NewIOError("read", path, err)
	}
	return Parse(data, path)
}

// Parse parses manifest content. path is only used in error messages.
func Parse(data []byte, path string) (*Document, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewParseError("manifest", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, domain.NewParseError("manifest", path, fmt.Errorf("empty document"))
	}
	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, domain.NewParseError("manifest", path, fmt.Errorf("top level must be a mapping"))
	}
	return &Document{path: path, doc: &doc, root: root}, nil
}

// Entries returns the file entries of the `files` sequence in document order.
func (d *Document) Entries() ([]*Entry, error) {
	files := lookup(d.root, keyFiles)
	if files == nil {
		return nil, domain.NewMissingKeyError(keyFiles, "manifest "+d.path)
	}
	files = resolve(files)
	if files.Kind != yaml.SequenceNode {
		return nil, domain.NewParseError("manifest", d.path, fmt.Errorf("line %d: %q must be a sequence", files.Line, keyFiles))
	}

	entries := make([]*Entry, 0, len(files.Content))
	for i, n := range files.Content {
		n = resolve(n)
		if n.Kind != yaml.MappingNode {
			return nil, domain.NewParseError("manifest", d.path, fmt.Errorf("line %d: %s[%d] must be a mapping", n.Line, keyFiles, i))
		}
		entries = append(entries, &Entry{index: i, node: n, path: d.path})
	}
	return entries, nil
}

// Save writes the document to path as YAML with two-space indentation.
// An existing file is overwritten.
func (d *Document) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return domain.NewIOError("create", path, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(d.doc); err != nil {
		return domain.NewIOError("write", path, err)
	}
	if err := enc.Close(); err != nil {
		return domain.NewIOError("write", path, err)
	}
	if err := f.Close(); err != nil {
		return domain.NewIOError("close", path, err)
	}
	return nil
}

// Entry is one element of the `files` sequence.
type Entry struct {
	index int
	node  *yaml.Node
	path  string
}

func (e *Entry) where() string {
	return fmt.Sprintf("%s[%d] of manifest %s", keyFiles, e.index, e.path)
}

// FileName returns the entry's file_name, relative to the manifest directory.
func (e *Entry) FileName() (string, error) {
	n := lookup(e.node, keyFileName)
	if n == nil {
		return "", domain.NewMissingKeyError(keyFileName, e.where())
	}
	n = resolve(n)
	if n.Kind != yaml.ScalarNode {
		return "", domain.NewParseError("manifest", e.path, fmt.Errorf("line %d: %q must be a string", n.Line, keyFileName))
	}
	return n.Value, nil
}

// SelectedColumns returns the keys of selected_columns in document order.
// A missing or null selected_columns yields no columns.
func (e *Entry) SelectedColumns() ([]string, error) {
	n := lookup(e.node, keySelectedColumns)
	if n == nil {
		return nil, nil
	}
	n = resolve(n)
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, domain.NewParseError("manifest", e.path, fmt.Errorf("line %d: %q must be a mapping", n.Line, keySelectedColumns))
	}

	keys := make([]string, 0, len(n.Content)/2)
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		if seen[k] {
			return nil, domain.NewParseError("manifest", e.path, fmt.Errorf("line %d: duplicate column %q in %s", n.Content[i].Line, k, keySelectedColumns))
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys, nil
}

// SetPreprocessing sets the entry's preprocessing description.
func (e *Entry) SetPreprocessing(desc string) {
	set(e.node, keyPreprocessing, stringNode(desc))
}

// SetRenamedColumns records renames as a new → old mapping. If two renames
// share a new name the later one wins.
func (e *Entry) SetRenamedColumns(renames []etl.ColumnPair) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, r := range renames {
		set(m, r.New, stringNode(r.Old))
	}
	set(e.node, keyRenamedColumns, m)
}

// ── Node helpers ───────────────────────────────────────────

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// set replaces the value of key in place, or appends key when absent.
func set(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, stringNode(key), value)
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
