package renamer_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"

	"foodprice/internal/domain"
	"foodprice/internal/renamer"
)

var referenceNames = []string{"reference_date", "price", "product"}

type fixture struct {
	bronze   string
	silver   string
	manifest string
}

func newFixture(t *testing.T, manifest string, files map[string]string) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		bronze: filepath.Join(root, "bronze"),
		silver: filepath.Join(root, "silver"),
	}
	f.manifest = filepath.Join(f.bronze, "metadata.yaml")
	if err := os.MkdirAll(f.bronze, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(f.manifest, []byte(manifest), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	for name, content := range files {
		path := filepath.Join(f.bronze, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return f
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func run(t *testing.T, f fixture, names []string) (*renamer.Result, error) {
	t.Helper()
	r := renamer.New(renamer.Options{
		NewColumnNames: names,
		TargetFolder:   f.silver,
		Logger:         quietLogger(),
	})
	return r.Run(context.Background(), f.manifest)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

type outputEntry struct {
	FileName       string    `yaml:"file_name"`
	Preprocessing  string    `yaml:"preprocessing"`
	RenamedColumns yaml.Node `yaml:"renamed_columns"`
}

func readOutputManifest(t *testing.T, path string) []outputEntry {
	t.Helper()
	var doc struct {
		Files []outputEntry `yaml:"files"`
	}
	if err := yaml.Unmarshal([]byte(readFile(t, path)), &doc); err != nil {
		t.Fatalf("parse output manifest: %v", err)
	}
	return doc.Files
}

func mappingPairs(n yaml.Node) (keys, values []string) {
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
		values = append(values, n.Content[i+1].Value)
	}
	return keys, values
}

const singleEntry = `files:
  - file_name: a.csv
    selected_columns:
      date: {}
      amount: {}
      item: {}
`

func TestRun_ReferenceScenario(t *testing.T) {
	f := newFixture(t, singleEntry, map[string]string{
		"a.csv": "date,amount,item\n2024-01-01,3.5,rice\n",
	})

	res, err := run(t, f, referenceNames)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	got := readFile(t, filepath.Join(f.silver, "a.csv"))
	want := "reference_date,price,product\n2024-01-01,3.5,rice\n"
	if got != want {
		t.Errorf("output csv:\nwant %q\ngot  %q", want, got)
	}

	entries := readOutputManifest(t, filepath.Join(f.silver, "metadata.yaml"))
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Preprocessing != renamer.Description() {
		t.Errorf("preprocessing: got %q", entries[0].Preprocessing)
	}
	keys, values := mappingPairs(entries[0].RenamedColumns)
	if !reflect.DeepEqual(keys, referenceNames) {
		t.Errorf("renamed_columns keys: got %q", keys)
	}
	if want := []string{"date", "amount", "item"}; !reflect.DeepEqual(values, want) {
		t.Errorf("renamed_columns values: got %q", values)
	}

	if len(res.Files) != 1 || res.Files[0].Rows != 1 {
		t.Errorf("unexpected result: %+v", res.Files)
	}
	if res.OutputManifest != filepath.Join(f.silver, "metadata.yaml") {
		t.Errorf("output manifest path: %q", res.OutputManifest)
	}
}

func TestRun_MultipleEntriesAndExtraColumns(t *testing.T) {
	f := newFixture(t, `owner: data-team
files:
  - file_name: raw/markets.csv
    selected_columns:
      Date: {}
      Price (USD): {}
      Commodity: {}
  - file_name: b.csv
    selected_columns:
      when: {}
      cost: {}
      what: {}
notes: kept
`, map[string]string{
		"raw/markets.csv": "Market,Date,Commodity,Price (USD)\nnorth,2024-01-01,rice,3.5\nsouth,2024-01-02,beans,4\n",
		"b.csv":           "what,when,cost\nmaize,2024-02-01,1.25\n",
	})

	if _, err := run(t, f, referenceNames); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Pairing is by selected_columns order, not by raw file column order.
	got := readFile(t, filepath.Join(f.silver, "markets.csv"))
	want := "reference_date,price,product\n2024-01-01,3.5,rice\n2024-01-02,4,beans\n"
	if got != want {
		t.Errorf("markets.csv:\nwant %q\ngot  %q", want, got)
	}
	got = readFile(t, filepath.Join(f.silver, "b.csv"))
	want = "reference_date,price,product\n2024-02-01,1.25,maize\n"
	if got != want {
		t.Errorf("b.csv:\nwant %q\ngot  %q", want, got)
	}

	outputs, err := os.ReadDir(f.silver)
	if err != nil {
		t.Fatalf("read silver: %v", err)
	}
	if len(outputs) != 3 {
		t.Errorf("expected 2 csv files + 1 manifest, got %d entries", len(outputs))
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(readFile(t, filepath.Join(f.silver, "metadata.yaml"))), &doc); err != nil {
		t.Fatalf("parse output manifest: %v", err)
	}
	top, _ := mappingPairs(*doc.Content[0])
	if want := []string{"owner", "files", "notes"}; !reflect.DeepEqual(top, want) {
		t.Errorf("top-level key order: want %q, got %q", want, top)
	}
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t, singleEntry, map[string]string{
		"a.csv": "date,amount,item\n2024-01-01,3.5,rice\n2024-01-02,\"1,000\",\"say \"\"x\"\"\"\n",
	})

	if _, err := run(t, f, referenceNames); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCSV := readFile(t, filepath.Join(f.silver, "a.csv"))
	firstManifest := readOutputManifest(t, filepath.Join(f.silver, "metadata.yaml"))

	if _, err := run(t, f, referenceNames); err != nil {
		t.Fatalf("second run: %v", err)
	}
	secondCSV := readFile(t, filepath.Join(f.silver, "a.csv"))
	secondManifest := readOutputManifest(t, filepath.Join(f.silver, "metadata.yaml"))

	if firstCSV != secondCSV {
		t.Errorf("csv differs between runs:\n%q\n%q", firstCSV, secondCSV)
	}
	if len(firstManifest) != len(secondManifest) || firstManifest[0].Preprocessing != secondManifest[0].Preprocessing {
		t.Errorf("manifest differs between runs")
	}
	k1, v1 := mappingPairs(firstManifest[0].RenamedColumns)
	k2, v2 := mappingPairs(secondManifest[0].RenamedColumns)
	if !reflect.DeepEqual(k1, k2) || !reflect.DeepEqual(v1, v2) {
		t.Errorf("renamed_columns differ between runs")
	}
}

func TestRun_FewerSelectedColumnsThanNames(t *testing.T) {
	f := newFixture(t, `files:
  - file_name: a.csv
    selected_columns:
      date: {}
      amount: {}
`, map[string]string{
		"a.csv": "date,amount,item\n2024-01-01,3.5,rice\n",
	})

	_, err := run(t, f, referenceNames)
	if !errors.Is(err, domain.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.silver, "a.csv")); !os.IsNotExist(err) {
		t.Errorf("no csv should be written for the failing entry")
	}
	if _, err := os.Stat(filepath.Join(f.silver, "metadata.yaml")); !os.IsNotExist(err) {
		t.Errorf("no manifest should be written after a failure")
	}
}

func TestRun_MoreSelectedColumnsThanNames(t *testing.T) {
	f := newFixture(t, singleEntry, map[string]string{
		"a.csv": "date,amount,item\n2024-01-01,3.5,rice\n",
	})

	if _, err := run(t, f, []string{"reference_date", "price"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := readFile(t, filepath.Join(f.silver, "a.csv"))
	if want := "reference_date,price\n2024-01-01,3.5\n"; got != want {
		t.Errorf("output csv:\nwant %q\ngot  %q", want, got)
	}
	entries := readOutputManifest(t, filepath.Join(f.silver, "metadata.yaml"))
	keys, values := mappingPairs(entries[0].RenamedColumns)
	if !reflect.DeepEqual(keys, []string{"reference_date", "price"}) || !reflect.DeepEqual(values, []string{"date", "amount"}) {
		t.Errorf("renamed_columns: %q → %q", keys, values)
	}
}

func TestRun_RenamedColumnWinsOverExistingLabel(t *testing.T) {
	f := newFixture(t, `files:
  - file_name: a.csv
    selected_columns:
      date: date
      price_usd: float
      item: str
`, map[string]string{
		"a.csv": "date,price,price_usd,item\n2024-01-01,999,3.5,rice\n",
	})

	if _, err := run(t, f, referenceNames); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := readFile(t, filepath.Join(f.silver, "a.csv"))
	if want := "reference_date,price,product\n2024-01-01,3.5,rice\n"; got != want {
		t.Errorf("output csv:\nwant %q\ngot  %q", want, got)
	}
}

func TestRun_MissingRawFileKeepsEarlierOutputs(t *testing.T) {
	f := newFixture(t, `files:
  - file_name: a.csv
    selected_columns: {date: {}, amount: {}, item: {}}
  - file_name: missing.csv
    selected_columns: {date: {}, amount: {}, item: {}}
`, map[string]string{
		"a.csv": "date,amount,item\n2024-01-01,3.5,rice\n",
	})

	_, err := run(t, f, referenceNames)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.silver, "a.csv")); err != nil {
		t.Errorf("earlier output should remain: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.silver, "metadata.yaml")); !os.IsNotExist(err) {
		t.Errorf("manifest should not be written after a failure")
	}
}

func TestRun_ManifestErrors(t *testing.T) {
	t.Run("missing manifest", func(t *testing.T) {
		r := renamer.New(renamer.Options{NewColumnNames: referenceNames, TargetFolder: t.TempDir(), Logger: quietLogger()})
		_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "metadata.yaml"))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("malformed manifest", func(t *testing.T) {
		f := newFixture(t, "files: [\n", nil)
		if _, err := run(t, f, referenceNames); !errors.Is(err, domain.ErrParse) {
			t.Fatalf("expected ErrParse, got %v", err)
		}
	})

	t.Run("malformed csv", func(t *testing.T) {
		f := newFixture(t, singleEntry, map[string]string{"a.csv": "date,amount\n1,2,3\n"})
		if _, err := run(t, f, referenceNames); !errors.Is(err, domain.ErrParse) {
			t.Fatalf("expected ErrParse, got %v", err)
		}
	})

	t.Run("target folder is a file", func(t *testing.T) {
		f := newFixture(t, singleEntry, map[string]string{"a.csv": "date,amount,item\n"})
		if err := os.WriteFile(f.silver, []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := run(t, f, referenceNames); !errors.Is(err, domain.ErrIO) {
			t.Fatalf("expected ErrIO, got %v", err)
		}
	})
}

func TestRun_CreatesNestedTargetFolder(t *testing.T) {
	f := newFixture(t, singleEntry, map[string]string{"a.csv": "date,amount,item\n"})
	f.silver = filepath.Join(f.silver, "nested", "deeper")
	if _, err := run(t, f, referenceNames); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := readFile(t, filepath.Join(f.silver, "a.csv"))
	if got != "reference_date,price,product\n" {
		t.Errorf("header-only output: %q", got)
	}
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t, singleEntry, map[string]string{"a.csv": "date,amount,item\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := renamer.New(renamer.Options{NewColumnNames: referenceNames, TargetFolder: f.silver, Logger: quietLogger()})
	if _, err := r.Run(ctx, f.manifest); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_LogsWrittenFiles(t *testing.T) {
	f := newFixture(t, singleEntry, map[string]string{"a.csv": "date,amount,item\n"})
	var buf bytes.Buffer
	r := renamer.New(renamer.Options{
		NewColumnNames: referenceNames,
		TargetFolder:   f.silver,
		Logger:         slog.New(slog.NewTextHandler(&buf, nil)),
	})
	if _, err := r.Run(context.Background(), f.manifest); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("wrote silver file")) {
		t.Errorf("expected a log line per file, got:\n%s", buf.String())
	}
}

func TestNew_DefaultTargetFolder(t *testing.T) {
	r := renamer.New(renamer.Options{NewColumnNames: referenceNames})
	if r.TargetFolder() != renamer.DefaultTargetFolder {
		t.Errorf("default target: got %q", r.TargetFolder())
	}
	if renamer.DefaultTargetFolder != "data/silver" {
		t.Errorf("unexpected default %q", renamer.DefaultTargetFolder)
	}
}
