package build

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/biobricks-ai/openfda/manifest"
)

const sampleManifest = `{
	"results": {
		"drug": {
			"event": {
				"export_date": "2024-01-12",
				"partitions": [
					{"file": "https://download.open.fda.gov/drug/event/q1/drug-event-0001-of-0002.json"},
					{"file": "https://download.open.fda.gov/drug/event/q1/drug-event-0002-of-0002.json.zip"},
					{"file": "https://download.open.fda.gov/drug/event/q1/drug-event-missing.json"}
				]
			}
		}
	}
}`

const samplePayload = `{"results": [{"id": "a", "count": 1}]}`

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func mustWriteZip(t *testing.T, path, member, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating zip: %v", err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create(member)
	if err != nil {
		t.Fatalf("creating zip member: %v", err)
	}
	fmt.Fprint(w, contents)
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
}

func newTestMain(t *testing.T) *Main {
	t.Helper()
	root := t.TempDir()
	m := NewMain()
	m.ListPath = filepath.Join(root, "list")
	m.RawPath = filepath.Join(root, "raw")
	m.BrickPath = filepath.Join(root, "brick")
	m.Workers = 2
	mustWriteFile(t, filepath.Join(m.ListPath, manifest.FileName), sampleManifest)
	return m
}

func TestRunConvertsAndReportsMissing(t *testing.T) {
	m := newTestMain(t)
	mustWriteFile(t, filepath.Join(m.RawPath, "drug", "q1", "drug-event-0001-of-0002.json"), samplePayload)
	mustWriteZip(t, filepath.Join(m.RawPath, "drug", "q1", "drug-event-0002-of-0002.json.zip"),
		"drug-event-0002-of-0002.json", samplePayload)

	// One partition is deliberately absent; missing inputs are counted,
	// not failed, so the run succeeds.
	if err := m.Run(); err != nil {
		t.Fatalf("running build: %v", err)
	}
	for _, want := range []string{
		filepath.Join(m.BrickPath, "drug", "q1", "drug-event-0001-of-0002.parquet"),
		filepath.Join(m.BrickPath, "drug", "q1", "drug-event-0002-of-0002.parquet"),
	} {
		if _, err := os.Stat(want); err != nil {
			t.Fatalf("expected output %s: %v", want, err)
		}
	}
	if _, err := os.Stat(filepath.Join(m.BrickPath, "drug", "q1", "drug-event-missing.parquet")); !os.IsNotExist(err) {
		t.Fatal("missing input must not produce an output file")
	}
}

func TestRunSkipsUpToDateOutputs(t *testing.T) {
	m := newTestMain(t)
	raw := filepath.Join(m.RawPath, "drug", "q1", "drug-event-0001-of-0002.json")
	mustWriteFile(t, raw, samplePayload)
	out := filepath.Join(m.BrickPath, "drug", "q1", "drug-event-0001-of-0002.parquet")
	mustWriteFile(t, out, "sentinel")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(out, future, future); err != nil {
		t.Fatalf("setting mtime: %v", err)
	}

	if err := m.Run(); err != nil {
		t.Fatalf("running build: %v", err)
	}
	buf, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(buf) != "sentinel" {
		t.Fatal("up-to-date output was rewritten")
	}
}

func TestRunForceRewrites(t *testing.T) {
	m := newTestMain(t)
	m.Force = true
	raw := filepath.Join(m.RawPath, "drug", "q1", "drug-event-0001-of-0002.json")
	mustWriteFile(t, raw, samplePayload)
	out := filepath.Join(m.BrickPath, "drug", "q1", "drug-event-0001-of-0002.parquet")
	mustWriteFile(t, out, "sentinel")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(out, future, future); err != nil {
		t.Fatalf("setting mtime: %v", err)
	}

	if err := m.Run(); err != nil {
		t.Fatalf("running build: %v", err)
	}
	buf, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(buf) == "sentinel" {
		t.Fatal("force should rewrite the output")
	}
}

func TestRunMalformedInputFails(t *testing.T) {
	m := newTestMain(t)
	mustWriteFile(t, filepath.Join(m.RawPath, "drug", "q1", "drug-event-0001-of-0002.json"), `{"results": [`)
	mustWriteFile(t, filepath.Join(m.RawPath, "drug", "q1", "drug-event-missing.json"), samplePayload)
	mustWriteZip(t, filepath.Join(m.RawPath, "drug", "q1", "drug-event-0002-of-0002.json.zip"),
		"drug-event-0002-of-0002.json", samplePayload)

	err := m.Run()
	if err == nil {
		t.Fatal("expected error when a conversion fails")
	}
	// Siblings of the malformed file still convert.
	if _, statErr := os.Stat(filepath.Join(m.BrickPath, "drug", "q1", "drug-event-0002-of-0002.parquet")); statErr != nil {
		t.Fatalf("sibling conversion should succeed: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(m.BrickPath, "drug", "q1", "drug-event-0001-of-0002.parquet")); !os.IsNotExist(statErr) {
		t.Fatal("malformed input must not produce an output file")
	}
}

func TestStripArchiveSuffix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"drug-event-0001-of-0035.json.zip", "drug-event-0001-of-0035"},
		{"archive.zip", "archive"},
		{"plain.json", "plain"},
		{"unknown.txt", "unknown.txt"},
	}
	for _, test := range tests {
		if got := stripArchiveSuffix(test.in); got != test.want {
			t.Errorf("stripArchiveSuffix(%q): got %q, want %q", test.in, got, test.want)
		}
	}
}
