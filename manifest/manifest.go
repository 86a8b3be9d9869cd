// Package manifest models the openFDA download manifest: a mapping from
// data type to logical dataset, each dataset carrying a declared export
// date and an ordered list of downloadable partitions. Partition order is
// stable across manifest fetches and is part of each partition's identity.
package manifest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// FileName is the manifest's name under the list path, and the path
// component appended to the endpoint when fetching it.
const FileName = "download.json"

// Manifest is the parsed download manifest.
type Manifest struct {
	Meta    json.RawMessage               `json:"meta,omitempty"`
	Results map[string]map[string]Dataset `json:"results"`
}

// Dataset is one logical dataset: a declared export date and its ordered
// partitions.
type Dataset struct {
	ExportDate string      `json:"export_date"`
	Partitions []Partition `json:"partitions"`
}

// Partition is one downloadable file belonging to a dataset.
type Partition struct {
	File string `json:"file"`
}

// Entry identifies one partition of one dataset, resolved against the
// manifest. It carries everything the fetch and build stages need.
type Entry struct {
	DataType   string
	Field      string
	Index      int
	URL        string
	ExportDate string
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening manifest")
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a manifest from r.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	return &m, nil
}

// Fetch downloads the manifest from <endpoint>/download.json and saves it
// at dest via a temp file and an atomic rename, then parses it.
func Fetch(ctx context.Context, client *http.Client, endpoint, dest string) (*Manifest, error) {
	u, err := url.JoinPath(endpoint, FileName)
	if err != nil {
		return nil, errors.Wrap(err, "building manifest url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building manifest request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching manifest")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching manifest: unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, errors.Wrap(err, "creating list directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), FileName+".tmp-*")
	if err != nil {
		return nil, errors.Wrap(err, "creating temp manifest")
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return nil, errors.Wrap(err, "writing manifest")
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.Wrap(err, "closing temp manifest")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, errors.Wrap(err, "renaming manifest into place")
	}
	return Load(dest)
}

// Entries enumerates every partition in the manifest. Data types and
// fields are sorted so the enumeration order is stable run to run;
// partitions keep their manifest order, which is part of their identity.
func (m *Manifest) Entries() []Entry {
	var entries []Entry
	for _, dt := range sortedKeys(m.Results) {
		fields := m.Results[dt]
		for _, field := range sortedKeys(fields) {
			ds := fields[field]
			for i, p := range ds.Partitions {
				entries = append(entries, Entry{
					DataType:   dt,
					Field:      field,
					Index:      i,
					URL:        p.File,
					ExportDate: ds.ExportDate,
				})
			}
		}
	}
	return entries
}

// Partition resolves one (data type, field, index) triple against the
// manifest.
func (m *Manifest) Partition(dataType, field string, index int) (Entry, error) {
	fields, ok := m.Results[dataType]
	if !ok {
		return Entry{}, errors.Errorf("unknown data type %q", dataType)
	}
	ds, ok := fields[field]
	if !ok {
		return Entry{}, errors.Errorf("unknown field %q in data type %q", field, dataType)
	}
	if index < 0 || index >= len(ds.Partitions) {
		return Entry{}, errors.Errorf("partition index %d out of range for %s/%s", index, dataType, field)
	}
	return Entry{
		DataType:   dataType,
		Field:      field,
		Index:      index,
		URL:        ds.Partitions[index].File,
		ExportDate: ds.ExportDate,
	}, nil
}

// LocalPath derives the partition's target path under root:
// <root>/<data type>/<basename(dirname(url))>/<filename>. Keeping the
// URL's parent directory in the path is what prevents same-named files
// from different datasets from colliding.
func (e Entry) LocalPath(root string) (string, error) {
	u, err := url.Parse(e.URL)
	if err != nil {
		return "", errors.Wrapf(err, "parsing partition url %q", e.URL)
	}
	filename := path.Base(u.Path)
	dir := path.Base(path.Dir(u.Path))
	if filename == "." || filename == "/" || filename == "" {
		return "", errors.Errorf("partition url %q has no file component", e.URL)
	}
	return filepath.Join(root, e.DataType, dir, filename), nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
