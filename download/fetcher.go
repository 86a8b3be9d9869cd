// Package download implements the incremental fetch protocol for dataset
// partitions: conditional GETs driven by persisted Last-Modified markers,
// a stale-manifest guard that skips the network entirely when the local
// marker is newer than the declared export date, and temp-file staging so
// a partial transfer never appears at a partition's final path.
package download

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/biobricks-ai/openfda/manifest"
)

// Status is the outcome of fetching one partition.
type Status int

const (
	// StatusUpdated means a fresh copy was downloaded and moved into place.
	StatusUpdated Status = iota
	// StatusSkipped means the local copy is still valid; either the marker
	// was newer than the declared export date or the server answered 304.
	StatusSkipped
	// StatusFailed means the partition could not be fetched after the
	// retry budget was spent.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUpdated:
		return "updated"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result reports the outcome of one partition fetch. Failures carry the
// error; skips carry the reason.
type Result struct {
	Entry  manifest.Entry
	Status Status
	Reason string
	Err    error
}

// Downloader retrieves one remote resource, optionally conditional on an
// If-Modified-Since timestamp. Implementations exist for http(s) and s3
// URL schemes; the fetcher dispatches on the scheme.
type Downloader interface {
	Get(ctx context.Context, rawurl, ifModifiedSince string) (body io.ReadCloser, lastModified string, notModified bool, err error)
}

// Fetcher downloads manifest partitions into a local tree rooted at Root.
// Each partition owns its own target path and marker, so concurrent
// FetchEntry calls need no cross-call locking.
type Fetcher struct {
	Root        string
	Markers     MarkerStore
	Downloaders map[string]Downloader
}

// NewFetcher returns a Fetcher writing under root with markers in store.
// Downloaders are registered per URL scheme with Register.
func NewFetcher(root string, store MarkerStore) *Fetcher {
	return &Fetcher{
		Root:        root,
		Markers:     store,
		Downloaders: make(map[string]Downloader),
	}
}

// Register installs a downloader for a URL scheme.
func (f *Fetcher) Register(scheme string, d Downloader) {
	f.Downloaders[scheme] = d
}

// FetchPartition resolves one (data type, field, partition index) triple
// against the manifest and fetches it.
func (f *Fetcher) FetchPartition(ctx context.Context, m *manifest.Manifest, dataType, field string, index int) Result {
	e, err := m.Partition(dataType, field, index)
	if err != nil {
		return Result{Entry: manifest.Entry{DataType: dataType, Field: field, Index: index}, Status: StatusFailed, Err: err}
	}
	return f.FetchEntry(ctx, e)
}

// FetchEntry fetches one partition. The decision sequence: skip without a
// network call when the stored marker is strictly newer than the declared
// export date, otherwise issue a conditional request and treat 304 as a
// skip. Successful bodies are staged in a temp file and renamed into
// place before the marker is updated.
func (f *Fetcher) FetchEntry(ctx context.Context, e manifest.Entry) Result {
	target, err := e.LocalPath(f.Root)
	if err != nil {
		return Result{Entry: e, Status: StatusFailed, Err: err}
	}
	key, err := filepath.Rel(f.Root, target)
	if err != nil {
		return Result{Entry: e, Status: StatusFailed, Err: errors.Wrap(err, "deriving marker key")}
	}
	key = filepath.ToSlash(key)

	marker, haveMarker, err := f.Markers.Get(key)
	if err != nil {
		return Result{Entry: e, Status: StatusFailed, Err: err}
	}
	if haveMarker {
		if _, err := os.Stat(target); err != nil {
			// Marker without a payload: the file was removed out from
			// under us. Refetch unconditionally.
			haveMarker = false
			marker = ""
		}
	}
	if haveMarker && manifest.ParseDate(marker).After(manifest.ParseDate(e.ExportDate)) {
		return Result{Entry: e, Status: StatusSkipped, Reason: "up to date"}
	}

	dl, err := f.downloaderFor(e.URL)
	if err != nil {
		return Result{Entry: e, Status: StatusFailed, Err: err}
	}
	body, lastModified, notModified, err := dl.Get(ctx, e.URL, marker)
	if err != nil {
		return Result{Entry: e, Status: StatusFailed, Err: err}
	}
	if notModified {
		return Result{Entry: e, Status: StatusSkipped, Reason: "not modified"}
	}
	defer body.Close()

	if err := stageAndRename(target, body); err != nil {
		return Result{Entry: e, Status: StatusFailed, Err: err}
	}
	if lastModified != "" {
		// A server that omits Last-Modified is tolerated; the next run
		// just fetches unconditionally again.
		if err := f.Markers.Put(key, lastModified); err != nil {
			return Result{Entry: e, Status: StatusFailed, Err: err}
		}
	}
	return Result{Entry: e, Status: StatusUpdated}
}

func (f *Fetcher) downloaderFor(rawurl string) (Downloader, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing url %q", rawurl)
	}
	scheme := strings.ToLower(u.Scheme)
	dl, ok := f.Downloaders[scheme]
	if !ok {
		return nil, errors.Errorf("no downloader registered for scheme %q", scheme)
	}
	return dl, nil
}

// stageAndRename writes body to a temp file in the target's directory and
// renames it into place, removing the temp file on any failure so the
// final path is never left holding a partial payload.
func stageAndRename(target string, body io.Reader) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating download directory")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing payload")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), target), "renaming into place")
}
