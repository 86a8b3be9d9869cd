package download

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/biobricks-ai/openfda/boltdb"
	"github.com/biobricks-ai/openfda/manifest"
	"github.com/biobricks-ai/openfda/s3"
	"github.com/biobricks-ai/openfda/stats"
)

// Main contains the configuration for the download stage.
type Main struct {
	Endpoint    string `help:"Base URL the download manifest is fetched from."`
	ListPath    string `help:"Directory holding the download manifest."`
	RawPath     string `help:"Directory partitions are downloaded into."`
	Concurrency int    `help:"Number of simultaneous partition downloads."`
	Retries     int    `help:"Network retry budget per partition."`
	Timeout     int    `help:"Per-attempt timeout in seconds."`
	FailFast    bool   `help:"Stop the whole run on the first failed partition."`
	RefreshList bool   `help:"Re-fetch the manifest even when a local copy exists."`
	MarkerDB    string `flag:"marker-db" help:"Path to a bolt marker database. Empty keeps .last-modified sidecar files."`
	S3Region    string `flag:"s3-region" help:"AWS region for s3:// partition urls."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Endpoint:    "https://api.fda.gov",
		ListPath:    "list",
		RawPath:     "raw",
		Concurrency: 4,
		Retries:     3,
		Timeout:     300,
		S3Region:    "us-east-1",
	}
}

// Run fetches the manifest (unless a local copy suffices) and then every
// partition it lists. It returns an error when any partition failed, so
// the process exits non-zero without aborting sibling partitions.
func (m *Main) Run() error {
	ctx := context.Background()
	client := &http.Client{Timeout: time.Duration(m.Timeout) * time.Second}

	listFile := filepath.Join(m.ListPath, manifest.FileName)
	var mf *manifest.Manifest
	var err error
	if _, statErr := os.Stat(listFile); m.RefreshList || os.IsNotExist(statErr) {
		log.Printf("fetching manifest from %s", m.Endpoint)
		mf, err = manifest.Fetch(ctx, client, m.Endpoint, listFile)
	} else {
		mf, err = manifest.Load(listFile)
	}
	if err != nil {
		return errors.Wrap(err, "getting manifest")
	}

	var store MarkerStore
	if m.MarkerDB != "" {
		store, err = boltdb.NewMarkerStore(m.MarkerDB)
		if err != nil {
			return errors.Wrap(err, "opening marker db")
		}
	} else {
		store = NewSidecarStore(m.RawPath)
	}
	defer store.Close()

	fetcher := NewFetcher(m.RawPath, store)
	httpDL := NewHTTPDownloader(client, m.Retries)
	fetcher.Register("http", httpDL)
	fetcher.Register("https", httpDL)
	if s3dl, err := s3.NewDownloader(m.S3Region); err != nil {
		log.Printf("s3 downloader unavailable: %v", err)
	} else {
		fetcher.Register("s3", s3dl)
	}

	entries := mf.Entries()
	log.Printf("found %d partitions to check", len(entries))
	collector := stats.NewCollector(os.Stderr)
	sum := fetcher.FetchAll(ctx, entries, m.Concurrency, m.FailFast, func(r Result) {
		switch r.Status {
		case StatusUpdated:
			collector.Count("Downloaded", 1)
		case StatusSkipped:
			collector.Count("Skipped", 1)
		case StatusFailed:
			collector.Count("Failed", 1)
			log.Printf("failed %s/%s[%d]: %v", r.Entry.DataType, r.Entry.Field, r.Entry.Index, r.Err)
		}
	})

	log.Println("download summary:")
	collector.Summary(os.Stderr)
	if sum.Failed > 0 {
		return errors.Errorf("%d of %d partitions failed", sum.Failed, len(entries))
	}
	return nil
}
