package build

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/biobricks-ai/openfda/manifest"
	"github.com/biobricks-ai/openfda/stats"
)

// Main contains the configuration for the build stage.
type Main struct {
	ListPath  string `help:"Directory holding the download manifest."`
	RawPath   string `help:"Directory downloaded partitions live in."`
	BrickPath string `help:"Directory parquet outputs are written under."`
	Workers   int    `help:"Number of conversions running at once."`
	Force     bool   `help:"Convert even when the output is newer than the input."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		ListPath:  "list",
		RawPath:   "raw",
		BrickPath: "brick",
		Workers:   14,
	}
}

type outcome int

const (
	converted outcome = iota
	skipped
	missing
	failed
)

// Run converts every partition the manifest lists. Outputs newer than
// their inputs are skipped unless Force is set; absent inputs are counted
// as missing, not failures. It returns an error when any conversion
// failed.
func (m *Main) Run() error {
	mf, err := manifest.Load(filepath.Join(m.ListPath, manifest.FileName))
	if err != nil {
		return errors.Wrap(err, "loading manifest")
	}
	entries := mf.Entries()
	log.Printf("found %d partitions to convert", len(entries))

	workers := m.Workers
	if workers < 1 {
		workers = 1
	}
	collector := stats.NewCollector(os.Stderr)
	jobs := make(chan manifest.Entry)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range jobs {
				switch out, err := m.processEntry(e); out {
				case converted:
					collector.Count("Converted", 1)
				case skipped:
					collector.Count("Skipped", 1)
				case missing:
					collector.Count("Missing", 1)
				case failed:
					collector.Count("Failed", 1)
					log.Printf("failed %s/%s[%d]: %v", e.DataType, e.Field, e.Index, err)
				}
			}
		}()
	}
	for _, e := range entries {
		jobs <- e
	}
	close(jobs)
	wg.Wait()

	log.Println("build summary:")
	collector.Summary(os.Stderr)
	if n := collector.Get("Failed"); n > 0 {
		return errors.Errorf("%d of %d conversions failed", n, len(entries))
	}
	return nil
}

// processEntry converts one partition: locate the raw file, skip when the
// existing output is newer, extract zip payloads to a temp dir, convert.
func (m *Main) processEntry(e manifest.Entry) (outcome, error) {
	rawFile, err := e.LocalPath(m.RawPath)
	if err != nil {
		return failed, err
	}
	outFile, err := m.outputPath(e)
	if err != nil {
		return failed, err
	}

	rawInfo, err := os.Stat(rawFile)
	if os.IsNotExist(err) {
		return missing, nil
	} else if err != nil {
		return failed, errors.Wrap(err, "statting input")
	}
	if !m.Force {
		if outInfo, err := os.Stat(outFile); err == nil && outInfo.ModTime().After(rawInfo.ModTime()) {
			return skipped, nil
		}
	}

	input := rawFile
	if strings.HasSuffix(rawFile, ".zip") {
		tmpDir, err := os.MkdirTemp("", "openfda-build-*")
		if err != nil {
			return failed, errors.Wrap(err, "creating temp dir")
		}
		defer os.RemoveAll(tmpDir)
		input, err = extractJSON(rawFile, tmpDir)
		if err != nil {
			return failed, err
		}
	}
	if err := ConvertFile(input, outFile); err != nil {
		return failed, err
	}
	return converted, nil
}

// outputPath mirrors the raw layout under the brick path, replacing the
// archive suffix with .parquet.
func (m *Main) outputPath(e manifest.Entry) (string, error) {
	p, err := e.LocalPath(m.BrickPath)
	if err != nil {
		return "", err
	}
	dir, file := filepath.Split(p)
	return filepath.Join(dir, stripArchiveSuffix(file)+".parquet"), nil
}
