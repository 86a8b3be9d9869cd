// Package build converts downloaded JSON partitions to parquet, mirroring
// the raw directory layout under the brick path. Each file is converted
// independently; one malformed payload fails that file only.
package build

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/biobricks-ai/openfda"
	"github.com/biobricks-ai/openfda/parquet"
)

// ConvertFile converts one JSON document at inputPath to a parquet file
// at outputPath. A missing input or malformed JSON is an error and no
// output file is produced.
func ConvertFile(inputPath, outputPath string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return errors.Wrapf(err, "opening input %q", inputPath)
	}
	defer f.Close()

	doc, err := openfda.Decode(f)
	if err != nil {
		return errors.Wrapf(err, "reading %q", inputPath)
	}
	table := openfda.Convert(doc)
	return errors.Wrapf(parquet.Write(outputPath, table), "writing %q", outputPath)
}

// extractJSON unpacks the first .json member of a zip archive into dir
// and returns its path.
func extractJSON(zipPath, dir string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", errors.Wrapf(err, "opening zip %q", zipPath)
	}
	defer zr.Close()

	for _, member := range zr.File {
		if !strings.HasSuffix(member.Name, ".json") || member.FileInfo().IsDir() {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return "", errors.Wrapf(err, "opening zip member %q", member.Name)
		}
		out := filepath.Join(dir, filepath.Base(member.Name))
		err = writeFile(out, rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		return out, nil
	}
	return "", errors.Errorf("no json file found in %q", zipPath)
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %q", path)
	}
	return errors.Wrapf(f.Close(), "closing %q", path)
}

// stripArchiveSuffix reduces a partition filename to its logical base:
// drug-event-0001-of-0035.json.zip -> drug-event-0001-of-0035.
func stripArchiveSuffix(name string) string {
	for _, suffix := range []string{".json.zip", ".zip", ".json"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}
