package download

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// MarkerStore persists the Last-Modified value observed at the last
// successful download of each partition, keyed by the partition's path
// relative to the raw root. A missing marker means "never fetched".
type MarkerStore interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
	Close() error
}

// markerSuffix is appended to a partition's filename to form its sidecar
// marker file.
const markerSuffix = ".last-modified"

// SidecarStore keeps each marker in a file next to the partition it
// describes, the layout the rest of the pipeline and any pre-existing
// download tree already use.
type SidecarStore struct {
	root string
}

// NewSidecarStore returns a SidecarStore rooted at the raw download path.
func NewSidecarStore(root string) *SidecarStore {
	return &SidecarStore{root: root}
}

func (s *SidecarStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key)) + markerSuffix
}

// Get reads the marker for key. A missing marker file is not an error.
func (s *SidecarStore) Get(key string) (string, bool, error) {
	buf, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "reading marker")
	}
	return string(buf), true, nil
}

// Put overwrites the marker for key, creating parent directories as
// needed.
func (s *SidecarStore) Put(key, value string) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrap(err, "creating marker directory")
	}
	return errors.Wrap(os.WriteFile(p, []byte(value), 0644), "writing marker")
}

// Close is a no-op; sidecar files need no teardown.
func (s *SidecarStore) Close() error { return nil }
