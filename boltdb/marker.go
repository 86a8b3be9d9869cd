// Package boltdb provides a download.MarkerStore backed by a single bolt
// database instead of one sidecar file per partition. Useful when the raw
// tree lives somewhere sidecar files are unwelcome, at the cost of the
// markers no longer travelling with the payloads.
package boltdb

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var markerBucket = []byte("last-modified")

// MarkerStore keeps Last-Modified markers in one bolt bucket, keyed by
// the partition's path relative to the raw root.
type MarkerStore struct {
	db *bolt.DB
}

// NewMarkerStore opens (or creates) the database at filename and ensures
// the marker bucket exists.
func NewMarkerStore(filename string) (*MarkerStore, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(markerBucket)
		return errors.Wrap(err, "creating marker bucket")
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &MarkerStore{db: db}, nil
}

// Get reads the marker for key. An absent key is not an error.
func (s *MarkerStore) Get(key string) (value string, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(markerBucket).Get([]byte(key))
		if v != nil {
			value = string(v)
			ok = true
		}
		return nil
	})
	return value, ok, errors.Wrap(err, "reading marker")
}

// Put overwrites the marker for key.
func (s *MarkerStore) Put(key, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(markerBucket).Put([]byte(key), []byte(value))
	})
	return errors.Wrap(err, "writing marker")
}

// Close syncs and closes the underlying bolt database.
func (s *MarkerStore) Close() error {
	if err := s.db.Sync(); err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return s.db.Close()
}
