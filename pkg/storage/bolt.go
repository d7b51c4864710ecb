package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

const rootBucket = "kv"

// BoltStore persists keys in a bbolt file. Namespaces map to nested buckets.
type BoltStore struct {
	db   *bbolt.DB
	path []string
	owns bool
}

// OpenBoltStore opens (or creates) the database file at dbPath.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory for %s: %w", dbPath, err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB at %s: %w", dbPath, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltStore{db: db, path: []string{rootBucket}, owns: true}, nil
}

// bucket walks to this store's bucket, creating it when create is set.
func (s *BoltStore) bucket(tx *bbolt.Tx, create bool) (*bbolt.Bucket, error) {
	var b *bbolt.Bucket
	for i, name := range s.path {
		var next *bbolt.Bucket
		if i == 0 {
			next = tx.Bucket([]byte(name))
		} else {
			next = b.Bucket([]byte(name))
		}
		if next == nil {
			if !create {
				return nil, nil
			}
			var err error
			if i == 0 {
				next, err = tx.CreateBucketIfNotExists([]byte(name))
			} else {
				next, err = b.CreateBucketIfNotExists([]byte(name))
			}
			if err != nil {
				return nil, err
			}
		}
		b = next
	}
	return b, nil
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, false)
		if err != nil || b == nil {
			return err
		}
		if v := b.Get([]byte(key)); v != nil {
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return out, out != nil, nil
}

func (s *BoltStore) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, true)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

func (s *BoltStore) Remove(_ context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := s.bucket(tx, false)
		if err != nil || b == nil {
			return err
		}
		return b.Delete([]byte(key))
	})
}

// Clear drops this store's bucket, nested namespaces included.
func (s *BoltStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if len(s.path) == 1 {
			if err := tx.DeleteBucket([]byte(rootBucket)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
			_, err := tx.CreateBucket([]byte(rootBucket))
			return err
		}
		parent := &BoltStore{db: s.db, path: s.path[:len(s.path)-1]}
		b, err := parent.bucket(tx, false)
		if err != nil || b == nil {
			return err
		}
		err = b.DeleteBucket([]byte(s.path[len(s.path)-1]))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

func (s *BoltStore) Namespace(name string) Store {
	path := append(append([]string(nil), s.path...), name)
	return &BoltStore{db: s.db, path: path}
}

// Close closes the database. Namespaced stores share the parent's handle and do nothing.
func (s *BoltStore) Close() error {
	if s.owns && s.db != nil {
		return s.db.Close()
	}
	return nil
}
