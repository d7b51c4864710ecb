package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timoknapp/orienteering-finder/pkg/logger"
	"github.com/timoknapp/orienteering-finder/pkg/models"
	"go.etcd.io/bbolt"
)

const (
	// BoltDB bucket name for storing geocoding results
	GeocodeBucket = "geocode"

	// MaxFailCount is the number of consecutive failures after which an entry is
	// no longer retried.
	MaxFailCount = 4
)

// RetryBase is the wait after the first failure; it doubles with every further failure.
var RetryBase = time.Hour

var log = logger.Named("cache")

// Store provides geocoding cache operations.
type Store interface {
	Get(key string) (models.GeocodeEntry, bool, error)
	Set(key string, value models.GeocodeEntry) error
	Delete(key string) error
	ForEach(fn func(key string, value models.GeocodeEntry) error) error
	GetCacheStatistics() (map[string]int, error)
	Close() error
}

// ShouldRetry reports whether a failed entry may be looked up again at now.
// Successful entries are never retried.
func ShouldRetry(e models.GeocodeEntry, now time.Time) bool {
	if !e.IsFailed {
		return false
	}
	if e.FailCount >= MaxFailCount {
		return false
	}
	wait := RetryBase << uint(max(e.FailCount-1, 0))
	return now.Sub(time.Unix(e.LastAttempt, 0)) >= wait
}

// Failed returns the entry after one more failed attempt at now.
func Failed(prev models.GeocodeEntry, now time.Time) models.GeocodeEntry {
	return models.GeocodeEntry{
		LastAttempt: now.Unix(),
		FailCount:   prev.FailCount + 1,
		IsFailed:    true,
	}
}

// BoltStore implements Store using BoltDB for persistence
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltDB-backed cache store
func NewBoltStore(dbPath string) (*BoltStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(GeocodeBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Info("BoltDB geocode cache initialized at: %s", dbPath)
	return &BoltStore{db: db}, nil
}

// Get retrieves an entry by key
func (s *BoltStore) Get(key string) (models.GeocodeEntry, bool, error) {
	var entry models.GeocodeEntry
	var found bool

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(GeocodeBucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return models.GeocodeEntry{}, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return entry, found, nil
}

// Set stores an entry with the given key
func (s *BoltStore) Set(key string, value models.GeocodeEntry) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal geocode entry: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(GeocodeBucket)).Put([]byte(key), data)
	})
}

func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(GeocodeBucket)).Delete([]byte(key))
	})
}

// ForEach iterates over all entries in the cache. Undecodable entries are skipped.
func (s *BoltStore) ForEach(fn func(key string, value models.GeocodeEntry) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(GeocodeBucket)).ForEach(func(k, v []byte) error {
			var entry models.GeocodeEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Error("Failed to unmarshal geocode entry for key %s: %v", string(k), err)
				return nil
			}
			return fn(string(k), entry)
		})
	})
}

// CleanupFailed removes permanently failed entries so they can be looked up from scratch.
func (s *BoltStore) CleanupFailed() (int, error) {
	var stale []string
	err := s.ForEach(func(key string, e models.GeocodeEntry) error {
		if e.IsFailed && e.FailCount >= MaxFailCount {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(GeocodeBucket))
		for _, k := range stale {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clean up failed entries: %w", err)
	}
	if len(stale) > 0 {
		log.Info("Removed %d permanently failed geocode entries", len(stale))
	}
	return len(stale), nil
}

func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetCacheStatistics returns statistics about the BoltDB cache
func (s *BoltStore) GetCacheStatistics() (map[string]int, error) {
	stats := map[string]int{
		"total_entries":      0,
		"successful":         0,
		"failed":             0,
		"pending_retry":      0,
		"permanently_failed": 0,
	}

	now := time.Now()
	err := s.ForEach(func(key string, e models.GeocodeEntry) error {
		stats["total_entries"]++
		switch {
		case e.IsFailed:
			stats["failed"]++
			if e.FailCount >= MaxFailCount {
				stats["permanently_failed"]++
			} else if ShouldRetry(e, now) {
				stats["pending_retry"]++
			}
		case e.Found():
			stats["successful"]++
		}
		return nil
	})
	return stats, err
}
