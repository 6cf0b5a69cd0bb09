package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/token-calendar/pkg/discovery"
	"github.com/0xmhha/token-calendar/pkg/logger"
)

var bucketSnapshots = []byte("snapshots") // Key -> Snapshot JSON

// keyFormat is RFC 3339 with fixed nanosecond width so keys sort in time
// order.
const keyFormat = "2006-01-02T15:04:05.000000000Z07:00"

// boltStore implements Store using BoltDB.
type boltStore struct {
	db     *bolt.DB
	logger logger.Logger
}

// New opens (creating if needed) the snapshot database.
//
// Parameters:
//   - cfg: Store configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Store
//   - Error if database cannot be opened
func New(cfg Config, log logger.Logger) (Store, error) {
	if cfg.DBPath == "" {
		return nil, ErrNoDBPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := discovery.ExpandHome(cfg.DBPath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketSnapshots)
		return createErr
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, fmt.Errorf("failed to create snapshots bucket: %w", err)
	}

	log.Debug("snapshot store opened", "db_path", dbPath)

	return &boltStore{db: db, logger: log}, nil
}

// Save implements Store.Save.
func (s *boltStore) Save(snap *Snapshot) (string, error) {
	if snap.GeneratedAt.IsZero() {
		snap.GeneratedAt = time.Now()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var key string
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)

		// Two saves within the same nanosecond get consecutive keys.
		at := snap.GeneratedAt.UTC()
		key = at.Format(keyFormat)
		for b.Get([]byte(key)) != nil {
			at = at.Add(time.Nanosecond)
			key = at.Format(keyFormat)
		}

		if putErr := b.Put([]byte(key), data); putErr != nil {
			return fmt.Errorf("failed to store snapshot: %w", putErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	snap.Key = key
	s.logger.Debug("snapshot saved", "key", key,
		"days", snap.Dataset.DaysWithData, "total_tokens", snap.Dataset.Totals.TotalTokens)
	return key, nil
}

// Get implements Store.Get.
func (s *boltStore) Get(key string) (*Snapshot, error) {
	var snap *Snapshot

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSnapshots).Cursor()

		k, v := c.Seek([]byte(key))
		if k == nil || !bytes.HasPrefix(k, []byte(key)) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}

		decoded, err := decode(k, v)
		if err != nil {
			return err
		}
		snap = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// Latest implements Store.Latest.
func (s *boltStore) Latest() (*Snapshot, error) {
	var snap *Snapshot

	err := s.db.View(func(tx *bolt.Tx) error {
		k, v := tx.Bucket(bucketSnapshots).Cursor().Last()
		if k == nil {
			return ErrNotFound
		}

		decoded, err := decode(k, v)
		if err != nil {
			return err
		}
		snap = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// List implements Store.List.
func (s *boltStore) List(limit int) ([]Info, error) {
	var infos []Info

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSnapshots).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(infos) >= limit {
				break
			}

			snap, err := decode(k, v)
			if err != nil {
				// One bad record should not hide the rest of the history.
				s.logger.Warn("skipping snapshot", "key", string(k), "error", err)
				continue
			}

			infos = append(infos, Info{
				Key:            snap.Key,
				GeneratedAt:    snap.GeneratedAt,
				Zone:           snap.Zone,
				DaysWithData:   snap.Dataset.DaysWithData,
				UniqueMessages: snap.Dataset.UniqueMessages,
				TotalTokens:    snap.Dataset.Totals.TotalTokens,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return infos, nil
}

// Prune implements Store.Prune.
func (s *boltStore) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)

		var stale [][]byte
		seen := 0
		c := b.Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			seen++
			if seen > keep {
				stale = append(stale, append([]byte(nil), k...))
			}
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("failed to delete snapshot %s: %w", k, err)
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.logger.Debug("pruned snapshots", "removed", removed, "kept", keep)
	}
	return removed, nil
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	return s.db.Close()
}

func decode(k, v []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(v, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, k, err)
	}
	snap.Key = string(k)
	return &snap, nil
}
