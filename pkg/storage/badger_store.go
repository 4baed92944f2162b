package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pokerops/tourneytrack/pkg/log"
	"github.com/pokerops/tourneytrack/pkg/models"
	"github.com/pokerops/tourneytrack/pkg/utils"
)

const (
	gameKeyPrefix   = "game:"   // Tracked games
	recordKeyPrefix = "record:" // Saved tournament records
	venueKeyPrefix  = "venue:"  // Venue entities
	seriesKeyPrefix = "series:" // Series entities
	snapKeyPrefix   = "snap:"   // Page snapshots
	trackerDBDir    = "tracker_db"
)

// BadgerStore implements the TrackerStore interface using BadgerDB.
// Values are msgpack-encoded; snapshots carry raw HTML bodies, so the compact
// binary encoding matters more here than it would for metadata alone.
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	keyCount atomic.Int64 // Cached key count for O(1) CountKeys
}

// NewBadgerStore initializes and returns a new BadgerStore
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger}

	dbPath := filepath.Join(stateDir, trackerDBDir)
	logger.Infof("Initializing tracker database at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dbPath, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", dbPath, err)
	}

	count, err := store.countKeys()
	if err != nil {
		logger.Warnf("Failed to count existing keys: %v", err)
	} else {
		store.keyCount.Store(int64(count))
	}

	logger.Info("Tracker database initialized successfully.")
	return store, nil
}

// countKeys performs a one-time full key scan (used only during initialization).
func (s *BadgerStore) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return badger.ErrConflict;
// these resolve in microseconds, so a tight retry loop is sufficient.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// putEncoded marshals value and writes it under key, tracking new-key counts
func (s *BadgerStore) putEncoded(key string, value interface{}) error {
	if s.db == nil {
		return errors.New("tracker DB not initialized")
	}
	encoded, errEnc := msgpack.Marshal(value)
	if errEnc != nil {
		wrappedErr := fmt.Errorf("%w: failed to marshal value for key '%s': %w", utils.ErrEncoding, key, errEnc)
		s.log.Error(wrappedErr)
		return wrappedErr
	}

	isNew := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get([]byte(key))
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			isNew = true
		}
		return txn.SetEntry(badger.NewEntry([]byte(key), encoded))
	})
	if err != nil {
		s.log.WithField("key", key).Errorf("DB Update error: %v", err)
		return fmt.Errorf("%w: failed setting key '%s': %w", utils.ErrDatabase, key, err)
	}
	if isNew {
		s.keyCount.Add(1)
	}
	return nil
}

// getEncoded reads key and unmarshals its value into out.
// Returns utils.ErrNotFound (wrapped) when the key is absent.
func (s *BadgerStore) getEncoded(key string, out interface{}) error {
	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get([]byte(key))
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return fmt.Errorf("key '%s': %w", key, utils.ErrNotFound)
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting key '%s': %w", utils.ErrDatabase, key, errGet)
		}
		return item.Value(func(val []byte) error {
			if errDec := msgpack.Unmarshal(val, out); errDec != nil {
				return fmt.Errorf("%w: failed to unmarshal value for key '%s': %w", utils.ErrEncoding, key, errDec)
			}
			return nil
		})
	})
	return errView
}

// deleteKey removes key, tracking the cached count
func (s *BadgerStore) deleteKey(key string) error {
	if s.db == nil {
		return errors.New("tracker DB not initialized")
	}
	existed := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get([]byte(key))
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		existed = true
		return txn.Delete([]byte(key))
	})
	if err != nil {
		s.log.WithField("key", key).Errorf("DB Delete error: %v", err)
		return fmt.Errorf("%w: failed deleting key '%s': %w", utils.ErrDatabase, key, err)
	}
	if existed {
		s.keyCount.Add(-1)
	}
	return nil
}

// listPrefix iterates all values under prefix, decoding each into a fresh
// value via decode. Iteration order is key order, so listings come back
// sorted by key.
func (s *BadgerStore) listPrefix(prefix string, decode func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				return decode(val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// PutGame implements the GameStore interface
func (s *BadgerStore) PutGame(game *models.TrackedGame) error {
	return s.putEncoded(gameKeyPrefix+game.ID, game)
}

// GetGame implements the GameStore interface
func (s *BadgerStore) GetGame(id string) (*models.TrackedGame, error) {
	var game models.TrackedGame
	if err := s.getEncoded(gameKeyPrefix+id, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// ListGames implements the GameStore interface
func (s *BadgerStore) ListGames() ([]*models.TrackedGame, error) {
	games := make([]*models.TrackedGame, 0)
	err := s.listPrefix(gameKeyPrefix, func(val []byte) error {
		var game models.TrackedGame
		if errDec := msgpack.Unmarshal(val, &game); errDec != nil {
			// Skip undecodable entries rather than failing the whole listing
			s.log.Warnf("Failed to unmarshal tracked game, skipping: %v", errDec)
			return nil
		}
		games = append(games, &game)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing games: %w", utils.ErrDatabase, err)
	}
	return games, nil
}

// DeleteGame implements the GameStore interface
func (s *BadgerStore) DeleteGame(id string) error {
	return s.deleteKey(gameKeyPrefix + id)
}

// PutRecord implements the RecordStore interface
func (s *BadgerStore) PutRecord(rec *models.TournamentRecord) error {
	return s.putEncoded(recordKeyPrefix+rec.ID, rec)
}

// GetRecord implements the RecordStore interface
func (s *BadgerStore) GetRecord(id string) (*models.TournamentRecord, error) {
	var rec models.TournamentRecord
	if err := s.getEncoded(recordKeyPrefix+id, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords implements the RecordStore interface
func (s *BadgerStore) ListRecords() ([]*models.TournamentRecord, error) {
	records := make([]*models.TournamentRecord, 0)
	err := s.listPrefix(recordKeyPrefix, func(val []byte) error {
		var rec models.TournamentRecord
		if errDec := msgpack.Unmarshal(val, &rec); errDec != nil {
			s.log.Warnf("Failed to unmarshal tournament record, skipping: %v", errDec)
			return nil
		}
		records = append(records, &rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %w", utils.ErrDatabase, err)
	}
	return records, nil
}

// PutVenue implements the EntityStore interface
func (s *BadgerStore) PutVenue(v *models.Venue) error {
	return s.putEncoded(venueKeyPrefix+utils.SanitizeKey(v.Key), v)
}

// GetVenue implements the EntityStore interface
func (s *BadgerStore) GetVenue(key string) (*models.Venue, error) {
	var v models.Venue
	if err := s.getEncoded(venueKeyPrefix+utils.SanitizeKey(key), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVenues implements the EntityStore interface
func (s *BadgerStore) ListVenues() ([]*models.Venue, error) {
	venues := make([]*models.Venue, 0)
	err := s.listPrefix(venueKeyPrefix, func(val []byte) error {
		var v models.Venue
		if errDec := msgpack.Unmarshal(val, &v); errDec != nil {
			s.log.Warnf("Failed to unmarshal venue, skipping: %v", errDec)
			return nil
		}
		venues = append(venues, &v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing venues: %w", utils.ErrDatabase, err)
	}
	return venues, nil
}

// DeleteVenue implements the EntityStore interface
func (s *BadgerStore) DeleteVenue(key string) error {
	return s.deleteKey(venueKeyPrefix + utils.SanitizeKey(key))
}

// PutSeries implements the EntityStore interface
func (s *BadgerStore) PutSeries(series *models.Series) error {
	return s.putEncoded(seriesKeyPrefix+utils.SanitizeKey(series.Key), series)
}

// GetSeries implements the EntityStore interface
func (s *BadgerStore) GetSeries(key string) (*models.Series, error) {
	var series models.Series
	if err := s.getEncoded(seriesKeyPrefix+utils.SanitizeKey(key), &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// ListSeries implements the EntityStore interface
func (s *BadgerStore) ListSeries() ([]*models.Series, error) {
	list := make([]*models.Series, 0)
	err := s.listPrefix(seriesKeyPrefix, func(val []byte) error {
		var series models.Series
		if errDec := msgpack.Unmarshal(val, &series); errDec != nil {
			s.log.Warnf("Failed to unmarshal series, skipping: %v", errDec)
			return nil
		}
		list = append(list, &series)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing series: %w", utils.ErrDatabase, err)
	}
	return list, nil
}

// DeleteSeries implements the EntityStore interface
func (s *BadgerStore) DeleteSeries(key string) error {
	return s.deleteKey(seriesKeyPrefix + utils.SanitizeKey(key))
}

// PutSnapshot implements the SnapshotStore interface
func (s *BadgerStore) PutSnapshot(snap *models.Snapshot) error {
	return s.putEncoded(snapKeyPrefix+snap.Key, snap)
}

// GetSnapshot implements the SnapshotStore interface
func (s *BadgerStore) GetSnapshot(key string) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := s.getEncoded(snapKeyPrefix+key, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// CountKeys implements the StoreAdmin interface.
// Returns the cached key count (O(1)) maintained by atomic updates on writes.
func (s *BadgerStore) CountKeys() (int, error) {
	return int(s.keyCount.Load()), nil
}

// RunGC runs BadgerDB's value log garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute // Default interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				s.log.Info("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}

			s.log.Debug("Running BadgerDB value log garbage collection...")
			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for {
				err = s.db.RunValueLogGC(0.5)
				if err != nil {
					break
				}
			}
			if errors.Is(err, badger.ErrNoRewrite) {
				s.log.Debug("BadgerDB GC finished (no rewrite needed).")
			} else {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Infof("Stopping BadgerDB garbage collection goroutine: %v", ctx.Err())
			return
		}
	}
}

// Close implements the StoreAdmin interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Info("Closing tracker DB...")
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing tracker DB: %v", err)
			return err
		}
		s.log.Info("Tracker DB closed.")
		return nil
	}
	s.log.Info("Tracker DB already closed or was not initialized.")
	return nil
}
