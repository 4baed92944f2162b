package storage

import (
	"context"
	"time"

	"github.com/pokerops/tourneytrack/pkg/models"
)

// GameStore handles tracked-game state
type GameStore interface {
	// PutGame inserts or replaces a tracked game
	PutGame(game *models.TrackedGame) error

	// GetGame retrieves a tracked game by id.
	// Returns utils.ErrNotFound (wrapped) when absent.
	GetGame(id string) (*models.TrackedGame, error)

	// ListGames returns all tracked games, ordered by id
	ListGames() ([]*models.TrackedGame, error)

	// DeleteGame removes a tracked game
	DeleteGame(id string) error
}

// RecordStore handles saved tournament records
type RecordStore interface {
	// PutRecord inserts or replaces a tournament record
	PutRecord(rec *models.TournamentRecord) error

	// GetRecord retrieves a tournament record by id
	GetRecord(id string) (*models.TournamentRecord, error)

	// ListRecords returns all saved tournament records, ordered by id
	ListRecords() ([]*models.TournamentRecord, error)
}

// EntityStore handles venue and series management entities
type EntityStore interface {
	PutVenue(v *models.Venue) error
	GetVenue(key string) (*models.Venue, error)
	ListVenues() ([]*models.Venue, error)
	DeleteVenue(key string) error

	PutSeries(s *models.Series) error
	GetSeries(key string) (*models.Series, error)
	ListSeries() ([]*models.Series, error)
	DeleteSeries(key string) error
}

// SnapshotStore handles cached page snapshots for review and debugging
type SnapshotStore interface {
	// PutSnapshot stores a snapshot under its key
	PutSnapshot(snap *models.Snapshot) error

	// GetSnapshot retrieves a snapshot by key
	GetSnapshot(key string) (*models.Snapshot, error)
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// CountKeys returns the cached count of all keys in the store
	CountKeys() (int, error)

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}

// TrackerStore combines all store interfaces for components that need full access
type TrackerStore interface {
	GameStore
	RecordStore
	EntityStore
	SnapshotStore
	StoreAdmin
}
