package storage

import (
	"context"
	"errors"
	"time"

	"github.com/goodtune/frms/internal/frms"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// ErrReadOnly is returned by stores that cannot be written to.
var ErrReadOnly = errors.New("storage: store is read-only")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Records() RecordStore
}

// RecordStore manages flight and duty records.
type RecordStore interface {
	Upsert(ctx context.Context, record frms.Record) error
	Get(ctx context.Context, id string) (*frms.Record, error)
	Delete(ctx context.Context, id string) error

	// ListByPilot returns the pilot's records dated on calendar days from
	// through to, inclusive, ordered by date. Records without a usable date
	// are always returned, after the dated ones, so callers can count them.
	ListByPilot(ctx context.Context, pilotID string, from, to time.Time) ([]frms.Record, error)

	// Revision returns a counter that changes whenever the pilot's records do.
	Revision(ctx context.Context, pilotID string) (int64, error)
}

// Watcher delivers record change notifications.
type Watcher interface {
	// Watch streams changes for one pilot, or for every pilot when pilotID is
	// empty. The channel is closed when ctx is done.
	Watch(ctx context.Context, pilotID string) (<-chan Change, error)
}
