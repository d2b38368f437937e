package bolt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

// Store is a BoltDB-backed raw event store. Events are keyed by their
// content identity, which makes every Put an idempotent upsert.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

var _ repository.RawEventRepository = (*Store)(nil)

// Open initializes the BoltDB file and ensures the events bucket exists.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "events_raw"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Put upserts an event under its identity. Returns true when the identity
// was not present before.
func (s *Store) Put(ctx context.Context, event *domain.RawEvent) (bool, error) {
	if s == nil || s.db == nil {
		return false, domain.WrapError(domain.ErrCodeUnavailable, "raw store closed", bolt.ErrDatabaseNotOpen)
	}
	if event == nil || event.EventID == "" {
		return false, domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return false, err
	}

	var inserted bool
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		inserted = b.Get([]byte(event.EventID)) == nil
		return b.Put([]byte(event.EventID), payload)
	})
	return inserted, err
}

// Exists reports whether an identity is already stored.
func (s *Store) Exists(ctx context.Context, eventID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, domain.WrapError(domain.ErrCodeUnavailable, "raw store closed", bolt.ErrDatabaseNotOpen)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(s.bucket).Get([]byte(eventID)) != nil
		return nil
	})
	return found, err
}

// Scan returns every stored event passing the filter. Undecodable entries
// are skipped rather than failing the scan; one bad record never fails a run.
func (s *Store) Scan(ctx context.Context, filter repository.RawEventFilter) ([]domain.RawEvent, error) {
	if s == nil || s.db == nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "raw store closed", bolt.ErrDatabaseNotOpen)
	}

	var events []domain.RawEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var event domain.RawEvent
			if err := json.Unmarshal(v, &event); err != nil {
				continue
			}
			if filter.Matches(&event) {
				events = append(events, event)
			}
		}
		return nil
	})
	return events, err
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, domain.WrapError(domain.ErrCodeUnavailable, "raw store closed", bolt.ErrDatabaseNotOpen)
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stats exposes Bolt statistics for monitoring endpoints.
func (s *Store) Stats() bolt.Stats {
	if s == nil || s.db == nil {
		return bolt.Stats{}
	}
	return s.db.Stats()
}
