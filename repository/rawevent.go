package repository

import (
	"context"

	"github.com/shoplake/reconciler/domain"
)

// RawEventFilter narrows a scan over the raw event store.
type RawEventFilter struct {
	EventTypes []string
	Source     string
}

// Matches reports whether an event passes the filter.
func (f RawEventFilter) Matches(e *domain.RawEvent) bool {
	if e == nil {
		return false
	}
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	if len(f.EventTypes) == 0 {
		return true
	}
	for _, t := range f.EventTypes {
		if e.EventType == t {
			return true
		}
	}
	return false
}

// RawEventRepository is the append/upsert store for raw event envelopes,
// keyed by content identity. Put is idempotent: re-delivering an event with
// the same identity is a refresh, never a duplicate.
type RawEventRepository interface {
	Put(ctx context.Context, event *domain.RawEvent) (inserted bool, err error)
	Exists(ctx context.Context, eventID string) (bool, error)
	Scan(ctx context.Context, filter RawEventFilter) ([]domain.RawEvent, error)
	Count(ctx context.Context) (int, error)
}
