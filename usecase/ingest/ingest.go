package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

// Stats counts loader outcomes for one ingest pass.
type Stats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

func (s *Stats) add(other Stats) {
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Skipped += other.Skipped
}

// wrapRecord builds the raw event envelope around a vendor record, assigning
// the content identity that makes storage idempotent.
func wrapRecord(eventType, source string, record map[string]interface{}, now time.Time) (*domain.RawEvent, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	identity := domain.AssignIdentity(eventType, record)
	return &domain.RawEvent{
		EventID:    identity.String(),
		EventType:  eventType,
		EventTime:  domain.ExtractEventTime(record),
		Vendor:     domain.ExtractVendor(record),
		Payload:    payload,
		Source:     source,
		IngestedAt: now,
	}, nil
}

func putEvent(ctx context.Context, raw repository.RawEventRepository, event *domain.RawEvent, stats *Stats) error {
	inserted, err := raw.Put(ctx, event)
	if err != nil {
		return err
	}
	if inserted {
		stats.Inserted++
	} else {
		stats.Updated++
	}
	return nil
}
