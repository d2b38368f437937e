package bolt

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "events.db"), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testEvent(id, eventType, source string) *domain.RawEvent {
	return &domain.RawEvent{
		EventID:    id,
		EventType:  eventType,
		Vendor:     "v1",
		Payload:    json.RawMessage(`{"order_id":"O1"}`),
		Source:     source,
		IngestedAt: time.Now().UTC(),
	}
}

func TestPutIsIdempotentUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	event := testEvent("id-1", domain.EventOrderCreated, domain.SourceLive)

	inserted, err := store.Put(ctx, event)
	if err != nil || !inserted {
		t.Fatalf("first put: inserted=%v err=%v", inserted, err)
	}
	inserted, err = store.Put(ctx, event)
	if err != nil || inserted {
		t.Fatalf("second put must refresh, not insert: inserted=%v err=%v", inserted, err)
	}

	count, err := store.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("count=%d err=%v", count, err)
	}

	found, err := store.Exists(ctx, "id-1")
	if err != nil || !found {
		t.Fatalf("exists=%v err=%v", found, err)
	}
	found, err = store.Exists(ctx, "id-ghost")
	if err != nil || found {
		t.Fatalf("ghost exists=%v err=%v", found, err)
	}
}

func TestPutRejectsUnkeyedEvents(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Put(context.Background(), &domain.RawEvent{EventType: domain.EventOrderCreated}); err == nil {
		t.Fatalf("expected error for event without identity")
	}
}

func TestScanFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	events := []*domain.RawEvent{
		testEvent("a", domain.EventHistoricalOrder, domain.SourceHistorical),
		testEvent("b", domain.EventOrderCreated, domain.SourceLive),
		testEvent("c", domain.EventPaymentAttempt, domain.SourceLive),
	}
	for _, e := range events {
		if _, err := store.Put(ctx, e); err != nil {
			t.Fatalf("put %s: %v", e.EventID, err)
		}
	}

	all, err := store.Scan(ctx, repository.RawEventFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("full scan: %d events, err=%v", len(all), err)
	}

	live, err := store.Scan(ctx, repository.RawEventFilter{Source: domain.SourceLive})
	if err != nil || len(live) != 2 {
		t.Fatalf("source filter: %d events, err=%v", len(live), err)
	}

	orders, err := store.Scan(ctx, repository.RawEventFilter{
		EventTypes: domain.EventTypesFor(domain.KindOrder),
	})
	if err != nil || len(orders) != 2 {
		t.Fatalf("type filter: %d events, err=%v", len(orders), err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	store, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Put(ctx, testEvent("persist-1", domain.EventOrderCreated, domain.SourceLive)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	found, err := reopened.Exists(ctx, "persist-1")
	if err != nil || !found {
		t.Fatalf("data lost across reopen: found=%v err=%v", found, err)
	}
}
