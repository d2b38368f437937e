package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

func writeBootstrapFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestBootstrapRun(t *testing.T) {
	dir := t.TempDir()
	writeBootstrapFile(t, dir, "orders_2023.json",
		`[{"order_id":"O1","customer_id":"C1","totalAmount":100,"created_at":"2023-02-01T00:00:00Z"},
		  {"order_id":"O2","customer_id":"C2","totalAmount":50,"created_at":"2023-02-02T00:00:00Z"}]`)
	writeBootstrapFile(t, dir, "payments_2023.json",
		`{"transaction_id":"T1","order_id":"O1","amountPaid":100,"payment_status":"paid"}`)
	// refunds_2023.json deliberately absent.

	repo := newFakeRawRepo()
	b := NewBootstrap(repo, dir, nil)

	stats, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Inserted != 3 {
		t.Fatalf("inserted = %d, want 3", stats.Inserted)
	}

	types := map[string]int{}
	for _, e := range repo.events {
		types[e.EventType]++
		if e.Source != domain.SourceHistorical {
			t.Fatalf("wrong source on %s: %q", e.EventID, e.Source)
		}
	}
	if types[domain.EventHistoricalOrder] != 2 || types[domain.EventHistoricalPayment] != 1 {
		t.Fatalf("event types wrong: %+v", types)
	}
}

func TestBootstrapRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeBootstrapFile(t, dir, "orders_2023.json",
		`[{"order_id":"O1","totalAmount":100,"created_at":"2023-02-01T00:00:00Z"}]`)

	repo := newFakeRawRepo()
	b := NewBootstrap(repo, dir, nil)
	ctx := context.Background()

	if _, err := b.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	stats, err := b.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stats.Inserted != 0 || stats.Updated != 1 {
		t.Fatalf("replay must refresh, not duplicate: %+v", stats)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Fatalf("expected 1 stored event, got %d", n)
	}
}

func TestBootstrapMalformedFileFailsOnlyItsPass(t *testing.T) {
	dir := t.TempDir()
	writeBootstrapFile(t, dir, "orders_2023.json", `this is not json`)
	writeBootstrapFile(t, dir, "refunds_2023.json",
		`[{"refund_id":"R1","order_id":"O1","amountRefunded":10}]`)

	repo := newFakeRawRepo()
	b := NewBootstrap(repo, dir, nil)

	stats, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("malformed file must not fail the whole bootstrap: %v", err)
	}
	if stats.Inserted != 1 {
		t.Fatalf("inserted = %d, want 1 (refund only)", stats.Inserted)
	}
}

var _ repository.RawEventRepository = (*fakeRawRepo)(nil)
