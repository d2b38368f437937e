package services

import (
	"context"
	"testing"
	"time"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
	"github.com/shoplake/reconciler/usecase/aggregate"
	"github.com/shoplake/reconciler/usecase/audit"
	"github.com/shoplake/reconciler/usecase/transform"
)

type memRawRepo struct {
	events map[string]domain.RawEvent
}

func (m *memRawRepo) Put(_ context.Context, event *domain.RawEvent) (bool, error) {
	_, exists := m.events[event.EventID]
	m.events[event.EventID] = *event
	return !exists, nil
}

func (m *memRawRepo) Exists(_ context.Context, eventID string) (bool, error) {
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *memRawRepo) Scan(_ context.Context, filter repository.RawEventFilter) ([]domain.RawEvent, error) {
	var out []domain.RawEvent
	for _, e := range m.events {
		e := e
		if filter.Matches(&e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRawRepo) Count(_ context.Context) (int, error) { return len(m.events), nil }

type memFactRepo struct {
	orders   map[string]domain.FactOrder
	payments map[string]domain.FactPayment
	refunds  map[string]domain.FactRefund
}

func newMemFactRepo() *memFactRepo {
	return &memFactRepo{
		orders:   make(map[string]domain.FactOrder),
		payments: make(map[string]domain.FactPayment),
		refunds:  make(map[string]domain.FactRefund),
	}
}

func (m *memFactRepo) UpsertOrder(_ context.Context, fact *domain.FactOrder) (bool, error) {
	existing, ok := m.orders[fact.OrderID]
	if ok && !fact.Supersedes(existing) {
		return false, nil
	}
	m.orders[fact.OrderID] = *fact
	return true, nil
}

func (m *memFactRepo) AppendPayment(_ context.Context, fact *domain.FactPayment) (bool, error) {
	if _, ok := m.payments[fact.EventID]; ok {
		return false, nil
	}
	m.payments[fact.EventID] = *fact
	return true, nil
}

func (m *memFactRepo) AppendRefund(_ context.Context, fact *domain.FactRefund) (bool, error) {
	if _, ok := m.refunds[fact.EventID]; ok {
		return false, nil
	}
	m.refunds[fact.EventID] = *fact
	return true, nil
}

func (m *memFactRepo) GetOrder(_ context.Context, orderID string) (*domain.FactOrder, error) {
	fact, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderFactNotFound
	}
	return &fact, nil
}

func (m *memFactRepo) ListOrders(_ context.Context, from, to time.Time) ([]domain.FactOrder, error) {
	var out []domain.FactOrder
	for _, fact := range m.orders {
		if !fact.CreatedAt.Before(from) && fact.CreatedAt.Before(to) {
			out = append(out, fact)
		}
	}
	return out, nil
}

func (m *memFactRepo) ListPayments(_ context.Context, orderIDs []string) ([]domain.FactPayment, error) {
	ids := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		ids[id] = struct{}{}
	}
	var out []domain.FactPayment
	for _, fact := range m.payments {
		if _, ok := ids[fact.OrderID]; ok {
			out = append(out, fact)
		}
	}
	return out, nil
}

func (m *memFactRepo) ListRefunds(_ context.Context, orderIDs []string) ([]domain.FactRefund, error) {
	ids := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		ids[id] = struct{}{}
	}
	var out []domain.FactRefund
	for _, fact := range m.refunds {
		if _, ok := ids[fact.OrderID]; ok {
			out = append(out, fact)
		}
	}
	return out, nil
}

type memAggRepo struct {
	rows []domain.DailyAggregate
}

func (m *memAggRepo) ReplaceDaily(_ context.Context, _, _ time.Time, rows []domain.DailyAggregate) error {
	m.rows = rows
	return nil
}

func (m *memAggRepo) ListDaily(_ context.Context, _, _ time.Time) ([]domain.DailyAggregate, error) {
	return m.rows, nil
}

func seedEvent(t *testing.T, raw *memRawRepo, id, eventType string, payload string) {
	t.Helper()
	if _, err := raw.Put(context.Background(), &domain.RawEvent{
		EventID:   id,
		EventType: eventType,
		Payload:   []byte(payload),
		Source:    domain.SourceHistorical,
	}); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func newTestPipeline(raw *memRawRepo, facts *memFactRepo, aggs *memAggRepo) *Pipeline {
	return NewPipeline(
		raw,
		transform.NewNormalizer("", nil),
		transform.NewProjector(facts, nil, nil),
		audit.New(audit.Config{}, nil),
		aggregate.NewService(facts, aggs, nil),
		nil,
		nil,
		nil,
		nil,
		nil,
		PipelineConfig{},
	)
}

func TestPipelineRunEndToEnd(t *testing.T) {
	raw := &memRawRepo{events: make(map[string]domain.RawEvent)}
	facts := newMemFactRepo()
	aggs := &memAggRepo{}

	// Two versions of the same order, a successful payment, a refund and one
	// structurally broken event.
	seedEvent(t, raw, "evt-o1a", domain.EventOrderCreated,
		`{"order_id":"O1","customerId":"C1","totalAmount":100,"state":"created","created_at":"2023-03-05T10:00:00Z","vendor_id":"v1"}`)
	seedEvent(t, raw, "evt-o1b", domain.EventOrderUpdated,
		`{"order_id":"O1","customerId":"C1","totalAmount":120,"state":"confirmed","created_at":"2023-03-05T11:00:00Z","vendor_id":"v1"}`)
	seedEvent(t, raw, "evt-p1", domain.EventPaymentConfirmed,
		`{"transaction_id":"T1","order_id":"O1","amountPaid":120,"payment_status":"paid","paid_at":"2023-03-05T12:00:00Z","vendor_id":"v1"}`)
	seedEvent(t, raw, "evt-r1", domain.EventRefundCreated,
		`{"refund_id":"R1","order_id":"O1","payment_id":"T1","amountRefunded":20,"refunded_at":"2023-03-06T00:00:00Z","vendor_id":"v1"}`)
	seedEvent(t, raw, "evt-bad", domain.EventOrderCreated, `{broken`)

	p := newTestPipeline(raw, facts, aggs)

	summary, err := p.Run(context.Background(), time.Date(2023, 3, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.EventsScanned != 5 || summary.StructuralErrors != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	// Scan order over the two order versions is not fixed; either both apply
	// or the stale one is skipped. Totals must add up either way.
	if got := summary.Projection.OrdersUpserted + summary.Projection.OrdersSkipped; got != 2 {
		t.Fatalf("projection stats = %+v", summary.Projection)
	}
	if summary.Projection.PaymentsAppended != 1 || summary.Projection.RefundsAppended != 1 {
		t.Fatalf("projection stats = %+v", summary.Projection)
	}

	order := facts.orders["O1"]
	if order.OrderAmount != 120 || order.OrderStatus != "confirmed" {
		t.Fatalf("latest order state not kept: %+v", order)
	}

	if summary.AggregateGroups != 1 || len(aggs.rows) != 1 {
		t.Fatalf("aggregate groups = %d", summary.AggregateGroups)
	}
	row := aggs.rows[0]
	if row.GrossRevenue != 120 || row.TotalRefunds != 20 || row.NetRevenue != 100 {
		t.Fatalf("rollup wrong: %+v", row)
	}

	report := p.LatestReport()
	if report == nil {
		t.Fatalf("no quality report after a run")
	}
	if report.TotalOrders != 1 || report.TotalPayments != 1 || report.TotalRefunds != 1 {
		t.Fatalf("report totals = %+v", report)
	}
}

func TestPipelineRunConverges(t *testing.T) {
	raw := &memRawRepo{events: make(map[string]domain.RawEvent)}
	facts := newMemFactRepo()
	aggs := &memAggRepo{}

	seedEvent(t, raw, "evt-o1", domain.EventOrderCreated,
		`{"order_id":"O1","customerId":"C1","totalAmount":50,"created_at":"2023-04-01T09:00:00Z","vendor_id":"v1"}`)
	seedEvent(t, raw, "evt-p1", domain.EventPaymentConfirmed,
		`{"transaction_id":"T1","order_id":"O1","amountPaid":50,"payment_status":"success","paid_at":"2023-04-01T10:00:00Z","vendor_id":"v1"}`)

	p := newTestPipeline(raw, facts, aggs)
	ctx := context.Background()
	runDate := time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC)

	first, err := p.Run(ctx, runDate)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := p.Run(ctx, runDate)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.Projection.PaymentsAppended != 1 || second.Projection.PaymentsAppended != 0 {
		t.Fatalf("replay appended facts: first %+v second %+v", first.Projection, second.Projection)
	}
	if second.Projection.PaymentsDuplicate != 1 || second.Projection.OrdersSkipped != 1 {
		t.Fatalf("replay not absorbed: %+v", second.Projection)
	}
	if len(facts.payments) != 1 || len(facts.orders) != 1 {
		t.Fatalf("fact tables grew on replay")
	}
	if len(aggs.rows) != 1 || aggs.rows[0].GrossRevenue != 50 {
		t.Fatalf("aggregates diverged: %+v", aggs.rows)
	}
}

func TestPipelineRejectsConcurrentRuns(t *testing.T) {
	raw := &memRawRepo{events: make(map[string]domain.RawEvent)}
	p := newTestPipeline(raw, newMemFactRepo(), &memAggRepo{})

	p.mu.Lock()
	p.running = true
	p.mu.Unlock()

	if _, err := p.Run(context.Background(), time.Now()); err != domain.ErrRunInProgress {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if _, err := p.TriggerAsync(time.Now()); err != domain.ErrRunInProgress {
		t.Fatalf("expected ErrRunInProgress from TriggerAsync, got %v", err)
	}
}
