package transform

import (
	"context"

	"go.uber.org/zap"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

// Stats counts projector outcomes over a run.
type Stats struct {
	OrdersUpserted    int `json:"orders_upserted"`
	OrdersSkipped     int `json:"orders_skipped"`
	PaymentsAppended  int `json:"payments_appended"`
	PaymentsDuplicate int `json:"payments_duplicate"`
	RefundsAppended   int `json:"refunds_appended"`
	RefundsDuplicate  int `json:"refunds_duplicate"`
}

// Projector commits normalized events as fact rows with type-specific write
// policy: upsert-by-recency for orders, append-by-identity for payments and
// refunds. Each commit is a single row or a no-op, never a partial write.
type Projector struct {
	facts  repository.FactRepository
	cache  repository.IdentityCache
	logger *zap.Logger
}

// NewProjector builds a projector. cache may be nil; it is a fast-path dedup
// check only and the warehouse conflict handling stays authoritative.
func NewProjector(facts repository.FactRepository, cache repository.IdentityCache, logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{
		facts:  facts,
		cache:  cache,
		logger: logger,
	}
}

// Commit routes a normalized event to its fact table and updates stats.
func (p *Projector) Commit(ctx context.Context, event domain.NormalizedEvent, stats *Stats) error {
	switch event.Kind {
	case domain.KindOrder:
		return p.commitOrder(ctx, event.Order, stats)
	case domain.KindPayment:
		return p.commitPayment(ctx, event.Payment, stats)
	case domain.KindRefund:
		return p.commitRefund(ctx, event.Refund, stats)
	default:
		return domain.ErrUnsupportedEventType
	}
}

func (p *Projector) commitOrder(ctx context.Context, order *domain.Order, stats *Stats) error {
	if order == nil || order.OrderID == "" {
		// Unkeyed orders cannot be upserted; the auditor already holds the
		// missing-field finding for this event.
		stats.OrdersSkipped++
		return nil
	}
	fact := order.Fact()
	applied, err := p.facts.UpsertOrder(ctx, &fact)
	if err != nil {
		return domain.WrapError(domain.ErrCodeUnavailable, "order upsert failed", err)
	}
	if applied {
		stats.OrdersUpserted++
	} else {
		stats.OrdersSkipped++
	}
	return nil
}

func (p *Projector) commitPayment(ctx context.Context, payment *domain.Payment, stats *Stats) error {
	if payment == nil {
		return domain.ErrInvalidPayload
	}
	if p.alreadySeen(ctx, payment.EventID) {
		stats.PaymentsDuplicate++
		return nil
	}
	fact := payment.Fact()
	inserted, err := p.facts.AppendPayment(ctx, &fact)
	if err != nil {
		return domain.WrapError(domain.ErrCodeUnavailable, "payment append failed", err)
	}
	if inserted {
		stats.PaymentsAppended++
	} else {
		stats.PaymentsDuplicate++
	}
	p.markSeen(ctx, payment.EventID)
	return nil
}

func (p *Projector) commitRefund(ctx context.Context, refund *domain.Refund, stats *Stats) error {
	if refund == nil {
		return domain.ErrInvalidPayload
	}
	if p.alreadySeen(ctx, refund.EventID) {
		stats.RefundsDuplicate++
		return nil
	}
	fact := refund.Fact()
	inserted, err := p.facts.AppendRefund(ctx, &fact)
	if err != nil {
		return domain.WrapError(domain.ErrCodeUnavailable, "refund append failed", err)
	}
	if inserted {
		stats.RefundsAppended++
	} else {
		stats.RefundsDuplicate++
	}
	p.markSeen(ctx, refund.EventID)
	return nil
}

// alreadySeen consults the identity cache. Cache errors degrade to the
// warehouse path rather than failing the event.
func (p *Projector) alreadySeen(ctx context.Context, eventID string) bool {
	if p.cache == nil || eventID == "" {
		return false
	}
	seen, err := p.cache.Seen(ctx, eventID)
	if err != nil {
		p.logger.Debug("identity cache lookup failed", zap.Error(err))
		return false
	}
	return seen
}

// markSeen records the identity after the warehouse accepted the row. Marking
// after the commit means a crash in between costs one extra no-op write on
// replay, never a lost row.
func (p *Projector) markSeen(ctx context.Context, eventID string) {
	if p.cache == nil || eventID == "" {
		return
	}
	if err := p.cache.MarkSeen(ctx, eventID); err != nil {
		p.logger.Debug("identity cache mark failed", zap.Error(err))
	}
}
