package repository

import (
	"context"
	"time"

	"github.com/shoplake/reconciler/domain"
)

// FactRepository is the analytics warehouse surface for fact rows.
//
// Write policy is type-specific: orders are upserted by order_id with a
// recency guard (last-write-wins by event recency, not arrival order);
// payments and refunds are append-only by event identity, where a duplicate
// identity is an idempotent no-op. Both policies are conflict-free, so a
// crashed run can be replayed blind.
type FactRepository interface {
	// UpsertOrder commits an order fact. applied is false when an existing
	// row for the same order_id is at least as recent.
	UpsertOrder(ctx context.Context, fact *domain.FactOrder) (applied bool, err error)

	// AppendPayment commits a payment fact. inserted is false when a row
	// with the same event identity already exists.
	AppendPayment(ctx context.Context, fact *domain.FactPayment) (inserted bool, err error)

	// AppendRefund commits a refund fact with the same idempotent semantics.
	AppendRefund(ctx context.Context, fact *domain.FactRefund) (inserted bool, err error)

	GetOrder(ctx context.Context, orderID string) (*domain.FactOrder, error)

	// ListOrders returns order facts with created_at in [from, to).
	ListOrders(ctx context.Context, from, to time.Time) ([]domain.FactOrder, error)

	// ListPayments returns payment facts referencing any of the given orders.
	ListPayments(ctx context.Context, orderIDs []string) ([]domain.FactPayment, error)

	// ListRefunds returns refund facts referencing any of the given orders.
	ListRefunds(ctx context.Context, orderIDs []string) ([]domain.FactRefund, error)
}
