package repository

import (
	"context"
	"time"

	"github.com/shoplake/reconciler/domain"
)

// AggregateRepository owns the derived daily rollup table. Aggregates are
// never patched in place: ReplaceDaily swaps out the affected date range in
// one transaction, which keeps recomputation idempotent.
type AggregateRepository interface {
	ReplaceDaily(ctx context.Context, from, to time.Time, rows []domain.DailyAggregate) error
	ListDaily(ctx context.Context, from, to time.Time) ([]domain.DailyAggregate, error)
}

// DimensionRepository owns the warehouse dimension tables.
type DimensionRepository interface {
	ReplaceDates(ctx context.Context, rows []domain.DateDim) error
	UpsertCustomers(ctx context.Context, rows []domain.CustomerDim) error
	EnsureProductPlaceholder(ctx context.Context) error
}
