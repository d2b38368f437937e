package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

type aggregateRepository struct {
	pool *pgxpool.Pool
}

// NewAggregateRepository returns a Postgres-backed implementation of AggregateRepository.
func NewAggregateRepository(pool *pgxpool.Pool) repository.AggregateRepository {
	return &aggregateRepository{pool: pool}
}

// ReplaceDaily swaps the rollup rows for [from, to] in one transaction.
// Delete-then-insert keeps the recompute idempotent: running the same batch
// twice converges on the same table contents.
func (r *aggregateRepository) ReplaceDaily(ctx context.Context, from, to time.Time, rows []domain.DailyAggregate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM fact_order_daily WHERE order_date >= $1 AND order_date <= $2`,
		dateOnly(from), dateOnly(to),
	); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
		INSERT INTO fact_order_daily
			(order_date, vendor, gross_revenue, total_refunds, net_revenue, order_count, paid_count, payment_success_rate, refund_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			dateOnly(row.OrderDate),
			row.Vendor,
			row.GrossRevenue,
			row.TotalRefunds,
			row.NetRevenue,
			row.OrderCount,
			row.PaidCount,
			row.PaymentSuccessRate,
			row.RefundRate,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *aggregateRepository) ListDaily(ctx context.Context, from, to time.Time) ([]domain.DailyAggregate, error) {
	const query = `
	SELECT order_date, vendor, gross_revenue, total_refunds, net_revenue, order_count, paid_count, payment_success_rate, refund_rate
	FROM fact_order_daily
	WHERE order_date >= $1 AND order_date <= $2
	ORDER BY order_date, vendor
	`
	rows, err := r.pool.Query(ctx, query, dateOnly(from), dateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggs []domain.DailyAggregate
	for rows.Next() {
		var agg domain.DailyAggregate
		if err := rows.Scan(
			&agg.OrderDate,
			&agg.Vendor,
			&agg.GrossRevenue,
			&agg.TotalRefunds,
			&agg.NetRevenue,
			&agg.OrderCount,
			&agg.PaidCount,
			&agg.PaymentSuccessRate,
			&agg.RefundRate,
		); err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}
	return aggs, rows.Err()
}
