package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

type dimensionRepository struct {
	pool *pgxpool.Pool
}

// NewDimensionRepository returns a Postgres-backed implementation of DimensionRepository.
func NewDimensionRepository(pool *pgxpool.Pool) repository.DimensionRepository {
	return &dimensionRepository{pool: pool}
}

// ReplaceDates rewrites the calendar dimension wholesale; the table is fully
// derivable from the configured year span.
func (r *dimensionRepository) ReplaceDates(ctx context.Context, rows []domain.DateDim) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM dim_date`); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
		INSERT INTO dim_date (date_key, day_of_week, week_number, month, quarter, year, is_weekend)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			dateOnly(row.DateKey),
			row.DayOfWeek,
			row.WeekNumber,
			row.Month,
			row.Quarter,
			row.Year,
			row.IsWeekend,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// UpsertCustomers merges first-seen dates: a replayed batch can only move
// first_seen earlier, never later.
func (r *dimensionRepository) UpsertCustomers(ctx context.Context, rows []domain.CustomerDim) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
		INSERT INTO dim_customer (customer_id, first_seen)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET
			first_seen = LEAST(dim_customer.first_seen, EXCLUDED.first_seen)`,
			row.CustomerID,
			row.FirstSeen,
		)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// EnsureProductPlaceholder inserts the single placeholder product row; the
// event feeds carry no product-level data.
func (r *dimensionRepository) EnsureProductPlaceholder(ctx context.Context) error {
	const query = `
	INSERT INTO dim_product (product_id, product_name, category, vendor_id, unit_price)
	VALUES ('UNKNOWN', 'Product data not available', 'N/A', NULL, 0)
	ON CONFLICT (product_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query)
	return err
}
