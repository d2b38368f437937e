package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

type factRepository struct {
	pool *pgxpool.Pool
}

// NewFactRepository returns a Postgres-backed implementation of FactRepository.
func NewFactRepository(pool *pgxpool.Pool) repository.FactRepository {
	return &factRepository{pool: pool}
}

// UpsertOrder applies last-write-wins semantics in a single statement: the
// conflict clause only replaces the row when the incoming event is strictly
// more recent (created_at, then event_id as tiebreak). Stale or replayed
// events fall through RETURNING empty, which we report as applied=false.
func (r *factRepository) UpsertOrder(ctx context.Context, fact *domain.FactOrder) (bool, error) {
	if fact == nil || fact.OrderID == "" {
		return false, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO fact_orders (order_id, customer_id, vendor, order_amount, order_status, created_at, event_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (order_id) DO UPDATE SET
		customer_id  = EXCLUDED.customer_id,
		vendor       = EXCLUDED.vendor,
		order_amount = EXCLUDED.order_amount,
		order_status = EXCLUDED.order_status,
		created_at   = EXCLUDED.created_at,
		event_id     = EXCLUDED.event_id
	WHERE fact_orders.created_at < EXCLUDED.created_at
	   OR (fact_orders.created_at = EXCLUDED.created_at AND fact_orders.event_id < EXCLUDED.event_id)
	RETURNING 1
	`

	var one int
	err := r.pool.QueryRow(ctx, query,
		fact.OrderID,
		fact.CustomerID,
		fact.Vendor,
		fact.OrderAmount,
		fact.OrderStatus,
		fact.CreatedAt,
		fact.EventID,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AppendPayment inserts a payment fact keyed by event identity. A duplicate
// identity is an idempotent no-op enforced by the primary key, so blind
// replays are safe by construction.
func (r *factRepository) AppendPayment(ctx context.Context, fact *domain.FactPayment) (bool, error) {
	if fact == nil || fact.EventID == "" {
		return false, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO fact_payments (event_id, payment_id, order_id, vendor, payment_amount, payment_status, payment_method, payment_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (event_id) DO NOTHING
	RETURNING 1
	`

	var one int
	err := r.pool.QueryRow(ctx, query,
		fact.EventID,
		fact.PaymentID,
		fact.OrderID,
		fact.Vendor,
		fact.PaymentAmount,
		fact.PaymentStatus,
		fact.PaymentMethod,
		nullTime(fact.PaymentDate),
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AppendRefund mirrors AppendPayment for the refund fact table.
func (r *factRepository) AppendRefund(ctx context.Context, fact *domain.FactRefund) (bool, error) {
	if fact == nil || fact.EventID == "" {
		return false, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO fact_refunds (event_id, refund_id, order_id, payment_id, vendor, refund_amount, refund_reason, refund_type, refund_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (event_id) DO NOTHING
	RETURNING 1
	`

	var one int
	err := r.pool.QueryRow(ctx, query,
		fact.EventID,
		fact.RefundID,
		fact.OrderID,
		fact.PaymentID,
		fact.Vendor,
		fact.RefundAmount,
		fact.RefundReason,
		fact.RefundType,
		nullTime(fact.RefundDate),
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *factRepository) GetOrder(ctx context.Context, orderID string) (*domain.FactOrder, error) {
	const query = `
	SELECT order_id, customer_id, vendor, order_amount, order_status, created_at, event_id
	FROM fact_orders
	WHERE order_id = $1
	`
	var fact domain.FactOrder
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&fact.OrderID,
		&fact.CustomerID,
		&fact.Vendor,
		&fact.OrderAmount,
		&fact.OrderStatus,
		&fact.CreatedAt,
		&fact.EventID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderFactNotFound
		}
		return nil, err
	}
	return &fact, nil
}

func (r *factRepository) ListOrders(ctx context.Context, from, to time.Time) ([]domain.FactOrder, error) {
	const query = `
	SELECT order_id, customer_id, vendor, order_amount, order_status, created_at, event_id
	FROM fact_orders
	WHERE created_at >= $1 AND created_at < $2
	ORDER BY created_at, order_id
	`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []domain.FactOrder
	for rows.Next() {
		var fact domain.FactOrder
		if err := rows.Scan(
			&fact.OrderID,
			&fact.CustomerID,
			&fact.Vendor,
			&fact.OrderAmount,
			&fact.OrderStatus,
			&fact.CreatedAt,
			&fact.EventID,
		); err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

func (r *factRepository) ListPayments(ctx context.Context, orderIDs []string) ([]domain.FactPayment, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	const query = `
	SELECT event_id, payment_id, order_id, vendor, payment_amount, payment_status, payment_method, payment_date
	FROM fact_payments
	WHERE order_id = ANY($1)
	ORDER BY payment_date, event_id
	`
	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []domain.FactPayment
	for rows.Next() {
		var (
			fact domain.FactPayment
			date *time.Time
		)
		if err := rows.Scan(
			&fact.EventID,
			&fact.PaymentID,
			&fact.OrderID,
			&fact.Vendor,
			&fact.PaymentAmount,
			&fact.PaymentStatus,
			&fact.PaymentMethod,
			&date,
		); err != nil {
			return nil, err
		}
		if date != nil {
			fact.PaymentDate = *date
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

func (r *factRepository) ListRefunds(ctx context.Context, orderIDs []string) ([]domain.FactRefund, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	const query = `
	SELECT event_id, refund_id, order_id, payment_id, vendor, refund_amount, refund_reason, refund_type, refund_date
	FROM fact_refunds
	WHERE order_id = ANY($1)
	ORDER BY refund_date, event_id
	`
	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []domain.FactRefund
	for rows.Next() {
		var (
			fact domain.FactRefund
			date *time.Time
		)
		if err := rows.Scan(
			&fact.EventID,
			&fact.RefundID,
			&fact.OrderID,
			&fact.PaymentID,
			&fact.Vendor,
			&fact.RefundAmount,
			&fact.RefundReason,
			&fact.RefundType,
			&date,
		); err != nil {
			return nil, err
		}
		if date != nil {
			fact.RefundDate = *date
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}
