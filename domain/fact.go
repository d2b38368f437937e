package domain

import "time"

// FactOrder is the current-state fact row for an order: the latest known
// state per order_id, replaced in full when a more recent event arrives.
type FactOrder struct {
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	Vendor      string    `json:"vendor"`
	OrderAmount float64   `json:"order_amount"`
	OrderStatus string    `json:"order_status"`
	CreatedAt   time.Time `json:"created_at"`
	EventID     string    `json:"event_id"`
}

// Supersedes reports whether this row should replace an existing fact for
// the same order_id. Recency wins; identity ordering breaks exact ties, so
// an exact replay (same identity) never counts as newer.
func (f FactOrder) Supersedes(existing FactOrder) bool {
	if f.CreatedAt.After(existing.CreatedAt) {
		return true
	}
	if f.CreatedAt.Before(existing.CreatedAt) {
		return false
	}
	return f.EventID > existing.EventID
}

// Fact converts a normalized order into its fact row.
func (o Order) Fact() FactOrder {
	return FactOrder{
		OrderID:     o.OrderID,
		CustomerID:  o.CustomerID,
		Vendor:      o.Vendor,
		OrderAmount: o.OrderAmount,
		OrderStatus: o.OrderStatus,
		CreatedAt:   o.CreatedAt,
		EventID:     o.EventID,
	}
}

// FactPayment is an append-only payment fact: one row per distinct event
// identity, never updated or deleted.
type FactPayment struct {
	PaymentID     string    `json:"payment_id"`
	OrderID       string    `json:"order_id"`
	Vendor        string    `json:"vendor"`
	PaymentAmount float64   `json:"payment_amount"`
	PaymentStatus string    `json:"payment_status"`
	PaymentMethod string    `json:"payment_method"`
	PaymentDate   time.Time `json:"payment_date"`
	EventID       string    `json:"event_id"`
}

// Succeeded reports whether the payment carries the canonical success status.
func (f FactPayment) Succeeded() bool { return f.PaymentStatus == StatusSuccess }

// Fact converts a normalized payment into its fact row.
func (p Payment) Fact() FactPayment {
	return FactPayment{
		PaymentID:     p.PaymentID,
		OrderID:       p.OrderID,
		Vendor:        p.Vendor,
		PaymentAmount: p.PaymentAmount,
		PaymentStatus: p.PaymentStatus,
		PaymentMethod: p.PaymentMethod,
		PaymentDate:   p.PaymentDate,
		EventID:       p.EventID,
	}
}

// FactRefund is an append-only refund fact.
type FactRefund struct {
	RefundID     string    `json:"refund_id"`
	OrderID      string    `json:"order_id"`
	PaymentID    string    `json:"payment_id"`
	Vendor       string    `json:"vendor"`
	RefundAmount float64   `json:"refund_amount"`
	RefundReason string    `json:"refund_reason"`
	RefundType   string    `json:"refund_type"`
	RefundDate   time.Time `json:"refund_date"`
	EventID      string    `json:"event_id"`
}

// Fact converts a normalized refund into its fact row.
func (r Refund) Fact() FactRefund {
	return FactRefund{
		RefundID:     r.RefundID,
		OrderID:      r.OrderID,
		PaymentID:    r.PaymentID,
		Vendor:       r.Vendor,
		RefundAmount: r.RefundAmount,
		RefundReason: r.RefundReason,
		RefundType:   r.RefundType,
		RefundDate:   r.RefundDate,
		EventID:      r.EventID,
	}
}

// DailyAggregate is the derived revenue rollup keyed by (order_date, vendor).
// It is fully recomputable from the fact tables and overwritten wholesale on
// every run.
type DailyAggregate struct {
	OrderDate          time.Time `json:"order_date"`
	Vendor             string    `json:"vendor"`
	GrossRevenue       float64   `json:"gross_revenue"`
	TotalRefunds       float64   `json:"total_refunds"`
	NetRevenue         float64   `json:"net_revenue"`
	OrderCount         int       `json:"order_count"`
	PaidCount          int       `json:"paid_count"`
	PaymentSuccessRate float64   `json:"payment_success_rate"`
	RefundRate         float64   `json:"refund_rate"`
}
