package domain

import "time"

// Canonical payment status vocabulary. Statuses outside this enumeration are
// preserved verbatim on the normalized event and flagged by the auditor.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Order is the canonical shape of an order event.
type Order struct {
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	Vendor      string    `json:"vendor"`
	OrderAmount float64   `json:"order_amount"`
	OrderStatus string    `json:"order_status"`
	CreatedAt   time.Time `json:"created_at"`
	EventID     string    `json:"event_id"`
}

// Payment is the canonical shape of a payment event. OrderID is a soft
// reference: the order it names may legitimately be absent.
type Payment struct {
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
func (p Payment) Succeeded() bool { return p.PaymentStatus == StatusSuccess }

// Refund is the canonical shape of a refund event. Both OrderID and
// PaymentID are soft references.
type Refund struct {
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

// NormalizedEvent is the tagged result of normalization. Exactly one of the
// entity pointers is set, matching Kind.
type NormalizedEvent struct {
	Kind    EntityKind
	Order   *Order
	Payment *Payment
	Refund  *Refund
}
