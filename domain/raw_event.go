package domain

import (
	"encoding/json"
	"time"
)

// Event sources.
const (
	SourceHistorical = "historical_bootstrap"
	SourceLive       = "live_stream"
)

// Known event types, grouped by the entity they describe.
const (
	EventHistoricalOrder   = "historical_order"
	EventOrderCreated      = "order_created"
	EventOrderUpdated      = "order_updated"
	EventHistoricalPayment = "historical_payment"
	EventPaymentAttempt    = "payment_attempt"
	EventPaymentConfirmed  = "payment_confirmed"
	EventHistoricalRefund  = "historical_refund"
	EventRefundCreated     = "refund_created"
	EventRefundProcessed   = "refund_processed"
)

// EntityKind classifies an event by the business entity it carries.
type EntityKind string

const (
	KindOrder   EntityKind = "order"
	KindPayment EntityKind = "payment"
	KindRefund  EntityKind = "refund"
)

var eventKinds = map[string]EntityKind{
	EventHistoricalOrder:   KindOrder,
	EventOrderCreated:      KindOrder,
	EventOrderUpdated:      KindOrder,
	EventHistoricalPayment: KindPayment,
	EventPaymentAttempt:    KindPayment,
	EventPaymentConfirmed:  KindPayment,
	EventHistoricalRefund:  KindRefund,
	EventRefundCreated:     KindRefund,
	EventRefundProcessed:   KindRefund,
}

// KindOf resolves the entity kind for a declared event type.
func KindOf(eventType string) (EntityKind, bool) {
	kind, ok := eventKinds[eventType]
	return kind, ok
}

// EventTypesFor lists every known event type producing the given kind.
func EventTypesFor(kind EntityKind) []string {
	var types []string
	for t, k := range eventKinds {
		if k == kind {
			types = append(types, t)
		}
	}
	return types
}

// RawEvent is the immutable envelope stored for every ingested vendor record.
// EventID is the content-derived identity and the sole idempotency key.
type RawEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	EventTime  string          `json:"event_time"`
	Vendor     string          `json:"vendor"`
	Payload    json.RawMessage `json:"payload"`
	Source     string          `json:"source"`
	IngestedAt time.Time       `json:"ingested_at"`
}

// DecodePayload unmarshals the raw payload into a generic map.
func (e *RawEvent) DecodePayload() (map[string]interface{}, error) {
	if e == nil || len(e.Payload) == 0 {
		return nil, ErrUnparseablePayload
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, WrapError(ErrCodeInvalid, "unparseable event payload", err)
	}
	return payload, nil
}
