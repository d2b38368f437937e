package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnknownVendor is the sentinel used when a payload carries no vendor field.
const UnknownVendor = "unknown"

// EventIdentity is the deterministic content-derived key used for
// deduplication and idempotent storage. Fixed-width hex (sha256).
type EventIdentity string

func (id EventIdentity) String() string { return string(id) }

// IsZero reports whether the identity has not been assigned.
func (id EventIdentity) IsZero() bool { return id == "" }

// Payload field candidates per entity kind, consulted in order.
var naturalKeyFields = map[EntityKind][]string{
	KindOrder:   {"order_id", "id"},
	KindPayment: {"transaction_id", "payment_id", "id", "paymentId"},
	KindRefund:  {"refund_id", "id", "transaction_id"},
}

var eventTimeFields = []string{
	"created_at", "order_date", "payment_date", "paid_at",
	"refund_date", "refunded_at", "timestamp", "date",
}

var vendorFields = []string{"vendor_id", "vendor", "seller_id", "merchant_id"}

var amountFields = []string{
	"amountPaid", "amountRefunded", "totalAmount",
	"payment_amount", "refund_amount", "order_amount", "amount",
}

// AssignIdentity computes the identity of a raw vendor record. The digest
// covers the event type, business key, amount, timestamp and vendor, encoded
// in a fixed order with type tags so that identical business content always
// hashes identically regardless of delivery count or source.
func AssignIdentity(eventType string, payload map[string]interface{}) EventIdentity {
	kind, _ := KindOf(eventType)

	key := firstNonEmpty(payload, naturalKeyFields[kind])
	if key == "" {
		// No usable business key: fall back to the whole payload in
		// canonical (sorted-key) form.
		key = canonicalPayload(payload)
	}

	var b strings.Builder
	writeField(&b, "type", "s", eventType)
	writeField(&b, "key", "s", key)
	writeField(&b, "amount", "f", extractAmount(payload))
	writeField(&b, "ts", "s", ExtractEventTime(payload))
	writeField(&b, "vendor", "s", ExtractVendor(payload))

	sum := sha256.Sum256([]byte(b.String()))
	return EventIdentity(hex.EncodeToString(sum[:]))
}

// ExtractEventTime returns the best available timestamp string from a
// payload, or a fixed epoch marker when none is present.
func ExtractEventTime(payload map[string]interface{}) string {
	if ts := firstNonEmpty(payload, eventTimeFields); ts != "" {
		return ts
	}
	return "2023-01-01T00:00:00Z"
}

// ExtractVendor returns the vendor tag from a payload, defaulting to the
// "unknown" sentinel.
func ExtractVendor(payload map[string]interface{}) string {
	if v := firstNonEmpty(payload, vendorFields); v != "" {
		return v
	}
	return UnknownVendor
}

func extractAmount(payload map[string]interface{}) string {
	for _, field := range amountFields {
		raw, ok := payload[field]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			if v != "" {
				return v
			}
		case int:
			return strconv.Itoa(v)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func firstNonEmpty(payload map[string]interface{}, fields []string) string {
	for _, field := range fields {
		raw, ok := payload[field]
		if !ok || raw == nil {
			continue
		}
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			s = v.String()
		default:
			s = fmt.Sprintf("%v", v)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

// canonicalPayload serializes a payload with sorted keys. encoding/json
// already sorts map keys at every nesting level, which is exactly the
// stability guarantee the identity needs.
func canonicalPayload(payload map[string]interface{}) string {
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func writeField(b *strings.Builder, name, tag, value string) {
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(tag)
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte('\x1e')
}
