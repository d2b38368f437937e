package transform

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shoplake/reconciler/domain"
)

// Field mapping tables reconcile the payload spellings observed across
// vendor feeds into the canonical schemas. Aliases are consulted in order;
// the first populated one wins. New vendor variants are added here as
// entries, not as code branches.

var orderMapping = map[string][]string{
	"order_id":    {"order_id", "id"},
	"customer_id": {"customerId", "customer_id"},
	"amount":      {"totalAmount", "order_amount", "amount"},
	"status":      {"state", "status", "order_status"},
	"created_at":  {"created_at", "order_date"},
}

var paymentMapping = map[string][]string{
	"payment_id": {"transaction_id", "payment_id", "id", "paymentId"},
	"order_id":   {"order_id", "orderId"},
	"amount":     {"amountPaid", "amount", "payment_amount", "totalAmount"},
	"status":     {"payment_status", "status", "state"},
	"method":     {"channel", "method", "payment_method"},
	"date":       {"paid_at", "payment_date", "created_at"},
}

var refundMapping = map[string][]string{
	"refund_id":  {"refund_id", "id", "transaction_id"},
	"order_id":   {"order_id", "orderId"},
	"payment_id": {"payment_id", "paymentId", "transaction_id"},
	"amount":     {"amountRefunded", "amount", "refund_amount", "totalAmount"},
	"reason":     {"reason", "refund_reason"},
	"type":       {"type", "refund_type"},
	"date":       {"refunded_at", "refund_date", "created_at"},
}

// statusVocabulary folds vendor payment status spellings into the canonical
// {success, failed} enumeration. Unlisted values pass through verbatim and
// are flagged for the auditor.
var statusVocabulary = map[string]string{
	"failed":     domain.StatusFailed,
	"fail":       domain.StatusFailed,
	"error":      domain.StatusFailed,
	"success":    domain.StatusSuccess,
	"successful": domain.StatusSuccess,
	"completed":  domain.StatusSuccess,
	"paid":       domain.StatusSuccess,
}

// Required canonical fields per entity kind. A miss is a validation defect,
// not a batch failure.
var requiredFields = map[domain.EntityKind][]string{
	domain.KindOrder:   {"order_id"},
	domain.KindPayment: {"payment_id", "order_id"},
	domain.KindRefund:  {"refund_id", "order_id"},
}

// Accepted timestamp layouts across the feeds.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func lookupString(payload map[string]interface{}, aliases []string) string {
	for _, alias := range aliases {
		raw, ok := payload[alias]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func lookupFloat(payload map[string]interface{}, aliases []string) float64 {
	for _, alias := range aliases {
		raw, ok := payload[alias]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func lookupTime(payload map[string]interface{}, aliases []string) time.Time {
	raw := lookupString(payload, aliases)
	if raw == "" {
		return time.Time{}
	}
	return parseTime(raw)
}

func parseTime(raw string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
