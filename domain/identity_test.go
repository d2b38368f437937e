package domain

import "testing"

func orderPayload(overrides map[string]interface{}) map[string]interface{} {
	payload := map[string]interface{}{
		"order_id":    "ORD-1001",
		"customer_id": "CUST-7",
		"totalAmount": float64(149.99),
		"created_at":  "2023-03-05T12:00:00Z",
		"vendor_id":   "vendor_a",
	}
	for k, v := range overrides {
		payload[k] = v
	}
	return payload
}

func TestAssignIdentityDeterministic(t *testing.T) {
	a := AssignIdentity(EventHistoricalOrder, orderPayload(nil))
	b := AssignIdentity(EventHistoricalOrder, orderPayload(nil))
	if a != b {
		t.Fatalf("identity not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex identity, got %d chars", len(a))
	}
}

func TestAssignIdentityIgnoresIncidentalFields(t *testing.T) {
	base := AssignIdentity(EventHistoricalOrder, orderPayload(nil))
	extra := AssignIdentity(EventHistoricalOrder, orderPayload(map[string]interface{}{
		"shipping_note": "leave at door",
	}))
	if base != extra {
		t.Fatalf("incidental payload field changed the identity")
	}
}

func TestAssignIdentityDistinguishesContent(t *testing.T) {
	base := AssignIdentity(EventHistoricalOrder, orderPayload(nil))

	cases := []struct {
		name     string
		override map[string]interface{}
	}{
		{"different amount", map[string]interface{}{"totalAmount": float64(150.00)}},
		{"different key", map[string]interface{}{"order_id": "ORD-1002"}},
		{"different timestamp", map[string]interface{}{"created_at": "2023-03-06T12:00:00Z"}},
		{"different vendor", map[string]interface{}{"vendor_id": "vendor_b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AssignIdentity(EventHistoricalOrder, orderPayload(tc.override))
			if got == base {
				t.Fatalf("expected distinct identity for %s", tc.name)
			}
		})
	}

	otherType := AssignIdentity(EventOrderUpdated, orderPayload(nil))
	if otherType == base {
		t.Fatalf("event type must participate in the identity")
	}
}

func TestAssignIdentityNaturalKeyFallback(t *testing.T) {
	payload := map[string]interface{}{
		"totalAmount": float64(10),
		"created_at":  "2023-05-01T00:00:00Z",
	}
	a := AssignIdentity(EventHistoricalOrder, payload)
	b := AssignIdentity(EventHistoricalOrder, payload)
	if a != b {
		t.Fatalf("fallback identity not deterministic")
	}

	other := AssignIdentity(EventHistoricalOrder, map[string]interface{}{
		"totalAmount": float64(10),
		"created_at":  "2023-05-01T00:00:00Z",
		"note":        "x",
	})
	if other == a {
		t.Fatalf("fallback identity must cover the whole payload")
	}
}

func TestExtractVendorDefault(t *testing.T) {
	if got := ExtractVendor(map[string]interface{}{}); got != UnknownVendor {
		t.Fatalf("expected %q, got %q", UnknownVendor, got)
	}
	if got := ExtractVendor(map[string]interface{}{"seller_id": "s1"}); got != "s1" {
		t.Fatalf("expected seller_id alias, got %q", got)
	}
}

func TestExtractEventTimeFallback(t *testing.T) {
	if got := ExtractEventTime(map[string]interface{}{}); got != "2023-01-01T00:00:00Z" {
		t.Fatalf("expected epoch marker, got %q", got)
	}
	if got := ExtractEventTime(map[string]interface{}{"paid_at": "2023-07-01T09:30:00Z"}); got != "2023-07-01T09:30:00Z" {
		t.Fatalf("expected paid_at value, got %q", got)
	}
}
