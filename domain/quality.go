package domain

import "time"

// Quality check labels. Each audit finding is tagged with one of these.
const (
	CheckMissingCustomerID       = "orders_missing_customer_id"
	CheckZeroAmountOrders        = "orders_zero_amount"
	CheckPaymentsMissingOrderID  = "payments_missing_order_id"
	CheckRefundsMissingPaymentID = "refunds_missing_payment_id"
	CheckMissingRequiredField    = "missing_required_field"
	CheckUnknownPaymentStatus    = "unknown_payment_status"
	CheckOrphanPayments          = "orphan_payments"
	CheckOrphanRefundsOrder      = "orphan_refunds_no_order"
	CheckOrphanRefundsPayment    = "orphan_refunds_no_payment"
	CheckLatePayments            = "late_payments"
	CheckVeryLatePayments        = "very_late_payments"
	CheckLateRefunds             = "late_refunds"
	CheckRevenueIntegrity        = "revenue_integrity_violation"
)

// Issue is a single validation defect detected during normalization,
// surfaced to the quality auditor instead of failing the batch.
type Issue struct {
	Check string `json:"check"`
	Key   string `json:"key"`
}

// Finding is an aggregated audit result: a labeled count with a bounded
// sample of offending keys.
type Finding struct {
	Check      string   `json:"check"`
	Count      int      `json:"count"`
	SampleKeys []string `json:"sample_keys,omitempty"`
}

// QualityReport is the structured outcome of a quality audit pass. The audit
// is read-only: findings classify and count, they never block the pipeline.
type QualityReport struct {
	ReportDate    time.Time `json:"report_date"`
	TotalOrders   int       `json:"total_orders"`
	TotalPayments int       `json:"total_payments"`
	TotalRefunds  int       `json:"total_refunds"`

	Findings []Finding `json:"findings"`

	GrossRevenue       float64 `json:"gross_revenue"`
	TotalRefunded      float64 `json:"total_refunded"`
	NetRevenue         float64 `json:"net_revenue"`
	PaymentSuccessRate float64 `json:"payment_success_rate"`
	RefundRate         float64 `json:"refund_rate"`
	AvgDaysToPayment   float64 `json:"avg_days_to_payment"`

	StatusBreakdown map[string]int `json:"status_breakdown"`
	VendorBreakdown map[string]int `json:"vendor_breakdown"`
}

// FindingSampleLimit caps how many offending keys a finding retains.
const FindingSampleLimit = 10

// Record adds one offending key to the named finding, creating it on first
// use. Counts are exact; samples are capped.
func (r *QualityReport) Record(check, key string) {
	for i := range r.Findings {
		if r.Findings[i].Check == check {
			r.Findings[i].Count++
			if key != "" && len(r.Findings[i].SampleKeys) < FindingSampleLimit {
				r.Findings[i].SampleKeys = append(r.Findings[i].SampleKeys, key)
			}
			return
		}
	}
	f := Finding{Check: check, Count: 1}
	if key != "" {
		f.SampleKeys = []string{key}
	}
	r.Findings = append(r.Findings, f)
}

// FindingCount returns the count for a check, zero when absent.
func (r *QualityReport) FindingCount(check string) int {
	for _, f := range r.Findings {
		if f.Check == check {
			return f.Count
		}
	}
	return 0
}
