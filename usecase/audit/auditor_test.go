package audit

import (
	"testing"
	"time"

	"github.com/shoplake/reconciler/domain"
)

var baseTime = time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC)

func TestAuditCompleteness(t *testing.T) {
	a := New(Config{}, nil)

	orders := []domain.Order{
		{OrderID: "O1", CustomerID: "C1", OrderAmount: 100, CreatedAt: baseTime},
		{OrderID: "O2", OrderAmount: 0, CreatedAt: baseTime},
	}
	payments := []domain.Payment{
		{PaymentID: "P1", OrderID: "O1", PaymentStatus: domain.StatusSuccess, PaymentAmount: 100},
		{PaymentID: "P2", PaymentStatus: domain.StatusFailed},
	}
	refunds := []domain.Refund{
		{RefundID: "R1", OrderID: "O1", RefundAmount: 10},
	}

	report := a.Audit(orders, payments, refunds, nil)

	if got := report.FindingCount(domain.CheckMissingCustomerID); got != 1 {
		t.Fatalf("missing customer_id = %d, want 1", got)
	}
	if got := report.FindingCount(domain.CheckZeroAmountOrders); got != 1 {
		t.Fatalf("zero amount orders = %d, want 1", got)
	}
	if got := report.FindingCount(domain.CheckPaymentsMissingOrderID); got != 1 {
		t.Fatalf("payments missing order_id = %d, want 1", got)
	}
	if got := report.FindingCount(domain.CheckRefundsMissingPaymentID); got != 1 {
		t.Fatalf("refunds missing payment_id = %d, want 1", got)
	}
	if report.TotalOrders != 2 || report.TotalPayments != 2 || report.TotalRefunds != 1 {
		t.Fatalf("totals wrong: %+v", report)
	}
}

func TestAuditOrphans(t *testing.T) {
	a := New(Config{}, nil)

	orders := []domain.Order{{OrderID: "O1", CustomerID: "C1", OrderAmount: 50, CreatedAt: baseTime}}
	payments := []domain.Payment{
		{PaymentID: "P1", OrderID: "O1", PaymentStatus: domain.StatusSuccess, PaymentAmount: 50},
		{PaymentID: "P2", OrderID: "O-missing", PaymentStatus: domain.StatusSuccess, PaymentAmount: 10},
	}
	refunds := []domain.Refund{
		{RefundID: "R1", OrderID: "O-missing", PaymentID: "P1", RefundAmount: 5},
		{RefundID: "R2", OrderID: "O1", PaymentID: "P-missing", RefundAmount: 5},
	}

	report := a.Audit(orders, payments, refunds, nil)

	if got := report.FindingCount(domain.CheckOrphanPayments); got != 1 {
		t.Fatalf("orphan payments = %d, want 1", got)
	}
	if got := report.FindingCount(domain.CheckOrphanRefundsOrder); got != 1 {
		t.Fatalf("orphan refunds (order) = %d, want 1", got)
	}
	if got := report.FindingCount(domain.CheckOrphanRefundsPayment); got != 1 {
		t.Fatalf("orphan refunds (payment) = %d, want 1", got)
	}
}

func TestAuditLateArrivals(t *testing.T) {
	a := New(Config{LateArrivalDays: 7, ExtendedLateDays: 30}, nil)

	orders := []domain.Order{{OrderID: "O1", CustomerID: "C1", OrderAmount: 100, CreatedAt: baseTime}}
	payments := []domain.Payment{
		{PaymentID: "P-fast", OrderID: "O1", PaymentStatus: domain.StatusSuccess, PaymentDate: baseTime.AddDate(0, 0, 2)},
		{PaymentID: "P-late", OrderID: "O1", PaymentStatus: domain.StatusSuccess, PaymentDate: baseTime.AddDate(0, 0, 10)},
		{PaymentID: "P-very-late", OrderID: "O1", PaymentStatus: domain.StatusSuccess, PaymentDate: baseTime.AddDate(0, 0, 40)},
	}
	refunds := []domain.Refund{
		{RefundID: "R-late", OrderID: "O1", PaymentID: "P-fast", RefundDate: baseTime.AddDate(0, 0, 20)},
	}

	report := a.Audit(orders, payments, refunds, nil)

	if got := report.FindingCount(domain.CheckLatePayments); got != 2 {
		t.Fatalf("late payments = %d, want 2", got)
	}
	if got := report.FindingCount(domain.CheckVeryLatePayments); got != 1 {
		t.Fatalf("very late payments = %d, want 1", got)
	}
	if got := report.FindingCount(domain.CheckLateRefunds); got != 1 {
		t.Fatalf("late refunds = %d, want 1", got)
	}
	// (2 + 10 + 40) / 3 days
	if report.AvgDaysToPayment != 17.33 {
		t.Fatalf("avg days to payment = %v, want 17.33", report.AvgDaysToPayment)
	}
}

func TestAuditRevenueIntegrity(t *testing.T) {
	a := New(Config{}, nil)

	orders := []domain.Order{
		{OrderID: "O1", CustomerID: "C1", OrderAmount: 30, CreatedAt: baseTime},
		{OrderID: "O2", CustomerID: "C2", OrderAmount: 100, CreatedAt: baseTime},
	}
	payments := []domain.Payment{
		{PaymentID: "P1", OrderID: "O1", PaymentStatus: domain.StatusSuccess, PaymentAmount: 30},
		{PaymentID: "P2", OrderID: "O2", PaymentStatus: domain.StatusSuccess, PaymentAmount: 100},
		{PaymentID: "P3", OrderID: "O2", PaymentStatus: domain.StatusFailed, PaymentAmount: 100},
	}
	refunds := []domain.Refund{
		// Refunded more than was ever collected for O1.
		{RefundID: "R1", OrderID: "O1", PaymentID: "P1", RefundAmount: 50},
	}

	report := a.Audit(orders, payments, refunds, nil)

	if got := report.FindingCount(domain.CheckRevenueIntegrity); got != 1 {
		t.Fatalf("revenue integrity = %d, want 1", got)
	}
	if report.GrossRevenue != 130 || report.TotalRefunded != 50 || report.NetRevenue != 80 {
		t.Fatalf("revenue summary wrong: %+v", report)
	}
	// 2 successful of 3 attempts.
	if report.PaymentSuccessRate != 0.6667 {
		t.Fatalf("success rate = %v, want 0.6667", report.PaymentSuccessRate)
	}
	if report.RefundRate != 0.3846 {
		t.Fatalf("refund rate = %v, want 0.3846", report.RefundRate)
	}
	if report.StatusBreakdown[domain.StatusSuccess] != 2 || report.StatusBreakdown[domain.StatusFailed] != 1 {
		t.Fatalf("status breakdown wrong: %+v", report.StatusBreakdown)
	}
}

func TestAuditCarriesNormalizerIssues(t *testing.T) {
	a := New(Config{}, nil)

	issues := []domain.Issue{
		{Check: domain.CheckMissingRequiredField, Key: "payment.order_id"},
		{Check: domain.CheckUnknownPaymentStatus, Key: "P9"},
		{Check: domain.CheckUnknownPaymentStatus, Key: "P10"},
	}

	report := a.Audit(nil, nil, nil, issues)

	if got := report.FindingCount(domain.CheckMissingRequiredField); got != 1 {
		t.Fatalf("missing required field = %d, want 1", got)
	}
	if got := report.FindingCount(domain.CheckUnknownPaymentStatus); got != 2 {
		t.Fatalf("unknown status = %d, want 2", got)
	}
}
