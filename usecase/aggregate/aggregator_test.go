package aggregate

import (
	"testing"
	"time"

	"github.com/shoplake/reconciler/domain"
)

var day = time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC)

func TestComputeRevenue(t *testing.T) {
	orders := []domain.FactOrder{
		{OrderID: "O1", Vendor: "v1", OrderAmount: 100, CreatedAt: day.Add(9 * time.Hour)},
		{OrderID: "O2", Vendor: "v1", OrderAmount: 40, CreatedAt: day.Add(15 * time.Hour)},
	}
	payments := []domain.FactPayment{
		{EventID: "p1", OrderID: "O1", PaymentStatus: domain.StatusSuccess, PaymentAmount: 100},
		{EventID: "p2", OrderID: "O2", PaymentStatus: domain.StatusFailed, PaymentAmount: 40},
	}
	refunds := []domain.FactRefund{
		{EventID: "r1", OrderID: "O1", RefundAmount: 30},
	}

	rows := Compute(orders, payments, refunds)
	if len(rows) != 1 {
		t.Fatalf("expected 1 group, got %d", len(rows))
	}

	row := rows[0]
	if !row.OrderDate.Equal(day) || row.Vendor != "v1" {
		t.Fatalf("group key wrong: %+v", row)
	}
	if row.GrossRevenue != 100 {
		t.Fatalf("gross = %v, want 100 (only the paid order counts)", row.GrossRevenue)
	}
	if row.TotalRefunds != 30 || row.NetRevenue != 70 {
		t.Fatalf("refunds/net wrong: %+v", row)
	}
	if row.OrderCount != 2 || row.PaidCount != 1 {
		t.Fatalf("counts wrong: %+v", row)
	}
	// 1 successful of 2 attempts.
	if row.PaymentSuccessRate != 0.5 {
		t.Fatalf("success rate = %v, want 0.5", row.PaymentSuccessRate)
	}
	if row.RefundRate != 0.3 {
		t.Fatalf("refund rate = %v, want 0.3", row.RefundRate)
	}
}

func TestComputeExcludesOrphansAndUnpaidRefunds(t *testing.T) {
	orders := []domain.FactOrder{
		{OrderID: "O1", Vendor: "v1", OrderAmount: 100, CreatedAt: day},
		{OrderID: "O2", Vendor: "v1", OrderAmount: 50, CreatedAt: day},
	}
	payments := []domain.FactPayment{
		{EventID: "p1", OrderID: "O1", PaymentStatus: domain.StatusSuccess, PaymentAmount: 100},
		// References no committed order; must contribute nothing.
		{EventID: "p-orphan", OrderID: "O-ghost", PaymentStatus: domain.StatusSuccess, PaymentAmount: 999},
	}
	refunds := []domain.FactRefund{
		// O2 never had a successful payment, so its refund is not counted.
		{EventID: "r1", OrderID: "O2", RefundAmount: 20},
		{EventID: "r-orphan", OrderID: "O-ghost", RefundAmount: 999},
	}

	rows := Compute(orders, payments, refunds)
	if len(rows) != 1 {
		t.Fatalf("expected 1 group, got %d", len(rows))
	}
	if rows[0].GrossRevenue != 100 || rows[0].TotalRefunds != 0 {
		t.Fatalf("orphans leaked into the rollup: %+v", rows[0])
	}
}

func TestComputeZeroDivisionGuards(t *testing.T) {
	orders := []domain.FactOrder{
		{OrderID: "O1", Vendor: "v1", OrderAmount: 100, CreatedAt: day},
	}

	rows := Compute(orders, nil, nil)
	if len(rows) != 1 {
		t.Fatalf("expected 1 group, got %d", len(rows))
	}
	if rows[0].PaymentSuccessRate != 0 || rows[0].RefundRate != 0 {
		t.Fatalf("rates must be zero without attempts or gross: %+v", rows[0])
	}
}

func TestComputeGroupsByDateAndVendor(t *testing.T) {
	nextDay := day.AddDate(0, 0, 1)
	orders := []domain.FactOrder{
		{OrderID: "O1", Vendor: "v2", OrderAmount: 10, CreatedAt: day},
		{OrderID: "O2", Vendor: "v1", OrderAmount: 20, CreatedAt: day},
		{OrderID: "O3", Vendor: "v1", OrderAmount: 30, CreatedAt: nextDay.Add(23 * time.Hour)},
	}

	rows := Compute(orders, nil, nil)
	if len(rows) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(rows))
	}
	// Deterministic ordering: date, then vendor.
	if rows[0].Vendor != "v1" || rows[1].Vendor != "v2" {
		t.Fatalf("vendor ordering wrong: %+v", rows)
	}
	if !rows[2].OrderDate.Equal(nextDay) {
		t.Fatalf("timestamps must truncate to the UTC date: %+v", rows[2])
	}
}
