package aggregate

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

// Service recomputes the daily revenue rollup from committed facts and
// replaces the affected date range wholesale. Incremental patching is
// deliberately avoided: it would reintroduce double-counting risk under
// replay.
type Service struct {
	facts  repository.FactRepository
	aggs   repository.AggregateRepository
	logger *zap.Logger
}

func NewService(facts repository.FactRepository, aggs repository.AggregateRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		facts:  facts,
		aggs:   aggs,
		logger: logger,
	}
}

// Run reads order facts with created_at in [from, to), joins their payments
// and refunds, computes the rollup and overwrites the range.
func (s *Service) Run(ctx context.Context, from, to time.Time) ([]domain.DailyAggregate, error) {
	orders, err := s.facts.ListOrders(ctx, from, to)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "listing order facts failed", err)
	}
	if len(orders) == 0 {
		s.logger.Info("no order facts in range, skipping aggregation")
		return nil, nil
	}

	orderIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.OrderID)
	}

	payments, err := s.facts.ListPayments(ctx, orderIDs)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "listing payment facts failed", err)
	}
	refunds, err := s.facts.ListRefunds(ctx, orderIDs)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "listing refund facts failed", err)
	}

	rows := Compute(orders, payments, refunds)

	if err := s.aggs.ReplaceDaily(ctx, from, to, rows); err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "replacing daily aggregates failed", err)
	}

	s.logger.Info("daily aggregates recomputed",
		zap.Int("groups", len(rows)),
		zap.Time("from", from),
		zap.Time("to", to))
	return rows, nil
}

type groupKey struct {
	date   time.Time
	vendor string
}

// Compute builds the (order_date, vendor) rollup. Orphan payments and
// refunds are excluded by construction: grouping starts from orders, so
// rows referencing no committed order never contribute revenue.
//
// Gross revenue counts the order_amount of orders with at least one
// successful payment; refunds are counted against those orders only.
func Compute(orders []domain.FactOrder, payments []domain.FactPayment, refunds []domain.FactRefund) []domain.DailyAggregate {
	paymentsByOrder := make(map[string][]domain.FactPayment, len(payments))
	for _, p := range payments {
		paymentsByOrder[p.OrderID] = append(paymentsByOrder[p.OrderID], p)
	}
	refundsByOrder := make(map[string]float64, len(refunds))
	for _, r := range refunds {
		refundsByOrder[r.OrderID] += r.RefundAmount
	}

	groups := make(map[groupKey]*domain.DailyAggregate)
	attempts := make(map[groupKey]int)

	for _, o := range orders {
		key := groupKey{date: dateOf(o.CreatedAt), vendor: o.Vendor}
		agg, ok := groups[key]
		if !ok {
			agg = &domain.DailyAggregate{OrderDate: key.date, Vendor: key.vendor}
			groups[key] = agg
		}
		agg.OrderCount++

		paid := false
		for _, p := range paymentsByOrder[o.OrderID] {
			attempts[key]++
			if p.Succeeded() {
				agg.PaidCount++
				paid = true
			}
		}
		if paid {
			agg.GrossRevenue += o.OrderAmount
			agg.TotalRefunds += refundsByOrder[o.OrderID]
		}
	}

	rows := make([]domain.DailyAggregate, 0, len(groups))
	for key, agg := range groups {
		agg.GrossRevenue = round2(agg.GrossRevenue)
		agg.TotalRefunds = round2(agg.TotalRefunds)
		agg.NetRevenue = round2(agg.GrossRevenue - agg.TotalRefunds)
		if n := attempts[key]; n > 0 {
			agg.PaymentSuccessRate = round4(float64(agg.PaidCount) / float64(n))
		}
		if agg.GrossRevenue > 0 {
			agg.RefundRate = round4(agg.TotalRefunds / agg.GrossRevenue)
		}
		rows = append(rows, *agg)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].OrderDate.Equal(rows[j].OrderDate) {
			return rows[i].OrderDate.Before(rows[j].OrderDate)
		}
		return rows[i].Vendor < rows[j].Vendor
	})
	return rows
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
