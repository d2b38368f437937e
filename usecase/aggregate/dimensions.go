package aggregate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

// Dimensions populates the warehouse dimension tables: a generated calendar
// span, customers extracted from order facts, and the product placeholder.
type Dimensions struct {
	repo      repository.DimensionRepository
	startYear int
	endYear   int
	logger    *zap.Logger
}

func NewDimensions(repo repository.DimensionRepository, startYear, endYear int, logger *zap.Logger) *Dimensions {
	if startYear <= 0 {
		startYear = 2023
	}
	if endYear < startYear {
		endYear = startYear
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dimensions{
		repo:      repo,
		startYear: startYear,
		endYear:   endYear,
		logger:    logger,
	}
}

// Populate refreshes all three dimensions from the given order facts.
func (d *Dimensions) Populate(ctx context.Context, orders []domain.FactOrder) error {
	dates := BuildDateDim(d.startYear, d.endYear)
	if err := d.repo.ReplaceDates(ctx, dates); err != nil {
		return domain.WrapError(domain.ErrCodeUnavailable, "replacing date dimension failed", err)
	}

	customers := ExtractCustomers(orders)
	if err := d.repo.UpsertCustomers(ctx, customers); err != nil {
		return domain.WrapError(domain.ErrCodeUnavailable, "upserting customer dimension failed", err)
	}

	if err := d.repo.EnsureProductPlaceholder(ctx); err != nil {
		return domain.WrapError(domain.ErrCodeUnavailable, "ensuring product placeholder failed", err)
	}

	d.logger.Info("dimensions populated",
		zap.Int("dates", len(dates)),
		zap.Int("customers", len(customers)))
	return nil
}

// BuildDateDim generates one row per calendar day from Jan 1 of startYear
// through Dec 31 of endYear.
func BuildDateDim(startYear, endYear int) []domain.DateDim {
	var rows []domain.DateDim
	day := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	for !day.After(end) {
		_, week := day.ISOWeek()
		wd := day.Weekday()
		rows = append(rows, domain.DateDim{
			DateKey:    day,
			DayOfWeek:  wd.String(),
			WeekNumber: week,
			Month:      int(day.Month()),
			Quarter:    (int(day.Month())-1)/3 + 1,
			Year:       day.Year(),
			IsWeekend:  wd == time.Saturday || wd == time.Sunday,
		})
		day = day.AddDate(0, 0, 1)
	}
	return rows
}

// ExtractCustomers collects distinct customer_ids with their earliest order
// date. Orders without a customer_id are skipped; that gap is already a
// quality finding.
func ExtractCustomers(orders []domain.FactOrder) []domain.CustomerDim {
	firstSeen := make(map[string]time.Time)
	for _, o := range orders {
		if o.CustomerID == "" {
			continue
		}
		if seen, ok := firstSeen[o.CustomerID]; !ok || o.CreatedAt.Before(seen) {
			firstSeen[o.CustomerID] = o.CreatedAt
		}
	}

	rows := make([]domain.CustomerDim, 0, len(firstSeen))
	for id, seen := range firstSeen {
		rows = append(rows, domain.CustomerDim{CustomerID: id, FirstSeen: seen})
	}
	return rows
}
