package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
	"github.com/shoplake/reconciler/usecase/aggregate"
	"github.com/shoplake/reconciler/usecase/audit"
	"github.com/shoplake/reconciler/usecase/ingest"
	"github.com/shoplake/reconciler/usecase/transform"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// PipelineConfig controls scheduling and per-run limits.
type PipelineConfig struct {
	Schedule   string
	RunTimeout time.Duration
}

// RunSummary describes one completed (or failed) pipeline run.
type RunSummary struct {
	RunID            string          `json:"run_id"`
	RunDate          string          `json:"run_date"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
	Ingest           ingest.Stats    `json:"ingest"`
	EventsScanned    int             `json:"events_scanned"`
	StructuralErrors int             `json:"structural_errors"`
	Projection       transform.Stats `json:"projection"`
	AggregateGroups  int             `json:"aggregate_groups"`
	Findings         int             `json:"findings"`
	Error            string          `json:"error,omitempty"`
}

// Pipeline orchestrates a full batch run: live ingest, normalization,
// identity-keyed projection, quality audit, daily aggregation and dimension
// refresh. Runs are re-entrant; a crashed run replayed from the start
// converges on the same warehouse state.
type Pipeline struct {
	raw        repository.RawEventRepository
	normalizer *transform.Normalizer
	projector  *transform.Projector
	auditor    *audit.Auditor
	aggregates *aggregate.Service
	dimensions *aggregate.Dimensions
	live       *ingest.Live
	reports    *ReportWriter
	monitor    ConnectionHealth
	logger     *zap.Logger
	cron       *cron.Cron
	cfg        PipelineConfig

	mu         sync.RWMutex
	running    bool
	lastRun    *RunSummary
	lastReport *domain.QualityReport
}

func NewPipeline(
	raw repository.RawEventRepository,
	normalizer *transform.Normalizer,
	projector *transform.Projector,
	auditor *audit.Auditor,
	aggregates *aggregate.Service,
	dimensions *aggregate.Dimensions,
	live *ingest.Live,
	reports *ReportWriter,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg PipelineConfig,
) *Pipeline {
	if cfg.Schedule == "" {
		cfg.Schedule = "@daily"
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		raw:        raw,
		normalizer: normalizer,
		projector:  projector,
		auditor:    auditor,
		aggregates: aggregates,
		dimensions: dimensions,
		live:       live,
		reports:    reports,
		monitor:    monitor,
		logger:     logger,
		cfg:        cfg,
		cron:       cron.New(),
	}

	_, _ = p.cron.AddFunc(cfg.Schedule, p.scheduledRun)

	return p
}

// Start launches the cron scheduler.
func (p *Pipeline) Start() {
	if p == nil || p.cron == nil {
		return
	}
	p.cron.Start()
	p.logger.Info("pipeline scheduler started", zap.String("schedule", p.cfg.Schedule))
}

// Stop gracefully stops the scheduler, waiting for an in-flight run.
func (p *Pipeline) Stop(ctx context.Context) {
	if p == nil || p.cron == nil {
		return
	}
	stopCtx := p.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	p.logger.Info("pipeline scheduler stopped")
}

func (p *Pipeline) scheduledRun() {
	if p.monitor != nil && !p.monitor.IsOnline() {
		// A skipped tick costs nothing: the next run recomputes the world.
		p.logger.Warn("skipping scheduled run, collaborators offline")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.RunTimeout)
	defer cancel()
	if _, err := p.Run(ctx, time.Now().UTC()); err != nil {
		p.logger.Error("scheduled pipeline run failed", zap.Error(err))
	}
}

// TriggerAsync starts a manual run in the background and returns its run ID.
// Returns ErrRunInProgress when a run is already active.
func (p *Pipeline) TriggerAsync(runDate time.Time) (string, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return "", domain.ErrRunInProgress
	}
	p.running = true
	p.mu.Unlock()

	runID := uuid.NewString()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.RunTimeout)
		defer cancel()
		if _, err := p.run(ctx, runDate, runID); err != nil {
			p.logger.Error("triggered pipeline run failed", zap.String("run_id", runID), zap.Error(err))
		}
	}()
	return runID, nil
}

// Run executes a full batch run synchronously.
func (p *Pipeline) Run(ctx context.Context, runDate time.Time) (*RunSummary, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, domain.ErrRunInProgress
	}
	p.running = true
	p.mu.Unlock()

	return p.run(ctx, runDate, uuid.NewString())
}

// run is the single-writer batch body. Caller must have claimed the running
// flag; run releases it.
func (p *Pipeline) run(ctx context.Context, runDate time.Time, runID string) (summary *RunSummary, err error) {
	summary = &RunSummary{
		RunID:     runID,
		RunDate:   runDate.UTC().Format("2006-01-02"),
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With(zap.String("run_id", runID), zap.String("run_date", summary.RunDate))

	defer func() {
		summary.FinishedAt = time.Now().UTC()
		if err != nil {
			summary.Error = err.Error()
		}
		p.mu.Lock()
		p.running = false
		p.lastRun = summary
		p.mu.Unlock()
		logger.Info("pipeline run finished",
			zap.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)),
			zap.Bool("ok", err == nil))
	}()

	logger.Info("pipeline run started")

	// 1. Live ingest for the run date.
	if p.live != nil {
		stats, ingestErr := p.live.Run(ctx, runDate)
		if stats != nil {
			summary.Ingest = *stats
		}
		if ingestErr != nil {
			return summary, domain.WrapError(domain.ErrCodeUnavailable, "live ingest failed", ingestErr)
		}
	}

	// 2. Scan the full raw store and normalize. Structural errors are
	// isolated per event and only counted.
	events, scanErr := p.raw.Scan(ctx, repository.RawEventFilter{})
	if scanErr != nil {
		return summary, domain.WrapError(domain.ErrCodeUnavailable, "raw event scan failed", scanErr)
	}
	summary.EventsScanned = len(events)

	var (
		orders     []domain.Order
		payments   []domain.Payment
		refunds    []domain.Refund
		issues     []domain.Issue
		structural *multierror.Error
	)

	for i := range events {
		res, normErr := p.normalizer.Normalize(&events[i])
		if normErr != nil {
			summary.StructuralErrors++
			structural = multierror.Append(structural, fmt.Errorf("event %s: %w", events[i].EventID, normErr))
			continue
		}
		issues = append(issues, res.Issues...)

		// 3. Project into the warehouse. Store failures abort the run;
		// blind retry is safe because every commit is idempotent.
		if commitErr := p.projector.Commit(ctx, res.Event, &summary.Projection); commitErr != nil {
			return summary, commitErr
		}

		switch res.Event.Kind {
		case domain.KindOrder:
			orders = append(orders, *res.Event.Order)
		case domain.KindPayment:
			payments = append(payments, *res.Event.Payment)
		case domain.KindRefund:
			refunds = append(refunds, *res.Event.Refund)
		}
	}
	if structural.ErrorOrNil() != nil {
		logger.Warn("structural errors during normalization",
			zap.Int("count", summary.StructuralErrors),
			zap.Error(structural.ErrorOrNil()))
	}

	// Collapse order events to the latest state per order_id so the audit
	// sees the same world the fact table holds.
	orders = latestOrders(orders)

	// 4. Quality audit. Read-only and always produced, even for a run that
	// rejected inputs.
	report := p.auditor.Audit(orders, payments, refunds, issues)
	summary.Findings = len(report.Findings)
	p.mu.Lock()
	p.lastReport = report
	p.mu.Unlock()

	if p.reports != nil {
		if _, writeErr := p.reports.Write(report); writeErr != nil {
			logger.Error("quality report write failed", zap.Error(writeErr))
		}
	}

	// 5. Recompute daily aggregates over the full span of committed orders.
	from, to, ok := orderDateRange(orders)
	if ok {
		rows, aggErr := p.aggregates.Run(ctx, from, to)
		if aggErr != nil {
			return summary, aggErr
		}
		summary.AggregateGroups = len(rows)

		// 6. Refresh dimensions from the committed order facts.
		if p.dimensions != nil {
			facts := make([]domain.FactOrder, 0, len(orders))
			for _, o := range orders {
				facts = append(facts, o.Fact())
			}
			if dimErr := p.dimensions.Populate(ctx, facts); dimErr != nil {
				return summary, dimErr
			}
		}
	}

	return summary, nil
}

// Status returns the live/last-run view for the admin API.
func (p *Pipeline) Status() (running bool, last *RunSummary) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running, p.lastRun
}

// LatestReport returns the most recent quality report, if any.
func (p *Pipeline) LatestReport() *domain.QualityReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastReport
}

// latestOrders keeps the most recent order event per order_id, mirroring the
// warehouse upsert policy.
func latestOrders(orders []domain.Order) []domain.Order {
	if len(orders) == 0 {
		return orders
	}
	latest := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		existing, ok := latest[o.OrderID]
		if !ok || o.Fact().Supersedes(existing.Fact()) {
			latest[o.OrderID] = o
		}
	}
	out := make([]domain.Order, 0, len(latest))
	for _, o := range latest {
		out = append(out, o)
	}
	return out
}

// orderDateRange returns the half-open [from, to) span covering every order.
func orderDateRange(orders []domain.Order) (time.Time, time.Time, bool) {
	var from, to time.Time
	for _, o := range orders {
		if o.CreatedAt.IsZero() {
			continue
		}
		if from.IsZero() || o.CreatedAt.Before(from) {
			from = o.CreatedAt
		}
		if to.IsZero() || o.CreatedAt.After(to) {
			to = o.CreatedAt
		}
	}
	if from.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	return from, to.Add(24 * time.Hour), true
}
