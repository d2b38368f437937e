package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shoplake/reconciler/repository/bolt"
)

// Monitor periodically probes the warehouse, the identity cache and the raw
// event store. Scheduled pipeline runs consult it to skip a tick while the
// warehouse is unreachable; skipped runs are harmless because every run is a
// full idempotent recompute.
type Monitor struct {
	warehouse *pgxpool.Pool
	redis     *redislib.Client
	rawStore  *bolt.Store

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	logger   *zap.Logger
}

func New(warehouse *pgxpool.Pool, redis *redislib.Client, rawStore *bolt.Store, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		warehouse: warehouse,
		redis:     redis,
		rawStore:  rawStore,
		interval:  interval,
		stopCh:    make(chan struct{}),
		logger:    logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	close(m.stopCh)
}

// IsOnline reports whether a batch run can commit. The identity cache is
// advisory, so Redis health does not gate runs.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Warehouse && m.status.RawStore
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) refresh() {
	rawOK, rawCount := m.checkRawStore()
	status := Status{
		Warehouse: m.checkWarehouse(),
		Redis:     m.checkRedis(),
		RawStore:  rawOK,
		RawEvents: rawCount,
		LastCheck: time.Now(),
	}

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if prev.Warehouse && !status.Warehouse {
		m.logger.Warn("warehouse connection lost")
	}
	if !prev.Warehouse && status.Warehouse && !prev.LastCheck.IsZero() {
		m.logger.Info("warehouse connection restored")
	}
}

func (m *Monitor) checkWarehouse() bool {
	if m.warehouse == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return m.warehouse.Ping(ctx) == nil
}

func (m *Monitor) checkRedis() bool {
	if m.redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return m.redis.Ping(ctx).Err() == nil
}

func (m *Monitor) checkRawStore() (bool, int) {
	if m.rawStore == nil {
		return false, 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	count, err := m.rawStore.Count(ctx)
	if err != nil {
		return false, 0
	}
	return true, count
}
