package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/shoplake/reconciler/domain"
	"github.com/shoplake/reconciler/repository"
)

// bootstrapFiles maps each historical export file to the event type its
// records are wrapped as.
var bootstrapFiles = map[string]string{
	"orders_2023.json":   domain.EventHistoricalOrder,
	"payments_2023.json": domain.EventHistoricalPayment,
	"refunds_2023.json":  domain.EventHistoricalRefund,
}

// Bootstrap loads the one-time historical export into the raw event store.
// The whole pass is idempotent: re-running it against the same files yields
// the same identities and therefore the same store contents.
type Bootstrap struct {
	raw    repository.RawEventRepository
	dir    string
	logger *zap.Logger
}

func NewBootstrap(raw repository.RawEventRepository, dir string, logger *zap.Logger) *Bootstrap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrap{
		raw:    raw,
		dir:    dir,
		logger: logger,
	}
}

// Run ingests every known bootstrap file. Missing files are skipped with a
// warning; a malformed file fails only its own pass.
func (b *Bootstrap) Run(ctx context.Context) (*Stats, error) {
	total := &Stats{}
	for filename, eventType := range bootstrapFiles {
		path := filepath.Join(b.dir, filename)
		if _, err := os.Stat(path); err != nil {
			b.logger.Warn("bootstrap file not found, skipping", zap.String("file", filename))
			continue
		}

		stats, err := b.loadFile(ctx, path, eventType)
		if err != nil {
			b.logger.Error("bootstrap file failed",
				zap.String("file", filename),
				zap.Error(err))
			continue
		}
		b.logger.Info("bootstrap file loaded",
			zap.String("file", filename),
			zap.String("event_type", eventType),
			zap.Int("inserted", stats.Inserted),
			zap.Int("updated", stats.Updated))
		total.add(*stats)
	}
	return total, nil
}

func (b *Bootstrap) loadFile(ctx context.Context, path, eventType string) (*Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		// Some exports hold a single object instead of an array.
		var single map[string]interface{}
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, domain.WrapError(domain.ErrCodeInvalid, "unparseable bootstrap file", err)
		}
		records = []map[string]interface{}{single}
	}

	stats := &Stats{}
	now := time.Now().UTC()
	for _, record := range records {
		event, err := wrapRecord(eventType, domain.SourceHistorical, record, now)
		if err != nil {
			stats.Skipped++
			continue
		}
		if err := putEvent(ctx, b.raw, event, stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
