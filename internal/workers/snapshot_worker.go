package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/internal/adapters/market"
	"github.com/minhvo/marketpulse/pkg/logger"
	"github.com/minhvo/marketpulse/pkg/metrics"
	"github.com/minhvo/marketpulse/pkg/models"
)

// SnapshotWorker periodically fetches dominance and sentiment metrics and
// appends them to the in-memory history used by the evaluation pipeline
type SnapshotWorker struct {
	cmc     *market.CoinMarketCapProvider
	fng     *market.FearGreedProvider
	history *market.HistoryStore
	buffer  metrics.Buffer
}

// NewSnapshotWorker creates new snapshot worker
func NewSnapshotWorker(
	cmc *market.CoinMarketCapProvider,
	fng *market.FearGreedProvider,
	history *market.HistoryStore,
	buffer metrics.Buffer,
) *SnapshotWorker {
	return &SnapshotWorker{
		cmc:     cmc,
		fng:     fng,
		history: history,
		buffer:  buffer,
	}
}

// Name returns worker name
func (sw *SnapshotWorker) Name() string {
	return "snapshot_poller"
}

// Run executes one iteration - fetches metrics and appends to history.
// Called periodically by pkg/worker.PeriodicWorker
func (sw *SnapshotWorker) Run(ctx context.Context) error {
	now := time.Now()

	global, err := sw.cmc.GetGlobalMetrics(ctx)
	if err != nil {
		logger.Warn("failed to fetch global metrics", zap.Error(err))
	} else {
		sw.record(models.MetricBTCDominance, global.BTCDominance, sw.cmc.GetName(), now)
		sw.record(models.MetricUSDTDominance, global.USDTDominance, sw.cmc.GetName(), now)
	}

	index, err := sw.fng.GetIndex(ctx)
	if err != nil {
		logger.Warn("failed to fetch fear & greed index", zap.Error(err))
	} else {
		sw.record(models.MetricFearGreed, index, sw.fng.GetName(), now)
	}

	logger.Debug("market snapshot recorded",
		zap.Int("btc_dom_samples", sw.history.Len(models.MetricBTCDominance)),
		zap.Int("usdt_dom_samples", sw.history.Len(models.MetricUSDTDominance)),
		zap.Int("fear_greed_samples", sw.history.Len(models.MetricFearGreed)),
	)

	return nil
}

func (sw *SnapshotWorker) record(metric models.Metric, value float64, source string, now time.Time) {
	sw.history.Append(metric, models.MetricSample{
		Timestamp: now.Unix(),
		Value:     value,
	})

	if sw.buffer == nil {
		return
	}
	if err := sw.buffer.Add(&metrics.MetricObservation{
		Timestamp: now,
		Metric:    string(metric),
		Value:     value,
		Source:    source,
	}); err != nil {
		logger.Warn("failed to buffer metric observation",
			zap.String("metric", string(metric)),
			zap.Error(err),
		)
	}
}
