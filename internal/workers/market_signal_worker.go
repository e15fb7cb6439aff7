package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/internal/adapters/clickhouse"
	"github.com/minhvo/marketpulse/internal/adapters/market"
	"github.com/minhvo/marketpulse/internal/adapters/redis"
	"github.com/minhvo/marketpulse/internal/engine"
	"github.com/minhvo/marketpulse/pkg/logger"
	"github.com/minhvo/marketpulse/pkg/metrics"
	"github.com/minhvo/marketpulse/pkg/models"
)

// Notifier delivers emitted signals to subscribers
type Notifier interface {
	SendSignal(sig *models.Signal) error
	SendMarketSignal(sig *models.MarketSignal) error
	SendAlert(text string) error
}

// SignalStore persists emitted signals and serves back stored history.
// Satisfied by the Postgres signal repository.
type SignalStore interface {
	SaveSignal(ctx context.Context, sig *models.Signal) error
	SaveMarketSignal(ctx context.Context, sig *models.MarketSignal) error
	LastSignalForAsset(ctx context.Context, asset string) (*models.Signal, error)
}

// MarketSignalWorker evaluates market-wide conditions on every tick and
// delivers qualifying signals. A distributed lock keeps evaluation on a
// single pod.
type MarketSignalWorker struct {
	engine   *engine.Engine
	history  *market.HistoryStore
	lock     redis.TaskLock
	notifier Notifier
	signals  SignalStore
	chRepo   *clickhouse.Repository
	buffer   metrics.Buffer
}

// NewMarketSignalWorker creates new market signal worker
func NewMarketSignalWorker(
	eng *engine.Engine,
	history *market.HistoryStore,
	lockFactory redis.LockFactory,
	notifier Notifier,
	signals SignalStore,
	chRepo *clickhouse.Repository,
	buffer metrics.Buffer,
) *MarketSignalWorker {
	return &MarketSignalWorker{
		engine:   eng,
		history:  history,
		lock:     lockFactory.CreateTaskLock("market_eval"),
		notifier: notifier,
		signals:  signals,
		chRepo:   chRepo,
		buffer:   buffer,
	}
}

// Name returns worker name
func (mw *MarketSignalWorker) Name() string {
	return "market_eval"
}

// Run executes one market-wide evaluation tick
func (mw *MarketSignalWorker) Run(ctx context.Context) error {
	acquired, err := mw.lock.TryAcquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}
	defer mw.lock.Release(ctx)

	now := time.Now()
	snap := mw.history.Snapshot(now)
	eval := mw.engine.EvaluateMarket(snap)

	mw.recordAnomalies(snap, eval.Read, now)

	for _, alert := range eval.Alerts {
		logger.Debug("market condition below signal bar", zap.String("alert", alert))
	}

	for i := range eval.Signals {
		sig := &eval.Signals[i]

		logger.Info("📢 market signal emitted",
			zap.String("type", sig.Type),
			zap.String("action", string(sig.Action)),
			zap.String("confidence", string(sig.Confidence)),
		)

		if mw.notifier != nil {
			if err := mw.notifier.SendMarketSignal(sig); err != nil {
				logger.Error("failed to notify market signal", zap.Error(err))
			}
		}
		if mw.signals != nil {
			if err := mw.signals.SaveMarketSignal(ctx, sig); err != nil {
				logger.Error("failed to persist market signal", zap.Error(err))
			}
		}
		if mw.chRepo != nil {
			if err := mw.chRepo.SaveMarketSignals(ctx, []models.MarketSignal{*sig}); err != nil {
				logger.Error("failed to archive market signal", zap.Error(err))
			}
		}
	}

	return nil
}

// recordAnomalies buffers qualifying anomalies for offline analysis
func (mw *MarketSignalWorker) recordAnomalies(snap models.MarketSnapshot, read engine.MarketRead, now time.Time) {
	if mw.buffer == nil {
		return
	}

	for metric, a := range read.Anomalies {
		if !a.Qualifies() {
			continue
		}

		w := read.Windows[metric]
		direction := "falling"
		if a.Rising {
			direction = "rising"
		}

		var value float64
		switch metric {
		case models.MetricBTCDominance:
			if snap.BTCDominance != nil {
				value = *snap.BTCDominance
			}
		case models.MetricUSDTDominance:
			if snap.USDTDominance != nil {
				value = *snap.USDTDominance
			}
		case models.MetricFearGreed:
			if snap.FearGreed != nil {
				value = *snap.FearGreed
			}
		}

		if err := mw.buffer.Add(&metrics.AnomalyMetric{
			Timestamp: now,
			Metric:    string(metric),
			Value:     value,
			Mean:      w.Mean,
			StdDev:    w.StdDev,
			ZScore:    a.ZScore,
			Severity:  string(a.Severity),
			Direction: direction,
		}); err != nil {
			logger.Warn("failed to buffer anomaly metric",
				zap.String("metric", string(metric)),
				zap.Error(err),
			)
		}
	}
}
