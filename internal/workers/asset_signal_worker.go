package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/internal/adapters/clickhouse"
	"github.com/minhvo/marketpulse/internal/adapters/exchange"
	"github.com/minhvo/marketpulse/internal/adapters/market"
	"github.com/minhvo/marketpulse/internal/adapters/redis"
	"github.com/minhvo/marketpulse/internal/engine"
	"github.com/minhvo/marketpulse/internal/indicators"
	"github.com/minhvo/marketpulse/internal/risk"
	"github.com/minhvo/marketpulse/pkg/logger"
	"github.com/minhvo/marketpulse/pkg/metrics"
	"github.com/minhvo/marketpulse/pkg/models"
)

const btcSymbol = "BTCUSDT"

// Timeframes fetched per asset. The scorer weighs 1d/3d/1w as primary,
// 4h/8h as secondary and 1h as minor.
var assetTimeframes = []string{"1h", "4h", "8h", "1d", "3d", "1w"}

const klineLimit = 100

// AssetSignalWorker runs the per-asset pipeline across the watchlist:
// multi-timeframe analysis, context assembly, composite scoring and
// emission. Shares the engine's guard and emission state with the
// market worker.
type AssetSignalWorker struct {
	engine   *engine.Engine
	exch     *exchange.BinanceAdapter
	analyzer *indicators.Analyzer
	history  *market.HistoryStore
	crash    *risk.CrashMonitor
	lock     redis.TaskLock
	notifier Notifier
	signals  SignalStore
	chRepo   *clickhouse.Repository
	buffer   metrics.Buffer

	watchlist      []string
	minQuoteVolume float64
}

// NewAssetSignalWorker creates new asset signal worker
func NewAssetSignalWorker(
	eng *engine.Engine,
	exch *exchange.BinanceAdapter,
	analyzer *indicators.Analyzer,
	history *market.HistoryStore,
	crash *risk.CrashMonitor,
	lockFactory redis.LockFactory,
	notifier Notifier,
	signals SignalStore,
	chRepo *clickhouse.Repository,
	buffer metrics.Buffer,
	watchlist []string,
	minQuoteVolume float64,
) *AssetSignalWorker {
	return &AssetSignalWorker{
		engine:         eng,
		exch:           exch,
		analyzer:       analyzer,
		history:        history,
		crash:          crash,
		lock:           lockFactory.CreateTaskLock("asset_eval"),
		notifier:       notifier,
		signals:        signals,
		chRepo:         chRepo,
		buffer:         buffer,
		watchlist:      watchlist,
		minQuoteVolume: minQuoteVolume,
	}
}

// Name returns worker name
func (aw *AssetSignalWorker) Name() string {
	return "asset_eval"
}

// Run executes one evaluation pass over the watchlist
func (aw *AssetSignalWorker) Run(ctx context.Context) error {
	acquired, err := aw.lock.TryAcquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}
	defer aw.lock.Release(ctx)

	now := time.Now()
	read := aw.engine.ReadMarket(aw.history.Snapshot(now))

	// BTC hourly closes anchor the correlation check for every alt
	btcHourly, err := aw.exch.FetchKlines(ctx, btcSymbol, "1h", klineLimit)
	if err != nil {
		logger.Warn("failed to fetch BTC reference candles", zap.Error(err))
	}

	for _, symbol := range aw.watchlist {
		if err := ctx.Err(); err != nil {
			return err
		}
		aw.evaluateSymbol(ctx, symbol, read, btcHourly, now)
	}

	return nil
}

func (aw *AssetSignalWorker) evaluateSymbol(
	ctx context.Context,
	symbol string,
	read engine.MarketRead,
	btcHourly []models.Candle,
	now time.Time,
) {
	started := time.Now()

	candlesByTimeframe := make(map[string][]models.Candle, len(assetTimeframes))
	for _, tf := range assetTimeframes {
		candles, err := aw.exch.FetchKlines(ctx, symbol, tf, klineLimit)
		if err != nil {
			logger.Warn("failed to fetch candles",
				zap.String("symbol", symbol),
				zap.String("timeframe", tf),
				zap.Error(err),
			)
			continue
		}
		candlesByTimeframe[tf] = candles
	}
	if len(candlesByTimeframe) == 0 {
		return
	}

	analyses := aw.analyzer.AnalyzeAll(candlesByTimeframe)
	if len(analyses) == 0 {
		logger.Debug("no analyzable timeframes", zap.String("symbol", symbol))
		return
	}

	var technical *models.TechnicalScore
	if candles, ok := candlesByTimeframe["4h"]; ok {
		technical, _ = aw.analyzer.Technical(candles)
	}

	mctx, price, ok := aw.assembleContext(ctx, symbol, read, candlesByTimeframe, btcHourly, now)
	if !ok {
		return
	}

	eval := aw.engine.EvaluateAsset(engine.AssetInput{
		Asset:        symbol,
		IsBTC:        symbol == btcSymbol,
		CurrentPrice: price,
		Timeframes:   analyses,
		Technical:    technical,
		Evidence:     read.Evidence,
		Context:      mctx,
	}, now)

	aw.recordEvaluation(eval, now, time.Since(started))

	if eval.Signal == nil {
		logger.Debug("no signal this tick",
			zap.String("symbol", symbol),
			zap.String("reason", eval.NoDecision),
		)
		return
	}

	aw.annotateReversal(ctx, eval.Signal)

	if aw.notifier != nil {
		if err := aw.notifier.SendSignal(eval.Signal); err != nil {
			logger.Error("failed to notify signal", zap.Error(err))
		}
	}
	if aw.signals != nil {
		if err := aw.signals.SaveSignal(ctx, eval.Signal); err != nil {
			logger.Error("failed to persist signal", zap.Error(err))
		}
	}
	if aw.chRepo != nil {
		if err := aw.chRepo.SaveSignals(ctx, []models.Signal{*eval.Signal}); err != nil {
			logger.Error("failed to archive signal", zap.Error(err))
		}
	}
}

// annotateReversal adds stored-history context when the new signal runs the
// opposite way to the asset's last persisted one. The cross-restart
// counterpart to the in-process reversal override.
func (aw *AssetSignalWorker) annotateReversal(ctx context.Context, sig *models.Signal) {
	if aw.signals == nil {
		return
	}

	prev, err := aw.signals.LastSignalForAsset(ctx, sig.Asset)
	if err != nil {
		logger.Warn("failed to load previous signal",
			zap.String("symbol", sig.Asset),
			zap.Error(err),
		)
		return
	}
	if prev == nil || prev.Direction == sig.Direction {
		return
	}

	sig.Reasons = append(sig.Reasons, fmt.Sprintf(
		"reverses the %s signal from %s",
		prev.Direction, prev.Timestamp.UTC().Format("2006-01-02 15:04 UTC")))
	logger.Info("🔁 direction reversed against stored history",
		zap.String("symbol", sig.Asset),
		zap.String("previous", string(prev.Direction)),
		zap.String("current", string(sig.Direction)),
	)
}

// assembleContext gathers the safety flags the guardrails and safety factor
// consume. A failed ticker fetch aborts the symbol; funding and open
// interest fall back to permissive values with a warning.
func (aw *AssetSignalWorker) assembleContext(
	ctx context.Context,
	symbol string,
	read engine.MarketRead,
	candlesByTimeframe map[string][]models.Candle,
	btcHourly []models.Candle,
	now time.Time,
) (models.MarketContext, float64, bool) {
	ticker, err := aw.exch.FetchTicker(ctx, symbol)
	if err != nil {
		logger.Warn("failed to fetch ticker",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return models.MarketContext{}, 0, false
	}

	funding, err := aw.exch.FetchFundingRate(ctx, symbol)
	if err != nil {
		logger.Warn("failed to fetch funding rate",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}

	openInterest, err := aw.exch.FetchOpenInterest(ctx, symbol)
	if err != nil {
		logger.Warn("failed to fetch open interest",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}

	correlation := 0.0
	if symbol != btcSymbol && len(btcHourly) > 0 {
		if hourly, ok := candlesByTimeframe["1h"]; ok {
			corr, err := risk.ReturnsCorrelation(hourly, btcHourly)
			if err != nil {
				logger.Debug("correlation unavailable",
					zap.String("symbol", symbol),
					zap.Error(err),
				)
			} else {
				correlation = corr
			}
		}
	}

	mctx := models.MarketContext{
		BTCCrash:         aw.crash.InCrash(now),
		LiquidityOK:      ticker.QuoteVolume >= aw.minQuoteVolume,
		USDTDomSpikingUp: read.USDTDomSpikingUp,
		BTCDomRising:     read.BTCDomRising,
		BTCDomFalling:    read.BTCDomFalling,
		USDTDomRising:    read.USDTDomRising,
		FundingRate:      funding,
		OpenInterestOK:   openInterest > 0,
		BTCCorrelation:   correlation,
	}

	return mctx, ticker.LastPrice, true
}

func (aw *AssetSignalWorker) recordEvaluation(eval engine.AssetEvaluation, now time.Time, took time.Duration) {
	if aw.buffer == nil {
		return
	}

	if err := aw.buffer.Add(&metrics.EvaluationMetric{
		Timestamp:      now,
		Asset:          eval.Asset,
		Direction:      string(eval.Direction),
		Score:          eval.Score.Total,
		Confidence:     string(eval.Score.Confidence),
		Emitted:        eval.Signal != nil,
		SuppressReason: eval.NoDecision,
		DurationMs:     int(took.Milliseconds()),
	}); err != nil {
		logger.Warn("failed to buffer evaluation metric",
			zap.String("asset", eval.Asset),
			zap.Error(err),
		)
	}
}
