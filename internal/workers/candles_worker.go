package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/internal/adapters/clickhouse"
	"github.com/minhvo/marketpulse/internal/adapters/exchange"
	"github.com/minhvo/marketpulse/pkg/logger"
)

// CandlesWorker periodically fetches and stores OHLCV candles to ClickHouse
type CandlesWorker struct {
	exch         *exchange.BinanceAdapter
	candleWriter *clickhouse.CandleBatchWriter
	symbols      []string
	timeframes   []string
}

// NewCandlesWorker creates new candles worker
func NewCandlesWorker(
	exch *exchange.BinanceAdapter,
	candleWriter *clickhouse.CandleBatchWriter,
	symbols []string,
	timeframes []string,
) *CandlesWorker {
	return &CandlesWorker{
		exch:         exch,
		candleWriter: candleWriter,
		symbols:      symbols,
		timeframes:   timeframes,
	}
}

// Name returns worker name
func (cw *CandlesWorker) Name() string {
	return "candles_poller"
}

// Run executes one iteration - fetches candles and stores to batch writer.
// Called periodically by pkg/worker.PeriodicWorker
func (cw *CandlesWorker) Run(ctx context.Context) error {
	logger.Debug("fetching candles from exchange...")

	startTime := time.Now()
	totalFetched := 0

	for _, symbol := range cw.symbols {
		for _, timeframe := range cw.timeframes {
			candles, err := cw.exch.FetchKlines(ctx, symbol, timeframe, 100)
			if err != nil {
				logger.Warn("failed to fetch candles",
					zap.String("symbol", symbol),
					zap.String("timeframe", timeframe),
					zap.Error(err),
				)
				continue
			}

			// Add all candles to batch buffer (will auto-flush)
			for _, candle := range candles {
				cw.candleWriter.AddCandle(candle)
			}

			totalFetched += len(candles)
		}
	}

	latency := time.Since(startTime)

	logger.Info("candles fetched and buffered",
		zap.Int("total", totalFetched),
		zap.Duration("latency", latency),
	)

	return nil
}
