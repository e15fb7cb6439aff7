package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/internal/adapters/exchange"
	"github.com/minhvo/marketpulse/internal/risk"
	"github.com/minhvo/marketpulse/pkg/logger"
)

// RealtimePriceWorker streams mark prices over WebSocket and feeds the
// crash monitor. Alerts once per crash transition.
type RealtimePriceWorker struct {
	ws       *exchange.BinanceWebSocket
	crash    *risk.CrashMonitor
	notifier Notifier

	crashSymbol string
	inCrash     bool
}

// NewRealtimePriceWorker creates new real-time price worker
func NewRealtimePriceWorker(
	ws *exchange.BinanceWebSocket,
	crash *risk.CrashMonitor,
	notifier Notifier,
	crashSymbol string,
) *RealtimePriceWorker {
	return &RealtimePriceWorker{
		ws:          ws,
		crash:       crash,
		notifier:    notifier,
		crashSymbol: crashSymbol,
	}
}

// Name returns worker name
func (rw *RealtimePriceWorker) Name() string {
	return "realtime_prices"
}

// Run starts listening to the price stream until the context ends
func (rw *RealtimePriceWorker) Run(ctx context.Context) error {
	logger.Info("starting real-time price worker (Binance WebSocket)")

	if err := rw.ws.Connect(); err != nil {
		return err
	}
	defer rw.ws.Close()

	for {
		select {
		case <-ctx.Done():
			logger.Info("real-time price worker stopping")
			return nil

		case update := <-rw.ws.Prices():
			if update.Symbol != rw.crashSymbol {
				continue
			}
			rw.crash.RecordPrice(update.Price, update.At)
			rw.checkCrashTransition(update.Price)

		case err := <-rw.ws.Errors():
			logger.Error("WebSocket error",
				zap.Error(err),
			)
			// WebSocket will auto-reconnect
		}
	}
}

func (rw *RealtimePriceWorker) checkCrashTransition(price float64) {
	crashing := rw.crash.InCrash(time.Now())

	if crashing && !rw.inCrash {
		logger.Warn("🚨 crash detected, vetoing new signals",
			zap.String("symbol", rw.crashSymbol),
			zap.Float64("price", price),
		)
		if rw.notifier != nil {
			_ = rw.notifier.SendAlert(fmt.Sprintf(
				"%s crash detected at %.2f, new signals vetoed until recovery",
				rw.crashSymbol, price))
		}
	}

	rw.inCrash = crashing
}
