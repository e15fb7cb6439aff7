package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/internal/adapters/clickhouse"
	"github.com/minhvo/marketpulse/internal/adapters/config"
	"github.com/minhvo/marketpulse/internal/adapters/database"
	"github.com/minhvo/marketpulse/internal/adapters/exchange"
	"github.com/minhvo/marketpulse/internal/adapters/market"
	metricsadapter "github.com/minhvo/marketpulse/internal/adapters/metrics"
	redisAdapter "github.com/minhvo/marketpulse/internal/adapters/redis"
	"github.com/minhvo/marketpulse/internal/adapters/telegram"
	"github.com/minhvo/marketpulse/internal/engine"
	"github.com/minhvo/marketpulse/internal/health"
	"github.com/minhvo/marketpulse/internal/indicators"
	"github.com/minhvo/marketpulse/internal/risk"
	"github.com/minhvo/marketpulse/internal/workers"
	"github.com/minhvo/marketpulse/pkg/logger"
	"github.com/minhvo/marketpulse/pkg/metrics"
	"github.com/minhvo/marketpulse/pkg/worker"
)

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Run application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration and initialize logger
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("MarketPulse signal engine starting...",
		zap.String("watchlist", strings.Join(cfg.Engine.Watchlist, ",")),
	)

	// Initialize core infrastructure
	db, redisClient, err := initInfrastructure(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer redisClient.Close()

	// Initialize ClickHouse connection (optional, analytics only)
	chDB, err := initClickHouse(cfg)
	if err != nil {
		logger.Warn("ClickHouse not available, analytics disabled", zap.Error(err))
		chDB = nil
	}
	if chDB != nil {
		defer chDB.Close()
	}

	// Decision engine
	eng := engine.New(engine.Params{
		MinSamples:           cfg.Engine.MinSamples,
		Window:               cfg.Engine.WindowDuration,
		DominanceThreshold:   cfg.Anomaly.DominanceThreshold,
		StablecoinThreshold:  cfg.Anomaly.StablecoinThreshold,
		SentimentThreshold:   cfg.Anomaly.SentimentThreshold,
		MinConfirmations:     cfg.Anomaly.MinConfirmations,
		MinConfirmationsTech: cfg.Anomaly.MinConfirmationsTech,
		Cooldown:             cfg.Emission.Cooldown,
		ValueChangeFactor:    cfg.Emission.ValueChangeFactor,
		MaxRecordAge:         cfg.Engine.MaxSampleAge,
		ActiveWindow:         cfg.Emission.Cooldown,
		CorrelationThreshold: cfg.Safety.CorrelationThreshold,
		EntryPercent:         cfg.Engine.EntryPercent,
		StopLossPercent:      cfg.Engine.StopLossPercent,
		MaxFundingRate:       cfg.Safety.MaxFundingRate,
	})

	// Market data adapters
	cmc := market.NewCoinMarketCapProvider(cfg.Market.CMCBaseURL, cfg.Market.CMCAPIKey, cfg.Market.RequestTimeout)
	fng := market.NewFearGreedProvider(cfg.Market.FearGreedBaseURL, cfg.Market.RequestTimeout)
	history := market.NewHistoryStore(eng.MaxLookback() + cfg.Engine.WindowDuration)
	exch := exchange.NewBinanceAdapter(cfg.Exchange.RESTBaseURL, cfg.Exchange.RequestTimeout)
	analyzer := indicators.NewAnalyzer()
	crashMonitor := risk.NewCrashMonitor(cfg.Safety.CrashDropPercent, cfg.Safety.CrashWindow)

	// ClickHouse analytics plumbing
	var chRepo *clickhouse.Repository
	var candleWriter *clickhouse.CandleBatchWriter
	var buffer metrics.Buffer
	if chDB != nil {
		chRepo = clickhouse.NewRepository(chDB.DB())
		candleWriter = clickhouse.NewCandleBatchWriter(chRepo, 1000, 10*time.Second)
		buffer = metrics.NewBufferedMetrics(metrics.BufferConfig{
			Writer:        metricsadapter.NewWriter(chRepo),
			BatchSize:     100,
			FlushInterval: 10 * time.Second,
		})
	}

	notifier := initTelegramNotifier(cfg)
	signalRepo := database.NewSignalRepository(db.DB())
	logStoredSignals(ctx, signalRepo)

	// Background workers
	group := startBackgroundWorkers(ctx, cfg, eng, exch, analyzer, cmc, fng,
		history, crashMonitor, redisClient, notifier, signalRepo, chRepo, candleWriter, buffer)

	// Health server for K8s probes
	healthServer := startHealthServer(cfg, db, redisClient)

	// Wait for shutdown signal
	<-ctx.Done()

	return performGracefulShutdown(cfg, group, healthServer, candleWriter, buffer)
}

// initConfig loads configuration and initializes logger
func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// initInfrastructure initializes database and Redis connections
func initInfrastructure(cfg *config.Config) (*database.DB, *redisAdapter.Client, error) {
	db, err := initDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	redisClient, err := redisAdapter.New(&cfg.Redis)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return db, redisClient, nil
}

// initDatabase initializes database connection with sqlx and runs migrations
func initDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrationsPath := "./migrations"
	if err := database.RunMigrations(db.Conn(), migrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// initClickHouse initializes ClickHouse connection
func initClickHouse(cfg *config.Config) (*database.DB, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, fmt.Errorf("ClickHouse disabled in config")
	}

	ch, err := database.NewClickHouse(cfg.ClickHouse.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test connection
	if err := ch.DB().Ping(); err != nil {
		ch.Close()
		return nil, fmt.Errorf("ClickHouse ping failed: %w", err)
	}

	logger.Info("ClickHouse connection established",
		zap.String("host", cfg.ClickHouse.Host),
		zap.String("database", cfg.ClickHouse.Database),
	)

	return ch, nil
}

// initTelegramNotifier initializes Telegram notifier
func initTelegramNotifier(cfg *config.Config) workers.Notifier {
	if !cfg.Telegram.Enabled {
		return nil
	}

	notifier, err := telegram.NewNotifier(&cfg.Telegram)
	if err != nil {
		logger.Warn("failed to initialize telegram notifier", zap.Error(err))
		return nil
	}

	logger.Info("📱 Telegram notifier initialized")
	return notifier
}

// logStoredSignals surfaces the last few persisted signals on startup so a
// restart shows where the previous process left off.
func logStoredSignals(ctx context.Context, repo *database.SignalRepository) {
	recent, err := repo.RecentSignals(ctx, 5)
	if err != nil {
		logger.Warn("failed to load stored signals", zap.Error(err))
		return
	}
	if len(recent) == 0 {
		logger.Info("no stored signals, starting fresh")
		return
	}

	for _, sig := range recent {
		logger.Info("stored signal",
			zap.String("symbol", sig.Asset),
			zap.String("direction", string(sig.Direction)),
			zap.Float64("score", sig.Score),
			zap.Time("emitted_at", sig.Timestamp),
		)
	}
}

// startBackgroundWorkers wires and starts all background workers
func startBackgroundWorkers(
	ctx context.Context,
	cfg *config.Config,
	eng *engine.Engine,
	exch *exchange.BinanceAdapter,
	analyzer *indicators.Analyzer,
	cmc *market.CoinMarketCapProvider,
	fng *market.FearGreedProvider,
	history *market.HistoryStore,
	crashMonitor *risk.CrashMonitor,
	redisClient *redisAdapter.Client,
	notifier workers.Notifier,
	signalRepo *database.SignalRepository,
	chRepo *clickhouse.Repository,
	candleWriter *clickhouse.CandleBatchWriter,
	buffer metrics.Buffer,
) *worker.WorkerGroup {
	lockFactory := redisClient.GetLockFactory()

	group := worker.NewWorkerGroup(ctx)
	group.Add(workers.NewSnapshotWorker(cmc, fng, history, buffer), cfg.Workers.SnapshotInterval)
	group.Add(workers.NewMarketSignalWorker(eng, history, lockFactory, notifier, signalRepo, chRepo, buffer),
		cfg.Workers.MarketEvalInterval)
	group.Add(workers.NewAssetSignalWorker(eng, exch, analyzer, history, crashMonitor, lockFactory,
		notifier, signalRepo, chRepo, buffer, cfg.Engine.Watchlist, cfg.Safety.MinQuoteVolume),
		cfg.Workers.AssetEvalInterval)

	if candleWriter != nil {
		group.Add(workers.NewCandlesWorker(exch, candleWriter, cfg.Engine.Watchlist,
			[]string{"1h", "4h", "1d"}), cfg.Workers.CandlesInterval)
	}

	group.Start()

	// Real-time price stream feeds the crash monitor. Run blocks on the
	// socket until the context ends; the periodic wrapper retries the
	// connection when it drops.
	ws := exchange.NewBinanceWebSocket(cfg.Exchange.WSBaseURL, []string{"BTCUSDT"})
	priceWorker := workers.NewRealtimePriceWorker(ws, crashMonitor, notifier, "BTCUSDT")
	worker.RunBackground(ctx, priceWorker, 30*time.Second)

	logger.Info("background workers started")
	return group
}

// startHealthServer initializes and starts health check server for K8s probes
func startHealthServer(cfg *config.Config, db *database.DB, redisClient *redisAdapter.Client) *health.Server {
	healthServer := health.NewServer(cfg.Health.Port, db, redisClient)

	go func() {
		if err := healthServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", zap.Error(err))
		}
	}()

	logger.Info("🚀 signal engine ready",
		zap.String("health_port", cfg.Health.Port),
	)

	healthServer.SetReady(true)
	return healthServer
}

// performGracefulShutdown stops everything in dependency order
func performGracefulShutdown(
	cfg *config.Config,
	group *worker.WorkerGroup,
	healthServer *health.Server,
	candleWriter *clickhouse.CandleBatchWriter,
	buffer metrics.Buffer,
) error {
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Workers.ShutdownTimeout)
	defer cancel()

	healthServer.SetReady(false)
	group.Stop(cfg.Workers.ShutdownTimeout)

	if buffer != nil {
		if err := buffer.Close(shutdownCtx); err != nil {
			logger.Error("failed to close metrics buffer", zap.Error(err))
		}
	}
	if candleWriter != nil {
		if err := candleWriter.Close(); err != nil {
			logger.Error("failed to close candle writer", zap.Error(err))
		}
	}

	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop health server", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}
