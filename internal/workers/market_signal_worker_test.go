package workers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/minhvo/marketpulse/internal/adapters/market"
	"github.com/minhvo/marketpulse/internal/adapters/redis"
	"github.com/minhvo/marketpulse/internal/engine"
	"github.com/minhvo/marketpulse/pkg/logger"
	"github.com/minhvo/marketpulse/pkg/metrics"
	"github.com/minhvo/marketpulse/pkg/models"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", ""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// recordingNotifier captures everything sent to it
type recordingNotifier struct {
	signals       []*models.Signal
	marketSignals []*models.MarketSignal
	alerts        []string
}

func (n *recordingNotifier) SendSignal(sig *models.Signal) error {
	n.signals = append(n.signals, sig)
	return nil
}

func (n *recordingNotifier) SendMarketSignal(sig *models.MarketSignal) error {
	n.marketSignals = append(n.marketSignals, sig)
	return nil
}

func (n *recordingNotifier) SendAlert(text string) error {
	n.alerts = append(n.alerts, text)
	return nil
}

// captureBuffer records added metrics without flushing anywhere
type captureBuffer struct {
	added []metrics.Metric
}

func (b *captureBuffer) Add(m metrics.Metric) error {
	b.added = append(b.added, m)
	return nil
}

func (b *captureBuffer) Flush(ctx context.Context) error { return nil }
func (b *captureBuffer) Size() int                       { return len(b.added) }
func (b *captureBuffer) Close(ctx context.Context) error { return nil }

func testEngine() *engine.Engine {
	return engine.New(engine.Params{
		MinSamples:           20,
		DominanceThreshold:   1.5,
		StablecoinThreshold:  1.2,
		SentimentThreshold:   2.0,
		MinConfirmations:     2.0,
		MinConfirmationsTech: 1.5,
		Cooldown:             6 * time.Hour,
		ValueChangeFactor:    0.4,
		ActiveWindow:         4 * time.Hour,
		CorrelationThreshold: 0.85,
		EntryPercent:         0.5,
		StopLossPercent:      2.0,
		MaxFundingRate:       0.001,
	})
}

// seedDominanceSpike fills the store with a slowly rising dominance series
// and a sharp jump at the end.
func seedDominanceSpike(history *market.HistoryStore, now time.Time) {
	base := now.Add(-24 * time.Hour).Unix()
	for i := 0; i < 288; i++ {
		history.Append(models.MetricBTCDominance, models.MetricSample{
			Timestamp: base + int64(i*300),
			Value:     54.0 + float64(i)*0.003,
		})
	}
	history.Append(models.MetricBTCDominance, models.MetricSample{
		Timestamp: now.Unix(),
		Value:     57.0,
	})
}

func TestMarketSignalWorker_EmitsOnDominanceSpike(t *testing.T) {
	history := market.NewHistoryStore(25 * time.Hour)
	seedDominanceSpike(history, time.Now())

	notifier := &recordingNotifier{}
	buffer := &captureBuffer{}
	w := NewMarketSignalWorker(testEngine(), history, redis.NewMockLockFactory(),
		notifier, nil, nil, buffer)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(notifier.marketSignals) != 1 {
		t.Fatalf("Expected one market signal, got %d", len(notifier.marketSignals))
	}
	sig := notifier.marketSignals[0]
	if sig.Type != "BTC_DOM_SPIKE_UP" {
		t.Errorf("Expected BTC_DOM_SPIKE_UP, got %s", sig.Type)
	}
	if sig.Action != models.ActionLongBTCShortAlt {
		t.Errorf("Expected LONG_BTC_SHORT_ALT, got %s", sig.Action)
	}

	if len(buffer.added) == 0 {
		t.Error("Expected anomaly metrics buffered for analytics")
	}
	anomaly, ok := buffer.added[0].(*metrics.AnomalyMetric)
	if !ok {
		t.Fatalf("Expected AnomalyMetric, got %T", buffer.added[0])
	}
	if anomaly.Metric != string(models.MetricBTCDominance) {
		t.Errorf("Expected btc_dominance anomaly, got %s", anomaly.Metric)
	}
	if anomaly.Direction != "rising" {
		t.Errorf("Expected rising direction, got %s", anomaly.Direction)
	}
}

func TestMarketSignalWorker_CooldownSuppressesRepeat(t *testing.T) {
	now := time.Now()
	history := market.NewHistoryStore(25 * time.Hour)
	seedDominanceSpike(history, now)

	notifier := &recordingNotifier{}
	w := NewMarketSignalWorker(testEngine(), history, redis.NewMockLockFactory(),
		notifier, nil, nil, nil)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if len(notifier.marketSignals) != 1 {
		t.Fatalf("First run should emit, got %d signals", len(notifier.marketSignals))
	}

	// Same condition five minutes later stays inside the cooldown
	history.Append(models.MetricBTCDominance, models.MetricSample{
		Timestamp: now.Add(5 * time.Minute).Unix(),
		Value:     57.0,
	})
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if len(notifier.marketSignals) != 1 {
		t.Errorf("Repeat condition should be suppressed, got %d total signals", len(notifier.marketSignals))
	}
}

func TestMarketSignalWorker_ThinHistoryStaysQuiet(t *testing.T) {
	history := market.NewHistoryStore(25 * time.Hour)
	now := time.Now().Unix()
	for i := 0; i < 5; i++ {
		history.Append(models.MetricBTCDominance, models.MetricSample{
			Timestamp: now - int64((5-i)*300),
			Value:     54.0 + float64(i),
		})
	}

	notifier := &recordingNotifier{}
	w := NewMarketSignalWorker(testEngine(), history, redis.NewMockLockFactory(),
		notifier, nil, nil, nil)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(notifier.marketSignals) != 0 {
		t.Errorf("Thin history must not signal, got %d", len(notifier.marketSignals))
	}
}
