package indicators

import (
	"os"
	"testing"
	"time"

	"github.com/minhvo/marketpulse/pkg/logger"
	"github.com/minhvo/marketpulse/pkg/models"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", ""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// generateTestCandles builds a trending candle series
func generateTestCandles(count int, startPrice, trend float64) []models.Candle {
	candles := make([]models.Candle, count)
	price := startPrice

	for i := 0; i < count; i++ {
		open := price
		close := price * (1 + trend)
		high, low := open, close
		if close > open {
			high, low = close, open
		}

		candles[i] = models.Candle{
			Timestamp: time.Now().Add(-time.Duration(count-i) * time.Hour),
			Open:      models.NewDecimal(open),
			High:      models.NewDecimal(high * 1.002),
			Low:       models.NewDecimal(low * 0.998),
			Close:     models.NewDecimal(close),
			Volume:    models.NewDecimal(100 + float64(i)*2),
		}

		price = close
	}

	return candles
}

func TestCalculator_Calculate(t *testing.T) {
	calc := NewCalculator()

	candles := generateTestCandles(60, 40000, 0.01)

	snap, err := calc.Calculate(candles)
	if err != nil {
		t.Fatalf("Failed to calculate indicators: %v", err)
	}

	if snap.RSI < 0 || snap.RSI > 100 {
		t.Errorf("RSI should be between 0-100, got %.2f", snap.RSI)
	}

	if snap.BBUpper <= snap.BBMiddle {
		t.Error("Upper band should be above middle")
	}
	if snap.BBMiddle <= snap.BBLower {
		t.Error("Middle band should be above lower")
	}

	// Steady uptrend: short EMA leads the long one
	if snap.EMA20 <= snap.EMA50 {
		t.Errorf("EMA20 should lead EMA50 in an uptrend, got %.2f / %.2f", snap.EMA20, snap.EMA50)
	}

	if snap.ATR <= 0 {
		t.Errorf("ATR should be positive, got %.2f", snap.ATR)
	}
	if snap.VolumeRatio <= 0 {
		t.Errorf("Volume ratio should be positive, got %.2f", snap.VolumeRatio)
	}
}

func TestCalculator_InsufficientData(t *testing.T) {
	calc := NewCalculator()

	_, err := calc.Calculate(generateTestCandles(10, 40000, 0.01))
	if err == nil {
		t.Error("Should error with insufficient data")
	}
}

func TestAnalyzer_AnalyzeTimeframe(t *testing.T) {
	analyzer := NewAnalyzer()

	tf, err := analyzer.AnalyzeTimeframe("4h", generateTestCandles(60, 40000, 0.01))
	if err != nil {
		t.Fatalf("AnalyzeTimeframe failed: %v", err)
	}

	if tf.Timeframe != "4h" {
		t.Errorf("Expected timeframe 4h, got %s", tf.Timeframe)
	}
	if tf.CurrentPrice <= 40000 {
		t.Errorf("Uptrend close should exceed start, got %.2f", tf.CurrentPrice)
	}
	if tf.Wyckoff == nil {
		t.Error("Wyckoff read should be present with 60 candles")
	}
}

func TestAnalyzer_AnalyzeAll_SkipsThinSeries(t *testing.T) {
	analyzer := NewAnalyzer()

	out := analyzer.AnalyzeAll(map[string][]models.Candle{
		"4h": generateTestCandles(60, 40000, 0.01),
		"1w": generateTestCandles(10, 40000, 0.01),
	})

	if _, ok := out["4h"]; !ok {
		t.Error("4h should be analyzed")
	}
	if _, ok := out["1w"]; ok {
		t.Error("Thin 1w series should be skipped, not zero-filled")
	}
}
