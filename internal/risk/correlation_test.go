package risk

import (
	"math"
	"testing"
	"time"

	"github.com/minhvo/marketpulse/pkg/models"
)

func candlesWithCloses(closes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: time.Now().Add(-time.Duration(len(closes)-i) * time.Hour),
			Close:     models.NewDecimal(c),
		}
	}
	return candles
}

func TestCorrelation(t *testing.T) {
	t.Run("perfect positive", func(t *testing.T) {
		a := []float64{1, 2, 3, 4, 5}
		b := []float64{2, 4, 6, 8, 10}

		if got := Correlation(a, b); math.Abs(got-1.0) > 1e-9 {
			t.Errorf("Expected 1.0, got %f", got)
		}
	})

	t.Run("perfect negative", func(t *testing.T) {
		a := []float64{1, 2, 3, 4, 5}
		b := []float64{5, 4, 3, 2, 1}

		if got := Correlation(a, b); math.Abs(got+1.0) > 1e-9 {
			t.Errorf("Expected -1.0, got %f", got)
		}
	})

	t.Run("constant series degenerate", func(t *testing.T) {
		a := []float64{1, 2, 3}
		b := []float64{7, 7, 7}

		if got := Correlation(a, b); got != 0 {
			t.Errorf("Constant series must correlate 0, got %f", got)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		if got := Correlation([]float64{1, 2}, []float64{1}); got != 0 {
			t.Errorf("Mismatched lengths must return 0, got %f", got)
		}
	})
}

func TestReturnsCorrelation(t *testing.T) {
	t.Run("lockstep assets", func(t *testing.T) {
		btc := candlesWithCloses([]float64{100, 102, 101, 104, 106, 105})
		eth := candlesWithCloses([]float64{10, 10.2, 10.1, 10.4, 10.6, 10.5})

		got, err := ReturnsCorrelation(btc, eth)
		if err != nil {
			t.Fatalf("ReturnsCorrelation failed: %v", err)
		}
		if got < 0.95 {
			t.Errorf("Lockstep returns should correlate near 1, got %f", got)
		}
	})

	t.Run("insufficient candles", func(t *testing.T) {
		if _, err := ReturnsCorrelation(candlesWithCloses([]float64{1, 2}), candlesWithCloses([]float64{1, 2})); err == nil {
			t.Error("Should error with fewer than 3 candles")
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		if _, err := ReturnsCorrelation(candlesWithCloses([]float64{1, 2, 3}), candlesWithCloses([]float64{1, 2})); err == nil {
			t.Error("Should error on mismatched series")
		}
	})
}
