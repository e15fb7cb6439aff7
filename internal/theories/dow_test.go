package theories

import (
	"testing"
	"time"

	"github.com/minhvo/marketpulse/pkg/models"
)

// candlesFromCloses builds candles where each close is the next open and
// high/low hug the body, so the close series drives the swing structure.
func candlesFromCloses(closes []float64, volumes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	prev := closes[0]
	for i, c := range closes {
		hi, lo := prev, c
		if c > prev {
			hi, lo = c, prev
		}
		vol := 100.0
		if volumes != nil {
			vol = volumes[i]
		}
		candles[i] = models.Candle{
			Timestamp: time.Now().Add(-time.Duration(len(closes)-i) * time.Hour),
			Open:      models.NewDecimal(prev),
			High:      models.NewDecimal(hi * 1.001),
			Low:       models.NewDecimal(lo * 0.999),
			Close:     models.NewDecimal(c),
			Volume:    models.NewDecimal(vol),
		}
		prev = c
	}
	return candles
}

// zigzag produces a trending series with a 4-step oscillation so swing
// highs and lows appear at regular intervals.
func zigzag(count int, start, slope float64) []float64 {
	offsets := []float64{0, 2, 4, 2}
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		out[i] = start + float64(i)*slope + offsets[i%4]
	}
	return out
}

func TestDowAnalyzer_TrendClassification(t *testing.T) {
	analyzer := NewDowAnalyzer()

	t.Run("higher highs and lows read bullish", func(t *testing.T) {
		a, err := analyzer.Analyze(candlesFromCloses(zigzag(40, 100, 1.0), nil))
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}

		if a.Trend != models.TrendBullish {
			t.Errorf("Expected bullish, got %s", a.Trend)
		}
		if a.SwingHighs < 2 || a.SwingLows < 2 {
			t.Errorf("Expected swing structure, got %d highs / %d lows", a.SwingHighs, a.SwingLows)
		}
		if a.TrendStrength <= 0 {
			t.Errorf("Bullish structure should carry strength, got %f", a.TrendStrength)
		}
	})

	t.Run("lower highs and lows read bearish", func(t *testing.T) {
		a, err := analyzer.Analyze(candlesFromCloses(zigzag(40, 200, -1.0), nil))
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}

		if a.Trend != models.TrendBearish {
			t.Errorf("Expected bearish, got %s", a.Trend)
		}
	})
}

func TestDowAnalyzer_BreakOfStructure(t *testing.T) {
	analyzer := NewDowAnalyzer()

	closes := zigzag(40, 100, 1.0)
	// Final close clears every prior swing high
	closes = append(closes, 200)

	a, err := analyzer.Analyze(candlesFromCloses(closes, nil))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !a.BOSUp {
		t.Error("Close above the last swing high must flag an upward break of structure")
	}
	if a.BOSDown {
		t.Error("BOS down must not trigger together with an upward break")
	}
}

func TestFindSwings_EqualValuePlateaus(t *testing.T) {
	t.Run("double top registers one swing high", func(t *testing.T) {
		values := []float64{1, 2, 5, 5, 2, 1, 0, 1, 2}
		swings := findSwings(values, true)
		if len(swings) != 1 {
			t.Fatalf("Expected one swing high for the plateau, got %d", len(swings))
		}
		if swings[0].value != 5 {
			t.Errorf("Expected swing at the plateau value 5, got %f", swings[0].value)
		}
	})

	t.Run("double bottom registers one swing low", func(t *testing.T) {
		values := []float64{9, 8, 3, 3, 8, 9, 10, 9, 8}
		swings := findSwings(values, false)
		if len(swings) != 1 {
			t.Fatalf("Expected one swing low for the plateau, got %d", len(swings))
		}
		if swings[0].value != 3 {
			t.Errorf("Expected swing at the plateau value 3, got %f", swings[0].value)
		}
	})

	t.Run("monotonic ramp has no swings", func(t *testing.T) {
		values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
		if swings := findSwings(values, true); len(swings) != 0 {
			t.Errorf("Ramp must not produce swing highs, got %d", len(swings))
		}
	})

	t.Run("flat series has no swings", func(t *testing.T) {
		values := []float64{5, 5, 5, 5, 5, 5, 5}
		if swings := findSwings(values, true); len(swings) != 0 {
			t.Errorf("Flat series must not produce swing highs, got %d", len(swings))
		}
	})
}

func TestDowAnalyzer_VolumeConfirmation(t *testing.T) {
	analyzer := NewDowAnalyzer()

	closes := zigzag(40, 100, 1.0)
	volumes := make([]float64, 40)
	for i := range volumes {
		volumes[i] = 100
		if i >= 35 {
			volumes[i] = 300
		}
	}

	a, err := analyzer.Analyze(candlesFromCloses(closes, volumes))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !a.VolumeConfirmation {
		t.Error("Expanding recent volume should confirm the trend")
	}
}

func TestDowAnalyzer_InsufficientData(t *testing.T) {
	analyzer := NewDowAnalyzer()

	_, err := analyzer.Analyze(candlesFromCloses(zigzag(10, 100, 1.0), nil))
	if err == nil {
		t.Error("Should error with fewer candles than the minimum")
	}
}
