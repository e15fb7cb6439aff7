package theories

import (
	"testing"
	"time"

	"github.com/minhvo/marketpulse/pkg/models"
)

func rangeCandle(open, high, low, close, volume float64, age int) models.Candle {
	return models.Candle{
		Timestamp: time.Now().Add(-time.Duration(age) * time.Hour),
		Open:      models.NewDecimal(open),
		High:      models.NewDecimal(high),
		Low:       models.NewDecimal(low),
		Close:     models.NewDecimal(close),
		Volume:    models.NewDecimal(volume),
	}
}

// flatRange builds a sideways market between 95 and 105
func flatRange(count int) []models.Candle {
	candles := make([]models.Candle, count)
	for i := 0; i < count; i++ {
		close := 100.0
		if i%2 == 0 {
			close = 99.0
		}
		candles[i] = rangeCandle(100, 105, 95, close, 100, count-i)
	}
	return candles
}

func TestWyckoffAnalyzer_Spring(t *testing.T) {
	analyzer := NewWyckoffAnalyzer()

	candles := flatRange(40)
	// Pierce support at 95, close back inside the range on heavy volume
	candles[39] = rangeCandle(99, 100, 93, 99.5, 250, 0)

	a, err := analyzer.Analyze(candles)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !a.Spring {
		t.Error("Support pierce with recovery on volume should read as a spring")
	}
	if a.Phase != models.PhaseAccumulation {
		t.Errorf("Spring should classify as accumulation, got %s", a.Phase)
	}
	if a.VolumeRatio < 1.2 {
		t.Errorf("Expected elevated volume ratio, got %f", a.VolumeRatio)
	}
}

func TestWyckoffAnalyzer_Upthrust(t *testing.T) {
	analyzer := NewWyckoffAnalyzer()

	candles := flatRange(40)
	// Pierce resistance at 105, close back inside on heavy volume
	candles[39] = rangeCandle(100, 108, 99, 100.5, 250, 0)

	a, err := analyzer.Analyze(candles)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !a.Upthrust {
		t.Error("Resistance pierce with rejection on volume should read as an upthrust")
	}
	if a.Phase != models.PhaseDistribution {
		t.Errorf("Upthrust should classify as distribution, got %s", a.Phase)
	}
}

func TestWyckoffAnalyzer_PricePosition(t *testing.T) {
	analyzer := NewWyckoffAnalyzer()

	t.Run("close near range low", func(t *testing.T) {
		candles := flatRange(40)
		candles[39] = rangeCandle(99, 99.5, 95.5, 96, 100, 0)

		a, err := analyzer.Analyze(candles)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}

		if a.PricePosition > 0.3 {
			t.Errorf("Close at 96 in a 95-105 range should sit low, got %f", a.PricePosition)
		}
	})

	t.Run("close near range high", func(t *testing.T) {
		candles := flatRange(40)
		candles[39] = rangeCandle(100, 104.5, 100, 104, 100, 0)

		a, err := analyzer.Analyze(candles)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}

		if a.PricePosition < 0.7 {
			t.Errorf("Close at 104 in a 95-105 range should sit high, got %f", a.PricePosition)
		}
	})
}

func TestWyckoffAnalyzer_SignOfStrength(t *testing.T) {
	analyzer := NewWyckoffAnalyzer()

	candles := flatRange(40)
	// Three-candle thrust up over 2% on expanding volume
	candles[37] = rangeCandle(99, 100, 98.5, 99, 120, 2)
	candles[38] = rangeCandle(99, 101, 99, 100.5, 150, 1)
	candles[39] = rangeCandle(100.5, 102, 100, 101.5, 200, 0)

	a, err := analyzer.Analyze(candles)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !a.SOS {
		t.Error("A >2% thrust on expanding volume should flag sign of strength")
	}
	if a.SOW {
		t.Error("SOW must not flag on an up thrust")
	}
}

func TestWyckoffAnalyzer_InsufficientData(t *testing.T) {
	analyzer := NewWyckoffAnalyzer()

	_, err := analyzer.Analyze(flatRange(20))
	if err == nil {
		t.Error("Should error with fewer candles than the minimum")
	}
}
