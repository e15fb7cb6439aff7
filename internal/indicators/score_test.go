package indicators

import (
	"testing"

	"github.com/minhvo/marketpulse/pkg/models"
)

func TestTechnicalScore_BullishAlignment(t *testing.T) {
	snap := &Snapshot{
		RSI:           28,
		MACDHistogram: 1.5,
		Close:         94,
		Open:          92,
		BBLower:       95,
		BBUpper:       105,
		VolumeRatio:   2.0,
	}
	dow := &models.DowAnalysis{Trend: models.TrendBullish}
	wyckoff := &models.WyckoffAnalysis{Spring: true}

	score := TechnicalScore(snap, dow, wyckoff)

	if score.Score != 1.0 {
		t.Errorf("Fully aligned bullish inputs should score 1.0, got %f", score.Score)
	}
	for name, sub := range score.Details {
		if sub != 1.0 {
			t.Errorf("Component %s should be fully bullish, got %f", name, sub)
		}
	}
}

func TestTechnicalScore_BearishAlignment(t *testing.T) {
	snap := &Snapshot{
		RSI:           75,
		MACDHistogram: -1.5,
		Close:         106,
		Open:          108,
		BBLower:       95,
		BBUpper:       105,
		VolumeRatio:   2.0,
	}
	dow := &models.DowAnalysis{Trend: models.TrendBearish}
	wyckoff := &models.WyckoffAnalysis{Upthrust: true}

	score := TechnicalScore(snap, dow, wyckoff)

	if score.Score != -1.0 {
		t.Errorf("Fully aligned bearish inputs should score -1.0, got %f", score.Score)
	}
}

func TestTechnicalScore_NeutralInputs(t *testing.T) {
	snap := &Snapshot{
		RSI:         50,
		Close:       100,
		Open:        100,
		BBLower:     95,
		BBUpper:     105,
		VolumeRatio: 1.0,
	}

	score := TechnicalScore(snap, nil, nil)

	if score.Score != 0 {
		t.Errorf("Neutral inputs should score 0, got %f", score.Score)
	}
	if score.Details["dow"] != 0 || score.Details["wyckoff"] != 0 {
		t.Error("Missing structure reads must contribute nothing")
	}
}

func TestTechnicalScore_RSIRamp(t *testing.T) {
	if got := rsiScore(40); got != 0.5 {
		t.Errorf("RSI 40 should score 0.5, got %f", got)
	}
	if got := rsiScore(60); got != -0.5 {
		t.Errorf("RSI 60 should score -0.5, got %f", got)
	}
	if got := rsiScore(30); got != 1 {
		t.Errorf("RSI 30 should score 1, got %f", got)
	}
}

func TestTechnicalScore_VolumeNeedsSpike(t *testing.T) {
	snap := &Snapshot{Close: 102, Open: 100, VolumeRatio: 1.2, BBLower: 95, BBUpper: 105, RSI: 50}

	score := TechnicalScore(snap, nil, nil)

	if score.Details["volume"] != 0 {
		t.Errorf("Volume below spike ratio must not contribute, got %f", score.Details["volume"])
	}
}
