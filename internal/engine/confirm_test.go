package engine

import (
	"math"
	"testing"

	"github.com/minhvo/marketpulse/pkg/models"
)

func fallingAnomaly(severity Severity) Anomaly {
	return Anomaly{ZScore: -1.8, Severity: severity, Rising: false}
}

func risingAnomaly(severity Severity) Anomaly {
	return Anomaly{ZScore: 1.8, Severity: severity, Rising: true}
}

func TestScoreConfirmations_MetricAgreement(t *testing.T) {
	evidence := []Evidence{
		{Name: "BTC_DOM", Anomaly: fallingAnomaly(SeverityHigh), FallingIsBullish: true},
		{Name: "USDT_DOM", Anomaly: fallingAnomaly(SeverityMedium), FallingIsBullish: true},
		{Name: "FEAR_GREED", Anomaly: risingAnomaly(SeverityHigh), FallingIsBullish: true},
	}

	res := ScoreConfirmations(HypothesisBullish, evidence, nil)

	if res.Score != 2 {
		t.Errorf("Expected 2 points from two agreeing metrics, got %f", res.Score)
	}
	if len(res.Confirmations) != 2 {
		t.Fatalf("Expected 2 confirmation tags, got %v", res.Confirmations)
	}
	if res.Confirmations[0] != "BTC_DOM_DOWN" || res.Confirmations[1] != "USDT_DOM_DOWN" {
		t.Errorf("Unexpected tags: %v", res.Confirmations)
	}
}

func TestScoreConfirmations_NonQualifyingExcluded(t *testing.T) {
	evidence := []Evidence{
		{Name: "BTC_DOM", Anomaly: fallingAnomaly(SeverityLow), FallingIsBullish: true},
		{Name: "USDT_DOM", Anomaly: Anomaly{Skipped: true, Severity: SeverityNone}, FallingIsBullish: true},
	}

	res := ScoreConfirmations(HypothesisBullish, evidence, nil)

	if res.Score != 0 {
		t.Errorf("Low and skipped anomalies must contribute nothing, got %f", res.Score)
	}
}

func TestScoreConfirmations_TechnicalScore(t *testing.T) {
	t.Run("full credit at 0.5", func(t *testing.T) {
		tech := &models.TechnicalScore{Score: 0.6}
		res := ScoreConfirmations(HypothesisBullish, nil, tech)

		if res.Score != 1 {
			t.Errorf("Expected full point for |score|>=0.5, got %f", res.Score)
		}
		if len(res.Confirmations) != 1 || res.Confirmations[0] != "TECH_BULLISH" {
			t.Errorf("Unexpected tags: %v", res.Confirmations)
		}
	})

	t.Run("scaled below 0.5", func(t *testing.T) {
		tech := &models.TechnicalScore{Score: -0.25}
		res := ScoreConfirmations(HypothesisBearish, nil, tech)

		if math.Abs(res.Score-0.5) > 1e-9 {
			t.Errorf("Expected 0.5 credit for |score|=0.25, got %f", res.Score)
		}
	})

	t.Run("opposing technical score ignored", func(t *testing.T) {
		tech := &models.TechnicalScore{Score: -0.8}
		res := ScoreConfirmations(HypothesisBullish, nil, tech)

		if res.Score != 0 {
			t.Errorf("Bearish technical score must not confirm bullish hypothesis, got %f", res.Score)
		}
	})
}

func TestRequiredConfirmationScore(t *testing.T) {
	if got := RequiredConfirmationScore(false, 1.5, 2.0); got != 2.0 {
		t.Errorf("Expected bar 2.0 without technical input, got %f", got)
	}
	if got := RequiredConfirmationScore(true, 1.5, 2.0); got != 1.5 {
		t.Errorf("Expected lowered bar 1.5 with technical input, got %f", got)
	}
}
