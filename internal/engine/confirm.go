package engine

import (
	"fmt"
	"math"

	"github.com/minhvo/marketpulse/pkg/models"
)

// Hypothesis is the directional thesis confirmations are scored against
type Hypothesis string

const (
	HypothesisBullish Hypothesis = "bullish"
	HypothesisBearish Hypothesis = "bearish"
)

// Evidence is one metric's anomaly read offered to the confirmation scorer.
// FallingIsBullish encodes the domain mapping: for dominance metrics a
// falling value supports risk-on, for the sentiment index falling means fear.
type Evidence struct {
	Name             string
	Anomaly          Anomaly
	FallingIsBullish bool
}

// ConfirmationResult carries the weighted agreement score and the evidence
// tags that produced it, in input order.
type ConfirmationResult struct {
	Score         float64
	Confirmations []string
}

// ScoreConfirmations counts how many independent metric anomalies agree with
// the hypothesis, one point each. A supplied technical score adds up to one
// fractional point, full credit at |score| >= 0.5.
func ScoreConfirmations(h Hypothesis, evidence []Evidence, technical *models.TechnicalScore) ConfirmationResult {
	var res ConfirmationResult

	for _, ev := range evidence {
		if !ev.Anomaly.Qualifies() {
			continue
		}
		falling := !ev.Anomaly.Rising
		supportsBullish := falling == ev.FallingIsBullish

		if (h == HypothesisBullish) == supportsBullish {
			res.Score++
			dir := "UP"
			if falling {
				dir = "DOWN"
			}
			res.Confirmations = append(res.Confirmations, fmt.Sprintf("%s_%s", ev.Name, dir))
		}
	}

	if technical != nil {
		techBullish := technical.Score > 0
		if (h == HypothesisBullish) == techBullish && technical.Score != 0 {
			credit := math.Min(math.Abs(technical.Score)/0.5, 1.0)
			res.Score += credit
			if techBullish {
				res.Confirmations = append(res.Confirmations, "TECH_BULLISH")
			} else {
				res.Confirmations = append(res.Confirmations, "TECH_BEARISH")
			}
		}
	}

	return res
}

// RequiredConfirmationScore returns the minimum qualifying score. The bar is
// lower when an independent technical score participates.
func RequiredConfirmationScore(hasTechnical bool, withTech, withoutTech float64) float64 {
	if hasTechnical {
		return withTech
	}
	return withoutTech
}
