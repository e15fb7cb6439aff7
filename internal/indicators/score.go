package indicators

import (
	"math"

	"github.com/minhvo/marketpulse/pkg/models"
)

// Technical score weights. They sum to 1 so the composite stays in [-1, 1].
const (
	weightRSI       = 0.20
	weightMACD      = 0.25
	weightBollinger = 0.15
	weightVolume    = 0.15
	weightWyckoff   = 0.15
	weightDow       = 0.10
)

const volumeSpikeRatio = 1.5

// TechnicalScore blends the indicator snapshot with Dow and Wyckoff reads
// into one [-1,1] bias, positive bullish. The detail map carries every
// component's unweighted sub-score.
func TechnicalScore(snap *Snapshot, dow *models.DowAnalysis, wyckoff *models.WyckoffAnalysis) models.TechnicalScore {
	details := map[string]float64{
		"rsi":       rsiScore(snap.RSI),
		"macd":      macdScore(snap.MACDHistogram),
		"bollinger": bollingerScore(snap),
		"volume":    volumeScore(snap),
		"wyckoff":   wyckoffScore(wyckoff),
		"dow":       dowScore(dow),
	}

	score := details["rsi"]*weightRSI +
		details["macd"]*weightMACD +
		details["bollinger"]*weightBollinger +
		details["volume"]*weightVolume +
		details["wyckoff"]*weightWyckoff +
		details["dow"]*weightDow

	return models.TechnicalScore{
		Score:   math.Max(-1, math.Min(1, score)),
		Details: details,
	}
}

// rsiScore reads oversold as bullish, overbought as bearish, with a linear
// ramp between.
func rsiScore(rsi float64) float64 {
	switch {
	case rsi <= 0:
		return 0
	case rsi <= 30:
		return 1
	case rsi >= 70:
		return -1
	default:
		return (50 - rsi) / 20
	}
}

func macdScore(histogram float64) float64 {
	switch {
	case histogram > 0:
		return 1
	case histogram < 0:
		return -1
	default:
		return 0
	}
}

func bollingerScore(snap *Snapshot) float64 {
	switch {
	case snap.Close <= snap.BBLower:
		return 1
	case snap.Close >= snap.BBUpper:
		return -1
	default:
		return 0
	}
}

func volumeScore(snap *Snapshot) float64 {
	if snap.VolumeRatio < volumeSpikeRatio {
		return 0
	}
	if snap.Close > snap.Open {
		return 1
	}
	if snap.Close < snap.Open {
		return -1
	}
	return 0
}

func wyckoffScore(w *models.WyckoffAnalysis) float64 {
	if w == nil {
		return 0
	}
	switch {
	case w.Spring || w.SOS || w.Phase == models.PhaseAccumulation:
		return 1
	case w.Upthrust || w.SOW || w.Phase == models.PhaseDistribution:
		return -1
	default:
		return 0
	}
}

func dowScore(d *models.DowAnalysis) float64 {
	if d == nil {
		return 0
	}
	switch d.Trend {
	case models.TrendBullish:
		return 1
	case models.TrendBearish:
		return -1
	default:
		return 0
	}
}
