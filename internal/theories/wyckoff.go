package theories

import (
	"fmt"
	"math"

	"github.com/minhvo/marketpulse/pkg/models"
)

const (
	minWyckoffCandles = 30
	rangeWindow       = 50
	eventLookback     = 3
	springVolumeRatio = 1.2
	effortVolumeRatio = 1.3
)

// WyckoffAnalyzer reads accumulation/distribution structure inside the
// recent trading range: springs, upthrusts, signs of strength and weakness.
type WyckoffAnalyzer struct{}

// NewWyckoffAnalyzer creates new Wyckoff analyzer
func NewWyckoffAnalyzer() *WyckoffAnalyzer {
	return &WyckoffAnalyzer{}
}

// Analyze classifies the Wyckoff phase over the recent range
func (w *WyckoffAnalyzer) Analyze(candles []models.Candle) (*models.WyckoffAnalysis, error) {
	if len(candles) < minWyckoffCandles {
		return nil, fmt.Errorf("insufficient candles for wyckoff analysis (need %d, got %d)", minWyckoffCandles, len(candles))
	}

	window := candles
	if len(window) > rangeWindow {
		window = window[len(window)-rangeWindow:]
	}

	highs := models.HighPrices(window)
	lows := models.LowPrices(window)
	closes := models.ClosePrices(window)
	volumes := models.Volumes(window)

	rangeHigh, rangeLow := highs[0], lows[0]
	// Range bounds exclude the event lookback so a fresh pierce is visible.
	for i := 0; i < len(window)-eventLookback; i++ {
		if highs[i] > rangeHigh {
			rangeHigh = highs[i]
		}
		if lows[i] < rangeLow {
			rangeLow = lows[i]
		}
	}

	lastClose := closes[len(closes)-1]
	pricePosition := 0.5
	if rangeHigh > rangeLow {
		pricePosition = (lastClose - rangeLow) / (rangeHigh - rangeLow)
		pricePosition = math.Max(0, math.Min(1, pricePosition))
	}

	avgVolume := average(volumes[:len(volumes)-1])
	volumeRatio := 0.0
	if avgVolume > 0 {
		volumeRatio = volumes[len(volumes)-1] / avgVolume
	}

	analysis := &models.WyckoffAnalysis{
		PricePosition: pricePosition,
		VolumeRatio:   volumeRatio,
	}

	// Spring: a recent candle pierced range support and closed back above it
	// on expanded volume. Upthrust is the mirror at resistance.
	for i := len(window) - eventLookback; i < len(window); i++ {
		lo := models.ToFloat64(window[i].Low)
		hi := models.ToFloat64(window[i].High)
		cl := models.ToFloat64(window[i].Close)
		vol := 0.0
		if avgVolume > 0 {
			vol = models.ToFloat64(window[i].Volume) / avgVolume
		}

		if lo < rangeLow && cl > rangeLow && vol >= springVolumeRatio {
			analysis.Spring = true
		}
		if hi > rangeHigh && cl < rangeHigh && vol >= springVolumeRatio {
			analysis.Upthrust = true
		}
	}

	// Effort vs result over the last few candles: a decisive push on
	// expanding volume reads as strength or weakness.
	firstRecent := closes[len(closes)-eventLookback]
	if firstRecent > 0 {
		recentChange := (lastClose - firstRecent) / firstRecent
		if recentChange >= 0.02 && volumeRatio >= effortVolumeRatio {
			analysis.SOS = true
		}
		if recentChange <= -0.02 && volumeRatio >= effortVolumeRatio {
			analysis.SOW = true
		}
	}

	analysis.Phase = classifyPhase(pricePosition, closes, analysis)
	analysis.Strength = phaseStrength(analysis)

	return analysis, nil
}

func classifyPhase(pricePosition float64, closes []float64, a *models.WyckoffAnalysis) models.WyckoffPhase {
	momentum := closes[len(closes)-1] - closes[0]

	switch {
	case a.Spring:
		return models.PhaseAccumulation
	case a.Upthrust:
		return models.PhaseDistribution
	case pricePosition <= 0.3:
		if momentum < 0 {
			return models.PhaseMarkdown
		}
		return models.PhaseAccumulation
	case pricePosition >= 0.7:
		if momentum > 0 {
			return models.PhaseMarkup
		}
		return models.PhaseDistribution
	case momentum > 0:
		return models.PhaseMarkup
	case momentum < 0:
		return models.PhaseMarkdown
	default:
		return models.PhaseNone
	}
}

// phaseStrength scores how decisive the read is, in [0,1]
func phaseStrength(a *models.WyckoffAnalysis) float64 {
	strength := 0.0
	if a.Phase != models.PhaseNone {
		strength += 0.4
	}
	if a.Spring || a.Upthrust {
		strength += 0.3
	}
	if a.SOS || a.SOW {
		strength += 0.2
	}
	if a.VolumeRatio >= effortVolumeRatio {
		strength += 0.1
	}
	return math.Min(strength, 1.0)
}
