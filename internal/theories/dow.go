package theories

import (
	"fmt"

	"github.com/minhvo/marketpulse/pkg/models"
)

const (
	minDowCandles = 20
	swingLookback = 2
)

// DowAnalyzer reads price structure: swing points, higher-high/higher-low
// sequences and breaks of structure.
type DowAnalyzer struct{}

// NewDowAnalyzer creates new Dow theory analyzer
func NewDowAnalyzer() *DowAnalyzer {
	return &DowAnalyzer{}
}

type swing struct {
	index int
	value float64
}

// Analyze classifies the trend from swing structure. Candles must be
// ascending by time.
func (d *DowAnalyzer) Analyze(candles []models.Candle) (*models.DowAnalysis, error) {
	if len(candles) < minDowCandles {
		return nil, fmt.Errorf("insufficient candles for dow analysis (need %d, got %d)", minDowCandles, len(candles))
	}

	highs := models.HighPrices(candles)
	lows := models.LowPrices(candles)
	closes := models.ClosePrices(candles)
	volumes := models.Volumes(candles)

	swingHighs := findSwings(highs, true)
	swingLows := findSwings(lows, false)

	analysis := &models.DowAnalysis{
		Trend:      models.TrendNeutral,
		SwingHighs: len(swingHighs),
		SwingLows:  len(swingLows),
	}

	if len(swingHighs) >= 2 && len(swingLows) >= 2 {
		higherHighs := swingHighs[len(swingHighs)-1].value > swingHighs[len(swingHighs)-2].value
		higherLows := swingLows[len(swingLows)-1].value > swingLows[len(swingLows)-2].value

		switch {
		case higherHighs && higherLows:
			analysis.Trend = models.TrendBullish
		case !higherHighs && !higherLows:
			analysis.Trend = models.TrendBearish
		}

		analysis.TrendStrength = swingAgreement(swingHighs, swingLows, analysis.Trend)
	}

	lastClose := closes[len(closes)-1]
	if len(swingHighs) > 0 && lastClose > swingHighs[len(swingHighs)-1].value {
		analysis.BOSUp = true
	}
	if len(swingLows) > 0 && lastClose < swingLows[len(swingLows)-1].value {
		analysis.BOSDown = true
	}

	analysis.VolumeConfirmation = volumeConfirms(volumes)

	return analysis, nil
}

// findSwings detects local extrema within the lookback on both sides.
// Neighbor comparisons are non-strict so equal-value plateaus (tick-quantized
// peaks, double tops) still register, but each side must hold at least one
// strictly lesser (or greater) neighbor, and contiguous equal extrema
// collapse to a single swing point.
func findSwings(values []float64, high bool) []swing {
	var swings []swing

	for i := swingLookback; i < len(values)-swingLookback; i++ {
		isSwing := true
		strictLeft, strictRight := false, false
		for j := 1; j <= swingLookback; j++ {
			left, right := values[i-j], values[i+j]
			if high {
				if values[i] < left || values[i] < right {
					isSwing = false
					break
				}
				strictLeft = strictLeft || values[i] > left
				strictRight = strictRight || values[i] > right
			} else {
				if values[i] > left || values[i] > right {
					isSwing = false
					break
				}
				strictLeft = strictLeft || values[i] < left
				strictRight = strictRight || values[i] < right
			}
		}
		if !isSwing || !strictLeft || !strictRight {
			continue
		}
		if n := len(swings); n > 0 && swings[n-1].value == values[i] && i-swings[n-1].index <= swingLookback {
			continue
		}
		swings = append(swings, swing{index: i, value: values[i]})
	}

	return swings
}

// swingAgreement measures how many of the recent swing steps move in the
// trend direction, over up to three steps per side.
func swingAgreement(highs, lows []swing, trend models.Trend) float64 {
	if trend == models.TrendNeutral {
		return 0
	}

	agree, total := 0, 0
	check := func(swings []swing) {
		steps := len(swings) - 1
		if steps > 3 {
			steps = 3
		}
		for i := 0; i < steps; i++ {
			a := swings[len(swings)-2-i].value
			b := swings[len(swings)-1-i].value
			total++
			if (trend == models.TrendBullish && b > a) || (trend == models.TrendBearish && b < a) {
				agree++
			}
		}
	}
	check(highs)
	check(lows)

	if total == 0 {
		return 0
	}
	return float64(agree) / float64(total)
}

// volumeConfirms reports whether recent volume expands relative to the
// preceding stretch.
func volumeConfirms(volumes []float64) bool {
	if len(volumes) < 15 {
		return false
	}
	recent := average(volumes[len(volumes)-5:])
	prior := average(volumes[len(volumes)-15 : len(volumes)-5])
	return prior > 0 && recent > prior
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
