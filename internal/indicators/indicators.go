package indicators

import (
	"fmt"

	"github.com/cinar/indicator"

	"github.com/minhvo/marketpulse/pkg/models"
)

// minCandles covers the MACD warmup, the longest period we compute
const minCandles = 50

// Snapshot is the last-bar view of every indicator the scorer consumes
type Snapshot struct {
	RSI           float64
	MACD          float64
	MACDSignal    float64
	MACDHistogram float64
	BBUpper       float64
	BBMiddle      float64
	BBLower       float64
	EMA20         float64
	EMA50         float64
	ATR           float64
	VolumeRatio   float64
	Close         float64
	Open          float64
}

// Calculator computes technical indicators from candle data
type Calculator struct{}

// NewCalculator creates new indicator calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate derives the full indicator snapshot from candles, ascending by
// time. Errors when the series is shorter than the longest warmup.
func (c *Calculator) Calculate(candles []models.Candle) (*Snapshot, error) {
	if len(candles) < minCandles {
		return nil, fmt.Errorf("insufficient candles for indicators (need at least %d, got %d)", minCandles, len(candles))
	}

	closes := models.ClosePrices(candles)
	highs := models.HighPrices(candles)
	lows := models.LowPrices(candles)
	volumes := models.Volumes(candles)

	_, rsi := indicator.Rsi(closes)
	if len(rsi) == 0 {
		return nil, fmt.Errorf("RSI returned no data")
	}

	macdLine, signalLine := indicator.Macd(closes)
	ema20 := indicator.Ema(20, closes)
	ema50 := indicator.Ema(50, closes)
	bbMiddle, bbUpper, bbLower := indicator.BollingerBands(closes)

	_, atr := indicator.Atr(14, highs, lows, closes)
	if len(atr) == 0 {
		return nil, fmt.Errorf("ATR returned no data")
	}

	avgVolume := average(volumes[:len(volumes)-1])
	volumeRatio := 0.0
	if avgVolume > 0 {
		volumeRatio = volumes[len(volumes)-1] / avgVolume
	}

	last := len(closes) - 1
	return &Snapshot{
		RSI:           rsi[last],
		MACD:          macdLine[last],
		MACDSignal:    signalLine[last],
		MACDHistogram: macdLine[last] - signalLine[last],
		BBUpper:       bbUpper[last],
		BBMiddle:      bbMiddle[last],
		BBLower:       bbLower[last],
		EMA20:         ema20[last],
		EMA50:         ema50[last],
		ATR:           atr[last],
		VolumeRatio:   volumeRatio,
		Close:         closes[last],
		Open:          models.ToFloat64(candles[last].Open),
	}, nil
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
