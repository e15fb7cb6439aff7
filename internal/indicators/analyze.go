package indicators

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/internal/theories"
	"github.com/minhvo/marketpulse/pkg/logger"
	"github.com/minhvo/marketpulse/pkg/models"
)

// Analyzer composes the indicator snapshot with Dow and Wyckoff structure
// reads into the per-timeframe view the scorer consumes.
type Analyzer struct {
	calc    *Calculator
	dow     *theories.DowAnalyzer
	wyckoff *theories.WyckoffAnalyzer
}

// NewAnalyzer creates a timeframe analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		calc:    NewCalculator(),
		dow:     theories.NewDowAnalyzer(),
		wyckoff: theories.NewWyckoffAnalyzer(),
	}
}

// AnalyzeTimeframe builds one timeframe's analysis from its candles. Dow and
// Wyckoff reads are best-effort: a structure read that fails on thin data is
// left nil and the caller treats it as no contribution.
func (a *Analyzer) AnalyzeTimeframe(timeframe string, candles []models.Candle) (models.TimeframeAnalysis, error) {
	snap, err := a.calc.Calculate(candles)
	if err != nil {
		return models.TimeframeAnalysis{}, fmt.Errorf("indicators for %s: %w", timeframe, err)
	}

	tf := models.TimeframeAnalysis{
		Timeframe:     timeframe,
		RSI:           snap.RSI,
		MACDHistogram: snap.MACDHistogram,
		EMA20:         snap.EMA20,
		EMA50:         snap.EMA50,
		CurrentPrice:  snap.Close,
		VolumeSpike:   snap.VolumeRatio >= volumeSpikeRatio,
		VolumeBullish: snap.Close > snap.Open,
	}

	if dow, err := a.dow.Analyze(candles); err == nil {
		tf.Dow = dow
	} else {
		logger.Debug("dow analysis skipped",
			zap.String("timeframe", timeframe),
			zap.Error(err),
		)
	}
	if wyckoff, err := a.wyckoff.Analyze(candles); err == nil {
		tf.Wyckoff = wyckoff
	} else {
		logger.Debug("wyckoff analysis skipped",
			zap.String("timeframe", timeframe),
			zap.Error(err),
		)
	}

	return tf, nil
}

// AnalyzeAll analyzes every supplied timeframe, skipping the ones with
// insufficient candles.
func (a *Analyzer) AnalyzeAll(candlesByTimeframe map[string][]models.Candle) map[string]models.TimeframeAnalysis {
	out := make(map[string]models.TimeframeAnalysis, len(candlesByTimeframe))
	for timeframe, candles := range candlesByTimeframe {
		tf, err := a.AnalyzeTimeframe(timeframe, candles)
		if err != nil {
			logger.Debug("timeframe skipped", zap.String("timeframe", timeframe), zap.Error(err))
			continue
		}
		out[timeframe] = tf
	}
	return out
}

// Technical computes the blended [-1,1] technical score for one candle set
func (a *Analyzer) Technical(candles []models.Candle) (*models.TechnicalScore, error) {
	snap, err := a.calc.Calculate(candles)
	if err != nil {
		return nil, err
	}

	var dow *models.DowAnalysis
	if d, err := a.dow.Analyze(candles); err == nil {
		dow = d
	}
	var wyckoff *models.WyckoffAnalysis
	if w, err := a.wyckoff.Analyze(candles); err == nil {
		wyckoff = w
	}

	score := TechnicalScore(snap, dow, wyckoff)
	return &score, nil
}
