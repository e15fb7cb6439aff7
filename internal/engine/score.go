package engine

import (
	"fmt"
	"math"

	"github.com/minhvo/marketpulse/pkg/models"
)

// FactorCategory names one band of the composite score
type FactorCategory string

const (
	FactorTrendStructure FactorCategory = "trend_structure"
	FactorWyckoffPattern FactorCategory = "wyckoff_pattern"
	FactorIndicators     FactorCategory = "indicators"
	FactorVolume         FactorCategory = "volume"
	FactorDominance      FactorCategory = "dominance"
	FactorSafetyChecks   FactorCategory = "safety_checks"
)

// FactorScore is one category's contribution, capped at its max
type FactorScore struct {
	Category FactorCategory
	Points   float64
	Max      float64
	Reasons  []string
}

// ScoreInput is everything the scorer needs for one (asset, direction) run.
// All fields are caller-supplied observations; the scorer performs no I/O.
type ScoreInput struct {
	Asset      string
	IsBTC      bool
	Direction  models.Direction
	Timeframes map[string]models.TimeframeAnalysis
	Context    models.MarketContext
}

// ScoreResult is the composite 0-100 score with its factor breakdown.
// HardGated marks a forced NONE from an asset-class precondition regardless
// of the point total.
type ScoreResult struct {
	Total      float64
	Confidence models.Confidence
	Factors    []FactorScore
	Reasons    []string
	HardGated  bool
}

// Scorer produces the headline 0-100 composite score for a directional
// hypothesis. Pure and stateless; safe for concurrent use.
type Scorer struct {
	maxFundingRate float64
}

// NewScorer creates a composite scorer
func NewScorer(maxFundingRate float64) *Scorer {
	return &Scorer{maxFundingRate: maxFundingRate}
}

// Timeframe tiers. Primary carries the most weight, minor the least.
var (
	primaryTimeframes   = []string{"1d", "3d", "1w"}
	secondaryTimeframes = []string{"4h", "8h"}
	minorTimeframe      = "1h"
)

// Score evaluates one directional hypothesis against the supplied timeframe
// analyses and market context. Every sub-check is all-or-nothing; the total
// is the capped sum of category points.
func (s *Scorer) Score(in ScoreInput) ScoreResult {
	factors := []FactorScore{
		s.scoreTrendStructure(in),
		s.scoreWyckoff(in),
		s.scoreIndicators(in),
		s.scoreVolume(in),
		s.scoreDominance(in),
		s.scoreSafety(in),
	}

	total := 0.0
	var reasons []string
	for _, f := range factors {
		total += math.Min(f.Points, f.Max)
		reasons = append(reasons, f.Reasons...)
	}
	total = math.Min(total, 100)

	res := ScoreResult{
		Total:      total,
		Confidence: models.ConfidenceForScore(total),
		Factors:    factors,
		Reasons:    reasons,
	}

	// Altcoin asset-class gate: a LONG needs BTC dominance falling, a SHORT
	// needs it rising. Violations force NONE regardless of points.
	if !in.IsBTC {
		switch in.Direction {
		case models.DirectionLong:
			if !in.Context.BTCDomFalling {
				res.Confidence = models.ConfidenceNone
				res.HardGated = true
			}
		case models.DirectionShort:
			if !in.Context.BTCDomRising {
				res.Confidence = models.ConfidenceNone
				res.HardGated = true
			}
		}
	}

	return res
}

func (s *Scorer) scoreTrendStructure(in ScoreInput) FactorScore {
	f := FactorScore{Category: FactorTrendStructure, Max: 30}
	want := wantedTrend(in.Direction)

	if tierAgrees(in.Timeframes, primaryTimeframes, want) {
		f.Points += 15
		f.Reasons = append(f.Reasons, fmt.Sprintf("primary trend %s", want))
	}
	if tierAgrees(in.Timeframes, secondaryTimeframes, want) {
		f.Points += 10
		f.Reasons = append(f.Reasons, fmt.Sprintf("secondary trend %s", want))
	}
	if tf, ok := in.Timeframes[minorTimeframe]; ok && tf.Dow != nil {
		bosMatch := (in.Direction == models.DirectionLong && tf.Dow.BOSUp) ||
			(in.Direction == models.DirectionShort && tf.Dow.BOSDown)
		if tf.Dow.Trend == want && bosMatch {
			f.Points += 5
			f.Reasons = append(f.Reasons, "minor trend with break of structure")
		}
	}
	return f
}

func (s *Scorer) scoreWyckoff(in ScoreInput) FactorScore {
	f := FactorScore{Category: FactorWyckoffPattern, Max: 15}

	for _, name := range []string{"4h", "1d"} {
		tf, ok := in.Timeframes[name]
		if !ok || tf.Wyckoff == nil {
			continue
		}
		w := tf.Wyckoff
		switch in.Direction {
		case models.DirectionLong:
			if w.Phase == models.PhaseAccumulation || w.Spring || w.SOS {
				f.Points = 15
				f.Reasons = append(f.Reasons, fmt.Sprintf("accumulation pattern on %s", name))
				return f
			}
		case models.DirectionShort:
			if w.Phase == models.PhaseDistribution || w.Upthrust || w.SOW {
				f.Points = 15
				f.Reasons = append(f.Reasons, fmt.Sprintf("distribution pattern on %s", name))
				return f
			}
		}
	}
	return f
}

func (s *Scorer) scoreIndicators(in ScoreInput) FactorScore {
	f := FactorScore{Category: FactorIndicators, Max: 20}

	tf, ok := in.Timeframes["4h"]
	if !ok {
		return f
	}

	switch in.Direction {
	case models.DirectionLong:
		if tf.RSI > 0 && tf.RSI <= 40 {
			f.Points += 7
			f.Reasons = append(f.Reasons, fmt.Sprintf("RSI oversold %.1f", tf.RSI))
		}
		if tf.MACDHistogram > 0 {
			f.Points += 7
			f.Reasons = append(f.Reasons, "MACD bullish cross")
		}
		if tf.CurrentPrice > tf.EMA20 && tf.EMA20 > tf.EMA50 {
			f.Points += 6
			f.Reasons = append(f.Reasons, "bullish EMA alignment")
		}
	case models.DirectionShort:
		if tf.RSI >= 60 {
			f.Points += 7
			f.Reasons = append(f.Reasons, fmt.Sprintf("RSI overbought %.1f", tf.RSI))
		}
		if tf.MACDHistogram < 0 {
			f.Points += 7
			f.Reasons = append(f.Reasons, "MACD bearish cross")
		}
		if tf.CurrentPrice < tf.EMA20 && tf.EMA20 < tf.EMA50 {
			f.Points += 6
			f.Reasons = append(f.Reasons, "bearish EMA alignment")
		}
	}
	return f
}

func (s *Scorer) scoreVolume(in ScoreInput) FactorScore {
	f := FactorScore{Category: FactorVolume, Max: 10}

	tf, ok := in.Timeframes["4h"]
	if !ok {
		return f
	}
	match := (in.Direction == models.DirectionLong && tf.VolumeBullish) ||
		(in.Direction == models.DirectionShort && !tf.VolumeBullish)
	if tf.VolumeSpike && match {
		f.Points = 10
		f.Reasons = append(f.Reasons, "volume confirms move")
	}
	return f
}

func (s *Scorer) scoreDominance(in ScoreInput) FactorScore {
	f := FactorScore{Category: FactorDominance, Max: 15}
	ctx := in.Context

	if in.IsBTC {
		switch in.Direction {
		case models.DirectionLong:
			if ctx.BTCDomRising {
				f.Points += 5
				f.Reasons = append(f.Reasons, "BTC dominance rising")
			}
			if !ctx.USDTDomRising {
				f.Points += 5
				f.Reasons = append(f.Reasons, "stablecoin dominance not rising")
			}
		case models.DirectionShort:
			if ctx.BTCDomFalling {
				f.Points += 5
				f.Reasons = append(f.Reasons, "BTC dominance falling")
			}
			if ctx.USDTDomRising {
				f.Points += 5
				f.Reasons = append(f.Reasons, "stablecoin dominance rising")
			}
		}
		return f
	}

	switch in.Direction {
	case models.DirectionLong:
		if ctx.BTCDomFalling {
			f.Points += 10
			f.Reasons = append(f.Reasons, "BTC dominance falling, alt rotation")
		}
		if !ctx.USDTDomRising {
			f.Points += 5
			f.Reasons = append(f.Reasons, "stablecoin dominance not rising")
		}
	case models.DirectionShort:
		if ctx.BTCDomRising {
			f.Points += 8
			f.Reasons = append(f.Reasons, "BTC dominance rising against alts")
		}
		if ctx.USDTDomRising {
			f.Points += 7
			f.Reasons = append(f.Reasons, "stablecoin dominance rising")
		}
	}
	return f
}

func (s *Scorer) scoreSafety(in ScoreInput) FactorScore {
	f := FactorScore{Category: FactorSafetyChecks, Max: 10}
	ctx := in.Context

	if ctx.LiquidityOK && !ctx.BTCCrash && ctx.OpenInterestOK &&
		math.Abs(ctx.FundingRate) <= s.maxFundingRate {
		f.Points = 10
		f.Reasons = append(f.Reasons, "safety checks passed")
	}
	return f
}

func wantedTrend(d models.Direction) models.Trend {
	if d == models.DirectionShort {
		return models.TrendBearish
	}
	return models.TrendBullish
}

// tierAgrees reports whether a strict majority of the available timeframes
// in the tier carry the wanted Dow trend. Missing analyses do not count
// either way; an empty tier never agrees.
func tierAgrees(tfs map[string]models.TimeframeAnalysis, names []string, want models.Trend) bool {
	available, agreeing := 0, 0
	for _, name := range names {
		tf, ok := tfs[name]
		if !ok || tf.Dow == nil {
			continue
		}
		available++
		if tf.Dow.Trend == want {
			agreeing++
		}
	}
	return available > 0 && float64(agreeing)/float64(available) > 0.5
}
