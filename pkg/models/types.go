package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NewDecimal creates decimal from float64
func NewDecimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// Metric identifies a market-wide metric tracked by the engine
type Metric string

const (
	MetricBTCDominance  Metric = "btc_dominance"
	MetricUSDTDominance Metric = "usdt_dominance"
	MetricFearGreed     Metric = "fear_greed"
)

// Direction represents a trade direction
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// Opposite returns the reverse trade direction
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionNone
	}
}

// Confidence represents signal confidence tier derived from the composite score
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceNone   Confidence = "NONE"
)

// ConfidenceForScore maps a 0-100 composite score to its confidence tier
func ConfidenceForScore(score float64) Confidence {
	switch {
	case score >= 75:
		return ConfidenceHigh
	case score >= 60:
		return ConfidenceMedium
	default:
		return ConfidenceNone
	}
}

// MarketAction represents market-wide signal actions derived from dominance moves
type MarketAction string

const (
	ActionLongBTCShortAlt MarketAction = "LONG_BTC_SHORT_ALT"
	ActionShortBTCLongAlt MarketAction = "SHORT_BTC_LONG_ALT"
	ActionLongMarket      MarketAction = "LONG_MARKET"
	ActionShortMarket     MarketAction = "SHORT_MARKET"
	ActionLongAccumulate  MarketAction = "LONG_ACCUMULATE"
	ActionTakeProfit      MarketAction = "SHORT_OR_TAKE_PROFIT"
	ActionShortAll        MarketAction = "SHORT_ALL"
	ActionLongAll         MarketAction = "LONG_ALL"
)

// MetricSample is a single observation of a market metric. Immutable once recorded.
type MetricSample struct {
	Timestamp int64   `json:"timestamp" db:"timestamp"`
	Value     float64 `json:"value" db:"value"`
}

// MetricSeries is a time-ordered slice of samples for one metric. The engine
// receives read-only slices per evaluation; the ingestion layer owns retention.
type MetricSeries []MetricSample

// Since returns the suffix of the series at or after the cutoff timestamp.
// The series is assumed ascending by timestamp.
func (s MetricSeries) Since(cutoff int64) MetricSeries {
	for i := range s {
		if s[i].Timestamp >= cutoff {
			return s[i:]
		}
	}
	return nil
}

// Values extracts the raw sample values preserving order
func (s MetricSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Value
	}
	return out
}

// MarketSnapshot is the current observation of all market-wide metrics plus
// their bounded history, assembled by the ingestion layer for one evaluation.
type MarketSnapshot struct {
	Timestamp     int64
	BTCDominance  *float64
	USDTDominance *float64
	FearGreed     *float64
	History       map[Metric]MetricSeries
}

// Candle represents OHLCV candlestick data
type Candle struct {
	Symbol      string          `json:"symbol"`
	Timeframe   string          `json:"timeframe"`
	Timestamp   time.Time       `json:"timestamp"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	Volume      decimal.Decimal `json:"volume"`
	QuoteVolume decimal.Decimal `json:"quote_volume"`
}

// Trend represents a directional bias on one timeframe
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// WyckoffPhase represents the Wyckoff market cycle phase
type WyckoffPhase string

const (
	PhaseAccumulation WyckoffPhase = "ACCUMULATION"
	PhaseMarkup       WyckoffPhase = "MARKUP"
	PhaseDistribution WyckoffPhase = "DISTRIBUTION"
	PhaseMarkdown     WyckoffPhase = "MARKDOWN"
	PhaseNone         WyckoffPhase = ""
)

// DowAnalysis is the price-structure read of a single timeframe
type DowAnalysis struct {
	Trend              Trend   `json:"trend"`
	BOSUp              bool    `json:"bos_up"`
	BOSDown            bool    `json:"bos_down"`
	SwingHighs         int     `json:"swing_highs"`
	SwingLows          int     `json:"swing_lows"`
	VolumeConfirmation bool    `json:"volume_confirmation"`
	TrendStrength      float64 `json:"trend_strength"`
}

// WyckoffAnalysis is the accumulation/distribution read of a single timeframe
type WyckoffAnalysis struct {
	Phase         WyckoffPhase `json:"phase"`
	Spring        bool         `json:"spring"`
	Upthrust      bool         `json:"upthrust"`
	SOS           bool         `json:"sos"`
	SOW           bool         `json:"sow"`
	PricePosition float64      `json:"price_position"`
	VolumeRatio   float64      `json:"volume_ratio"`
	Strength      float64      `json:"strength"`
}

// TimeframeAnalysis aggregates everything the scorer needs for one timeframe
type TimeframeAnalysis struct {
	Timeframe     string           `json:"timeframe"`
	Dow           *DowAnalysis     `json:"dow,omitempty"`
	Wyckoff       *WyckoffAnalysis `json:"wyckoff,omitempty"`
	RSI           float64          `json:"rsi"`
	MACDHistogram float64          `json:"macd_histogram"`
	EMA20         float64          `json:"ema20"`
	EMA50         float64          `json:"ema50"`
	CurrentPrice  float64          `json:"current_price"`
	VolumeSpike   bool             `json:"volume_spike"`
	VolumeBullish bool             `json:"volume_bullish"`
}

// TechnicalScore is the composite [-1,1] technical-analysis score with its
// per-indicator breakdown (keys: rsi, macd, bollinger, volume, wyckoff, dow)
type TechnicalScore struct {
	Score   float64            `json:"score"`
	Details map[string]float64 `json:"details"`
}

// PriceRange bounds a suggested entry zone
type PriceRange struct {
	Min float64 `json:"min" db:"entry_min"`
	Max float64 `json:"max" db:"entry_max"`
}

// Signal is an emitted trading signal. Immutable after creation.
type Signal struct {
	ID          string     `json:"signal_id" db:"id"`
	Asset       string     `json:"asset" db:"asset"`
	Direction   Direction  `json:"direction" db:"direction"`
	Score       float64    `json:"score" db:"score"`
	Confidence  Confidence `json:"confidence" db:"confidence"`
	Reasons     []string   `json:"reasons"`
	EntryRange  PriceRange `json:"entry_range"`
	StopLoss    float64    `json:"stop_loss" db:"stop_loss"`
	TakeProfits []float64  `json:"take_profits"`
	Timestamp   time.Time  `json:"timestamp" db:"created_at"`
}

// MarketSignal is a market-wide signal derived from dominance/sentiment anomalies
type MarketSignal struct {
	Type       string       `json:"type"`
	Action     MarketAction `json:"action"`
	Confidence Confidence   `json:"confidence"`
	Reason     string       `json:"reason"`
	Value      float64      `json:"value"`
	Timestamp  int64        `json:"timestamp"`
}

// MarketContext carries caller-supplied safety flags consumed by guardrails
// and the safety-checks factor. All fields are observed, never fetched here.
type MarketContext struct {
	BTCCrash         bool    `json:"btc_crash"`
	LiquidityOK      bool    `json:"liquidity_ok"`
	USDTDomSpikingUp bool    `json:"usdt_dom_spiking_up"`
	BTCDomRising     bool    `json:"btc_dom_rising"`
	BTCDomFalling    bool    `json:"btc_dom_falling"`
	USDTDomRising    bool    `json:"usdt_dom_rising"`
	FundingRate      float64 `json:"funding_rate"`
	OpenInterestOK   bool    `json:"open_interest_ok"`
	BTCCorrelation   float64 `json:"btc_correlation"`
}
