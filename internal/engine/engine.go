package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/pkg/logger"
	"github.com/minhvo/marketpulse/pkg/models"
)

// Params is the immutable threshold surface consumed by the engine. Built
// once from configuration at startup and shared by reference.
type Params struct {
	MinSamples int
	Window     time.Duration

	DominanceThreshold   float64
	StablecoinThreshold  float64
	SentimentThreshold   float64
	MinConfirmations     float64
	MinConfirmationsTech float64

	Cooldown          time.Duration
	ValueChangeFactor float64
	MaxRecordAge      time.Duration

	ActiveWindow         time.Duration
	CorrelationThreshold float64

	EntryPercent    float64
	StopLossPercent float64
	MaxFundingRate  float64
}

// Engine runs the full decision pipeline: statistics, anomaly detection,
// trend consistency, confirmation scoring, composite scoring, guardrails
// and emission control. All computation is evaluation-local; the guard
// registry and emission records are the only shared state.
type Engine struct {
	params    Params
	lookbacks []time.Duration
	scorer    *Scorer
	guard     *Guard
	emitter   *Controller
}

const defaultWindow = 4 * time.Hour

// New creates an engine from validated parameters
func New(p Params) *Engine {
	if p.Window <= 0 {
		p.Window = defaultWindow
	}
	return &Engine{
		params: p,
		// Look-back ladder for trend consistency, ascending. The longest
		// horizon also bounds anomaly detection.
		lookbacks: []time.Duration{p.Window / 4, p.Window, 6 * p.Window},
		scorer:    NewScorer(p.MaxFundingRate),
		guard:     NewGuard(p.ActiveWindow, p.CorrelationThreshold),
		emitter:   NewController(p.Cooldown, p.ValueChangeFactor, p.MaxRecordAge),
	}
}

// MaxLookback returns the longest trend horizon; history retention must
// cover at least this span.
func (e *Engine) MaxLookback() time.Duration {
	return e.lookbacks[len(e.lookbacks)-1]
}

// MarketRead is the engine's statistical read of one market snapshot,
// reused by both market-wide evaluation and per-asset context assembly.
type MarketRead struct {
	Windows   map[models.Metric]StatWindow
	Anomalies map[models.Metric]Anomaly
	Evidence  []Evidence

	BTCDomRising     bool
	BTCDomFalling    bool
	USDTDomRising    bool
	USDTDomSpikingUp bool
}

// ReadMarket computes windows and anomalies over the snapshot's history.
// The longest look-back drives anomaly detection; directional flags come
// from the window trend.
func (e *Engine) ReadMarket(snap models.MarketSnapshot) MarketRead {
	read := MarketRead{
		Windows:   make(map[models.Metric]StatWindow),
		Anomalies: make(map[models.Metric]Anomaly),
	}

	for _, m := range []struct {
		metric    models.Metric
		current   *float64
		threshold float64
		name      string
	}{
		{models.MetricBTCDominance, snap.BTCDominance, e.params.DominanceThreshold, "BTC_DOM"},
		{models.MetricUSDTDominance, snap.USDTDominance, e.params.StablecoinThreshold, "USDT_DOM"},
		{models.MetricFearGreed, snap.FearGreed, e.params.SentimentThreshold, "FEAR_GREED"},
	} {
		if m.current == nil {
			continue
		}
		series := snap.History[m.metric]
		cutoff := snap.Timestamp - int64(e.MaxLookback().Seconds())
		w := ComputeStatWindow(series.Since(cutoff), e.params.MinSamples)
		a := DetectAnomaly(*m.current, w, m.threshold)

		read.Windows[m.metric] = w
		read.Anomalies[m.metric] = a
		read.Evidence = append(read.Evidence, Evidence{
			Name:    m.name,
			Anomaly: a,
			// Falling dominance means risk-on; falling sentiment means fear,
			// read contrarian-bullish.
			FallingIsBullish: true,
		})
	}

	if w, ok := read.Windows[models.MetricBTCDominance]; ok && w.Valid {
		read.BTCDomRising = w.Trend == TrendUp
		read.BTCDomFalling = w.Trend == TrendDown
	}
	if w, ok := read.Windows[models.MetricUSDTDominance]; ok && w.Valid {
		read.USDTDomRising = w.Trend == TrendUp
	}
	if a, ok := read.Anomalies[models.MetricUSDTDominance]; ok {
		read.USDTDomSpikingUp = a.Qualifies() && a.Rising
	}

	return read
}

// MarketEvaluation is the outcome of one market-wide tick
type MarketEvaluation struct {
	Signals []models.MarketSignal
	Alerts  []string
	Read    MarketRead
}

// EvaluateMarket derives market-wide signals from dominance and sentiment
// anomalies. Each candidate passes trend consistency across the look-back
// ladder and then the emission controller; conditions too weak to signal
// surface as informational alerts.
func (e *Engine) EvaluateMarket(snap models.MarketSnapshot) MarketEvaluation {
	read := e.ReadMarket(snap)
	eval := MarketEvaluation{Read: read}
	now := time.Unix(snap.Timestamp, 0)

	for metric, w := range read.Windows {
		if !w.Valid {
			continue
		}
		// Recent momentum against the full-window trend reads as an early
		// turn; surfaced for monitoring, never a signal by itself.
		if (w.Momentum > 0 && w.RecentMomentum < 0) || (w.Momentum < 0 && w.RecentMomentum > 0) {
			eval.Alerts = append(eval.Alerts, fmt.Sprintf(
				"%s recent momentum %.4f runs against the window trend %.4f",
				metric, w.RecentMomentum, w.Momentum))
		}
	}

	for _, cand := range e.marketCandidates(snap, read) {
		cons := e.trendConsistency(snap, cand.metric)
		if !cons.Consistent || !directionMatches(cons.Majority, cand.rising) {
			eval.Alerts = append(eval.Alerts, fmt.Sprintf(
				"%s anomaly z=%.2f without consistent trend (ratio %.2f)",
				cand.signalType, cand.zScore, cons.Ratio))
			continue
		}

		decision := e.emitter.Decide(cand.signalType, string(cand.action), cand.confidence, cand.value, now)
		if !decision.Emit {
			logger.Debug("market signal suppressed",
				zap.String("type", cand.signalType),
				zap.String("reason", string(decision.Reason)),
			)
			continue
		}

		eval.Signals = append(eval.Signals, models.MarketSignal{
			Type:       cand.signalType,
			Action:     cand.action,
			Confidence: cand.confidence,
			Reason:     cand.reason,
			Value:      cand.value,
			Timestamp:  snap.Timestamp,
		})
	}

	return eval
}

type marketCandidate struct {
	metric     models.Metric
	signalType string
	action     models.MarketAction
	confidence models.Confidence
	reason     string
	value      float64
	zScore     float64
	rising     bool
}

func (e *Engine) marketCandidates(snap models.MarketSnapshot, read MarketRead) []marketCandidate {
	var out []marketCandidate

	if a, ok := read.Anomalies[models.MetricBTCDominance]; ok && a.Qualifies() {
		c := marketCandidate{
			metric: models.MetricBTCDominance,
			value:  *snap.BTCDominance, zScore: a.ZScore, rising: a.Rising,
			confidence: severityConfidence(a.Severity),
		}
		if a.Rising {
			c.signalType, c.action = "BTC_DOM_SPIKE_UP", models.ActionLongBTCShortAlt
			c.reason = fmt.Sprintf("BTC dominance spiking up, z=%.2f", a.ZScore)
		} else {
			c.signalType, c.action = "BTC_DOM_SPIKE_DOWN", models.ActionShortBTCLongAlt
			c.reason = fmt.Sprintf("BTC dominance spiking down, z=%.2f", a.ZScore)
		}
		out = append(out, c)
	}

	if a, ok := read.Anomalies[models.MetricUSDTDominance]; ok && a.Qualifies() {
		c := marketCandidate{
			metric: models.MetricUSDTDominance,
			value:  *snap.USDTDominance, zScore: a.ZScore, rising: a.Rising,
			confidence: severityConfidence(a.Severity),
		}
		if a.Rising {
			c.signalType, c.action = "USDT_DOM_SPIKE_UP", models.ActionShortMarket
			c.reason = fmt.Sprintf("stablecoin dominance spiking up, z=%.2f", a.ZScore)
		} else {
			c.signalType, c.action = "USDT_DOM_SPIKE_DOWN", models.ActionLongMarket
			c.reason = fmt.Sprintf("stablecoin dominance spiking down, z=%.2f", a.ZScore)
		}
		out = append(out, c)
	}

	if a, ok := read.Anomalies[models.MetricFearGreed]; ok && a.Qualifies() && snap.FearGreed != nil {
		fg := *snap.FearGreed
		c := marketCandidate{
			metric: models.MetricFearGreed,
			value:  fg, zScore: a.ZScore, rising: a.Rising,
			confidence: severityConfidence(a.Severity),
		}
		switch {
		case fg <= 25 && !a.Rising:
			c.signalType, c.action = "EXTREME_FEAR", models.ActionLongAccumulate
			c.reason = fmt.Sprintf("sentiment in extreme fear (%.0f)", fg)
			out = append(out, c)
		case fg >= 75 && a.Rising:
			c.signalType, c.action = "EXTREME_GREED", models.ActionTakeProfit
			c.reason = fmt.Sprintf("sentiment in extreme greed (%.0f)", fg)
			out = append(out, c)
		}
	}

	out = append(out, e.compositeCandidates(snap, read)...)
	return out
}

// compositeCandidates cover conditions no single metric captures: broad
// capital outflow and contrarian buying opportunities. They use the
// confirmation scorer across all metric anomalies.
func (e *Engine) compositeCandidates(snap models.MarketSnapshot, read MarketRead) []marketCandidate {
	var out []marketCandidate

	bearish := ScoreConfirmations(HypothesisBearish, read.Evidence, nil)
	if bearish.Score >= e.params.MinConfirmations && read.USDTDomRising {
		out = append(out, marketCandidate{
			metric:     models.MetricUSDTDominance,
			signalType: "CAPITAL_OUTFLOW",
			action:     models.ActionShortAll,
			confidence: models.ConfidenceHigh,
			reason:     fmt.Sprintf("capital outflow confirmed: %v", bearish.Confirmations),
			value:      bearish.Score,
			rising:     true,
		})
	}

	bullish := ScoreConfirmations(HypothesisBullish, read.Evidence, nil)
	if bullish.Score >= e.params.MinConfirmations && snap.FearGreed != nil && *snap.FearGreed <= 25 {
		out = append(out, marketCandidate{
			metric:     models.MetricFearGreed,
			signalType: "BUYING_OPPORTUNITY",
			action:     models.ActionLongAll,
			confidence: models.ConfidenceHigh,
			reason:     fmt.Sprintf("contrarian buy confirmed: %v", bullish.Confirmations),
			value:      bullish.Score,
			rising:     false,
		})
	}

	return out
}

// trendConsistency computes consistency across the look-back ladder for one
// metric. Composite candidates skip this via a pre-agreed majority.
func (e *Engine) trendConsistency(snap models.MarketSnapshot, metric models.Metric) TrendConsistency {
	series := snap.History[metric]
	windows := make([]StatWindow, 0, len(e.lookbacks))
	for _, lb := range e.lookbacks {
		cutoff := snap.Timestamp - int64(lb.Seconds())
		windows = append(windows, ComputeStatWindow(series.Since(cutoff), e.params.MinSamples))
	}
	return CheckTrendConsistency(windows)
}

func directionMatches(majority TrendDirection, rising bool) bool {
	if rising {
		return majority == TrendUp
	}
	return majority == TrendDown
}

func severityConfidence(s Severity) models.Confidence {
	if s == SeverityHigh {
		return models.ConfidenceHigh
	}
	return models.ConfidenceMedium
}

// AssetInput is one per-asset evaluation request. All observations are
// caller-supplied; the engine performs no I/O.
type AssetInput struct {
	Asset        string
	IsBTC        bool
	CurrentPrice float64
	Timeframes   map[string]models.TimeframeAnalysis
	Technical    *models.TechnicalScore
	Evidence     []Evidence
	Context      models.MarketContext
}

// AssetEvaluation is the full pipeline outcome for one asset, including
// suppression reasons for observability.
type AssetEvaluation struct {
	Asset      string
	Direction  models.Direction
	Score      ScoreResult
	Veto       *Veto
	Decision   EmitDecision
	Signal     *models.Signal
	NoDecision string
}

// EvaluateAsset runs the per-asset pipeline: composite scoring for both
// directions, confirmation check, guardrails, then emission control. A nil
// Signal with a NoDecision reason means no qualifying decision this tick.
func (e *Engine) EvaluateAsset(in AssetInput, now time.Time) AssetEvaluation {
	eval := AssetEvaluation{Asset: in.Asset, Direction: models.DirectionNone}

	long := e.scorer.Score(ScoreInput{
		Asset: in.Asset, IsBTC: in.IsBTC,
		Direction: models.DirectionLong, Timeframes: in.Timeframes, Context: in.Context,
	})
	short := e.scorer.Score(ScoreInput{
		Asset: in.Asset, IsBTC: in.IsBTC,
		Direction: models.DirectionShort, Timeframes: in.Timeframes, Context: in.Context,
	})

	direction, score := models.DirectionLong, long
	if short.Confidence != models.ConfidenceNone &&
		(long.Confidence == models.ConfidenceNone || short.Total > long.Total) {
		direction, score = models.DirectionShort, short
	}
	eval.Direction = direction
	eval.Score = score

	if score.Confidence == models.ConfidenceNone {
		if score.HardGated {
			eval.NoDecision = "dominance gate violated"
		} else {
			eval.NoDecision = fmt.Sprintf("score %.0f below threshold", score.Total)
		}
		return eval
	}

	hypothesis := HypothesisBullish
	if direction == models.DirectionShort {
		hypothesis = HypothesisBearish
	}
	conf := ScoreConfirmations(hypothesis, in.Evidence, in.Technical)
	required := RequiredConfirmationScore(in.Technical != nil,
		e.params.MinConfirmationsTech, e.params.MinConfirmations)
	if conf.Score < required {
		eval.NoDecision = fmt.Sprintf("confirmations %.1f below required %.1f", conf.Score, required)
		return eval
	}

	veto := e.guard.Check(GuardCandidate{
		Asset: in.Asset, IsBTC: in.IsBTC, Direction: direction,
		Context: in.Context, BTCCorrelation: in.Context.BTCCorrelation,
	}, now)
	if veto.Vetoed {
		eval.Veto = &veto
		eval.NoDecision = veto.Reason
		logger.Info("signal vetoed",
			zap.String("asset", in.Asset),
			zap.String("direction", string(direction)),
			zap.String("reason", veto.Reason),
		)
		return eval
	}

	eval.Decision = e.emitter.Decide(in.Asset, string(direction), score.Confidence, score.Total, now)
	if !eval.Decision.Emit {
		eval.NoDecision = string(eval.Decision.Reason)
		return eval
	}

	signal := e.buildSignal(in, direction, score, conf, now)
	e.guard.NoteEmitted(in.Asset, direction, now)
	eval.Signal = &signal

	logger.Info("signal emitted",
		zap.String("asset", in.Asset),
		zap.String("direction", string(direction)),
		zap.Float64("score", score.Total),
		zap.String("confidence", string(score.Confidence)),
		zap.String("trigger", string(eval.Decision.Reason)),
	)
	return eval
}

func (e *Engine) buildSignal(in AssetInput, direction models.Direction, score ScoreResult, conf ConfirmationResult, now time.Time) models.Signal {
	price := in.CurrentPrice
	entry := e.params.EntryPercent / 100
	sl := e.params.StopLossPercent / 100

	var stopLoss float64
	var takeProfits []float64
	if direction == models.DirectionLong {
		stopLoss = price * (1 - sl)
		takeProfits = []float64{price * 1.02, price * 1.05}
	} else {
		stopLoss = price * (1 + sl)
		takeProfits = []float64{price * 0.98, price * 0.95}
	}

	reasons := append([]string{}, score.Reasons...)
	reasons = append(reasons, conf.Confirmations...)

	return models.Signal{
		ID:         uuid.NewString(),
		Asset:      in.Asset,
		Direction:  direction,
		Score:      score.Total,
		Confidence: score.Confidence,
		Reasons:    reasons,
		EntryRange: models.PriceRange{
			Min: price * (1 - entry),
			Max: price * (1 + entry),
		},
		StopLoss:    stopLoss,
		TakeProfits: takeProfits,
		Timestamp:   now,
	}
}
