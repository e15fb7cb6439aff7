package engine

import (
	"sync"
	"time"

	"github.com/minhvo/marketpulse/pkg/models"
)

// Veto explains why a candidate signal was discarded
type Veto struct {
	Vetoed bool
	Reason string
}

// GuardCandidate is a post-scoring signal offered to the guardrail filter
type GuardCandidate struct {
	Asset          string
	IsBTC          bool
	Direction      models.Direction
	Context        models.MarketContext
	BTCCorrelation float64
}

type activeSignal struct {
	direction models.Direction
	emittedAt time.Time
}

// Guard applies hard veto rules to candidate signals. Check is a pure read
// of the active-signal registry; registry mutation happens only through
// NoteEmitted, after the caller commits to emission.
type Guard struct {
	mu                   sync.RWMutex
	active               map[string]activeSignal
	activeWindow         time.Duration
	correlationThreshold float64
}

// NewGuard creates a guardrail filter. activeWindow bounds the one-signal-
// per-asset rule; correlationThreshold gates cross-asset conflict checks.
func NewGuard(activeWindow time.Duration, correlationThreshold float64) *Guard {
	return &Guard{
		active:               make(map[string]activeSignal),
		activeWindow:         activeWindow,
		correlationThreshold: correlationThreshold,
	}
}

// Check applies every veto rule to the candidate. Idempotent: repeated calls
// with the same candidate and registry state return the same result.
func (g *Guard) Check(c GuardCandidate, now time.Time) Veto {
	ctx := c.Context

	if ctx.BTCCrash {
		return Veto{Vetoed: true, Reason: "BTC crash window active"}
	}
	if !ctx.LiquidityOK {
		return Veto{Vetoed: true, Reason: "liquidity below threshold"}
	}
	if c.Direction == models.DirectionLong && ctx.USDTDomSpikingUp {
		return Veto{Vetoed: true, Reason: "stablecoin dominance spiking up, risk-off"}
	}
	if !c.IsBTC && c.Direction == models.DirectionLong && ctx.BTCDomRising {
		return Veto{Vetoed: true, Reason: "BTC dominance rising against altcoins"}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	// One decision in flight per asset.
	if prev, ok := g.active[c.Asset]; ok && now.Sub(prev.emittedAt) < g.activeWindow {
		return Veto{Vetoed: true, Reason: "signal already active for asset"}
	}

	// A correlated asset with an opposite-direction signal in flight blocks
	// the candidate. Altcoins are checked against BTC's pending direction.
	if !c.IsBTC && c.BTCCorrelation >= g.correlationThreshold {
		if prev, ok := g.active["BTCUSDT"]; ok &&
			now.Sub(prev.emittedAt) < g.activeWindow &&
			prev.direction == c.Direction.Opposite() {
			return Veto{Vetoed: true, Reason: "conflicts with active opposite BTC signal"}
		}
	}

	return Veto{}
}

// NoteEmitted records a committed emission in the active-signal registry
func (g *Guard) NoteEmitted(asset string, direction models.Direction, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active[asset] = activeSignal{direction: direction, emittedAt: at}
}

// ActiveSignal reports the in-flight direction for an asset, if any
func (g *Guard) ActiveSignal(asset string, now time.Time) (models.Direction, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	prev, ok := g.active[asset]
	if !ok || now.Sub(prev.emittedAt) >= g.activeWindow {
		return models.DirectionNone, false
	}
	return prev.direction, true
}
