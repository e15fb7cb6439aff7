package engine

import (
	"testing"
	"time"

	"github.com/minhvo/marketpulse/pkg/models"
)

func newTestGuard() *Guard {
	return NewGuard(4*time.Hour, 0.85)
}

func okContext() models.MarketContext {
	return models.MarketContext{LiquidityOK: true, OpenInterestOK: true}
}

func TestGuard_Vetoes(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		candidate GuardCandidate
		vetoed    bool
	}{
		{
			name: "clean candidate passes",
			candidate: GuardCandidate{
				Asset: "BTCUSDT", IsBTC: true,
				Direction: models.DirectionLong, Context: okContext(),
			},
			vetoed: false,
		},
		{
			name: "btc crash vetoes everything",
			candidate: GuardCandidate{
				Asset: "BTCUSDT", IsBTC: true, Direction: models.DirectionShort,
				Context: models.MarketContext{LiquidityOK: true, BTCCrash: true},
			},
			vetoed: true,
		},
		{
			name: "low liquidity vetoes everything",
			candidate: GuardCandidate{
				Asset: "ETHUSDT", Direction: models.DirectionShort,
				Context: models.MarketContext{LiquidityOK: false},
			},
			vetoed: true,
		},
		{
			name: "stablecoin spike vetoes long",
			candidate: GuardCandidate{
				Asset: "BTCUSDT", IsBTC: true, Direction: models.DirectionLong,
				Context: models.MarketContext{LiquidityOK: true, USDTDomSpikingUp: true},
			},
			vetoed: true,
		},
		{
			name: "stablecoin spike allows short",
			candidate: GuardCandidate{
				Asset: "BTCUSDT", IsBTC: true, Direction: models.DirectionShort,
				Context: models.MarketContext{LiquidityOK: true, USDTDomSpikingUp: true},
			},
			vetoed: false,
		},
		{
			name: "rising btc dominance vetoes alt long",
			candidate: GuardCandidate{
				Asset: "ETHUSDT", IsBTC: false, Direction: models.DirectionLong,
				Context: models.MarketContext{LiquidityOK: true, BTCDomRising: true},
			},
			vetoed: true,
		},
		{
			name: "rising btc dominance allows btc long",
			candidate: GuardCandidate{
				Asset: "BTCUSDT", IsBTC: true, Direction: models.DirectionLong,
				Context: models.MarketContext{LiquidityOK: true, BTCDomRising: true},
			},
			vetoed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGuard()
			v := g.Check(tt.candidate, now)
			if v.Vetoed != tt.vetoed {
				t.Errorf("Expected vetoed=%v, got %v (%s)", tt.vetoed, v.Vetoed, v.Reason)
			}
		})
	}
}

func TestGuard_Idempotent(t *testing.T) {
	g := newTestGuard()
	now := time.Now()
	c := GuardCandidate{
		Asset: "ETHUSDT", Direction: models.DirectionLong,
		Context: models.MarketContext{LiquidityOK: true, BTCDomRising: true},
	}

	first := g.Check(c, now)
	second := g.Check(c, now)

	if first != second {
		t.Errorf("Check must be idempotent: %v vs %v", first, second)
	}
}

func TestGuard_OneSignalInFlightPerAsset(t *testing.T) {
	g := newTestGuard()
	now := time.Now()
	c := GuardCandidate{Asset: "BTCUSDT", IsBTC: true, Direction: models.DirectionLong, Context: okContext()}

	if v := g.Check(c, now); v.Vetoed {
		t.Fatalf("First candidate should pass, got %s", v.Reason)
	}
	g.NoteEmitted("BTCUSDT", models.DirectionLong, now)

	if v := g.Check(c, now.Add(time.Hour)); !v.Vetoed {
		t.Error("Second candidate within the active window must be vetoed")
	}

	if v := g.Check(c, now.Add(5*time.Hour)); v.Vetoed {
		t.Errorf("Candidate after the active window should pass, got %s", v.Reason)
	}
}

func TestGuard_CorrelatedConflict(t *testing.T) {
	g := newTestGuard()
	now := time.Now()
	g.NoteEmitted("BTCUSDT", models.DirectionShort, now)

	t.Run("correlated alt long blocked by active btc short", func(t *testing.T) {
		v := g.Check(GuardCandidate{
			Asset: "ETHUSDT", IsBTC: false, Direction: models.DirectionLong,
			Context: okContext(), BTCCorrelation: 0.9,
		}, now.Add(time.Minute))

		if !v.Vetoed {
			t.Error("Opposite-direction signal on correlated asset must be vetoed")
		}
	})

	t.Run("weakly correlated alt passes", func(t *testing.T) {
		v := g.Check(GuardCandidate{
			Asset: "ETHUSDT", IsBTC: false, Direction: models.DirectionLong,
			Context: okContext(), BTCCorrelation: 0.4,
		}, now.Add(time.Minute))

		if v.Vetoed {
			t.Errorf("Correlation below threshold should not gate, got %s", v.Reason)
		}
	})

	t.Run("same direction passes", func(t *testing.T) {
		v := g.Check(GuardCandidate{
			Asset: "ETHUSDT", IsBTC: false, Direction: models.DirectionShort,
			Context: okContext(), BTCCorrelation: 0.9,
		}, now.Add(time.Minute))

		if v.Vetoed {
			t.Errorf("Aligned direction should not conflict, got %s", v.Reason)
		}
	})
}
