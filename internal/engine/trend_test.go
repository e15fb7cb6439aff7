package engine

import "testing"

func validWindow(trend TrendDirection) StatWindow {
	return StatWindow{Trend: trend, Valid: true, Count: 40}
}

func TestCheckTrendConsistency(t *testing.T) {
	t.Run("unanimous agreement", func(t *testing.T) {
		c := CheckTrendConsistency([]StatWindow{
			validWindow(TrendUp), validWindow(TrendUp), validWindow(TrendUp),
		})

		if !c.Consistent {
			t.Error("Unanimous windows should be consistent")
		}
		if c.Ratio != 1.0 {
			t.Errorf("Expected ratio 1.0, got %f", c.Ratio)
		}
		if c.Majority != TrendUp {
			t.Errorf("Expected up majority, got %s", c.Majority)
		}
	})

	t.Run("two of three agree", func(t *testing.T) {
		c := CheckTrendConsistency([]StatWindow{
			validWindow(TrendUp), validWindow(TrendUp), validWindow(TrendDown),
		})

		if !c.Consistent {
			t.Error("2/3 agreement meets the 0.6 bar")
		}
		if c.Ratio < 0.66 || c.Ratio > 0.67 {
			t.Errorf("Expected ratio ~0.67, got %f", c.Ratio)
		}
	})

	t.Run("split disagreement", func(t *testing.T) {
		c := CheckTrendConsistency([]StatWindow{
			validWindow(TrendUp), validWindow(TrendDown),
		})

		if c.Consistent {
			t.Error("50/50 split should not be consistent")
		}
	})
}

func TestCheckTrendConsistency_InvalidWindowsExcluded(t *testing.T) {
	t.Run("invalid excluded from both sides", func(t *testing.T) {
		c := CheckTrendConsistency([]StatWindow{
			validWindow(TrendUp),
			validWindow(TrendUp),
			{Trend: TrendDown, Valid: false, Count: 3},
		})

		if c.Valid != 2 {
			t.Errorf("Expected 2 valid windows, got %d", c.Valid)
		}
		if !c.Consistent || c.Ratio != 1.0 {
			t.Errorf("Invalid window must not dilute the ratio, got %f", c.Ratio)
		}
	})

	t.Run("fewer than two valid fails closed", func(t *testing.T) {
		c := CheckTrendConsistency([]StatWindow{
			validWindow(TrendUp),
			{Valid: false},
			{Valid: false},
		})

		if c.Consistent {
			t.Error("Single valid window must not be consistent")
		}
		if c.Ratio != 0 {
			t.Errorf("Expected ratio 0, got %f", c.Ratio)
		}
	})

	t.Run("no valid windows", func(t *testing.T) {
		c := CheckTrendConsistency([]StatWindow{{}, {}})

		if c.Consistent || c.Ratio != 0 {
			t.Error("All-invalid input must fail closed")
		}
	})
}
