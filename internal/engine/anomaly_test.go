package engine

import (
	"math"
	"testing"
)

func TestDetectAnomaly_DominanceSpike(t *testing.T) {
	// BTC dominance mean 55, stddev 1, current 57 -> z=2, high at 1.5x
	w := StatWindow{Mean: 55, StdDev: 1, Valid: true, Count: 40}

	a := DetectAnomaly(57, w, 1.5)

	if a.Skipped {
		t.Fatal("Anomaly should not be skipped for a valid window")
	}
	if math.Abs(a.ZScore-2.0) > 1e-9 {
		t.Errorf("Expected z-score 2.0, got %f", a.ZScore)
	}
	if a.Severity != SeverityHigh {
		t.Errorf("Expected high severity, got %s", a.Severity)
	}
	if !a.Rising {
		t.Error("Positive z-score should be rising")
	}
	if !a.Qualifies() {
		t.Error("High severity should qualify for signal emission")
	}
}

func TestDetectAnomaly_SeverityTiers(t *testing.T) {
	w := StatWindow{Mean: 50, StdDev: 2, Valid: true, Count: 40}

	tests := []struct {
		name     string
		current  float64
		severity Severity
	}{
		{"high at threshold", 53.0, SeverityHigh}, // z=1.5
		{"medium at 0.7x", 52.2, SeverityMedium},  // z=1.1
		{"low below 0.7x", 51.0, SeverityLow},     // z=0.5
		{"high negative", 47.0, SeverityHigh},     // z=-1.5
		{"medium negative", 47.8, SeverityMedium}, // z=-1.1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := DetectAnomaly(tt.current, w, 1.5)
			if a.Severity != tt.severity {
				t.Errorf("Expected %s, got %s (z=%f)", tt.severity, a.Severity, a.ZScore)
			}
		})
	}
}

func TestDetectAnomaly_DegenerateStatistics(t *testing.T) {
	t.Run("zero stddev", func(t *testing.T) {
		w := StatWindow{Mean: 55, StdDev: 0, Valid: true, Count: 40}

		a := DetectAnomaly(60, w, 1.5)

		if !a.Skipped {
			t.Error("Zero stddev window must be skipped, not evaluated")
		}
		if a.Severity != SeverityNone {
			t.Errorf("Skipped anomaly must carry none severity, got %s", a.Severity)
		}
		if a.Qualifies() {
			t.Error("Skipped anomaly must never qualify")
		}
	})

	t.Run("invalid window", func(t *testing.T) {
		a := DetectAnomaly(60, StatWindow{Count: 5}, 1.5)

		if !a.Skipped {
			t.Error("Invalid window must be skipped")
		}
	})
}

func TestAnomaly_LowNeverQualifies(t *testing.T) {
	w := StatWindow{Mean: 50, StdDev: 2, Valid: true, Count: 40}

	a := DetectAnomaly(50.5, w, 1.5)

	if a.Severity != SeverityLow {
		t.Fatalf("Expected low severity, got %s", a.Severity)
	}
	if a.Qualifies() {
		t.Error("Low severity must only produce informational alerts")
	}
}
