package engine

import "math"

// Severity tiers a standardized deviation score
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityNone   Severity = "none"
)

// Anomaly is the result of comparing a current value against its StatWindow
type Anomaly struct {
	ZScore    float64
	Severity  Severity
	Rising    bool
	Skipped   bool
	Threshold float64
}

// DetectAnomaly computes the z-score of the current value relative to the
// window and tiers it against the per-metric threshold. Invalid windows and
// zero-variance windows are skipped, never faulted: a skipped result carries
// SeverityNone and must be treated as "no evidence", not as neutral evidence.
func DetectAnomaly(current float64, w StatWindow, thresholdStdDev float64) Anomaly {
	if !w.Valid || w.StdDev == 0 {
		return Anomaly{Severity: SeverityNone, Skipped: true, Threshold: thresholdStdDev}
	}

	z := (current - w.Mean) / w.StdDev
	abs := math.Abs(z)

	severity := SeverityLow
	switch {
	case abs >= thresholdStdDev:
		severity = SeverityHigh
	case abs >= thresholdStdDev*0.7:
		severity = SeverityMedium
	}

	return Anomaly{
		ZScore:    z,
		Severity:  severity,
		Rising:    z > 0,
		Threshold: thresholdStdDev,
	}
}

// Qualifies reports whether the anomaly is strong enough to feed signal
// emission. Low severities only ever produce informational alerts.
func (a Anomaly) Qualifies() bool {
	return !a.Skipped && (a.Severity == SeverityHigh || a.Severity == SeverityMedium)
}
