package engine

import (
	"math"

	"github.com/minhvo/marketpulse/pkg/models"
)

// TrendDirection is the sign of a window's momentum
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// StatWindow holds descriptive statistics over one metric look-back window.
// Recomputed on every evaluation tick; never cached across ticks.
type StatWindow struct {
	Mean           float64
	StdDev         float64
	Min            float64
	Max            float64
	Momentum       float64
	RecentMomentum float64
	Trend          TrendDirection
	TrendStrength  float64
	Current        float64
	Count          int
	Valid          bool
}

// ComputeStatWindow derives a StatWindow from a time-ordered series. Returns
// an invalid window when the series has fewer than minSamples points; invalid
// windows must not feed decisions downstream.
func ComputeStatWindow(series models.MetricSeries, minSamples int) StatWindow {
	if len(series) < minSamples {
		return StatWindow{Count: len(series)}
	}

	values := series.Values()
	n := float64(len(values))

	sum := 0.0
	min := values[0]
	max := values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / n

	// Population standard deviation
	var sqSum float64
	for _, v := range values {
		d := v - mean
		sqSum += d * d
	}
	stdDev := math.Sqrt(sqSum / n)

	momentum := (values[len(values)-1] - values[0]) / n
	recentMomentum := computeRecentMomentum(values)

	trend := TrendNeutral
	switch {
	case momentum > 0:
		trend = TrendUp
	case momentum < 0:
		trend = TrendDown
	}

	trendStrength := 0.0
	if stdDev > 0 {
		trendStrength = math.Min(math.Abs(momentum)/stdDev, 1.0)
	}

	return StatWindow{
		Mean:           mean,
		StdDev:         stdDev,
		Min:            min,
		Max:            max,
		Momentum:       momentum,
		RecentMomentum: recentMomentum,
		Trend:          trend,
		TrendStrength:  trendStrength,
		Current:        values[len(values)-1],
		Count:          len(values),
		Valid:          true,
	}
}

// computeRecentMomentum compares the average of the last two thirds of the
// window against the first third, normalized by the full sample count.
// Captures direction changes the full-window momentum smooths over.
func computeRecentMomentum(values []float64) float64 {
	third := len(values) / 3
	if third == 0 {
		return 0
	}

	var oldSum, newSum float64
	for _, v := range values[:third] {
		oldSum += v
	}
	recent := values[third:]
	for _, v := range recent {
		newSum += v
	}

	return (newSum/float64(len(recent)) - oldSum/float64(third)) / float64(len(values))
}
