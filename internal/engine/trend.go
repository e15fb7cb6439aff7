package engine

// TrendConsistency is the directional agreement across timeframe windows
type TrendConsistency struct {
	Consistent bool
	Ratio      float64
	Majority   TrendDirection
	Valid      int
}

// CheckTrendConsistency measures how many of the supplied windows agree with
// the majority trend direction. Windows are expected ascending by duration.
// Invalid windows are excluded entirely; with fewer than 2 valid windows the
// check fails closed.
func CheckTrendConsistency(windows []StatWindow) TrendConsistency {
	counts := map[TrendDirection]int{}
	valid := 0
	for _, w := range windows {
		if !w.Valid {
			continue
		}
		counts[w.Trend]++
		valid++
	}

	if valid < 2 {
		return TrendConsistency{Valid: valid}
	}

	majority := TrendNeutral
	best := 0
	for _, dir := range []TrendDirection{TrendUp, TrendDown, TrendNeutral} {
		if counts[dir] > best {
			best = counts[dir]
			majority = dir
		}
	}

	ratio := float64(best) / float64(valid)
	return TrendConsistency{
		Consistent: ratio >= 0.6,
		Ratio:      ratio,
		Majority:   majority,
		Valid:      valid,
	}
}
