package risk

import (
	"fmt"
	"math"

	"github.com/minhvo/marketpulse/pkg/models"
)

// Correlation computes the Pearson correlation coefficient of two equal
// length series. Returns 0 for degenerate input (constant series).
func Correlation(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/float64(n), sumB/float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// ReturnsCorrelation correlates the close-to-close returns of two candle
// series. Used to gate altcoin signals against BTC's pending direction.
func ReturnsCorrelation(x, y []models.Candle) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("candle series length mismatch: %d vs %d", len(x), len(y))
	}
	if len(x) < 3 {
		return 0, fmt.Errorf("insufficient candles for correlation (got %d)", len(x))
	}

	return Correlation(returns(x), returns(y)), nil
}

func returns(candles []models.Candle) []float64 {
	closes := models.ClosePrices(candles)
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (closes[i]-closes[i-1])/closes[i-1])
	}
	return out
}
