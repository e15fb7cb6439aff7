package models

import "github.com/shopspring/decimal"

// NewDecimalFromString parses a decimal, returning zero on malformed input.
// Exchange payloads carry prices as strings.
func NewDecimalFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ToFloat64 safely converts decimal to float64
func ToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// ClosePrices extracts close prices from candles as float64
func ClosePrices(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = ToFloat64(candles[i].Close)
	}
	return out
}

// HighPrices extracts high prices from candles as float64
func HighPrices(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = ToFloat64(candles[i].High)
	}
	return out
}

// LowPrices extracts low prices from candles as float64
func LowPrices(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = ToFloat64(candles[i].Low)
	}
	return out
}

// Volumes extracts volumes from candles as float64
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = ToFloat64(candles[i].Volume)
	}
	return out
}
