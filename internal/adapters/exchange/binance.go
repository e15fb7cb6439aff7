package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/minhvo/marketpulse/pkg/models"
)

// Ticker is the 24h rolling window statistics for one symbol
type Ticker struct {
	Symbol         string
	LastPrice      float64
	PriceChangePct float64
	QuoteVolume    float64
	Timestamp      time.Time
}

// BinanceAdapter talks to the Binance USD-M futures REST API. Public
// endpoints only; the engine never trades.
type BinanceAdapter struct {
	client  *http.Client
	baseURL string
}

// NewBinanceAdapter creates a Binance futures market-data adapter
func NewBinanceAdapter(baseURL string, timeout time.Duration) *BinanceAdapter {
	return &BinanceAdapter{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (b *BinanceAdapter) GetName() string {
	return "binance"
}

func (b *BinanceAdapter) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", b.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// FetchKlines returns up to limit candles for the symbol and interval,
// ascending by open time.
func (b *BinanceAdapter) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	path := fmt.Sprintf("/fapi/v1/klines?symbol=%s&interval=%s&limit=%d", symbol, interval, limit)

	// Kline rows are mixed-type arrays: numbers for times, strings for prices
	var rows [][]json.RawMessage
	if err := b.get(ctx, path, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch klines for %s: %w", symbol, err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 8 {
			continue
		}
		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			continue
		}

		field := func(i int) string {
			var s string
			_ = json.Unmarshal(row[i], &s)
			return s
		}

		candles = append(candles, models.Candle{
			Symbol:      symbol,
			Timeframe:   interval,
			Timestamp:   time.UnixMilli(openTime),
			Open:        models.NewDecimalFromString(field(1)),
			High:        models.NewDecimalFromString(field(2)),
			Low:         models.NewDecimalFromString(field(3)),
			Close:       models.NewDecimalFromString(field(4)),
			Volume:      models.NewDecimalFromString(field(5)),
			QuoteVolume: models.NewDecimalFromString(field(7)),
		})
	}

	return candles, nil
}

type ticker24hResponse struct {
	Symbol         string `json:"symbol"`
	LastPrice      string `json:"lastPrice"`
	PriceChangePct string `json:"priceChangePercent"`
	QuoteVolume    string `json:"quoteVolume"`
	CloseTime      int64  `json:"closeTime"`
}

// FetchTicker returns 24h rolling statistics for one symbol
func (b *BinanceAdapter) FetchTicker(ctx context.Context, symbol string) (*Ticker, error) {
	var resp ticker24hResponse
	if err := b.get(ctx, fmt.Sprintf("/fapi/v1/ticker/24hr?symbol=%s", symbol), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch ticker for %s: %w", symbol, err)
	}

	last, err := strconv.ParseFloat(resp.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid last price %q: %w", resp.LastPrice, err)
	}
	change, _ := strconv.ParseFloat(resp.PriceChangePct, 64)
	quoteVolume, _ := strconv.ParseFloat(resp.QuoteVolume, 64)

	return &Ticker{
		Symbol:         resp.Symbol,
		LastPrice:      last,
		PriceChangePct: change,
		QuoteVolume:    quoteVolume,
		Timestamp:      time.UnixMilli(resp.CloseTime),
	}, nil
}

type premiumIndexResponse struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
}

// FetchFundingRate returns the current funding rate for one symbol
func (b *BinanceAdapter) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	var resp premiumIndexResponse
	if err := b.get(ctx, fmt.Sprintf("/fapi/v1/premiumIndex?symbol=%s", symbol), &resp); err != nil {
		return 0, fmt.Errorf("failed to fetch funding rate for %s: %w", symbol, err)
	}

	rate, err := strconv.ParseFloat(resp.LastFundingRate, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid funding rate %q: %w", resp.LastFundingRate, err)
	}
	return rate, nil
}

type openInterestResponse struct {
	Symbol       string `json:"symbol"`
	OpenInterest string `json:"openInterest"`
}

// FetchOpenInterest returns current open interest in base units
func (b *BinanceAdapter) FetchOpenInterest(ctx context.Context, symbol string) (float64, error) {
	var resp openInterestResponse
	if err := b.get(ctx, fmt.Sprintf("/fapi/v1/openInterest?symbol=%s", symbol), &resp); err != nil {
		return 0, fmt.Errorf("failed to fetch open interest for %s: %w", symbol, err)
	}

	oi, err := strconv.ParseFloat(resp.OpenInterest, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid open interest %q: %w", resp.OpenInterest, err)
	}
	return oi, nil
}
