package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GlobalMetrics is the market-wide dominance snapshot
type GlobalMetrics struct {
	BTCDominance  float64
	USDTDominance float64
	TotalMcapUSD  float64
	FetchedAt     time.Time
}

// CoinMarketCapProvider fetches global market metrics from the
// CoinMarketCap pro API.
type CoinMarketCapProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string

	cache    *GlobalMetrics
	cacheTTL time.Duration
}

// NewCoinMarketCapProvider creates a CoinMarketCap metrics provider
func NewCoinMarketCapProvider(baseURL, apiKey string, timeout time.Duration) *CoinMarketCapProvider {
	return &CoinMarketCapProvider{
		client:   &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		apiKey:   apiKey,
		cacheTTL: 2 * time.Minute,
	}
}

func (p *CoinMarketCapProvider) GetName() string {
	return "CoinMarketCap"
}

type globalMetricsResponse struct {
	Data struct {
		BTCDominance float64 `json:"btc_dominance"`
		Quote        struct {
			USD struct {
				TotalMarketCap      float64 `json:"total_market_cap"`
				StablecoinMarketCap float64 `json:"stablecoin_market_cap"`
			} `json:"USD"`
		} `json:"quote"`
	} `json:"data"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

// GetGlobalMetrics returns the latest dominance snapshot, cached briefly to
// stay inside the API quota.
func (p *CoinMarketCapProvider) GetGlobalMetrics(ctx context.Context) (*GlobalMetrics, error) {
	if p.cache != nil && time.Since(p.cache.FetchedAt) < p.cacheTTL {
		return p.cache, nil
	}

	url := fmt.Sprintf("%s/v1/global-metrics/quotes/latest", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-CMC_PRO_API_KEY", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var result globalMetricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("API error %d: %s", result.Status.ErrorCode, result.Status.ErrorMessage)
	}

	total := result.Data.Quote.USD.TotalMarketCap
	usdtDominance := 0.0
	if total > 0 {
		usdtDominance = result.Data.Quote.USD.StablecoinMarketCap / total * 100
	}

	metrics := &GlobalMetrics{
		BTCDominance:  result.Data.BTCDominance,
		USDTDominance: usdtDominance,
		TotalMcapUSD:  total,
		FetchedAt:     time.Now(),
	}
	p.cache = metrics

	return metrics, nil
}
