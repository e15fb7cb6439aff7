package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// FearGreedProvider fetches the crypto fear & greed index from
// alternative.me (free, no API key).
type FearGreedProvider struct {
	client  *http.Client
	baseURL string
}

// NewFearGreedProvider creates a fear & greed index provider
func NewFearGreedProvider(baseURL string, timeout time.Duration) *FearGreedProvider {
	return &FearGreedProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (p *FearGreedProvider) GetName() string {
	return "FearGreedIndex"
}

type fearGreedResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
}

// GetIndex returns the current fear & greed value on the 0-100 scale
func (p *FearGreedProvider) GetIndex(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/fng/?limit=1", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var result fearGreedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Data) == 0 {
		return 0, fmt.Errorf("empty fear & greed response")
	}

	value, err := strconv.ParseFloat(result.Data[0].Value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid index value %q: %w", result.Data[0].Value, err)
	}
	return value, nil
}
