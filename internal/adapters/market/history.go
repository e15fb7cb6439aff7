package market

import (
	"sync"
	"time"

	"github.com/minhvo/marketpulse/pkg/models"
)

// HistoryStore retains bounded per-metric sample history. The engine only
// ever sees read-only slices cut from this store per evaluation.
type HistoryStore struct {
	mu        sync.RWMutex
	series    map[models.Metric]models.MetricSeries
	retention time.Duration
}

// NewHistoryStore creates a bounded metric history store
func NewHistoryStore(retention time.Duration) *HistoryStore {
	return &HistoryStore{
		series:    make(map[models.Metric]models.MetricSeries),
		retention: retention,
	}
}

// Append records one sample and trims history past the retention window.
// Samples must arrive in timestamp order per metric.
func (h *HistoryStore) Append(metric models.Metric, sample models.MetricSample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	series := append(h.series[metric], sample)

	cutoff := sample.Timestamp - int64(h.retention.Seconds())
	start := 0
	for start < len(series) && series[start].Timestamp < cutoff {
		start++
	}
	h.series[metric] = series[start:]
}

// Snapshot assembles the evaluation input: current values plus copied
// history slices, safe to read while ingestion keeps appending.
func (h *HistoryStore) Snapshot(now time.Time) models.MarketSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snap := models.MarketSnapshot{
		Timestamp: now.Unix(),
		History:   make(map[models.Metric]models.MetricSeries, len(h.series)),
	}

	for metric, series := range h.series {
		copied := make(models.MetricSeries, len(series))
		copy(copied, series)
		snap.History[metric] = copied

		if len(series) == 0 {
			continue
		}
		last := series[len(series)-1].Value
		switch metric {
		case models.MetricBTCDominance:
			snap.BTCDominance = &last
		case models.MetricUSDTDominance:
			snap.USDTDominance = &last
		case models.MetricFearGreed:
			snap.FearGreed = &last
		}
	}

	return snap
}

// Len reports the retained sample count for one metric
func (h *HistoryStore) Len(metric models.Metric) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.series[metric])
}
