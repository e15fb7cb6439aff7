package market

import (
	"testing"
	"time"

	"github.com/minhvo/marketpulse/pkg/models"
)

func TestHistoryStore_AppendAndSnapshot(t *testing.T) {
	store := NewHistoryStore(24 * time.Hour)
	now := time.Now()

	for i := 0; i < 10; i++ {
		store.Append(models.MetricBTCDominance, models.MetricSample{
			Timestamp: now.Add(time.Duration(i-10) * time.Minute).Unix(),
			Value:     54.0 + float64(i),
		})
	}
	store.Append(models.MetricFearGreed, models.MetricSample{
		Timestamp: now.Unix(),
		Value:     22,
	})

	snap := store.Snapshot(now)

	if snap.BTCDominance == nil || *snap.BTCDominance != 63 {
		t.Errorf("Expected current BTC dominance 63, got %v", snap.BTCDominance)
	}
	if snap.FearGreed == nil || *snap.FearGreed != 22 {
		t.Errorf("Expected fear & greed 22, got %v", snap.FearGreed)
	}
	if snap.USDTDominance != nil {
		t.Error("Metric with no samples must stay nil")
	}
	if len(snap.History[models.MetricBTCDominance]) != 10 {
		t.Errorf("Expected 10 samples in history, got %d", len(snap.History[models.MetricBTCDominance]))
	}
}

func TestHistoryStore_RetentionTrims(t *testing.T) {
	store := NewHistoryStore(time.Hour)
	now := time.Now()

	store.Append(models.MetricBTCDominance, models.MetricSample{Timestamp: now.Add(-2 * time.Hour).Unix(), Value: 53})
	store.Append(models.MetricBTCDominance, models.MetricSample{Timestamp: now.Add(-30 * time.Minute).Unix(), Value: 54})
	store.Append(models.MetricBTCDominance, models.MetricSample{Timestamp: now.Unix(), Value: 55})

	if got := store.Len(models.MetricBTCDominance); got != 2 {
		t.Errorf("Sample outside retention should be trimmed, got %d retained", got)
	}
}

func TestHistoryStore_SnapshotIsolation(t *testing.T) {
	store := NewHistoryStore(time.Hour)
	now := time.Now()

	store.Append(models.MetricBTCDominance, models.MetricSample{Timestamp: now.Unix(), Value: 54})
	snap := store.Snapshot(now)

	store.Append(models.MetricBTCDominance, models.MetricSample{Timestamp: now.Add(time.Minute).Unix(), Value: 60})

	if len(snap.History[models.MetricBTCDominance]) != 1 {
		t.Error("Snapshot history must not observe later appends")
	}
}
