package risk

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/pkg/logger"
)

type pricePoint struct {
	price float64
	at    time.Time
}

// CrashMonitor watches a rolling price window and flags a crash when the
// drop from the window high exceeds the configured percentage. Signals are
// blocked for as long as the condition holds.
type CrashMonitor struct {
	mu          sync.RWMutex
	dropPercent float64
	window      time.Duration
	points      []pricePoint
}

// NewCrashMonitor creates a crash monitor. dropPercent is the percentage
// drop inside the window that trips the flag.
func NewCrashMonitor(dropPercent float64, window time.Duration) *CrashMonitor {
	return &CrashMonitor{
		dropPercent: dropPercent,
		window:      window,
	}
}

// RecordPrice appends a price observation and prunes points outside the
// rolling window.
func (m *CrashMonitor) RecordPrice(price float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.points = append(m.points, pricePoint{price: price, at: at})

	cutoff := at.Add(-m.window)
	trimmed := m.points[:0]
	for _, p := range m.points {
		if p.at.After(cutoff) || p.at.Equal(cutoff) {
			trimmed = append(trimmed, p)
		}
	}
	m.points = trimmed
}

// InCrash reports whether the latest price sits below the window high by
// more than the configured drop.
func (m *CrashMonitor) InCrash(now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := now.Add(-m.window)
	high := 0.0
	var latest *pricePoint
	for i := range m.points {
		p := m.points[i]
		if p.at.Before(cutoff) {
			continue
		}
		if p.price > high {
			high = p.price
		}
		if latest == nil || p.at.After(latest.at) {
			latest = &m.points[i]
		}
	}

	if latest == nil || high == 0 {
		return false
	}

	drop := (high - latest.price) / high * 100
	if drop >= m.dropPercent {
		logger.Warn("crash window active",
			zap.Float64("drop_percent", drop),
			zap.Float64("window_high", high),
			zap.Float64("latest", latest.price),
		)
		return true
	}
	return false
}
