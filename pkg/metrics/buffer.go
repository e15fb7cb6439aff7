package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/pkg/logger"
)

// BufferedMetrics batches analytics records per table and flushes them on
// size or on a timer. Evaluation ticks stay off the archive's write path.
type BufferedMetrics struct {
	writer      Writer
	buffer      map[string][]Metric
	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	batchSize   int
	bufferMu    sync.RWMutex
}

// BufferConfig configures the analytics buffer
type BufferConfig struct {
	Writer        Writer
	BatchSize     int           // Flush when a table's buffer reaches this size
	FlushInterval time.Duration // Timer flush interval
}

// NewBufferedMetrics creates the buffer and starts its flush loop
func NewBufferedMetrics(cfg BufferConfig) *BufferedMetrics {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	bm := &BufferedMetrics{
		writer:      cfg.Writer,
		buffer:      make(map[string][]Metric),
		batchSize:   cfg.BatchSize,
		flushTicker: time.NewTicker(cfg.FlushInterval),
		stopCh:      make(chan struct{}),
	}

	bm.wg.Add(1)
	go bm.autoFlush()

	logger.Info("analytics buffer initialized",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
	)

	return bm
}

// Add buffers one record under its table. Safe for concurrent workers.
func (bm *BufferedMetrics) Add(metric Metric) error {
	if metric == nil {
		return fmt.Errorf("metric is nil")
	}

	tableName := metric.TableName()
	if tableName == "" {
		return fmt.Errorf("metric table name is empty")
	}

	bm.bufferMu.Lock()
	defer bm.bufferMu.Unlock()

	bm.buffer[tableName] = append(bm.buffer[tableName], metric)

	if len(bm.buffer[tableName]) >= bm.batchSize {
		logger.Debug("batch size reached, flushing",
			zap.String("table", tableName),
			zap.Int("size", len(bm.buffer[tableName])),
		)
		// Flush in background so Add never blocks an evaluation tick
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := bm.Flush(ctx); err != nil {
				logger.Error("auto-flush failed", zap.Error(err))
			}
		}()
	}

	return nil
}

// Flush writes out every buffered table
func (bm *BufferedMetrics) Flush(ctx context.Context) error {
	bm.bufferMu.Lock()

	toFlush := make(map[string][]Metric)
	for table, records := range bm.buffer {
		if len(records) > 0 {
			toFlush[table] = records
			bm.buffer[table] = nil
		}
	}
	bm.bufferMu.Unlock()

	if len(toFlush) == 0 {
		return nil
	}

	var errs []error
	for tableName, records := range toFlush {
		if err := bm.writer.Write(ctx, tableName, records); err != nil {
			logger.Error("failed to flush analytics records",
				zap.String("table", tableName),
				zap.Int("count", len(records)),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		logger.Debug("analytics records flushed",
			zap.String("table", tableName),
			zap.Int("count", len(records)),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("flush failed for %d tables", len(errs))
	}

	return nil
}

// Size reports the buffered record count across all tables
func (bm *BufferedMetrics) Size() int {
	bm.bufferMu.RLock()
	defer bm.bufferMu.RUnlock()

	total := 0
	for _, records := range bm.buffer {
		total += len(records)
	}
	return total
}

// Close stops the flush loop, drains the buffer and closes the writer
func (bm *BufferedMetrics) Close(ctx context.Context) error {
	logger.Info("closing analytics buffer...")

	close(bm.stopCh)
	bm.flushTicker.Stop()
	bm.wg.Wait()

	if err := bm.Flush(ctx); err != nil {
		logger.Error("final flush failed", zap.Error(err))
		return err
	}

	if err := bm.writer.Close(); err != nil {
		logger.Error("writer close failed", zap.Error(err))
		return err
	}

	logger.Info("analytics buffer closed")
	return nil
}

func (bm *BufferedMetrics) autoFlush() {
	defer bm.wg.Done()

	for {
		select {
		case <-bm.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := bm.Flush(ctx); err != nil {
				logger.Warn("periodic flush failed", zap.Error(err))
			}
			cancel()

		case <-bm.stopCh:
			return
		}
	}
}
