package metrics

import "context"

// Metric is one analytics record bound for the archive: a raw metric
// observation, a detected anomaly or an evaluation outcome.
type Metric interface {
	// TableName returns the archive table this record belongs to
	TableName() string
	// Values returns the record's values in column order
	Values() []interface{}
}

// Writer persists record batches, one table per call
type Writer interface {
	Write(ctx context.Context, tableName string, metrics []Metric) error
	// Close flushes any remaining data and releases the storage handle
	Close() error
}

// Buffer batches records between the evaluation workers and the writer.
// Add is safe to call from concurrent workers.
type Buffer interface {
	Add(metric Metric) error
	Flush(ctx context.Context) error
	Size() int
	// Close flushes outstanding records and stops the auto-flush loop
	Close(ctx context.Context) error
}
