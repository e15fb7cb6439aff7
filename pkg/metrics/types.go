package metrics

import "time"

// Metric records written to ClickHouse by the analysis pipeline

// MetricObservation is a single market-metric sample (dominance, fear & greed)
type MetricObservation struct {
	Timestamp time.Time
	Metric    string
	Value     float64
	Source    string
}

func (m *MetricObservation) TableName() string {
	return "metric_observations"
}

func (m *MetricObservation) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.Metric,
		m.Value,
		m.Source,
	}
}

// AnomalyMetric records a detected metric anomaly with its z-score context
type AnomalyMetric struct {
	Timestamp time.Time
	Metric    string
	Value     float64
	Mean      float64
	StdDev    float64
	ZScore    float64
	Severity  string
	Direction string
}

func (m *AnomalyMetric) TableName() string {
	return "metric_anomalies"
}

func (m *AnomalyMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.Metric,
		m.Value,
		m.Mean,
		m.StdDev,
		m.ZScore,
		m.Severity,
		m.Direction,
	}
}

// EvaluationMetric tracks per-asset evaluation outcomes for scoring analysis
type EvaluationMetric struct {
	Timestamp      time.Time
	Asset          string
	Direction      string
	Score          float64
	Confidence     string
	Emitted        bool
	SuppressReason string
	DurationMs     int
}

func (m *EvaluationMetric) TableName() string {
	return "evaluation_metrics"
}

func (m *EvaluationMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.Asset,
		m.Direction,
		m.Score,
		m.Confidence,
		m.Emitted,
		m.SuppressReason,
		m.DurationMs,
	}
}
