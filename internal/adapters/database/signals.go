package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/minhvo/marketpulse/pkg/models"
)

// SignalRepository persists emitted signals in Postgres
type SignalRepository struct {
	db *sqlx.DB
}

// NewSignalRepository creates new signal repository
func NewSignalRepository(db *sqlx.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// SaveSignal inserts an emitted asset signal
func (r *SignalRepository) SaveSignal(ctx context.Context, sig *models.Signal) error {
	query := `
		INSERT INTO signals
		(id, asset, direction, score, confidence, reasons, entry_low, entry_high,
		 stop_loss, take_profits, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		sig.ID,
		sig.Asset,
		string(sig.Direction),
		sig.Score,
		string(sig.Confidence),
		pq.StringArray(sig.Reasons),
		sig.EntryRange.Min,
		sig.EntryRange.Max,
		sig.StopLoss,
		pq.Float64Array(sig.TakeProfits),
		sig.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}

	return nil
}

// SaveMarketSignal inserts an emitted market-wide signal
func (r *SignalRepository) SaveMarketSignal(ctx context.Context, sig *models.MarketSignal) error {
	query := `
		INSERT INTO market_signals
		(type, action, confidence, reason, value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		sig.Type,
		string(sig.Action),
		string(sig.Confidence),
		sig.Reason,
		sig.Value,
		time.Unix(sig.Timestamp, 0).UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save market signal: %w", err)
	}

	return nil
}

// signalRow is the flat scan target for the signals table
type signalRow struct {
	ID          string          `db:"id"`
	Asset       string          `db:"asset"`
	Direction   string          `db:"direction"`
	Score       float64         `db:"score"`
	Confidence  string          `db:"confidence"`
	Reasons     pq.StringArray  `db:"reasons"`
	EntryLow    float64         `db:"entry_low"`
	EntryHigh   float64         `db:"entry_high"`
	StopLoss    float64         `db:"stop_loss"`
	TakeProfits pq.Float64Array `db:"take_profits"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (row *signalRow) toModel() *models.Signal {
	return &models.Signal{
		ID:         row.ID,
		Asset:      row.Asset,
		Direction:  models.Direction(row.Direction),
		Score:      row.Score,
		Confidence: models.Confidence(row.Confidence),
		Reasons:    []string(row.Reasons),
		EntryRange: models.PriceRange{
			Min: row.EntryLow,
			Max: row.EntryHigh,
		},
		StopLoss:    row.StopLoss,
		TakeProfits: []float64(row.TakeProfits),
		Timestamp:   row.CreatedAt,
	}
}

// RecentSignals returns the latest emitted signals, newest first
func (r *SignalRepository) RecentSignals(ctx context.Context, limit int) ([]*models.Signal, error) {
	query := `
		SELECT id, asset, direction, score, confidence, reasons,
		       entry_low, entry_high, stop_loss, take_profits, created_at
		FROM signals
		ORDER BY created_at DESC
		LIMIT $1
	`

	var rows []signalRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent signals: %w", err)
	}

	signals := make([]*models.Signal, len(rows))
	for i := range rows {
		signals[i] = rows[i].toModel()
	}

	return signals, nil
}

// LastSignalForAsset returns the most recent signal for an asset, or nil
func (r *SignalRepository) LastSignalForAsset(ctx context.Context, asset string) (*models.Signal, error) {
	query := `
		SELECT id, asset, direction, score, confidence, reasons,
		       entry_low, entry_high, stop_loss, take_profits, created_at
		FROM signals
		WHERE asset = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var row signalRow
	if err := r.db.GetContext(ctx, &row, query, asset); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query last signal: %w", err)
	}

	return row.toModel(), nil
}
