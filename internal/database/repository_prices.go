package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"backtest-engine/internal/models"
)

// PriceRepository provides minute-keyed OHLC bar lookups.
type PriceRepository struct {
	db *DB
}

// NewPriceRepository constructs a PriceRepository.
func NewPriceRepository(db *DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Price returns the bar for (ticker, ts), or nil if none exists.
func (r *PriceRepository) Price(ctx context.Context, ticker string, ts int64) (*models.PriceRecord, error) {
	var p models.PriceRecord
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, ticker, "timestamp", "open", high, low, "close"
		  FROM ohlcv_raw_1m
		 WHERE ticker = $1 AND "timestamp" = $2`, ticker, ts,
	).Scan(&p.BarID, &p.Ticker, &p.Timestamp, &p.Open, &p.High, &p.Low, &p.Close)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ClosesAt returns every ticker's close price at ts, the finalize pass's
// mark-to-market source when a caller has no pre-computed price map.
func (r *PriceRepository) ClosesAt(ctx context.Context, ts int64) (map[string]float64, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT ticker, "close" FROM ohlcv_raw_1m WHERE "timestamp" = $1`, ts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	closes := make(map[string]float64)
	for rows.Next() {
		var ticker string
		var close float64
		if err := rows.Scan(&ticker, &close); err != nil {
			return nil, err
		}
		closes[ticker] = close
	}
	return closes, rows.Err()
}
