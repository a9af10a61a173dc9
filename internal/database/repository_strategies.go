package database

import (
	"context"
	"fmt"

	"backtest-engine/internal/models"
)

// StrategyRepository is the system-of-record lookup the strategy cache
// falls back to on a miss.
type StrategyRepository struct {
	db *DB
}

// NewStrategyRepository constructs a StrategyRepository.
func NewStrategyRepository(db *DB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

// LoadStrategyParams implements stratcache.Loader.
func (r *StrategyRepository) LoadStrategyParams(ctx context.Context, strategyID int64) (models.StrategyParams, error) {
	var p models.StrategyParams
	p.ID = strategyID

	err := r.db.Pool.QueryRow(ctx, `
		SELECT min_advance_pct, protection_retrace_pct, partial_retrace_pct,
		       partial_liquidation_pct, no_advance_retrace_pct, max_partials,
		       enable_profit_protection, enable_partial, enable_retracement_without_advance
		  FROM strategies
		 WHERE id = $1`, strategyID,
	).Scan(
		&p.MinAdvancePct, &p.ProtectionRetracePct, &p.PartialRetracePct,
		&p.PartialLiquidationPct, &p.NoAdvanceRetracePct, &p.MaxPartials,
		&p.EnableProfitProtection, &p.EnablePartial, &p.EnableRetracementWithoutAdvance,
	)
	if err != nil {
		return models.StrategyParams{}, fmt.Errorf("strategy %d not found: %w", strategyID, err)
	}
	return p, nil
}
