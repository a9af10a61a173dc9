package database

import (
	"context"

	"backtest-engine/internal/models"
)

// InvestorRepository loads the active-investor roster and persists
// capital mutations.
type InvestorRepository struct {
	db *DB
}

// NewInvestorRepository constructs an InvestorRepository.
func NewInvestorRepository(db *DB) *InvestorRepository {
	return &InvestorRepository{db: db}
}

// ActiveInvestors returns every investor row not flagged halted, plus its
// risk config, the driver's candidate set for the run.
func (r *InvestorRepository) ActiveInvestors(ctx context.Context) ([]*models.Investor, []models.RiskConfig, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, initial_capital, current_capital, operations_today,
		       max_daily_operations, max_open_operations, current_day,
		       slippage_open_pct, slippage_close_pct, commission_pct,
		       drawdown_max_pct, drawdown_active, realized_pnl_accumulated,
		       halted, desynchronized, use_signal_parameters,
		       investor_leverage, max_leverage, risk_max_pct, size_min, size_max
		  FROM investors
		 WHERE NOT halted`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var investors []*models.Investor
	var risks []models.RiskConfig

	for rows.Next() {
		inv := &models.Investor{}
		var risk models.RiskConfig
		if err := rows.Scan(
			&inv.ID, &inv.InitialCapital, &inv.CurrentCapital, &inv.OperationsToday,
			&inv.MaxDailyOperations, &inv.MaxOpenOperations, &inv.CurrentDay,
			&inv.SlippageOpenPct, &inv.SlippageClosePct, &inv.CommissionPct,
			&inv.DrawdownMaxPct, &inv.DrawdownActive, &inv.RealizedPnLAccumulated,
			&inv.Halted, &inv.Desynchronized, &inv.UseSignalParameters,
			&inv.InvestorLeverage, &inv.MaxLeverage, &risk.RiskMaxPct, &risk.SizeMin, &risk.SizeMax,
		); err != nil {
			return nil, nil, err
		}
		investors = append(investors, inv)
		risks = append(risks, risk)
	}
	return investors, risks, rows.Err()
}

// UpdateCapital persists the investor's current capital.
func (r *InvestorRepository) UpdateCapital(ctx context.Context, inv *models.Investor) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE investors SET current_capital = $2 WHERE id = $1`,
		inv.ID, inv.CurrentCapital,
	)
	return err
}
