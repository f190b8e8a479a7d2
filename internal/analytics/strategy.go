package analytics

import "trading-journal/internal/models"

// IsStrategyActive reports whether a strategy with exactly this name exists
// and has status active.
func IsStrategyActive(strategies []models.Strategy, name string) bool {
	if name == "" {
		return false
	}
	for _, s := range strategies {
		if s.Name == name {
			return s.IsActive()
		}
	}
	return false
}

// SelectEligibleTrades keeps trades with no strategy or with an active one.
// A nil strategy list means no strategy context, and every trade is kept.
func SelectEligibleTrades(trades []models.Trade, strategies []models.Strategy) []models.Trade {
	if strategies == nil {
		return trades
	}

	active := make(map[string]bool, len(strategies))
	for _, s := range strategies {
		if _, seen := active[s.Name]; !seen {
			active[s.Name] = s.IsActive()
		}
	}

	eligible := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.WhichSetup == "" || active[t.WhichSetup] {
			eligible = append(eligible, t)
		}
	}
	return eligible
}
