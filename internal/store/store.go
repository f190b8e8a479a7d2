// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"sort"
	"time"

	"trading-journal/internal/analytics"
	"trading-journal/internal/models"
)

// DataStore defines the interface for journal persistence.
type DataStore interface {
	// Trades
	ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)
	GetTrade(ctx context.Context, id int64) (*models.Trade, error)
	CreateTrade(ctx context.Context, trade *models.Trade) error
	UpdateTrade(ctx context.Context, id int64, patch models.TradePatch) (*models.Trade, error)
	DeleteTrade(ctx context.Context, id int64) error

	// Strategies
	ListStrategies(ctx context.Context) ([]models.Strategy, error)
	GetStrategy(ctx context.Context, id int64) (*models.Strategy, error)
	CreateStrategy(ctx context.Context, strategy *models.Strategy) error
	UpdateStrategy(ctx context.Context, id int64, patch models.StrategyPatch) (*models.Strategy, error)
	DeleteStrategy(ctx context.Context, id int64) error

	// Psychology journal
	ListPsychology(ctx context.Context) ([]models.PsychologyEntry, error)
	GetPsychology(ctx context.Context, id int64) (*models.PsychologyEntry, error)
	CreatePsychology(ctx context.Context, entry *models.PsychologyEntry) error
	UpdatePsychology(ctx context.Context, id int64, patch models.PsychologyPatch) (*models.PsychologyEntry, error)
	DeletePsychology(ctx context.Context, id int64) error

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	StartDate time.Time
	EndDate   time.Time
	Strategy  string
	Symbol    string
	Limit     int
}

// ApplyTradeFilter filters and orders trades in memory for backends that
// cannot query. Results are ordered by trade date, then id.
func ApplyTradeFilter(trades []models.Trade, filter TradeFilter) []models.Trade {
	out := trades
	if !filter.StartDate.IsZero() || !filter.EndDate.IsZero() {
		out = analytics.FilterByDateRange(out, filter.StartDate, filter.EndDate)
	} else {
		out = append([]models.Trade(nil), out...)
	}

	kept := out[:0]
	for _, t := range out {
		if filter.Strategy != "" && t.WhichSetup != filter.Strategy {
			continue
		}
		if filter.Symbol != "" && t.StockName != filter.Symbol {
			continue
		}
		kept = append(kept, t)
	}
	SortTrades(kept)

	if filter.Limit > 0 && len(kept) > filter.Limit {
		kept = kept[:filter.Limit]
	}
	return kept
}

// SortTrades orders trades by trade date, then id.
func SortTrades(trades []models.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if !a.TradeDate.Equal(b.TradeDate) {
			return a.TradeDate.Before(b.TradeDate)
		}
		return a.ID < b.ID
	})
}

// ApplyTradePatch applies patch to a copy of t and validates the result.
func ApplyTradePatch(t models.Trade, patch models.TradePatch) (models.Trade, error) {
	patch.ApplyTo(&t)
	return t, t.Validate()
}

// ApplyStrategyPatch applies patch to a copy of s and validates the result.
func ApplyStrategyPatch(s models.Strategy, patch models.StrategyPatch) (models.Strategy, error) {
	patch.ApplyTo(&s)
	return s, s.Validate()
}

// ApplyPsychologyPatch applies patch to a copy of p and validates the result.
func ApplyPsychologyPatch(p models.PsychologyEntry, patch models.PsychologyPatch) (models.PsychologyEntry, error) {
	patch.ApplyTo(&p)
	return p, p.Validate()
}

// Snapshot is the full record set the dashboard works from.
type Snapshot struct {
	Trades     []models.Trade
	Strategies []models.Strategy
	Psychology []models.PsychologyEntry
}

// LoadSnapshot reads trades, strategies and psychology entries.
func LoadSnapshot(ctx context.Context, ds DataStore, filter TradeFilter) (*Snapshot, error) {
	trades, err := ds.ListTrades(ctx, filter)
	if err != nil {
		return nil, err
	}
	strategies, err := ds.ListStrategies(ctx)
	if err != nil {
		return nil, err
	}
	psychology, err := ds.ListPsychology(ctx)
	if err != nil {
		return nil, err
	}
	if strategies == nil {
		strategies = []models.Strategy{}
	}
	return &Snapshot{Trades: trades, Strategies: strategies, Psychology: psychology}, nil
}
