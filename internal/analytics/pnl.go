// Package analytics computes trading performance metrics from trade lists.
//
// Every function is a pure fold over its input. Bad data never produces an
// error: unparseable numbers count as absent, empty inputs and zero
// denominators yield 0, and trades without a usable date drop out of date
// filters.
package analytics

import (
	"math"

	"trading-journal/internal/models"
)

// ComputeTradePnL returns (exit - entry) * qty, or 0 when the entry price or
// quantity is not positive, any input is not a finite number, or the
// product overflows.
func ComputeTradePnL(entry, exit, qty float64) float64 {
	if !finite(entry) || !finite(exit) || !finite(qty) {
		return 0
	}
	if entry <= 0 || qty <= 0 {
		return 0
	}
	return neutral((exit - entry) * qty)
}

// ComputeTradePnLInput is ComputeTradePnL over raw form or sheet values.
func ComputeTradePnLInput(entry, exit, qty models.Number) float64 {
	e, ok1 := entry.Float64()
	x, ok2 := exit.Float64()
	q, ok3 := qty.Float64()
	if !ok1 || !ok2 || !ok3 {
		return 0
	}
	return ComputeTradePnL(e, x, q)
}

// ResolveTradePnL returns the trade's realized P&L: the recorded ProfitLoss
// when present, otherwise the value computed from prices, otherwise 0.
func ResolveTradePnL(t models.Trade) float64 {
	if t.ProfitLoss != nil && finite(*t.ProfitLoss) {
		return *t.ProfitLoss
	}
	if t.ExitPrice != nil {
		return ComputeTradePnL(t.EntryPrice, *t.ExitPrice, t.Quantity)
	}
	return 0
}

// ComputePercentageReturn returns (exit - entry) / entry * 100. A zero entry
// price, a non-finite input or an overflowing result yields 0.
func ComputePercentageReturn(entry, exit float64) float64 {
	if entry == 0 || !finite(entry) || !finite(exit) {
		return 0
	}
	return neutral((exit - entry) / entry * 100)
}

// TradeReturnPercent is the percentage return of a closed trade; open
// trades return 0.
func TradeReturnPercent(t models.Trade) float64 {
	if t.ExitPrice == nil {
		return 0
	}
	return ComputePercentageReturn(t.EntryPrice, *t.ExitPrice)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// neutral maps a result that overflowed float64 to 0.
func neutral(f float64) float64 {
	if !finite(f) {
		return 0
	}
	return f
}
