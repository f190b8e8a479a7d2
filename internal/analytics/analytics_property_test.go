package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trading-journal/internal/models"
)

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	return gopter.NewProperties(parameters)
}

// pnlSliceGen generates realized P&L series in steps of 12.5, so breakeven
// trades show up regularly.
func pnlSliceGen() gopter.Gen {
	return gen.SliceOf(gen.IntRange(-800, 800).Map(func(v int) float64 {
		return float64(v) * 12.5
	}))
}

// Property: an open trade with no recorded P&L contributes nothing.
func TestProperty_OpenTradeResolvesToZero(t *testing.T) {
	properties := newProperties()

	properties.Property("open trades resolve to 0", prop.ForAll(
		func(entry, qty float64) bool {
			return ResolveTradePnL(models.Trade{EntryPrice: entry, Quantity: qty}) == 0
		},
		gen.Float64Range(-1000, 1000),
		gen.Float64Range(-1000, 1000),
	))

	properties.TestingRun(t)
}

// Property: for positive entry and quantity the P&L is (exit - entry) * qty,
// and it is 0 whenever entry or quantity is not positive.
func TestProperty_ComputeTradePnL(t *testing.T) {
	properties := newProperties()

	properties.Property("positive inputs follow the formula", prop.ForAll(
		func(entry, exit, qty float64) bool {
			return ComputeTradePnL(entry, exit, qty) == (exit-entry)*qty
		},
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0, 100000),
		gen.Float64Range(0.01, 10000),
	))

	properties.Property("non-positive entry yields 0", prop.ForAll(
		func(entry, exit, qty float64) bool {
			return ComputeTradePnL(entry, exit, qty) == 0
		},
		gen.Float64Range(-100000, 0),
		gen.Float64Range(0, 100000),
		gen.Float64Range(0.01, 10000),
	))

	properties.Property("non-positive quantity yields 0", prop.ForAll(
		func(entry, exit, qty float64) bool {
			return ComputeTradePnL(entry, exit, qty) == 0
		},
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0, 100000),
		gen.Float64Range(-10000, 0),
	))

	properties.TestingRun(t)
}

// Property: win rate stays within [0, 100].
func TestProperty_WinRateBounds(t *testing.T) {
	properties := newProperties()

	properties.Property("win rate within [0, 100]", prop.ForAll(
		func(values []float64) bool {
			wr := WinRate(pnlTrades(values...))
			return wr >= 0 && wr <= 100
		},
		pnlSliceGen(),
	))

	properties.TestingRun(t)
}

// Property: total P&L is additive over disjoint trade lists.
func TestProperty_TotalPnLAdditive(t *testing.T) {
	properties := newProperties()

	properties.Property("TotalPnL(A ∪ B) == TotalPnL(A) + TotalPnL(B)", prop.ForAll(
		func(a, b []float64) bool {
			left, right := pnlTrades(a...), pnlTrades(b...)
			union := append(append([]models.Trade{}, left...), right...)
			got := TotalPnL(union)
			want := TotalPnL(left) + TotalPnL(right)
			return math.Abs(got-want) <= 1e-6*math.Max(1, math.Abs(want))
		},
		pnlSliceGen(),
		pnlSliceGen(),
	))

	properties.TestingRun(t)
}

// Property: profit factor is always finite and non-negative.
func TestProperty_ProfitFactorFinite(t *testing.T) {
	properties := newProperties()

	properties.Property("profit factor finite", prop.ForAll(
		func(values []float64) bool {
			pf := ProfitFactor(pnlTrades(values...))
			return finite(pf) && pf >= 0
		},
		pnlSliceGen(),
	))

	properties.Property("all-winner and all-loser lists stay finite", prop.ForAll(
		func(values []float64) bool {
			winners := make([]float64, len(values))
			losers := make([]float64, len(values))
			for i, v := range values {
				winners[i] = math.Abs(v) + 1
				losers[i] = -math.Abs(v) - 1
			}
			return finite(ProfitFactor(pnlTrades(winners...))) && ProfitFactor(pnlTrades(losers...)) == 0
		},
		pnlSliceGen(),
	))

	properties.TestingRun(t)
}

// Property: drawdown is non-negative and streaks are bounded by the list length.
func TestProperty_DrawdownAndStreakBounds(t *testing.T) {
	properties := newProperties()

	properties.Property("max drawdown >= 0", prop.ForAll(
		func(values []float64) bool {
			return MaxDrawdown(pnlTrades(values...)) >= 0
		},
		pnlSliceGen(),
	))

	properties.Property("streaks within [0, len]", prop.ForAll(
		func(values []float64) bool {
			trades := pnlTrades(values...)
			wins := MaxConsecutiveWins(trades)
			losses := MaxConsecutiveLosses(trades)
			return wins >= 0 && wins <= len(trades) && losses >= 0 && losses <= len(trades)
		},
		pnlSliceGen(),
	))

	properties.TestingRun(t)
}

// Property: the eligible set is a subset that never contains a trade tied
// to an inactive strategy.
func TestProperty_SelectEligibleTrades(t *testing.T) {
	properties := newProperties()
	strategies := []models.Strategy{
		{Name: "A", Status: models.StrategyActive},
		{Name: "B", Status: models.StrategyTesting},
		{Name: "C", Status: models.StrategyDeprecated},
	}

	properties.Property("only unlinked or active trades survive", prop.ForAll(
		func(setups []string) bool {
			trades := make([]models.Trade, len(setups))
			for i, s := range setups {
				trades[i] = models.Trade{ID: int64(i), WhichSetup: s}
			}
			eligible := SelectEligibleTrades(trades, strategies)
			if len(eligible) > len(trades) {
				return false
			}
			for _, tr := range eligible {
				if tr.WhichSetup != "" && !IsStrategyActive(strategies, tr.WhichSetup) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.OneConstOf("", "A", "B", "C", "D")),
	))

	properties.TestingRun(t)
}

// hugePnLSliceGen generates P&L values spread across the whole float64
// range, so sums and products overflow regularly.
func hugePnLSliceGen() gopter.Gen {
	return gen.SliceOf(gen.Float64Range(-1, 1).Map(func(v float64) float64 {
		return v * math.MaxFloat64
	}))
}

// Property: metrics stay finite even when the inputs overflow float64.
func TestProperty_MetricsFiniteNearFloatLimits(t *testing.T) {
	properties := newProperties()

	properties.Property("aggregates finite for huge P&L", prop.ForAll(
		func(values []float64) bool {
			trades := pnlTrades(values...)
			m := ComputeMetrics(trades)
			for _, v := range []float64{
				m.TotalPnL, m.AverageWin, m.AverageLoss, m.GrossProfit, m.GrossLoss,
				m.ProfitFactor, m.MaxDrawdown, m.SimpleReturnRatio, m.Expectancy,
			} {
				if !finite(v) {
					return false
				}
			}
			for _, p := range GroupByCalendarMonth(trades) {
				if !finite(p.PnL) {
					return false
				}
			}
			return m.ProfitFactor >= 0 && m.MaxDrawdown >= 0
		},
		hugePnLSliceGen(),
	))

	properties.Property("computed P&L finite for huge prices", prop.ForAll(
		func(entry, exit, qty float64) bool {
			return finite(ComputeTradePnL(entry, exit, qty)) && finite(ComputePercentageReturn(entry, exit))
		},
		gen.Float64Range(1e-300, 1).Map(func(v float64) float64 { return v * math.MaxFloat64 }),
		gen.Float64Range(-1, 1).Map(func(v float64) float64 { return v * math.MaxFloat64 }),
		gen.Float64Range(1, 1e6),
	))

	properties.TestingRun(t)
}
