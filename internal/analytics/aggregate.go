package analytics

import (
	"math"
	"sort"

	"trading-journal/internal/models"
)

// TotalPnL sums the resolved P&L of every trade. A sum that overflows
// float64 is reported as 0.
func TotalPnL(trades []models.Trade) float64 {
	var total float64
	for _, t := range trades {
		total += ResolveTradePnL(t)
	}
	return neutral(total)
}

// WinRate is the percentage of trades with positive P&L. Breakeven trades
// count in the denominator.
func WinRate(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if ResolveTradePnL(t) > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

// AverageWin is the mean P&L of winning trades, 0 without winners.
func AverageWin(trades []models.Trade) float64 {
	var sum float64
	n := 0
	for _, t := range trades {
		if pnl := ResolveTradePnL(t); pnl > 0 {
			sum += pnl
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return neutral(sum / float64(n))
}

// AverageLoss is the mean P&L of losing trades. The result is negative, or
// 0 without losers.
func AverageLoss(trades []models.Trade) float64 {
	var sum float64
	n := 0
	for _, t := range trades {
		if pnl := ResolveTradePnL(t); pnl < 0 {
			sum += pnl
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return neutral(sum / float64(n))
}

// GrossProfit sums the P&L of winning trades.
func GrossProfit(trades []models.Trade) float64 {
	var sum float64
	for _, t := range trades {
		if pnl := ResolveTradePnL(t); pnl > 0 {
			sum += pnl
		}
	}
	return neutral(sum)
}

// GrossLoss sums the absolute P&L of losing trades.
func GrossLoss(trades []models.Trade) float64 {
	var sum float64
	for _, t := range trades {
		if pnl := ResolveTradePnL(t); pnl < 0 {
			sum -= pnl
		}
	}
	return neutral(sum)
}

// ProfitFactor is gross profit over gross loss. With no losses it returns
// the gross profit (or 0). The result is always finite.
func ProfitFactor(trades []models.Trade) float64 {
	profit := GrossProfit(trades)
	loss := GrossLoss(trades)
	if loss == 0 {
		if profit > 0 {
			return profit
		}
		return 0
	}
	return neutral(profit / loss)
}

// SortByTradeDate returns a copy ordered by trade date ascending. Trades on
// the same date keep their input order; undated trades sort first.
func SortByTradeDate(trades []models.Trade) []models.Trade {
	sorted := make([]models.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TradeDate.Before(sorted[j].TradeDate)
	})
	return sorted
}

// MaxDrawdown is the largest fall of cumulative P&L from its running peak.
// The peak starts at 0, and trades are replayed in date order. An equity
// curve that overflows float64 yields 0.
func MaxDrawdown(trades []models.Trade) float64 {
	var running, peak, maxDD float64
	for _, t := range SortByTradeDate(trades) {
		running += ResolveTradePnL(t)
		if !finite(running) {
			return 0
		}
		if running > peak {
			peak = running
		}
		dd := peak - running
		if !finite(dd) {
			return 0
		}
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// MaxConsecutiveWins is the longest run of positive-P&L trades in date order.
func MaxConsecutiveWins(trades []models.Trade) int {
	return longestRun(trades, func(pnl float64) bool { return pnl > 0 })
}

// MaxConsecutiveLosses is the longest run of negative-P&L trades in date order.
func MaxConsecutiveLosses(trades []models.Trade) int {
	return longestRun(trades, func(pnl float64) bool { return pnl < 0 })
}

func longestRun(trades []models.Trade, match func(float64) bool) int {
	best, current := 0, 0
	for _, t := range SortByTradeDate(trades) {
		if match(ResolveTradePnL(t)) {
			current++
			if current > best {
				best = current
			}
		} else {
			current = 0
		}
	}
	return best
}

// SimpleReturnRatio is mean P&L over its population standard deviation, a
// Sharpe-like ratio without annualization or a risk-free rate. It is 0
// when the deviation is 0.
func SimpleReturnRatio(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	n := float64(len(trades))
	var sum float64
	for _, t := range trades {
		sum += ResolveTradePnL(t)
	}
	if !finite(sum) {
		return 0
	}
	mean := sum / n

	var variance float64
	for _, t := range trades {
		d := ResolveTradePnL(t) - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / n)
	if stdDev == 0 || !finite(stdDev) {
		return 0
	}
	return neutral(mean / stdDev)
}

// Expectancy is the mean P&L per trade.
func Expectancy(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	return TotalPnL(trades) / float64(len(trades))
}

// LargestWin is the biggest positive P&L, 0 without winners.
func LargestWin(trades []models.Trade) float64 {
	var best float64
	for _, t := range trades {
		if pnl := ResolveTradePnL(t); pnl > best {
			best = pnl
		}
	}
	return best
}

// LargestLoss is the most negative P&L, 0 without losers.
func LargestLoss(trades []models.Trade) float64 {
	var worst float64
	for _, t := range trades {
		if pnl := ResolveTradePnL(t); pnl < worst {
			worst = pnl
		}
	}
	return worst
}

// Outcomes counts trades by result.
type Outcomes struct {
	Total     int `json:"total"`
	Wins      int `json:"wins"`
	Losses    int `json:"losses"`
	Breakeven int `json:"breakeven"`
	Open      int `json:"open"`
}

// CountOutcomes classifies each trade. Open trades without a recorded P&L
// count as open rather than breakeven.
func CountOutcomes(trades []models.Trade) Outcomes {
	o := Outcomes{Total: len(trades)}
	for _, t := range trades {
		if t.IsOpen() && t.ProfitLoss == nil {
			o.Open++
			continue
		}
		switch pnl := ResolveTradePnL(t); {
		case pnl > 0:
			o.Wins++
		case pnl < 0:
			o.Losses++
		default:
			o.Breakeven++
		}
	}
	return o
}
