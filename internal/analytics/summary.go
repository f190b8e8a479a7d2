package analytics

import (
	"time"

	"trading-journal/internal/models"
)

// Options controls which trades a Summary covers.
type Options struct {
	// ActiveOnly drops trades tied to testing, deprecated or unknown strategies.
	ActiveOnly bool
	Window     Window
	Now        time.Time
}

// Metrics is the headline statistics block for a set of trades.
type Metrics struct {
	TotalPnL             float64  `json:"totalPnL"`
	WinRate              float64  `json:"winRate"`
	AverageWin           float64  `json:"averageWin"`
	AverageLoss          float64  `json:"averageLoss"`
	GrossProfit          float64  `json:"grossProfit"`
	GrossLoss            float64  `json:"grossLoss"`
	ProfitFactor         float64  `json:"profitFactor"`
	MaxDrawdown          float64  `json:"maxDrawdown"`
	MaxConsecutiveWins   int      `json:"maxConsecutiveWins"`
	MaxConsecutiveLosses int      `json:"maxConsecutiveLosses"`
	SimpleReturnRatio    float64  `json:"sharpeRatio"`
	Expectancy           float64  `json:"expectancy"`
	LargestWin           float64  `json:"largestWin"`
	LargestLoss          float64  `json:"largestLoss"`
	Outcomes             Outcomes `json:"outcomes"`
}

// ComputeMetrics evaluates every aggregate over trades.
func ComputeMetrics(trades []models.Trade) Metrics {
	return Metrics{
		TotalPnL:             TotalPnL(trades),
		WinRate:              WinRate(trades),
		AverageWin:           AverageWin(trades),
		AverageLoss:          AverageLoss(trades),
		GrossProfit:          GrossProfit(trades),
		GrossLoss:            GrossLoss(trades),
		ProfitFactor:         ProfitFactor(trades),
		MaxDrawdown:          MaxDrawdown(trades),
		MaxConsecutiveWins:   MaxConsecutiveWins(trades),
		MaxConsecutiveLosses: MaxConsecutiveLosses(trades),
		SimpleReturnRatio:    SimpleReturnRatio(trades),
		Expectancy:           Expectancy(trades),
		LargestWin:           LargestWin(trades),
		LargestLoss:          LargestLoss(trades),
		Outcomes:             CountOutcomes(trades),
	}
}

// GroupStats is the per-group row of a breakdown table.
type GroupStats struct {
	Key          string  `json:"key"`
	TradeCount   int     `json:"tradeCount"`
	TotalPnL     float64 `json:"totalPnL"`
	WinRate      float64 `json:"winRate"`
	AveragePnL   float64 `json:"averagePnL"`
	ProfitFactor float64 `json:"profitFactor"`
	// Status is the strategy status for strategy breakdowns, empty otherwise.
	Status models.StrategyStatus `json:"status,omitempty"`
}

// Breakdown summarizes each group.
func Breakdown(groups []TradeGroup) []GroupStats {
	out := make([]GroupStats, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupStats{
			Key:          g.Key,
			TradeCount:   len(g.Trades),
			TotalPnL:     TotalPnL(g.Trades),
			WinRate:      WinRate(g.Trades),
			AveragePnL:   Expectancy(g.Trades),
			ProfitFactor: ProfitFactor(g.Trades),
		})
	}
	return out
}

// StrategyBreakdown summarizes trades per strategy and tags each row with
// the strategy's current status.
func StrategyBreakdown(trades []models.Trade, strategies []models.Strategy) []GroupStats {
	rows := Breakdown(GroupByStrategy(trades))
	status := make(map[string]models.StrategyStatus, len(strategies))
	for _, s := range strategies {
		if _, ok := status[s.Name]; !ok {
			status[s.Name] = s.Status
		}
	}
	for i := range rows {
		rows[i].Status = status[rows[i].Key]
	}
	return rows
}

// Summary is everything the dashboard shows for one trade selection.
type Summary struct {
	From       *time.Time    `json:"from,omitempty"`
	To         *time.Time    `json:"to,omitempty"`
	Metrics    Metrics       `json:"metrics"`
	ByStrategy []GroupStats  `json:"byStrategy"`
	ByEmotion  []GroupStats  `json:"byEmotion"`
	Adherence  []GroupStats  `json:"adherence"`
	Monthly    []PeriodStats `json:"monthly"`
}

// Select applies the window and, when requested, the active-strategy gate.
func Select(trades []models.Trade, strategies []models.Strategy, opts Options) []models.Trade {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	selected := FilterByRelativeWindow(trades, opts.Window, now)
	if opts.ActiveOnly {
		if strategies == nil {
			strategies = []models.Strategy{}
		}
		selected = SelectEligibleTrades(selected, strategies)
	}
	return selected
}

// Summarize builds the dashboard summary.
func Summarize(trades []models.Trade, strategies []models.Strategy, opts Options) Summary {
	selected := Select(trades, strategies, opts)

	s := Summary{
		Metrics:    ComputeMetrics(selected),
		ByStrategy: StrategyBreakdown(selected, strategies),
		ByEmotion:  Breakdown(GroupByEmotion(selected)),
		Adherence:  Breakdown(GroupBySetupFollowed(selected)),
		Monthly:    GroupByCalendarMonth(selected),
	}

	sorted := SortByTradeDate(selected)
	for _, t := range sorted {
		if !t.TradeDate.IsZero() {
			from := t.TradeDate
			s.From = &from
			break
		}
	}
	if n := len(sorted); n > 0 && !sorted[n-1].TradeDate.IsZero() {
		to := sorted[n-1].TradeDate
		s.To = &to
	}
	return s
}
