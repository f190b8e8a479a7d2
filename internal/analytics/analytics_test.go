package analytics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"trading-journal/internal/models"
)

func f64(v float64) *float64 { return &v }

func pnlTrade(pnl float64) models.Trade {
	return models.Trade{ProfitLoss: f64(pnl)}
}

func pnlTrades(values ...float64) []models.Trade {
	trades := make([]models.Trade, len(values))
	for i, v := range values {
		trades[i] = pnlTrade(v)
	}
	return trades
}

func date(s string) time.Time {
	d, ok := models.ParseTradeDate(s)
	if !ok {
		panic("bad test date " + s)
	}
	return d
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeTradePnL(t *testing.T) {
	tests := []struct {
		name             string
		entry, exit, qty float64
		want             float64
	}{
		{"long win", 100, 110, 10, 100},
		{"long loss", 100, 90, 5, -50},
		{"zero entry", 0, 110, 10, 0},
		{"negative entry", -1, 110, 10, 0},
		{"zero quantity", 100, 110, 0, 0},
		{"negative quantity", 100, 110, -3, 0},
		{"nan exit", 100, math.NaN(), 10, 0},
		{"inf entry", math.Inf(1), 110, 10, 0},
		{"fractional", 10.5, 11, 2.5, 1.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeTradePnL(tt.entry, tt.exit, tt.qty); !approx(got, tt.want) {
				t.Errorf("ComputeTradePnL(%v, %v, %v) = %v, want %v", tt.entry, tt.exit, tt.qty, got, tt.want)
			}
		})
	}
}

func TestComputeTradePnLInput(t *testing.T) {
	if got := ComputeTradePnLInput(models.ParseNumber("100"), models.ParseNumber(" 110 "), models.ParseNumber("10")); got != 100 {
		t.Errorf("string inputs: got %v, want 100", got)
	}
	if got := ComputeTradePnLInput(models.ParseNumber("abc"), models.ParseNumber("110"), models.ParseNumber("10")); got != 0 {
		t.Errorf("unparseable entry: got %v, want 0", got)
	}
	if got := ComputeTradePnLInput(models.ParseNumber("100"), models.Number{}, models.ParseNumber("10")); got != 0 {
		t.Errorf("missing exit: got %v, want 0", got)
	}
}

func TestResolveTradePnL(t *testing.T) {
	tests := []struct {
		name  string
		trade models.Trade
		want  float64
	}{
		{"computed from prices", models.Trade{EntryPrice: 100, ExitPrice: f64(110), Quantity: 10}, 100},
		{"recorded wins over computed", models.Trade{EntryPrice: 100, ExitPrice: f64(110), Quantity: 10, ProfitLoss: f64(42)}, 42},
		{"open trade", models.Trade{EntryPrice: 100, Quantity: 10}, 0},
		{"open trade with recorded pnl", models.Trade{EntryPrice: 100, Quantity: 10, ProfitLoss: f64(-7)}, -7},
		{"non-finite recorded falls back", models.Trade{EntryPrice: 100, ExitPrice: f64(90), Quantity: 1, ProfitLoss: f64(math.NaN())}, -10},
		{"empty trade", models.Trade{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveTradePnL(tt.trade); !approx(got, tt.want) {
				t.Errorf("ResolveTradePnL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputePercentageReturn(t *testing.T) {
	if got := ComputePercentageReturn(100, 110); !approx(got, 10) {
		t.Errorf("got %v, want 10", got)
	}
	if got := ComputePercentageReturn(200, 150); !approx(got, -25) {
		t.Errorf("got %v, want -25", got)
	}
	if got := ComputePercentageReturn(0, 150); got != 0 {
		t.Errorf("zero entry: got %v, want 0", got)
	}
	if got := ComputePercentageReturn(100, math.NaN()); got != 0 {
		t.Errorf("nan exit: got %v, want 0", got)
	}
	if got := TradeReturnPercent(models.Trade{EntryPrice: 100}); got != 0 {
		t.Errorf("open trade: got %v, want 0", got)
	}
}

func TestClosedTradeComputedPnL(t *testing.T) {
	trades := []models.Trade{{EntryPrice: 100, ExitPrice: f64(110), Quantity: 10}}
	if got := ResolveTradePnL(trades[0]); got != 100 {
		t.Errorf("ResolveTradePnL = %v, want 100", got)
	}
	if got := WinRate(trades); got != 100 {
		t.Errorf("WinRate = %v, want 100", got)
	}
	if got := TotalPnL(trades); got != 100 {
		t.Errorf("TotalPnL = %v, want 100", got)
	}
}

func TestStringEncodedPnLAggregates(t *testing.T) {
	var inputs []models.TradeInput
	raw := `[{"profitLoss":"500"},{"profitLoss":"-200"},{"profitLoss":"0"}]`
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	trades := make([]models.Trade, len(inputs))
	for i, in := range inputs {
		trades[i] = in.Normalize()
	}

	if got := TotalPnL(trades); got != 300 {
		t.Errorf("TotalPnL = %v, want 300", got)
	}
	if got := WinRate(trades); math.Abs(got-33.33) > 0.01 {
		t.Errorf("WinRate = %v, want 33.33", got)
	}
	if got := AverageWin(trades); got != 500 {
		t.Errorf("AverageWin = %v, want 500", got)
	}
	if got := AverageLoss(trades); got != -200 {
		t.Errorf("AverageLoss = %v, want -200", got)
	}
	if got := ProfitFactor(trades); got != 2.5 {
		t.Errorf("ProfitFactor = %v, want 2.5", got)
	}
}

func TestMaxDrawdownSequence(t *testing.T) {
	trades := pnlTrades(100, -50, -30, 80)
	if got := MaxDrawdown(trades); got != 80 {
		t.Errorf("MaxDrawdown = %v, want 80", got)
	}
}

func TestMaxDrawdownFromZeroBaseline(t *testing.T) {
	// Losing from the first trade is drawdown against a zero peak.
	if got := MaxDrawdown(pnlTrades(-40, -10, 20)); got != 50 {
		t.Errorf("MaxDrawdown = %v, want 50", got)
	}
	if got := MaxDrawdown(pnlTrades(10, 20, 0, 5)); got != 0 {
		t.Errorf("non-decreasing MaxDrawdown = %v, want 0", got)
	}
	if got := MaxDrawdown(nil); got != 0 {
		t.Errorf("empty MaxDrawdown = %v, want 0", got)
	}
}

func TestMaxDrawdownSortsByDate(t *testing.T) {
	trades := []models.Trade{
		{TradeDate: date("2024-03-04"), ProfitLoss: f64(80)},
		{TradeDate: date("2024-03-01"), ProfitLoss: f64(100)},
		{TradeDate: date("2024-03-03"), ProfitLoss: f64(-30)},
		{TradeDate: date("2024-03-02"), ProfitLoss: f64(-50)},
	}
	if got := MaxDrawdown(trades); got != 80 {
		t.Errorf("MaxDrawdown = %v, want 80", got)
	}
	// Input must not be reordered.
	if trades[0].TradeDate != date("2024-03-04") {
		t.Error("MaxDrawdown mutated its input")
	}
}

func TestSelectEligibleTradesActiveOnly(t *testing.T) {
	strategies := []models.Strategy{
		{Name: "A", Status: models.StrategyActive},
		{Name: "B", Status: models.StrategyTesting},
	}
	trades := []models.Trade{
		{ID: 1, WhichSetup: "A", ProfitLoss: f64(100)},
		{ID: 2, WhichSetup: "B", ProfitLoss: f64(999)},
		{ID: 3, ProfitLoss: f64(50)},
	}

	eligible := SelectEligibleTrades(trades, strategies)
	if len(eligible) != 2 || eligible[0].ID != 1 || eligible[1].ID != 3 {
		t.Fatalf("SelectEligibleTrades = %+v, want trades 1 and 3", eligible)
	}
	if got := TotalPnL(eligible); got != 150 {
		t.Errorf("TotalPnL = %v, want 150", got)
	}
	if got := SelectEligibleTrades(trades, nil); len(got) != 3 {
		t.Errorf("nil strategies kept %d trades, want 3", len(got))
	}
}

func TestIsStrategyActive(t *testing.T) {
	strategies := []models.Strategy{
		{Name: "Breakout", Status: models.StrategyActive},
		{Name: "Gap Fill", Status: models.StrategyDeprecated},
	}
	cases := map[string]bool{
		"Breakout": true,
		"breakout": false,
		"Gap Fill": false,
		"Missing":  false,
		"":         false,
	}
	for name, want := range cases {
		if got := IsStrategyActive(strategies, name); got != want {
			t.Errorf("IsStrategyActive(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestGroupByStrategyInsertionOrder(t *testing.T) {
	trades := []models.Trade{
		{ID: 1, WhichSetup: "X"},
		{ID: 2},
		{ID: 3, WhichSetup: "X"},
	}
	groups := GroupByStrategy(trades)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Key != "X" || len(groups[0].Trades) != 2 {
		t.Errorf("first group = %s (%d trades), want X (2)", groups[0].Key, len(groups[0].Trades))
	}
	if groups[1].Key != NoStrategyKey || len(groups[1].Trades) != 1 {
		t.Errorf("second group = %s (%d trades), want %s (1)", groups[1].Key, len(groups[1].Trades), NoStrategyKey)
	}
}

func TestStreaks(t *testing.T) {
	trades := pnlTrades(10, 20, -5, 0, 30, 40, 50, -1, -2)
	if got := MaxConsecutiveWins(trades); got != 3 {
		t.Errorf("MaxConsecutiveWins = %d, want 3", got)
	}
	if got := MaxConsecutiveLosses(trades); got != 2 {
		t.Errorf("MaxConsecutiveLosses = %d, want 2", got)
	}
	// A breakeven trade resets a losing streak.
	if got := MaxConsecutiveLosses(pnlTrades(-1, 0, -1)); got != 1 {
		t.Errorf("MaxConsecutiveLosses with breakeven = %d, want 1", got)
	}
}

func TestProfitFactorEdges(t *testing.T) {
	if got := ProfitFactor(pnlTrades(100, 50)); got != 150 {
		t.Errorf("all winners = %v, want 150", got)
	}
	if got := ProfitFactor(pnlTrades(-100, -50)); got != 0 {
		t.Errorf("all losers = %v, want 0", got)
	}
	if got := ProfitFactor(nil); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
}

func TestOverflowIsNeutral(t *testing.T) {
	if got := ComputeTradePnL(1, 1e308, 10); got != 0 {
		t.Errorf("ComputeTradePnL overflow = %v, want 0", got)
	}
	if got := ComputePercentageReturn(1e-300, 1e300); got != 0 {
		t.Errorf("ComputePercentageReturn overflow = %v, want 0", got)
	}

	huge := pnlTrades(math.MaxFloat64, math.MaxFloat64)
	if got := ProfitFactor(huge); got != 0 {
		t.Errorf("ProfitFactor = %v, want 0", got)
	}
	if got := TotalPnL(huge); got != 0 {
		t.Errorf("TotalPnL = %v, want 0", got)
	}

	mixed := pnlTrades(math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64, math.MaxFloat64)
	m := ComputeMetrics(mixed)
	for name, v := range map[string]float64{
		"profitFactor": m.ProfitFactor,
		"maxDrawdown":  m.MaxDrawdown,
		"sharpeRatio":  m.SimpleReturnRatio,
		"grossLoss":    m.GrossLoss,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v, want finite", name, v)
		}
	}
}

func TestSimpleReturnRatio(t *testing.T) {
	if got := SimpleReturnRatio(nil); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
	if got := SimpleReturnRatio(pnlTrades(100)); got != 0 {
		t.Errorf("single trade = %v, want 0", got)
	}
	if got := SimpleReturnRatio(pnlTrades(5, 5, 5)); got != 0 {
		t.Errorf("constant = %v, want 0", got)
	}
	// mean 50, population stdev 50
	if got := SimpleReturnRatio(pnlTrades(100, 0)); !approx(got, 1) {
		t.Errorf("got %v, want 1", got)
	}
}

func TestCountOutcomes(t *testing.T) {
	trades := []models.Trade{
		pnlTrade(10),
		pnlTrade(-10),
		pnlTrade(0),
		{EntryPrice: 100, Quantity: 1},
	}
	got := CountOutcomes(trades)
	want := Outcomes{Total: 4, Wins: 1, Losses: 1, Breakeven: 1, Open: 1}
	if got != want {
		t.Errorf("CountOutcomes = %+v, want %+v", got, want)
	}
}

func TestGroupByEmotion(t *testing.T) {
	trades := []models.Trade{
		{Emotion: models.EmotionGreedy},
		{},
		{Emotion: models.EmotionGreedy},
		{Emotion: models.EmotionDisciplined},
	}
	groups := GroupByEmotion(trades)
	keys := []string{"Greedy", UnknownEmotionKey, "Disciplined"}
	if len(groups) != len(keys) {
		t.Fatalf("got %d groups, want %d", len(groups), len(keys))
	}
	for i, k := range keys {
		if groups[i].Key != k {
			t.Errorf("group %d = %q, want %q", i, groups[i].Key, k)
		}
	}
}

func TestGroupByCalendarMonth(t *testing.T) {
	trades := []models.Trade{
		{TradeDate: date("2024-02-10"), ProfitLoss: f64(100)},
		{TradeDate: date("2024-01-05"), ProfitLoss: f64(-40)},
		{TradeDate: date("2024-02-11"), ProfitLoss: f64(0)},
		{TradeDate: date("2024-02-12"), ProfitLoss: f64(-10)},
		{ProfitLoss: f64(1000)},
	}
	got := GroupByCalendarMonth(trades)
	want := []PeriodStats{
		{Period: "2024-01", PnL: -40, TradeCount: 1, WinCount: 0, LossCount: 1},
		{Period: "2024-02", PnL: 90, TradeCount: 3, WinCount: 1, LossCount: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d periods, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("period %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	days := GroupByCalendarDay(trades)
	if len(days) != 4 || days[0].Period != "2024-01-05" {
		t.Errorf("GroupByCalendarDay = %+v", days)
	}
}

func TestFilterByDateRange(t *testing.T) {
	trades := []models.Trade{
		{ID: 1, TradeDate: date("2024-01-01")},
		{ID: 2, TradeDate: date("2024-01-15")},
		{ID: 3, TradeDate: date("2024-01-31")},
		{ID: 4, TradeDate: date("2024-02-01")},
		{ID: 5},
	}
	got := FilterByDateRange(trades, date("2024-01-01"), date("2024-01-31"))
	if len(got) != 3 || got[0].ID != 1 || got[2].ID != 3 {
		t.Errorf("inclusive range = %+v", got)
	}
	open := FilterByDateRange(trades, time.Time{}, time.Time{})
	if len(open) != 4 {
		t.Errorf("open range kept %d, want 4 (undated dropped)", len(open))
	}
}

func TestFilterByRelativeWindow(t *testing.T) {
	now := time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		{ID: 1, TradeDate: date("2024-06-29")},
		{ID: 2, TradeDate: date("2024-06-10")},
		{ID: 3, TradeDate: date("2024-04-15")},
		{ID: 4, TradeDate: date("2023-01-01")},
		{ID: 5, TradeDate: date("2024-07-05")},
		{ID: 6},
	}
	tests := []struct {
		window Window
		want   int
	}{
		{Window{Kind: WindowAll}, 6},
		{Window{Kind: Window7Days}, 1},
		{Window{Kind: Window30Days}, 2},
		{Window{Kind: Window90Days}, 3},
		{Window{Kind: Window365Days}, 3},
		{Window{Kind: WindowCustom, Start: date("2023-01-01"), End: date("2024-04-15")}, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.window.Kind), func(t *testing.T) {
			if got := FilterByRelativeWindow(trades, tt.window, now); len(got) != tt.want {
				t.Errorf("kept %d trades, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseWindow(t *testing.T) {
	for in, want := range map[string]WindowKind{"": WindowAll, "ALL": WindowAll, "30d": Window30Days, "custom": WindowCustom} {
		got, err := ParseWindow(in)
		if err != nil || got != want {
			t.Errorf("ParseWindow(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseWindow("fortnight"); err == nil {
		t.Error("ParseWindow(fortnight) should fail")
	}
}

func TestMonthlyPnLAndBestWorst(t *testing.T) {
	trades := []models.Trade{
		{ID: 1, TradeDate: date("2024-03-01"), ProfitLoss: f64(100)},
		{ID: 2, TradeDate: date("2024-03-20"), ProfitLoss: f64(-30)},
		{ID: 3, TradeDate: date("2024-04-02"), ProfitLoss: f64(500)},
	}
	if got := MonthlyPnL(trades, 2024, time.March); got != 70 {
		t.Errorf("MonthlyPnL = %v, want 70", got)
	}
	best, worst := BestAndWorstTrade(trades)
	if best == nil || best.ID != 3 || worst == nil || worst.ID != 2 {
		t.Errorf("best/worst = %v/%v", best, worst)
	}
	if b, w := BestAndWorstTrade(nil); b != nil || w != nil {
		t.Error("empty list should have no best/worst")
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	strategies := []models.Strategy{
		{Name: "Breakout", Status: models.StrategyActive},
		{Name: "Scalp", Status: models.StrategyDeprecated},
	}
	trades := []models.Trade{
		{ID: 1, TradeDate: date("2024-03-01"), WhichSetup: "Breakout", ProfitLoss: f64(200), SetupFollowed: true, Emotion: models.EmotionConfident},
		{ID: 2, TradeDate: date("2024-03-05"), WhichSetup: "Scalp", ProfitLoss: f64(-500), Emotion: models.EmotionGreedy},
		{ID: 3, TradeDate: date("2024-03-10"), ProfitLoss: f64(-50), SetupFollowed: true},
		{ID: 4, TradeDate: date("2023-12-10"), WhichSetup: "Breakout", ProfitLoss: f64(1000)},
	}

	all := Summarize(trades, strategies, Options{Now: now})
	if all.Metrics.TotalPnL != 650 {
		t.Errorf("all TotalPnL = %v, want 650", all.Metrics.TotalPnL)
	}
	if all.From == nil || !all.From.Equal(date("2023-12-10")) {
		t.Errorf("From = %v", all.From)
	}
	if len(all.ByStrategy) != 3 || all.ByStrategy[0].Status != models.StrategyActive {
		t.Errorf("ByStrategy = %+v", all.ByStrategy)
	}

	active := Summarize(trades, strategies, Options{Now: now, ActiveOnly: true, Window: Window{Kind: Window30Days}})
	if active.Metrics.TotalPnL != 150 {
		t.Errorf("active 30d TotalPnL = %v, want 150", active.Metrics.TotalPnL)
	}
	if active.Metrics.Outcomes.Total != 2 {
		t.Errorf("active 30d trades = %d, want 2", active.Metrics.Outcomes.Total)
	}
	if len(active.Adherence) != 1 || active.Adherence[0].Key != SetupFollowedKey {
		t.Errorf("Adherence = %+v", active.Adherence)
	}
}
