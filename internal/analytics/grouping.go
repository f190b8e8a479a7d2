package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"trading-journal/internal/models"
)

// Group keys used when a trade has no value for the grouped field.
const (
	NoStrategyKey     = "No Strategy"
	UnknownEmotionKey = "Unknown"
	SetupFollowedKey  = "Followed"
	SetupIgnoredKey   = "Not Followed"
)

// TradeGroup is one bucket of a grouping, in first-occurrence order.
type TradeGroup struct {
	Key    string         `json:"key"`
	Trades []models.Trade `json:"trades"`
}

// GroupByStrategy groups trades by strategy name.
func GroupByStrategy(trades []models.Trade) []TradeGroup {
	return groupBy(trades, func(t models.Trade) string {
		if t.WhichSetup == "" {
			return NoStrategyKey
		}
		return t.WhichSetup
	})
}

// GroupByEmotion groups trades by recorded emotion.
func GroupByEmotion(trades []models.Trade) []TradeGroup {
	return groupBy(trades, func(t models.Trade) string {
		if strings.TrimSpace(string(t.Emotion)) == "" {
			return UnknownEmotionKey
		}
		return string(t.Emotion)
	})
}

// GroupBySetupFollowed splits trades by plan adherence.
func GroupBySetupFollowed(trades []models.Trade) []TradeGroup {
	return groupBy(trades, func(t models.Trade) string {
		if t.SetupFollowed {
			return SetupFollowedKey
		}
		return SetupIgnoredKey
	})
}

func groupBy(trades []models.Trade, key func(models.Trade) string) []TradeGroup {
	index := make(map[string]int)
	var groups []TradeGroup
	for _, t := range trades {
		k := key(t)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, TradeGroup{Key: k})
		}
		groups[i].Trades = append(groups[i].Trades, t)
	}
	return groups
}

// PeriodStats aggregates the trades of one calendar period.
type PeriodStats struct {
	Period     string  `json:"period"`
	PnL        float64 `json:"pnl"`
	TradeCount int     `json:"tradeCount"`
	WinCount   int     `json:"winCount"`
	LossCount  int     `json:"lossCount"`
}

// GroupByCalendarMonth aggregates trades per YYYY-MM, sorted by period.
// Undated trades are skipped.
func GroupByCalendarMonth(trades []models.Trade) []PeriodStats {
	return groupByPeriod(trades, "2006-01")
}

// GroupByCalendarDay aggregates trades per YYYY-MM-DD, sorted by period.
func GroupByCalendarDay(trades []models.Trade) []PeriodStats {
	return groupByPeriod(trades, models.DateLayout)
}

func groupByPeriod(trades []models.Trade, layout string) []PeriodStats {
	buckets := make(map[string]*PeriodStats)
	for _, t := range trades {
		if t.TradeDate.IsZero() {
			continue
		}
		key := t.TradeDate.Format(layout)
		b, ok := buckets[key]
		if !ok {
			b = &PeriodStats{Period: key}
			buckets[key] = b
		}
		pnl := ResolveTradePnL(t)
		b.PnL += pnl
		b.TradeCount++
		if pnl > 0 {
			b.WinCount++
		} else if pnl < 0 {
			b.LossCount++
		}
	}

	out := make([]PeriodStats, 0, len(buckets))
	for _, b := range buckets {
		b.PnL = neutral(b.PnL)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// MonthlyPnL sums the P&L of trades dated in the given month.
func MonthlyPnL(trades []models.Trade, year int, month time.Month) float64 {
	period := fmt.Sprintf("%04d-%02d", year, int(month))
	var sum float64
	for _, t := range trades {
		if !t.TradeDate.IsZero() && t.TradeDate.Format("2006-01") == period {
			sum += ResolveTradePnL(t)
		}
	}
	return neutral(sum)
}

// BestAndWorstTrade returns the trades with the highest and lowest P&L.
// Both are nil for an empty list.
func BestAndWorstTrade(trades []models.Trade) (best, worst *models.Trade) {
	for i := range trades {
		pnl := ResolveTradePnL(trades[i])
		if best == nil || pnl > ResolveTradePnL(*best) {
			best = &trades[i]
		}
		if worst == nil || pnl < ResolveTradePnL(*worst) {
			worst = &trades[i]
		}
	}
	return best, worst
}

// FilterByDateRange keeps trades dated between start and end, both
// inclusive at day granularity. A zero bound is open; undated trades are
// always dropped.
func FilterByDateRange(trades []models.Trade, start, end time.Time) []models.Trade {
	start, end = models.DateOf(start), models.DateOf(end)
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.TradeDate.IsZero() {
			continue
		}
		d := models.DateOf(t.TradeDate)
		if !start.IsZero() && d.Before(start) {
			continue
		}
		if !end.IsZero() && d.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// WindowKind names a relative time window.
type WindowKind string

const (
	WindowAll     WindowKind = "all"
	Window7Days   WindowKind = "7d"
	Window30Days  WindowKind = "30d"
	Window90Days  WindowKind = "90d"
	Window365Days WindowKind = "365d"
	WindowCustom  WindowKind = "custom"
)

var windowDays = map[WindowKind]int{
	Window7Days:   7,
	Window30Days:  30,
	Window90Days:  90,
	Window365Days: 365,
}

// Window selects trades by date. Start and End are used only by custom
// windows.
type Window struct {
	Kind  WindowKind
	Start time.Time
	End   time.Time
}

// ParseWindow parses a window name. The empty string means all.
func ParseWindow(s string) (WindowKind, error) {
	kind := WindowKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case "":
		return WindowAll, nil
	case WindowAll, WindowCustom:
		return kind, nil
	}
	if _, ok := windowDays[kind]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("unknown window %q (want all, 7d, 30d, 90d, 365d or custom)", s)
}

// FilterByRelativeWindow applies a window relative to now. The lastN
// windows keep trades dated from now minus N days up to now.
func FilterByRelativeWindow(trades []models.Trade, w Window, now time.Time) []models.Trade {
	switch w.Kind {
	case WindowAll, "":
		return trades
	case WindowCustom:
		return FilterByDateRange(trades, w.Start, w.End)
	}

	days, ok := windowDays[w.Kind]
	if !ok {
		return trades
	}
	return FilterByDateRange(trades, now.AddDate(0, 0, -days), now)
}
