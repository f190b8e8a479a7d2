package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/store"
	"trading-journal/pkg/utils"
)

// addReportCommands adds the analytics report commands.
func addReportCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newReportCmd(app))
	rootCmd.AddCommand(newMonthlyCmd(app))
}

// windowFlags registers the trade selection flags shared by the reports.
func windowFlags(cmd *cobra.Command) {
	cmd.Flags().String("window", "", "time window: all, 7d, 30d, 90d, 365d (default from config)")
	cmd.Flags().Bool("active-only", false, "only count trades of active strategies (default from config)")
	cmd.Flags().String("start", "", "custom window start (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "custom window end (YYYY-MM-DD)")
}

// analyticsOptions resolves the selection flags against the configured
// defaults. --start or --end selects a custom window.
func (app *App) analyticsOptions(cmd *cobra.Command) (analytics.Options, error) {
	opts := analytics.Options{
		Window:     app.Config.DefaultWindow(),
		ActiveOnly: app.Config.Analytics.ActiveOnly,
		Now:        timeNow(),
	}

	if cmd.Flags().Changed("window") {
		v, _ := cmd.Flags().GetString("window")
		kind, err := analytics.ParseWindow(v)
		if err != nil {
			return opts, apperrors.NewValidationError("window", v, err.Error())
		}
		if kind == analytics.WindowCustom {
			return opts, apperrors.NewValidationError("window", v, "use --start and --end for a custom window")
		}
		opts.Window = analytics.Window{Kind: kind}
	}
	if cmd.Flags().Changed("active-only") {
		opts.ActiveOnly, _ = cmd.Flags().GetBool("active-only")
	}

	start, err := dateFlag(cmd, "start")
	if err != nil {
		return opts, err
	}
	end, err := dateFlag(cmd, "end")
	if err != nil {
		return opts, err
	}
	if !start.IsZero() || !end.IsZero() {
		opts.Window = analytics.Window{Kind: analytics.WindowCustom, Start: start, End: end}
	}
	return opts, nil
}

// loadSnapshot reads every record the reports need.
func (app *App) loadSnapshot(cmd *cobra.Command) (*store.Snapshot, error) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	ds, err := app.dataStore()
	if err != nil {
		return nil, err
	}
	return store.LoadSnapshot(ctx, ds, store.TradeFilter{})
}

func describeWindow(opts analytics.Options) string {
	var label string
	switch opts.Window.Kind {
	case analytics.WindowAll, "":
		label = "All time"
	case analytics.WindowCustom:
		from, to := "start", "today"
		if !opts.Window.Start.IsZero() {
			from = FormatDate(opts.Window.Start)
		}
		if !opts.Window.End.IsZero() {
			to = FormatDate(opts.Window.End)
		}
		label = from + " to " + to
	default:
		label = "Last " + string(opts.Window.Kind)
	}
	if opts.ActiveOnly {
		label += ", active strategies"
	}
	return label
}

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Performance report",
		Long: `Show performance analytics for the selected trades: P&L, win rate,
profit factor, drawdown, streaks and breakdowns by strategy, emotion and
rule adherence.`,
		Example: `  journal report
  journal report --window 30d --active-only
  journal report --start 2024-04-01 --end 2024-06-30 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			opts, err := app.analyticsOptions(cmd)
			if err != nil {
				return err
			}
			snap, err := app.loadSnapshot(cmd)
			if err != nil {
				output.Error("Failed to load journal: %v", err)
				return err
			}

			summary := analytics.Summarize(snap.Trades, snap.Strategies, opts)
			app.Logger.Debug().
				Str("window", string(opts.Window.Kind)).
				Bool("active_only", opts.ActiveOnly).
				Int("trades", summary.Metrics.Outcomes.Total).
				Msg("Report computed")

			if output.IsJSON() {
				return output.JSON(summary)
			}
			renderSummary(output, summary, describeWindow(opts))
			return nil
		},
	}

	windowFlags(cmd)
	return cmd
}

func renderSummary(output *Output, s analytics.Summary, title string) {
	m := s.Metrics
	if m.Outcomes.Total == 0 {
		output.Bold("Performance Report - %s", title)
		output.Info("No trades in this window.")
		return
	}

	period := "-"
	if s.From != nil && s.To != nil {
		period = FormatDate(*s.From) + " to " + FormatDate(*s.To)
	}
	output.Box("Performance Report - "+title, []string{
		fmt.Sprintf("Period:          %s", period),
		fmt.Sprintf("Trades:          %d (%d won, %d lost, %d flat, %d open)",
			m.Outcomes.Total, m.Outcomes.Wins, m.Outcomes.Losses, m.Outcomes.Breakeven, m.Outcomes.Open),
		fmt.Sprintf("Total P&L:       %s", output.FormatPnL(m.TotalPnL)),
		fmt.Sprintf("Win Rate:        %s", utils.FormatPercentage(m.WinRate)),
		fmt.Sprintf("Profit Factor:   %s", FormatRatio(m.ProfitFactor)),
		fmt.Sprintf("Gross P / L:     %s / %s", utils.FormatCompact(m.GrossProfit), utils.FormatCompact(m.GrossLoss)),
		fmt.Sprintf("Expectancy:      %s", output.FormatPnL(m.Expectancy)),
		fmt.Sprintf("Avg Win / Loss:  %s / %s", utils.FormatCurrency(m.AverageWin), utils.FormatCurrency(m.AverageLoss)),
		fmt.Sprintf("Largest W / L:   %s / %s", utils.FormatCurrency(m.LargestWin), utils.FormatCurrency(m.LargestLoss)),
		fmt.Sprintf("Max Drawdown:    %s", utils.FormatCurrency(m.MaxDrawdown)),
		fmt.Sprintf("Streaks:         %d wins, %d losses", m.MaxConsecutiveWins, m.MaxConsecutiveLosses),
		fmt.Sprintf("Return Ratio:    %s", FormatRatio(m.SimpleReturnRatio)),
	})

	if len(s.ByStrategy) > 0 {
		output.Println()
		output.Bold("By Strategy")
		renderGroups(output, "Strategy", s.ByStrategy, true)
	}
	if len(s.ByEmotion) > 0 {
		output.Println()
		output.Bold("By Emotion")
		renderGroups(output, "Emotion", s.ByEmotion, false)
	}
	if len(s.Adherence) > 0 {
		output.Println()
		output.Bold("Rule Adherence")
		renderGroups(output, "Setup Followed", s.Adherence, false)
	}
}

func renderGroups(output *Output, keyHeader string, rows []analytics.GroupStats, withStatus bool) {
	headers := []string{keyHeader, "Trades", "P&L", "Win Rate", "Avg P&L", "PF"}
	if withStatus {
		headers = append(headers, "Status")
	}
	table := NewTable(output, headers...)
	for _, r := range rows {
		key := r.Key
		if key == "" {
			key = "(none)"
		}
		cells := []string{
			TruncateString(key, 20),
			strconv.Itoa(r.TradeCount),
			output.FormatPnL(r.TotalPnL),
			utils.FormatPercentage(r.WinRate),
			output.FormatPnL(r.AveragePnL),
			FormatRatio(r.ProfitFactor),
		}
		if withStatus {
			status := string(r.Status)
			if status == "" {
				status = "unknown"
			}
			cells = append(cells, output.StatusTag(status))
		}
		table.AddRow(cells...)
	}
	table.Render()
}

// monthRow pairs computed monthly figures with the reflection logged for
// that month, if any. A reflection without a recorded P&L falls back to the
// month's total over the whole journal and sets JournalComputed.
type monthRow struct {
	analytics.PeriodStats
	RecordedPnL     *float64 `json:"recordedPnL"`
	JournalComputed bool     `json:"journalComputed,omitempty"`
	MentalState     string   `json:"mentalState,omitempty"`
}

func joinMonthly(stats []analytics.PeriodStats, entries []models.PsychologyEntry, all []models.Trade) []monthRow {
	byPeriod := make(map[string]models.PsychologyEntry, len(entries))
	for _, e := range entries {
		if _, seen := byPeriod[e.Period()]; !seen {
			byPeriod[e.Period()] = e
		}
	}
	rows := make([]monthRow, 0, len(stats))
	for _, st := range stats {
		row := monthRow{PeriodStats: st}
		if e, ok := byPeriod[st.Period]; ok {
			row.RecordedPnL = e.MonthlyPnL
			row.MentalState = e.MentalState
			if row.RecordedPnL == nil {
				pnl := analytics.MonthlyPnL(all, e.Year, time.Month(e.Month))
				row.RecordedPnL = &pnl
				row.JournalComputed = true
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func newMonthlyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Month-by-month P&L",
		Long: `Show P&L per calendar month, oldest first, next to the P&L recorded in
that month's psychology entry. An entry without a recorded P&L shows the
month's total across the journal, marked (calc).`,
		Example: `  journal monthly
  journal monthly --window 365d --active-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			opts, err := app.analyticsOptions(cmd)
			if err != nil {
				return err
			}
			snap, err := app.loadSnapshot(cmd)
			if err != nil {
				output.Error("Failed to load journal: %v", err)
				return err
			}

			selected := analytics.Select(snap.Trades, snap.Strategies, opts)
			rows := joinMonthly(analytics.GroupByCalendarMonth(selected), snap.Psychology, snap.Trades)

			if output.IsJSON() {
				return output.JSON(rows)
			}
			if len(rows) == 0 {
				output.Info("No dated trades in this window.")
				return nil
			}

			output.Bold("Monthly P&L - %s", describeWindow(opts))
			var total float64
			table := NewTable(output, "Month", "Trades", "Won", "Lost", "P&L", "Journal P&L", "Mental State")
			for _, r := range rows {
				total += r.PnL
				journal := FormatOptionalAmount(r.RecordedPnL)
				if r.JournalComputed {
					journal += " (calc)"
				}
				table.AddRow(
					FormatMonth(r.Period),
					strconv.Itoa(r.TradeCount),
					strconv.Itoa(r.WinCount),
					strconv.Itoa(r.LossCount),
					output.FormatPnL(r.PnL),
					journal,
					TruncateString(r.MentalState, 25),
				)
			}
			table.Render()
			output.Println()
			output.Printf("  Total: %s over %d months\n", output.FormatPnL(total), len(rows))
			return nil
		},
	}

	windowFlags(cmd)
	return cmd
}
