package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/analytics"
	"trading-journal/internal/models"
	"trading-journal/internal/store"
)

// addPsychologyCommands adds the monthly psychology journal commands.
func addPsychologyCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "psych",
		Aliases: []string{"psychology"},
		Short:   "Monthly psychology journal",
		Long:    "Record and review monthly reflections on mental state and discipline.",
	}

	cmd.AddCommand(newPsychAddCmd(app))
	cmd.AddCommand(newPsychListCmd(app))

	rootCmd.AddCommand(cmd)
}

func newPsychAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a monthly reflection",
		Long: `Add a monthly psychology entry.

Month and year default to the current month. --best and --worst reference
trade ids and are not checked against the trade log.

When the month has trades, --pnl defaults to their total P&L and --best and
--worst to the ids of the closed trades with the highest and lowest P&L.`,
		Example: `  journal psych add --pnl 12500 --mental-state "calm, patient" --lessons "wait for the retest"
  journal psych add --month 5 --year 2024 --best 41 --worst 47`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			str := func(name string) string {
				v, _ := cmd.Flags().GetString(name)
				return v
			}
			month, _ := cmd.Flags().GetInt("month")
			year, _ := cmd.Flags().GetInt("year")

			entry := models.PsychologyInput{
				Month:        models.NumberFromFloat(float64(month)),
				Year:         models.NumberFromFloat(float64(year)),
				MonthlyPnL:   models.ParseNumber(str("pnl")),
				BestTradeID:  models.ParseNumber(str("best")),
				WorstTradeID: models.ParseNumber(str("worst")),
				MentalState:  str("mental-state"),
				Improvements: str("improvements"),
				Lessons:      str("lessons"),
				Reflections:  str("reflections"),
			}.Normalize()

			ds, err := app.dataStore()
			if err != nil {
				return err
			}
			if entry.Validate() == nil {
				if err := fillFromTrades(ctx, cmd, ds, &entry); err != nil {
					return err
				}
			}
			if err := ds.CreatePsychology(ctx, &entry); err != nil {
				return err
			}
			app.Logger.Info().
				Str("event", "psychology").
				Int64("entry_id", entry.ID).
				Str("period", entry.Period()).
				Msg("Psychology entry created")

			if output.IsJSON() {
				return output.JSON(entry)
			}
			output.Success("✓ Reflection #%d saved for %s", entry.ID, FormatMonth(entry.Period()))
			return nil
		},
	}

	now := timeNow()
	cmd.Flags().Int("month", int(now.Month()), "month (1-12)")
	cmd.Flags().Int("year", now.Year(), "year")
	cmd.Flags().String("pnl", "", "P&L for the month")
	cmd.Flags().String("best", "", "id of the best trade")
	cmd.Flags().String("worst", "", "id of the worst trade")
	cmd.Flags().String("mental-state", "", "overall mental state")
	cmd.Flags().String("improvements", "", "areas to improve")
	cmd.Flags().String("lessons", "", "lessons learned")
	cmd.Flags().String("reflections", "", "free-form reflections")

	return cmd
}

// fillFromTrades completes the P&L and trade references the user left out
// from the trades dated in the entry's month.
func fillFromTrades(ctx context.Context, cmd *cobra.Command, ds store.DataStore, entry *models.PsychologyEntry) error {
	month := time.Month(entry.Month)
	first := time.Date(entry.Year, month, 1, 0, 0, 0, 0, time.UTC)
	trades, err := ds.ListTrades(ctx, store.TradeFilter{StartDate: first, EndDate: first.AddDate(0, 1, -1)})
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		return nil
	}

	if !cmd.Flags().Changed("pnl") {
		pnl := analytics.MonthlyPnL(trades, entry.Year, month)
		entry.MonthlyPnL = &pnl
	}

	var closed []models.Trade
	for _, t := range trades {
		if !t.IsOpen() || t.ProfitLoss != nil {
			closed = append(closed, t)
		}
	}
	best, worst := analytics.BestAndWorstTrade(closed)
	if best != nil && !cmd.Flags().Changed("best") {
		id := best.ID
		entry.BestTradeID = &id
	}
	if worst != nil && !cmd.Flags().Changed("worst") {
		id := worst.ID
		entry.WorstTradeID = &id
	}
	return nil
}

func newPsychListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List monthly reflections, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			ds, err := app.dataStore()
			if err != nil {
				return err
			}
			entries, err := ds.ListPsychology(ctx)
			if err != nil {
				output.Error("Failed to fetch psychology entries: %v", err)
				return err
			}

			if output.IsJSON() {
				if entries == nil {
					entries = []models.PsychologyEntry{}
				}
				return output.JSON(entries)
			}

			if len(entries) == 0 {
				output.Info("No reflections recorded yet.")
				return nil
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			table := NewTable(output, "ID", "Month", "P&L", "Best", "Worst", "Mental State")
			for _, e := range entries {
				pnl := "-"
				if e.MonthlyPnL != nil {
					pnl = output.FormatPnL(*e.MonthlyPnL)
				}
				table.AddRow(
					strconv.FormatInt(e.ID, 10),
					FormatMonth(e.Period()),
					pnl,
					FormatTradeRef(e.BestTradeID),
					FormatTradeRef(e.WorstTradeID),
					TruncateString(e.MentalState, 30),
				)
			}
			table.Render()

			if verbose {
				for _, e := range entries {
					output.Println()
					output.Bold(FormatMonth(e.Period()))
					printNote(output, "Improvements", e.Improvements)
					printNote(output, "Lessons", e.Lessons)
					printNote(output, "Reflections", e.Reflections)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "show lessons and reflections")
	return cmd
}

func printNote(output *Output, label, text string) {
	if text == "" {
		return
	}
	output.Printf("  %-13s %s\n", label+":", text)
}
