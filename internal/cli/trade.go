package cli

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/store"
	"trading-journal/pkg/utils"
)

// addTradeCommands adds trade management commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Trade log management",
		Long:  "Record, list, edit and remove journal trades.",
	}

	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeUpdateCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

// tradeFieldFlags registers the flags shared by trade add and trade update.
func tradeFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "trade date (YYYY-MM-DD)")
	cmd.Flags().String("symbol", "", "stock name")
	cmd.Flags().String("qty", "", "quantity")
	cmd.Flags().String("entry", "", "entry price")
	cmd.Flags().String("exit", "", "exit price (empty for an open position)")
	cmd.Flags().String("stop", "", "stop loss")
	cmd.Flags().String("target", "", "target price")
	cmd.Flags().String("pnl", "", "recorded profit/loss, overrides the computed value")
	cmd.Flags().String("setup", "", "strategy name")
	cmd.Flags().Bool("followed", false, "setup rules were followed")
	cmd.Flags().String("emotion", "", "emotion (Confident, Neutral, Anxious, Excited, Fearful, Greedy, Disciplined)")
	cmd.Flags().String("notes", "", "trade notes")
	cmd.Flags().String("reflection", "", "psychology reflection")
	cmd.Flags().String("screenshot", "", "screenshot link")
}

// changedString returns the flag value when the user set it.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// changedNumber parses a numeric flag when the user set it. An empty value
// yields an absent Number, which clears optional fields.
func changedNumber(cmd *cobra.Command, name string) *models.Number {
	v := changedString(cmd, name)
	if v == nil {
		return nil
	}
	n := models.ParseNumber(*v)
	return &n
}

// checkEmotion rejects labels outside the fixed emotion set, which Normalize
// would otherwise keep verbatim.
func checkEmotion(label string) error {
	if strings.TrimSpace(label) == "" {
		return nil
	}
	if _, ok := models.ParseEmotion(label); !ok {
		return apperrors.NewValidationError("emotion", label, "unknown emotion")
	}
	return nil
}

func newTradeAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a trade",
		Long: `Record a trade in the journal.

Leave --exit empty for an open position. P&L is computed from entry, exit
and quantity unless --pnl is given.`,
		Example: `  journal trade add --date 2024-06-20 --symbol TCS --qty 10 --entry 3850 --exit 3900 --setup Breakout --followed
  journal trade add --date 2024-06-21 --symbol INFY --qty 5 --entry 1520 --emotion anxious`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			str := func(name string) string {
				v, _ := cmd.Flags().GetString(name)
				return v
			}
			followed, _ := cmd.Flags().GetBool("followed")
			if err := checkEmotion(str("emotion")); err != nil {
				return err
			}

			trade := models.TradeInput{
				TradeDate:             str("date"),
				StockName:             str("symbol"),
				Quantity:              models.ParseNumber(str("qty")),
				EntryPrice:            models.ParseNumber(str("entry")),
				ExitPrice:             models.ParseNumber(str("exit")),
				StopLoss:              models.ParseNumber(str("stop")),
				TargetPrice:           models.ParseNumber(str("target")),
				ProfitLoss:            models.ParseNumber(str("pnl")),
				SetupFollowed:         models.Flag(followed),
				WhichSetup:            str("setup"),
				Emotion:               str("emotion"),
				Notes:                 str("notes"),
				PsychologyReflections: str("reflection"),
				ScreenshotLink:        str("screenshot"),
			}.Normalize()

			ds, err := app.dataStore()
			if err != nil {
				return err
			}
			if err := ds.CreateTrade(ctx, &trade); err != nil {
				return err
			}
			pnl := analytics.ResolveTradePnL(trade)
			logging.LogTrade(app.Logger, "created", trade.ID, trade.StockName, pnl)

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Trade #%d recorded: %s %s @ %s", trade.ID, utils.FormatQuantity(trade.Quantity), trade.StockName, FormatPrice(trade.EntryPrice))
			if trade.IsOpen() {
				output.Dim("Position is open")
			} else {
				output.Printf("  P&L: %s\n", output.FormatPnL(pnl))
			}
			if trade.WhichSetup != "" && !knownStrategy(ctx, ds, trade.WhichSetup) {
				output.Warning("Setup %q is not a saved strategy; --active-only reports will skip this trade", trade.WhichSetup)
			}
			if trade.ProfitLoss != nil && !trade.IsOpen() {
				computed := analytics.ComputeTradePnLInput(
					models.ParseNumber(str("entry")), models.ParseNumber(str("exit")), models.ParseNumber(str("qty")))
				if math.Abs(computed-*trade.ProfitLoss) >= 0.005 {
					output.Warning("Recorded P&L %s differs from computed %s", utils.FormatCurrencyText(str("pnl")), utils.FormatCurrency(computed))
				}
			}
			return nil
		},
	}

	tradeFieldFlags(cmd)
	return cmd
}

// knownStrategy reports whether name matches a saved strategy. Lookup
// failures count as known so that a flaky backend does not add noise.
func knownStrategy(ctx context.Context, ds store.DataStore, name string) bool {
	strategies, err := ds.ListStrategies(ctx)
	if err != nil {
		return true
	}
	for _, s := range strategies {
		if s.Name == name {
			return true
		}
	}
	return false
}

func formatReturn(t models.Trade) string {
	if t.IsOpen() {
		return "-"
	}
	return utils.FormatPercentage(analytics.TradeReturnPercent(t))
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trades",
		Long:  "List journal trades ordered by trade date.",
		Example: `  journal trade list
  journal trade list --from 2024-06-01 --to 2024-06-30
  journal trade list --strategy Breakout --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			filter, err := tradeListFilter(cmd)
			if err != nil {
				return err
			}

			ds, err := app.dataStore()
			if err != nil {
				return err
			}
			trades, err := ds.ListTrades(ctx, filter)
			if err != nil {
				output.Error("Failed to fetch trades: %v", err)
				return err
			}

			if output.IsJSON() {
				if trades == nil {
					trades = []models.Trade{}
				}
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades found.")
				return nil
			}

			var totalPnL float64
			table := NewTable(output, "ID", "Date", "Symbol", "Qty", "Entry", "Exit", "P&L", "Return", "Setup", "Rules", "Emotion")
			for _, t := range trades {
				pnl := analytics.ResolveTradePnL(t)
				totalPnL += pnl
				table.AddRow(
					strconv.FormatInt(t.ID, 10),
					FormatDate(t.TradeDate),
					t.StockName,
					utils.FormatQuantity(t.Quantity),
					FormatPrice(t.EntryPrice),
					FormatOptionalPrice(t.ExitPrice),
					output.FormatPnL(pnl),
					formatReturn(t),
					TruncateString(t.WhichSetup, 15),
					FormatSetup(t.SetupFollowed),
					FormatEmotion(t.Emotion),
				)
			}
			table.Render()

			output.Println()
			output.Printf("  %d trades, total P&L %s\n", len(trades), output.FormatPnL(totalPnL))
			return nil
		},
	}

	cmd.Flags().String("from", "", "first trade date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last trade date (YYYY-MM-DD)")
	cmd.Flags().String("strategy", "", "only trades of this strategy")
	cmd.Flags().String("symbol", "", "only trades of this stock")
	cmd.Flags().Int("limit", 0, "maximum number of trades")

	return cmd
}

func tradeListFilter(cmd *cobra.Command) (store.TradeFilter, error) {
	var f store.TradeFilter
	var err error
	if f.StartDate, err = dateFlag(cmd, "from"); err != nil {
		return f, err
	}
	if f.EndDate, err = dateFlag(cmd, "to"); err != nil {
		return f, err
	}
	f.Strategy, _ = cmd.Flags().GetString("strategy")
	f.Symbol, _ = cmd.Flags().GetString("symbol")
	f.Limit, _ = cmd.Flags().GetInt("limit")
	if f.Limit < 0 {
		return f, apperrors.NewValidationError("limit", f.Limit, "must not be negative")
	}
	return f, nil
}

// dateFlag parses an optional YYYY-MM-DD flag. Unset flags yield the zero time.
func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return time.Time{}, nil
	}
	d, ok := models.ParseTradeDate(v)
	if !ok {
		return time.Time{}, apperrors.NewValidationError(name, v, "expected YYYY-MM-DD")
	}
	return d, nil
}

func newTradeUpdateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a trade",
		Long: `Edit fields of a recorded trade. Only the flags given are changed;
pass an empty value (e.g. --exit "") to clear an optional price.`,
		Example: `  journal trade update 12 --exit 3910
  journal trade update 12 --notes "scaled out early" --followed=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}

			patch := models.TradePatch{
				TradeDate:             changedString(cmd, "date"),
				StockName:             changedString(cmd, "symbol"),
				Quantity:              changedNumber(cmd, "qty"),
				EntryPrice:            changedNumber(cmd, "entry"),
				ExitPrice:             changedNumber(cmd, "exit"),
				StopLoss:              changedNumber(cmd, "stop"),
				TargetPrice:           changedNumber(cmd, "target"),
				ProfitLoss:            changedNumber(cmd, "pnl"),
				WhichSetup:            changedString(cmd, "setup"),
				Emotion:               changedString(cmd, "emotion"),
				Notes:                 changedString(cmd, "notes"),
				PsychologyReflections: changedString(cmd, "reflection"),
				ScreenshotLink:        changedString(cmd, "screenshot"),
			}
			if cmd.Flags().Changed("followed") {
				followed, _ := cmd.Flags().GetBool("followed")
				flag := models.Flag(followed)
				patch.SetupFollowed = &flag
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update: pass at least one field flag")
			}
			if patch.Emotion != nil {
				if err := checkEmotion(*patch.Emotion); err != nil {
					return err
				}
			}

			ds, err := app.dataStore()
			if err != nil {
				return err
			}
			trade, err := ds.UpdateTrade(ctx, id, patch)
			if err != nil {
				return err
			}
			pnl := analytics.ResolveTradePnL(*trade)
			logging.LogTrade(app.Logger, "updated", trade.ID, trade.StockName, pnl)

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Trade #%d updated", trade.ID)
			output.Printf("  %s %s, P&L %s\n", FormatDate(trade.TradeDate), trade.StockName, output.FormatPnL(pnl))
			return nil
		},
	}

	tradeFieldFlags(cmd)
	return cmd
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Short:   "Remove a trade",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			ds, err := app.dataStore()
			if err != nil {
				return err
			}
			if err := ds.DeleteTrade(ctx, id); err != nil {
				return err
			}
			logger := logging.WithTradeID(app.Logger, id)
			logger.Info().Msg("Trade deleted")

			if output.IsJSON() {
				return output.JSON(map[string]int64{"id": id})
			}
			output.Success("✓ Trade #%d deleted", id)
			return nil
		},
	}
}

// parseRecordID parses a positive record id argument.
func parseRecordID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id", arg, "must be a positive integer")
	}
	return id, nil
}
