package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
)

// addStrategyCommands adds strategy playbook commands.
func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "strategy",
		Aliases: []string{"strategies"},
		Short:   "Strategy playbook management",
		Long: `Manage the strategies trades are tagged with.

Trades link to a strategy by name. Only trades of active strategies count
towards analytics when --active-only is used.`,
	}

	cmd.AddCommand(newStrategyAddCmd(app))
	cmd.AddCommand(newStrategyListCmd(app))
	cmd.AddCommand(newStrategyStatusCmd(app))
	cmd.AddCommand(newStrategyDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func newStrategyAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a strategy",
		Example: `  journal strategy add Breakout --tags momentum,intraday
  journal strategy add "Gap Fade" --status testing --description "fade opening gaps above 2%"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			description, _ := cmd.Flags().GetString("description")
			status, _ := cmd.Flags().GetString("status")
			tags, _ := cmd.Flags().GetString("tags")
			screenshot, _ := cmd.Flags().GetString("screenshot")

			if _, ok := models.ParseStrategyStatus(status); !ok {
				return apperrors.NewValidationError("status", status, "must be active, testing or deprecated")
			}

			strategy := models.StrategyInput{
				Name:          args[0],
				Description:   description,
				Status:        status,
				Tags:          models.Tags(models.SplitTags(tags)),
				ScreenshotURL: screenshot,
			}.Normalize()

			ds, err := app.dataStore()
			if err != nil {
				return err
			}
			if err := ds.CreateStrategy(ctx, &strategy); err != nil {
				return err
			}
			logging.LogStrategy(app.Logger, "created", strategy.ID, strategy.Name, string(strategy.Status))

			if output.IsJSON() {
				return output.JSON(strategy)
			}
			output.Success("✓ Strategy #%d %q added (%s)", strategy.ID, strategy.Name, strategy.Status)
			return nil
		},
	}

	cmd.Flags().String("description", "", "what the setup looks for")
	cmd.Flags().String("status", string(models.StrategyActive), "status (active, testing, deprecated)")
	cmd.Flags().String("tags", "", "comma-separated tags")
	cmd.Flags().String("screenshot", "", "reference chart link")

	return cmd
}

func newStrategyListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			ds, err := app.dataStore()
			if err != nil {
				return err
			}
			strategies, err := ds.ListStrategies(ctx)
			if err != nil {
				output.Error("Failed to fetch strategies: %v", err)
				return err
			}

			if output.IsJSON() {
				if strategies == nil {
					strategies = []models.Strategy{}
				}
				return output.JSON(strategies)
			}

			if len(strategies) == 0 {
				output.Info("No strategies yet. Add one with: journal strategy add <name>")
				return nil
			}

			table := NewTable(output, "ID", "Name", "Status", "Tags", "Description")
			for _, s := range strategies {
				table.AddRow(
					strconv.FormatInt(s.ID, 10),
					s.Name,
					output.StatusTag(string(s.Status)),
					FormatTags(s.Tags),
					TruncateString(s.Description, 40),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newStrategyStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "status <id> <active|testing|deprecated>",
		Short:   "Change a strategy's status",
		Example: "  journal strategy status 3 deprecated",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			status, ok := models.ParseStrategyStatus(args[1])
			if !ok {
				return apperrors.NewValidationError("status", args[1], "must be active, testing or deprecated")
			}

			ds, err := app.dataStore()
			if err != nil {
				return err
			}
			value := string(status)
			strategy, err := ds.UpdateStrategy(ctx, id, models.StrategyPatch{Status: &value})
			if err != nil {
				return err
			}
			logging.LogStrategy(app.Logger, "updated", strategy.ID, strategy.Name, value)

			if output.IsJSON() {
				return output.JSON(strategy)
			}
			output.Success("✓ %s is now %s", strategy.Name, output.StatusTag(value))
			return nil
		},
	}
}

func newStrategyDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Short:   "Remove a strategy",
		Long:    "Remove a strategy. Trades tagged with its name are kept.",
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
			if err := ds.DeleteStrategy(ctx, id); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]int64{"id": id})
			}
			output.Success("✓ Strategy #%d deleted", id)
			return nil
		},
	}
}
