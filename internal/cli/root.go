// Package cli provides the command-line interface for the trading journal.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trading-journal/internal/config"
	"trading-journal/internal/logging"
	"trading-journal/internal/sheets"
	"trading-journal/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-07-01"
)

// commandTimeout bounds a single CLI command's store calls.
const commandTimeout = 30 * time.Second

// timeNow is the clock for relative windows and flag defaults.
var timeNow = time.Now

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore

	// ownsStore is set when dataStore opened Store; injected stores are
	// left for the caller to close.
	ownsStore bool
}

// Execute runs the CLI with os.Args. Configuration, logging and the store
// are set up once flags are parsed, and the store is closed when the
// command returns, failed or not.
func Execute() error {
	app := &App{Logger: zerolog.Nop()}
	return app.execute(newRootCmd(app))
}

func (app *App) execute(rootCmd *cobra.Command) error {
	err := rootCmd.Execute()
	if cerr := app.closeStore(); err == nil {
		err = cerr
	}
	return err
}

func (app *App) closeStore() error {
	if app.Store == nil || !app.ownsStore {
		return nil
	}
	err := app.Store.Close()
	app.Store, app.ownsStore = nil, false
	return err
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trading journal with performance analytics",
		Long: `Trading Journal records trades, strategies and monthly psychology notes
and turns them into performance analytics: P&L, win rate, profit factor,
drawdown, streaks and per-strategy, per-emotion and per-month breakdowns.

Records live in a local SQLite database or a Google Sheets spreadsheet
fronted by an Apps Script web app.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trading-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addStrategyCommands(rootCmd, app)
	addPsychologyCommands(rootCmd, app)
	addReportCommands(rootCmd, app)
	addServeCommand(rootCmd, app)

	return rootCmd
}

// setup loads configuration and builds the logger. Tests pre-populate App
// and skip both.
func (app *App) setup(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")

	if app.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		app.Config = cfg
		app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())
	}

	if debug {
		logging.SetDebugLevel()
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}
	return nil
}

// dataStore opens the configured data store on first use.
func (app *App) dataStore() (store.DataStore, error) {
	if app.Store != nil {
		return app.Store, nil
	}
	ds, err := OpenStore(app.Config, app.Logger)
	if err != nil {
		return nil, err
	}
	app.Store, app.ownsStore = ds, true
	return ds, nil
}

// OpenStore builds the data store selected by cfg.
func OpenStore(cfg *config.Config, logger zerolog.Logger) (store.DataStore, error) {
	switch cfg.Data.Source {
	case config.SourceSQLite:
		ds, err := store.NewSQLiteStore(cfg.Data.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("path", cfg.Data.SQLitePath).Msg("SQLite store initialized")
		return ds, nil
	case config.SourceSheets:
		ds, err := sheets.NewStore(sheets.Config{
			ScriptURL:         cfg.Sheets.ScriptURL,
			Timeout:           cfg.Sheets.Timeout,
			MaxAttempts:       cfg.Sheets.MaxAttempts,
			RequestsPerSecond: cfg.Sheets.RequestsPerSecond,
			BreakerThreshold:  cfg.Sheets.BreakerThreshold,
			BreakerCooldown:   cfg.Sheets.BreakerCooldown,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Debug().Msg("Sheets store initialized")
		return ds, nil
	case config.SourceMemory:
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
}

// commandContext returns a context bounded by commandTimeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, commandTimeout)
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Trading Journal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := config.Path(app.Config.Dir)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Data")
	output.Printf("  Source:          %s\n", cfg.Data.Source)
	if cfg.Data.Source == config.SourceSQLite {
		output.Printf("  SQLite Path:     %s\n", cfg.Data.SQLitePath)
	}
	output.Println()

	output.Bold("Google Sheets")
	url := cfg.Sheets.ScriptURL
	if url == "" {
		url = "(not set)"
	}
	output.Printf("  Script URL:      %s\n", url)
	output.Printf("  Timeout:         %s\n", cfg.Sheets.Timeout)
	output.Printf("  Max Attempts:    %d\n", cfg.Sheets.MaxAttempts)
	output.Printf("  Requests/sec:    %.1f\n", cfg.Sheets.RequestsPerSecond)
	output.Printf("  Breaker:         %d failures, %s cooldown\n", cfg.Sheets.BreakerThreshold, cfg.Sheets.BreakerCooldown)
	output.Println()

	output.Bold("Server")
	output.Printf("  Port:            %d\n", cfg.Server.Port)
	output.Printf("  CORS Origin:     %s\n", cfg.Server.CORSOrigin)
	output.Println()

	output.Bold("Analytics")
	output.Printf("  Default Window:  %s\n", cfg.Analytics.DefaultWindow)
	output.Printf("  Active Only:     %v\n", cfg.Analytics.ActiveOnly)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %v\n", cfg.Logging.File)
}
