package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trading-journal/internal/api"
)

// addServeCommand adds the HTTP API server command.
func addServeCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the journal API server",
		Long: `Serve the journal records and analytics as JSON over HTTP for the
dashboard. Stops gracefully on SIGINT or SIGTERM.`,
		Example: `  journal serve
  journal serve --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			port := app.Config.Server.Port
			if cmd.Flags().Changed("port") {
				port, _ = cmd.Flags().GetInt("port")
			}

			ds, err := app.dataStore()
			if err != nil {
				return err
			}

			server := api.NewServer(ds, app.Logger, api.Options{
				Port:          port,
				CORSOrigin:    app.Config.Server.CORSOrigin,
				DefaultWindow: app.Config.DefaultWindow(),
				ActiveOnly:    app.Config.Analytics.ActiveOnly,
				Version:       Version,
			})

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !output.IsJSON() {
				output.Info("Journal API listening on http://localhost:%d (%s store)", port, app.Config.Data.Source)
			}
			return server.Run(ctx)
		},
	}

	cmd.Flags().IntP("port", "p", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(cmd)
}
