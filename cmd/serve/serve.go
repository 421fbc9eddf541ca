package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srthknk/biomuseum/internal/api"
	"github.com/srthknk/biomuseum/internal/app"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability"
)

// Command creates the serve command, which runs the HTTP API until
// interrupted.
func Command(ctx *app.Context) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the verified image API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := ctx.Settings
			if cmd.Flags().Changed("listen") {
				settings.Server.Listen = listen
			}
			log := ctx.Logger.Module("serve")

			var m *observability.Metrics
			if settings.Metrics.Enabled {
				var err error
				if m, err = observability.NewProcessMetrics(); err != nil {
					return err
				}
			}

			a, err := app.New(settings, m, ctx.Logger.Module("app"))
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := api.New(api.ConfigFromSettings(settings), a.Orchestrator,
				api.WithLogger(ctx.Logger.Module("api")),
				api.WithMetrics(m),
				api.WithBuildInfo(ctx.Build),
			)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("biomuseum API starting", logger.String("version", ctx.Build.GetVersion()))
			return server.Start(sigCtx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address, overrides server.listen")

	return cmd
}
