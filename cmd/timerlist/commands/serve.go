package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"timerlist/internal/app"
	"timerlist/internal/config"
)

func serveCmd() *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the timer server (WebSocket, REST and inbox)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return app.New(cfg, logger).Run(ctx)
		},
	}
	cmd.Flags().Int("port", defaults.Port, "listen port (env PORT)")
	cmd.Flags().String("static", "", "directory of static frontend files (env STATIC_DIR)")
	cmd.Flags().String("inbox", "", "directory watched for timer entry files (env TIMERLIST_INBOX)")
	cmd.Flags().Int("history", defaults.HistorySize, "number of change events kept (env TIMERLIST_HISTORY)")
	return cmd
}
