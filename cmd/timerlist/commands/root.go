package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"timerlist/internal/config"
)

var (
	cfg     config.Config
	verbose bool
	logger  *slog.Logger
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd(os.Stdout, os.Stderr).Execute()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "timerlist",
		Short:         "Track a list of named timers",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, &loaded)
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	defaults := config.Default()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("url", defaults.ServerURL, "server base URL for client commands (env TIMERLIST_URL)")

	root.AddCommand(serveCmd(), addCmd(), startCmd(), stopCmd(), statusCmd(), historyCmd())
	return root
}

// applyFlagOverrides copies explicitly set flags over env-derived values.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		c.ServerURL, _ = flags.GetString("url")
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		c.Port, _ = flags.GetInt("port")
	}
	if flags.Lookup("static") != nil && flags.Changed("static") {
		c.StaticDir, _ = flags.GetString("static")
	}
	if flags.Lookup("inbox") != nil && flags.Changed("inbox") {
		c.InboxDir, _ = flags.GetString("inbox")
	}
	if flags.Lookup("history") != nil && flags.Changed("history") {
		c.HistorySize, _ = flags.GetInt("history")
	}
}
