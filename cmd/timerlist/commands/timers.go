package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"timerlist/internal/client"
	"timerlist/internal/timers"
)

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [name] [duration]",
		Short: "Add a timer and start the timer set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := client.New(cfg.ServerURL).AddTimer(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Mark the timer set as running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := client.New(cfg.ServerURL).Start(cmd.Context())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Mark the timer set as stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := client.New(cfg.ServerURL).Stop(cmd.Context())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running flag and all timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := client.New(cfg.ServerURL).State(cmd.Context())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var since uint64
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent state changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := client.New(cfg.ServerURL).History(cmd.Context(), since)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range events {
				fmt.Fprintf(out, "%d\t%s\t%s\trunning=%t\ttimers=%d\n",
					e.Seq, e.At.Format(time.RFC3339), e.Action, e.State.IsRunning, len(e.State.Timers))
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&since, "since", 0, "only show changes after this sequence number")
	return cmd
}

func printState(w io.Writer, s timers.State) {
	status := "stopped"
	if s.IsRunning {
		status = "running"
	}
	fmt.Fprintf(w, "Timers %s (%d)\n", status, len(s.Timers))
	for i, t := range s.Timers {
		fmt.Fprintf(w, "  %d. %s\t%s\n", i+1, t.Name, t.Duration)
	}
}
