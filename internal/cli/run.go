package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gidterm/internal/control"
)

func newRunCmd() *cobra.Command {
	var dir string
	var mode string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the graph file and run every task to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmode, err := parseMode(mode)
			if err != nil {
				return err
			}
			eng, err := buildEngine(dir, cmode)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := eng.ctrl.Run(ctx); err != nil {
				return fmt.Errorf("run: %w", err)
			}

			state := eng.ctrl.GetState()
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d done, %d failed\n", state.DoneCount, state.TotalCount, state.FailedCount)
			if state.FailedCount > 0 {
				return graphFailuref("%d task(s) failed", state.FailedCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory containing .gid/graph.yml or gidterm.yml")
	cmd.Flags().StringVar(&mode, "mode", "manual", "control mode: manual|mcp|agent")
	return cmd
}

func parseMode(raw string) (control.Mode, error) {
	switch control.Mode(raw) {
	case control.ModeManual, control.ModeMCP, control.ModeAgent:
		return control.Mode(raw), nil
	default:
		return "", invalidInvocationf("invalid --mode %q (expected manual|mcp|agent)", raw)
	}
}
