package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"gidterm/internal/control"
	"gidterm/internal/replctl"
)

func newControlCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "control",
		Short: "Run the graph and drive it interactively via the Control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine(dir, control.ModeManual)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runErrCh := make(chan error, 1)
			go func() { runErrCh <- eng.ctrl.Run(ctx) }()

			historyPath := ""
			if home, err := os.UserHomeDir(); err == nil {
				historyPath = filepath.Join(home, ".gidterm", "control_history")
			}
			if err := replctl.Run(eng.ctrl, historyPath); err != nil {
				return err
			}

			stop()
			return waitIgnoringCancel(ctx, runErrCh)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "project directory containing .gid/graph.yml or gidterm.yml")
	return cmd
}

func waitIgnoringCancel(ctx context.Context, errCh <-chan error) error {
	err := <-errCh
	if err == context.Canceled {
		return nil
	}
	return err
}
