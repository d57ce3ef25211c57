package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the gidterm command tree: run, ports, control.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gidterm",
		Short:         "Parallel task runner with live progress inference",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newPortsCmd())
	root.AddCommand(newControlCmd())
	return root
}

// Execute runs the root command against args and returns its error,
// translatable to a process exit code via ExitCode.
func Execute(args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.Execute()
}
