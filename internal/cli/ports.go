package cli

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"gidterm/internal/config"
	"gidterm/internal/ports"
)

func newPortsCmd() *cobra.Command {
	var path string
	var dir string

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List the port registry's current allocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(dir)
			if err != nil {
				return configErrorf("load config: %v", err)
			}

			resolved := path
			if resolved == "" {
				resolved = cfg.PortRegistryPath
			}
			if resolved == "" {
				p, err := ports.DefaultPath()
				if err != nil {
					return configErrorf("resolve port registry path: %v", err)
				}
				resolved = p
			}
			reg, err := ports.Load(resolved, cfg.PortRangeMin, cfg.PortRangeMax)
			if err != nil {
				return configErrorf("load port registry: %v", err)
			}
			if err := reg.RefreshStatus(); err != nil {
				return configErrorf("refresh port registry: %v", err)
			}

			printPortsTable(cmd, reg)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "port registry file (default ~/.gidterm/ports.json)")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to load .gidterm.yaml config from")
	return cmd
}

// projectColWidth is wide enough for most project names while keeping the
// table narrow in a terminal; columns are padded with go-runewidth so
// multi-byte project names (e.g. CJK directory names) still line up.
const projectColWidth = 24

func printPortsTable(cmd *cobra.Command, reg *ports.Registry) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %-5s  %s\n", runewidth.FillRight("PROJECT", projectColWidth), "PORT", "STATUS")
	for _, e := range reg.ListAllocations() {
		status := reg.Status(e.Project)
		project := runewidth.Truncate(e.Project, projectColWidth, "...")
		project = runewidth.FillRight(project, projectColWidth)
		fmt.Fprintf(out, "%s  %-5d  %s\n", project, e.Port, status)
	}
}
