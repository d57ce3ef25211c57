// Command gidterm runs a YAML task graph under PTYs, inferring progress
// from output and surfacing advisories.
package main

import (
	"fmt"
	"os"

	"gidterm/internal/cli"
)

func main() {
	err := cli.Execute(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}
