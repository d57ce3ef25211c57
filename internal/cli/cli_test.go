package cli_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gidterm/internal/cli"
)

func TestExitCode_Mapping(t *testing.T) {
	require.Equal(t, cli.ExitSuccess, cli.ExitCode(nil))
	require.Equal(t, cli.ExitInternalError, cli.ExitCode(errors.New("boom")))
}

func writeGraph(t *testing.T, dir, yaml string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gidterm.yml"), []byte(yaml), 0o644))
}

func TestRunCommand_SucceedsOnAllDone(t *testing.T) {
	dir := t.TempDir()
	writeGraph(t, dir, `
tasks:
  a:
    description: succeed
    command: "true"
`)

	root := cli.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"run", "--dir", dir})
	err := root.Execute()
	require.NoError(t, err)
	require.Contains(t, out.String(), "1/1 done")
}

func TestRunCommand_ReportsFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	writeGraph(t, dir, `
tasks:
  a:
    description: fail
    command: "false"
`)

	root := cli.NewRootCmd()
	root.SetArgs([]string{"run", "--dir", dir})
	err := root.Execute()
	require.Error(t, err)
	require.Equal(t, cli.ExitGraphFailure, cli.ExitCode(err))
}

func TestRunCommand_MissingGraphFileIsInvalidInvocation(t *testing.T) {
	root := cli.NewRootCmd()
	root.SetArgs([]string{"run", "--dir", t.TempDir()})
	err := root.Execute()
	require.Error(t, err)
	require.Equal(t, cli.ExitInvalidInvocation, cli.ExitCode(err))
}

func TestRunCommand_InvalidModeRejected(t *testing.T) {
	dir := t.TempDir()
	writeGraph(t, dir, "tasks: {}\n")

	root := cli.NewRootCmd()
	root.SetArgs([]string{"run", "--dir", dir, "--mode", "bogus"})
	err := root.Execute()
	require.Error(t, err)
	require.Equal(t, cli.ExitInvalidInvocation, cli.ExitCode(err))
}

func TestPortsCommand_RunsAgainstEmptyRegistry(t *testing.T) {
	dir := t.TempDir()
	root := cli.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"ports", "--path", filepath.Join(dir, "ports.json")})
	err := root.Execute()
	require.NoError(t, err)
	require.Contains(t, out.String(), "PROJECT")
}
