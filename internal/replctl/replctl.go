// Package replctl implements an interactive line-editor front end for the
// control API: a thin translator from typed lines to commands dispatched
// against the engine, with no logic of its own.
package replctl

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"gidterm/internal/control"
)

// Dispatcher is the subset of *control.Controller the REPL drives.
type Dispatcher interface {
	Dispatch(control.Command) control.Response
}

// Run starts the interactive loop against stdin/stdout until the user
// types "quit"/"exit" or sends EOF (Ctrl-D). historyPath, if non-empty,
// persists line history across sessions the way readline.Config normally
// expects.
func Run(d Dispatcher, historyPath string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gidterm> ",
		HistoryFile:     historyPath,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), "gidterm interactive control (start/stop/send/state/output/metrics/quit)")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			return nil
		}

		cmd, perr := parseLine(input)
		if perr != nil {
			fmt.Fprintln(rl.Stdout(), "error:", perr)
			continue
		}
		resp := d.Dispatch(cmd)
		printResponse(rl.Stdout(), resp)
	}
}

// parseLine translates one typed line into a control.Command:
//
//	start-all
//	start <id>
//	stop <id>
//	send <id> <text...>
//	state
//	output <id> [n]
//	metrics <id>
func parseLine(input string) (control.Command, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return control.Command{}, fmt.Errorf("empty command")
	}
	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "start-all":
		return control.Command{Action: control.ActionStartAll}, nil
	case "start":
		if len(args) != 1 {
			return control.Command{}, fmt.Errorf("usage: start <id>")
		}
		return control.Command{Action: control.ActionStartTask, TaskID: args[0]}, nil
	case "stop":
		if len(args) != 1 {
			return control.Command{}, fmt.Errorf("usage: stop <id>")
		}
		return control.Command{Action: control.ActionStopTask, TaskID: args[0]}, nil
	case "send":
		if len(args) < 2 {
			return control.Command{}, fmt.Errorf("usage: send <id> <text...>")
		}
		return control.Command{Action: control.ActionSendInput, TaskID: args[0], Input: strings.Join(args[1:], " ")}, nil
	case "state":
		return control.Command{Action: control.ActionGetState}, nil
	case "output":
		if len(args) < 1 {
			return control.Command{}, fmt.Errorf("usage: output <id> [n]")
		}
		lines := 0
		if len(args) >= 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return control.Command{}, fmt.Errorf("invalid line count %q", args[1])
			}
			lines = n
		}
		return control.Command{Action: control.ActionGetOutput, TaskID: args[0], Lines: lines}, nil
	case "metrics":
		if len(args) != 1 {
			return control.Command{}, fmt.Errorf("usage: metrics <id>")
		}
		return control.Command{Action: control.ActionGetMetrics, TaskID: args[0]}, nil
	default:
		return control.Command{}, fmt.Errorf("unknown command %q", verb)
	}
}

func printResponse(w io.Writer, resp control.Response) {
	if resp.Status == control.StatusError {
		fmt.Fprintln(w, "error:", resp.Message)
		return
	}
	if resp.Data == nil {
		fmt.Fprintln(w, "ok")
		return
	}
	b, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		fmt.Fprintln(w, "ok (unprintable data)")
		return
	}
	fmt.Fprintln(w, string(b))
}
