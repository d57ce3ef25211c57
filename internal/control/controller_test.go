package control_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gidterm/internal/advisor"
	"gidterm/internal/bus"
	"gidterm/internal/control"
	"gidterm/internal/dag"
	"gidterm/internal/executor"
	"gidterm/internal/parser"
	"gidterm/internal/task"
)

func newTestController(t *testing.T, tasks map[string]*task.Task) (*control.Controller, *bus.GidEventBroadcaster, *executor.Executor) {
	t.Helper()
	g, err := dag.NewGraph("proj", tasks)
	require.NoError(t, err)
	sched := dag.NewScheduler(g)
	taskBus := bus.NewTaskBus()
	exec := executor.New(taskBus, t.TempDir())
	broadcaster := bus.NewGidEventBroadcaster()
	ctrl := control.New(control.ModeManual, sched, exec, taskBus, broadcaster, parser.NewRegistry(), advisor.New())
	return ctrl, broadcaster, exec
}

// S4: semantic command injection. Task t runs `cat` (echoes stdin).
// execute_semantic_command("t","hello",{msg:"hi"}) with template
// `print("{msg}")` must write `print("hi")` to the PTY and an Output event
// containing it must appear on the broadcast surface.
func TestExecuteSemanticCommand_S4(t *testing.T) {
	tasks := map[string]*task.Task{
		"t": {
			ID:               "t",
			Command:          "cat",
			Status:           task.Pending,
			SemanticCommands: map[string]string{"hello": `print("{msg}")`},
		},
	}
	ctrl, broadcaster, exec := newTestController(t, tasks)

	sub, unsub := broadcaster.Subscribe()
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	require.Eventually(t, func() bool {
		return exec.IsLive("t")
	}, 2*time.Second, 10*time.Millisecond)

	rendered, err := ctrl.ExecuteSemanticCommand("t", "hello", map[string]string{"msg": "hi"})
	require.NoError(t, err)
	require.Equal(t, `print("hi")`, rendered)

	found := false
	deadline := time.After(2 * time.Second)
	for !found {
		select {
		case ev := <-sub:
			if ev.Type == bus.GidTaskOutput && ev.Line == `print("hi")` {
				found = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for echoed semantic command output")
		}
	}

	require.NoError(t, exec.StopTask("t"))
}

func TestExecuteSemanticCommand_UnknownLabel(t *testing.T) {
	tasks := map[string]*task.Task{
		"t": {ID: "t", Command: "cat", Status: task.Pending, SemanticCommands: map[string]string{}},
	}
	ctrl, _, exec := newTestController(t, tasks)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	require.Eventually(t, func() bool { return exec.IsLive("t") }, 2*time.Second, 10*time.Millisecond)

	_, err := ctrl.ExecuteSemanticCommand("t", "nope", nil)
	require.Error(t, err)
	require.NoError(t, exec.StopTask("t"))
}

// An unresolved placeholder survives verbatim in the rendered output rather
// than being rejected.
func TestExecuteSemanticCommand_UnresolvedPlaceholderSurvivesVerbatim(t *testing.T) {
	tasks := map[string]*task.Task{
		"t": {ID: "t", Command: "cat", Status: task.Pending, SemanticCommands: map[string]string{"hello": "print({msg})"}},
	}
	ctrl, _, exec := newTestController(t, tasks)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	require.Eventually(t, func() bool { return exec.IsLive("t") }, 2*time.Second, 10*time.Millisecond)

	rendered, err := ctrl.ExecuteSemanticCommand("t", "hello", nil)
	require.NoError(t, err)
	require.Equal(t, "print({msg})", rendered)
	require.NoError(t, exec.StopTask("t"))
}

// A marker task (no command) auto-completes as soon as it is ready.
func TestMarkerTaskAutoCompletes(t *testing.T) {
	tasks := map[string]*task.Task{
		"m": {ID: "m", Command: "", Status: task.Pending},
	}
	ctrl, _, _ := newTestController(t, tasks)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ctrl.Run(ctx))

	state := ctrl.GetState()
	require.Equal(t, 1, state.DoneCount)
	require.Equal(t, "done", state.Tasks[0].Status)
}

func TestGetState_CountsAndOrder(t *testing.T) {
	tasks := map[string]*task.Task{
		"a": {ID: "a", Command: "true", Status: task.Pending},
		"b": {ID: "b", Command: "false", Status: task.Pending, DependsOn: []string{"a"}},
	}
	ctrl, _, _ := newTestController(t, tasks)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ctrl.Run(ctx))

	state := ctrl.GetState()
	require.Equal(t, 2, state.TotalCount)
	require.Equal(t, 1, state.DoneCount)
	require.Equal(t, 1, state.FailedCount)
	require.Equal(t, "a", state.Tasks[0].ID)
	require.Equal(t, "b", state.Tasks[1].ID)
}
