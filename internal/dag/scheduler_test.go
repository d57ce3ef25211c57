package dag_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"gidterm/internal/dag"
	"gidterm/internal/task"
)

func mustGraph(t *testing.T, tasks map[string]*task.Task) *dag.Graph {
	t.Helper()
	g, err := dag.NewGraph("", tasks)
	require.NoError(t, err)
	return g
}

func TestNewGraph_RejectsUnknownDependency(t *testing.T) {
	_, err := dag.NewGraph("", map[string]*task.Task{
		"a": {ID: "a", DependsOn: []string{"missing"}},
	})
	require.Error(t, err)
}

func TestNewGraph_RejectsCycle(t *testing.T) {
	_, err := dag.NewGraph("", map[string]*task.Task{
		"a": {ID: "a", DependsOn: []string{"b"}},
		"b": {ID: "b", DependsOn: []string{"a"}},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, task.ErrCycleFound)
}

// S1: linear chain a -> b -> c.
func TestScheduler_LinearChainReadiness(t *testing.T) {
	g := mustGraph(t, map[string]*task.Task{
		"a": {ID: "a", Command: "echo 1", Status: task.Pending},
		"b": {ID: "b", Command: "echo 2", Status: task.Pending, DependsOn: []string{"a"}},
		"c": {ID: "c", Command: "echo 3", Status: task.Pending, DependsOn: []string{"b"}},
	})
	s := dag.NewScheduler(g)

	require.Equal(t, []string{"a"}, s.ReadyTasks())

	require.NoError(t, s.MarkStarted("a"))
	require.Empty(t, s.ReadyTasks())
	require.NoError(t, s.MarkDone("a"))

	require.Equal(t, []string{"b"}, s.ReadyTasks())
	require.NoError(t, s.MarkStarted("b"))
	require.NoError(t, s.MarkDone("b"))

	require.Equal(t, []string{"c"}, s.ReadyTasks())
	require.NoError(t, s.MarkStarted("c"))
	require.False(t, s.AllDone())
	require.NoError(t, s.MarkDone("c"))
	require.True(t, s.AllDone())
}

// S2: fan-out / fan-in.
func TestScheduler_FanOutFanIn(t *testing.T) {
	g := mustGraph(t, map[string]*task.Task{
		"h":  {ID: "h", Status: task.Pending},
		"w":  {ID: "w", Status: task.Pending, DependsOn: []string{"h"}},
		"p1": {ID: "p1", Status: task.Pending, DependsOn: []string{"w"}},
		"p2": {ID: "p2", Status: task.Pending, DependsOn: []string{"w"}},
		"f":  {ID: "f", Status: task.Pending, DependsOn: []string{"p1", "p2"}},
	})
	s := dag.NewScheduler(g)

	require.NoError(t, s.MarkStarted("h"))
	require.NoError(t, s.MarkDone("h"))
	require.NoError(t, s.MarkStarted("w"))
	require.NoError(t, s.MarkDone("w"))

	ready := s.ReadyTasks()
	sort.Strings(ready)
	require.Equal(t, []string{"p1", "p2"}, ready)

	require.NoError(t, s.MarkStarted("p1"))
	require.NoError(t, s.MarkDone("p1"))
	require.NoError(t, s.MarkStarted("p2"))
	require.NoError(t, s.MarkDone("p2"))

	require.Equal(t, []string{"f"}, s.ReadyTasks())
}

// S3: failure propagation.
func TestScheduler_FailurePropagation(t *testing.T) {
	g := mustGraph(t, map[string]*task.Task{
		"a": {ID: "a", Status: task.Pending},
		"b": {ID: "b", Status: task.Pending, DependsOn: []string{"a"}},
		"c": {ID: "c", Status: task.Pending, DependsOn: []string{"b"}},
	})
	s := dag.NewScheduler(g)

	require.NoError(t, s.MarkStarted("a"))
	require.NoError(t, s.MarkDone("a"))
	require.NoError(t, s.MarkStarted("b"))
	require.NoError(t, s.MarkFailed("b"))

	require.Empty(t, s.ReadyTasks())
	require.False(t, s.AllDone())
}

func TestScheduler_MarkStartedUnknownTask(t *testing.T) {
	g := mustGraph(t, map[string]*task.Task{"a": {ID: "a"}})
	s := dag.NewScheduler(g)
	require.ErrorIs(t, s.MarkStarted("missing"), task.ErrUnknownTask)
}

// A task becomes ready only once all its dependencies are Done.
func TestScheduler_ReadinessCorrectness(t *testing.T) {
	g := mustGraph(t, map[string]*task.Task{
		"a": {ID: "a", Status: task.Pending},
		"b": {ID: "b", Status: task.Pending, DependsOn: []string{"a"}},
	})
	s := dag.NewScheduler(g)
	require.Contains(t, s.ReadyTasks(), "a")
	require.NotContains(t, s.ReadyTasks(), "b")
}
