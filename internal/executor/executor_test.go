package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gidterm/internal/executor"
)

// recordingSink collects TaskEvents for assertions and can block a test
// until an event matching a predicate arrives.
type recordingSink struct {
	ch chan executor.TaskEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan executor.TaskEvent, 256)}
}

func (s *recordingSink) Push(ev executor.TaskEvent) {
	s.ch <- ev
}

func (s *recordingSink) waitFor(t *testing.T, pred func(executor.TaskEvent) bool) executor.TaskEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-s.ch:
			if pred(ev) {
				return ev
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for matching event")
		}
	}
}

// S1-relevant: Started always precedes Output, which always precedes a
// terminal event, for a given task id.
func TestStartTask_EventOrdering(t *testing.T) {
	sink := newRecordingSink()
	exec := executor.New(sink, t.TempDir())

	require.NoError(t, exec.StartTask("t1", "echo hello"))

	started := sink.waitFor(t, func(ev executor.TaskEvent) bool { return ev.Kind == executor.Started })
	require.Equal(t, "t1", started.ID)

	output := sink.waitFor(t, func(ev executor.TaskEvent) bool { return ev.Kind == executor.Output })
	require.Equal(t, "hello", output.Line)

	completed := sink.waitFor(t, func(ev executor.TaskEvent) bool { return ev.IsTerminal() })
	require.Equal(t, executor.Completed, completed.Kind)
	require.Equal(t, 0, completed.ExitCode)
}

func TestStartTask_NonZeroExitReportsFailed(t *testing.T) {
	sink := newRecordingSink()
	exec := executor.New(sink, t.TempDir())

	require.NoError(t, exec.StartTask("t1", "exit 3"))

	failed := sink.waitFor(t, func(ev executor.TaskEvent) bool { return ev.IsTerminal() })
	require.Equal(t, executor.Failed, failed.Kind)
}

func TestSendInput_EchoedBack(t *testing.T) {
	sink := newRecordingSink()
	exec := executor.New(sink, t.TempDir())

	require.NoError(t, exec.StartTask("t1", "cat"))
	sink.waitFor(t, func(ev executor.TaskEvent) bool { return ev.Kind == executor.Started })

	require.Eventually(t, func() bool { return exec.IsLive("t1") }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, exec.SendInput("t1", "ping"))

	out := sink.waitFor(t, func(ev executor.TaskEvent) bool { return ev.Kind == executor.Output && ev.Line == "ping" })
	require.Equal(t, "ping", out.Line)

	require.NoError(t, exec.StopTask("t1"))
}

func TestStopTask_UnknownIDErrors(t *testing.T) {
	sink := newRecordingSink()
	exec := executor.New(sink, t.TempDir())
	require.Error(t, exec.StopTask("nope"))
}

func TestStopAll_KillsLiveHandles(t *testing.T) {
	sink := newRecordingSink()
	exec := executor.New(sink, t.TempDir())

	require.NoError(t, exec.StartTask("a", "cat"))
	require.NoError(t, exec.StartTask("b", "cat"))
	require.Eventually(t, func() bool { return exec.IsLive("a") && exec.IsLive("b") }, 2*time.Second, 10*time.Millisecond)

	exec.StopAll()

	sink.waitFor(t, func(ev executor.TaskEvent) bool { return ev.ID == "a" && ev.IsTerminal() })
	sink.waitFor(t, func(ev executor.TaskEvent) bool { return ev.ID == "b" && ev.IsTerminal() })
}
