package executor

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"gidterm/internal/logx"
	"gidterm/internal/pty"
)

// Sink is the single consumer of TaskEvents the Executor publishes to.
// gidterm/internal/bus.TaskBus satisfies this.
type Sink interface {
	Push(TaskEvent)
}

// Executor owns a guarded table of live PTY handles and is the sole
// producer of TaskEvents. It has no back-reference to anything that owns
// it; the event sink is the only back-channel.
type Executor struct {
	sink Sink
	dir  string

	mu      sync.Mutex
	handles map[string]*pty.Handle
}

func New(sink Sink, workingDir string) *Executor {
	return &Executor{sink: sink, dir: workingDir, handles: make(map[string]*pty.Handle)}
}

// StartTask spawns a PTY handle for command, registers it, emits Started
// synchronously (before the worker is launched, so consumers always see
// Started before any Output for this id), then launches the detached
// reader worker.
func (e *Executor) StartTask(id, command string) error {
	return e.startTask(id, command, nil)
}

// StartTaskWithEnv is StartTask with an explicit environment (for example
// to inject $PORT/$GIDTERM_PORT); nil env inherits the host environment.
func (e *Executor) StartTaskWithEnv(id, command string, env []string) error {
	return e.startTask(id, command, env)
}

func (e *Executor) startTask(id, command string, env []string) error {
	h, err := pty.Spawn(id, command, e.dir, env)
	if err != nil {
		e.sink.Push(NewFailed(id, fmt.Sprintf("spawn error: %v", err)))
		return err
	}

	e.mu.Lock()
	e.handles[id] = h
	e.mu.Unlock()

	e.sink.Push(NewStarted(id))

	go e.readLoop(id, h)
	return nil
}

// readLoop is the per-task reader worker: it is the sole
// emitter of Output/Completed/Failed for id after StartTask returns.
func (e *Executor) readLoop(id string, h *pty.Handle) {
	log := logx.For("executor")
	defer func() {
		e.mu.Lock()
		delete(e.handles, id)
		e.mu.Unlock()
	}()

	for {
		line, ok, err := h.ReadLine()
		if err != nil {
			e.sink.Push(NewFailed(id, err.Error()))
			return
		}
		if !ok {
			// EOF: interrogate the child rather than short-circuiting to 0.
			code, werr := h.Wait()
			if werr != nil {
				e.sink.Push(NewFailed(id, fmt.Sprintf("internal error: %v", werr)))
				return
			}
			if code == 0 {
				e.sink.Push(NewCompleted(id, 0))
			} else {
				e.sink.Push(NewFailed(id, fmt.Sprintf("process exited with code %d", code)))
			}
			return
		}
		if line == "" {
			continue
		}
		log.Trace().Str("task_id", id).Msg("output line")
		e.sink.Push(NewOutput(id, line))
	}
}

// StopTask kills the handle if present. The reader loop will observe EOF on
// its next read and report a terminal event normally; StopTask itself
// emits no event.
func (e *Executor) StopTask(id string) error {
	e.mu.Lock()
	h, ok := e.handles[id]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("task %s not live", id)
	}
	h.Kill()
	return nil
}

// SendInput delegates to the handle; fails if id is not live.
func (e *Executor) SendInput(id, text string) error {
	e.mu.Lock()
	h, ok := e.handles[id]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("task %s not live", id)
	}
	return h.WriteInput(text)
}

// Output returns the last n lines of output for a live task.
func (e *Executor) Output(id string, n int) ([]string, bool) {
	e.mu.Lock()
	h, ok := e.handles[id]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}
	return h.History(n), true
}

// IsLive reports whether id currently has a handle in the table.
func (e *Executor) IsLive(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.handles[id]
	return ok
}

// StopAll kills every live handle concurrently; used during shutdown.
func (e *Executor) StopAll() {
	e.mu.Lock()
	handles := make([]*pty.Handle, 0, len(e.handles))
	for _, h := range e.handles {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	var g errgroup.Group
	for _, h := range handles {
		h := h
		g.Go(func() error {
			h.Kill()
			return nil
		})
	}
	_ = g.Wait()
}
