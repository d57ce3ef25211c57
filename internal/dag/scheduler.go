package dag

import (
	"sync"

	"gidterm/internal/task"
)

// Scheduler wraps a Graph plus the set of task-ids currently executing.
//
// It is the sole mutator of task status; all reads and writes take a
// single short-lived mutex.
type Scheduler struct {
	mu      sync.Mutex
	graph   *Graph
	status  map[string]task.Status
	running map[string]struct{}
}

// NewScheduler takes ownership of g; outside code must not mutate g afterward.
func NewScheduler(g *Graph) *Scheduler {
	s := &Scheduler{
		graph:   g,
		status:  make(map[string]task.Status, g.Len()),
		running: make(map[string]struct{}),
	}
	for _, id := range g.IDs() {
		s.status[id] = g.Node(id).Status
	}
	return s
}

// Graph returns the underlying graph for read-only inspection.
func (s *Scheduler) Graph() *Graph {
	return s.graph
}

// Status returns the current status of id.
func (s *Scheduler) Status(id string) (task.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[id]
	return st, ok
}

// ReadyTasks returns ids that are Pending, have every dependency Done, and
// are not already running. Order is unspecified;
// callers must not rely on it.
func (s *Scheduler) ReadyTasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyLocked()
}

func (s *Scheduler) readyLocked() []string {
	var ready []string
	for _, id := range s.graph.IDs() {
		if s.status[id] != task.Pending {
			continue
		}
		if _, running := s.running[id]; running {
			continue
		}
		depsOK := true
		for _, dep := range s.graph.Dependencies(id) {
			if s.status[dep] != task.Done {
				depsOK = false
				break
			}
		}
		if depsOK {
			ready = append(ready, id)
		}
	}
	return ready
}

// MarkStarted transitions id to InProgress and adds it to the running set.
// Returns ErrUnknownTask if id is not in the graph.
func (s *Scheduler) MarkStarted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.status[id]; !ok {
		return task.ErrUnknownTask
	}
	s.status[id] = task.InProgress
	s.running[id] = struct{}{}
	return nil
}

// MarkDone transitions id to Done and removes it from the running set.
func (s *Scheduler) MarkDone(id string) error {
	return s.markTerminal(id, task.Done)
}

// MarkFailed transitions id to Failed and removes it from the running set.
//
// A Failed dependency permanently blocks dependents: readiness requires
// dep == Done, so failed-descendants remain Pending forever (// "Failure semantics"). No retry is built in.
func (s *Scheduler) MarkFailed(id string) error {
	return s.markTerminal(id, task.Failed)
}

func (s *Scheduler) markTerminal(id string, st task.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.status[id]; !ok {
		return task.ErrUnknownTask
	}
	s.status[id] = st
	delete(s.running, id)
	return nil
}

// AllDone reports whether the running set is empty and every task is Done
// or Failed. It is stable once true: no transition ever moves a terminal
// task back to InProgress/Pending.
func (s *Scheduler) AllDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.running) != 0 {
		return false
	}
	for _, st := range s.status {
		if st != task.Done && st != task.Failed {
			return false
		}
	}
	return true
}

// Running returns a snapshot of the currently running ids.
func (s *Scheduler) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.running))
	for id := range s.running {
		out = append(out, id)
	}
	return out
}
