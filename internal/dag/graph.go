// Package dag implements the Graph and Scheduler components: the in-memory
// dependency graph of tasks and the stateful scheduler that tracks which
// ids are ready to run.
package dag

import (
	"sort"

	"gidterm/internal/task"
)

// Graph is a mapping task-id -> *task.Task plus optional project metadata.
//
// Graph is exclusively owned by its Scheduler after construction; outside
// code reads through the Scheduler, never mutates a Graph directly.
type Graph struct {
	Project string

	nodes    map[string]*task.Task
	outgoing map[string][]string // id -> ids that depend on it
	incoming map[string][]string // id -> ids it depends on
}

// NewGraph validates and constructs a Graph from a flat task set.
//
// Invariants enforced here: every dependency id exists in the
// graph, and the dependency relation is acyclic.
func NewGraph(project string, tasks map[string]*task.Task) (*Graph, error) {
	g := &Graph{
		Project:  project,
		nodes:    make(map[string]*task.Task, len(tasks)),
		outgoing: make(map[string][]string, len(tasks)),
		incoming: make(map[string][]string, len(tasks)),
	}
	for id, t := range tasks {
		g.nodes[id] = t
	}
	for id, t := range g.nodes {
		for _, dep := range t.DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, task.UnknownDependencyError(id, dep)
			}
			g.incoming[id] = append(g.incoming[id], dep)
			g.outgoing[dep] = append(g.outgoing[dep], id)
		}
	}
	if cycle := findCycle(g); cycle != nil {
		return nil, task.CycleError(cycle)
	}
	return g, nil
}

// Node returns the task for id, or nil if absent.
func (g *Graph) Node(id string) *task.Task {
	return g.nodes[id]
}

// IDs returns every task id in deterministic (sorted) order.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dependencies returns the ids t depends on.
func (g *Graph) Dependencies(id string) []string {
	return g.incoming[id]
}

// Dependents returns the ids that depend on t.
func (g *Graph) Dependents(id string) []string {
	return g.outgoing[id]
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// findCycle performs a depth-first search over the dependency (incoming)
// edges and
// returns the offending cycle (as a slice of ids) or nil if the graph is
// acyclic.
func findCycle(g *Graph) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, dep := range g.incoming[id] {
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				// Found the back edge; extract the cycle from the stack.
				for i := len(stack) - 1; i >= 0; i-- {
					cycle = append(cycle, stack[i])
					if stack[i] == dep {
						break
					}
				}
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.IDs() {
		if color[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}
