package ports

import (
	"fmt"
	"net"
	"os"
	"sort"
	"sync"
	"syscall"
	"time"
)

// Registry is the in-memory, file-backed project <-> port table.
//
// The on-disk JSON is not safe against multiple writer processes; this is
// treated as single-writer per user. Writes are synchronous: every
// mutation is followed by an immediate atomic save.
type Registry struct {
	mu          sync.Mutex
	path        string
	rangeMin    int
	rangeMax    int
	allocations map[string]PortEntry // project -> entry
	index       map[int]string       // port -> project, rebuilt on load
}

// Load reads path if present, else starts with an empty table. rangeMin
// and rangeMax bound the scan-for-free-port range used by GetOrAllocate;
// callers with no configured range should pass PortRangeMin/PortRangeMax.
func Load(path string, rangeMin, rangeMax int) (*Registry, error) {
	r := &Registry{
		path:        path,
		rangeMin:    rangeMin,
		rangeMax:    rangeMax,
		allocations: make(map[string]PortEntry),
		index:       make(map[int]string),
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, err
	}
	var doc file
	if err := readJSONStrict(path, &doc); err != nil {
		return nil, fmt.Errorf("load port registry: %w", err)
	}
	if doc.Allocations == nil {
		doc.Allocations = map[string]PortEntry{}
	}
	r.allocations = doc.Allocations
	r.rebuildIndexLocked()
	return r, nil
}

func (r *Registry) rebuildIndexLocked() {
	r.index = make(map[int]string, len(r.allocations))
	for project, e := range r.allocations {
		r.index[e.Port] = project
	}
}

func (r *Registry) saveLocked() error {
	doc := file{Allocations: r.allocations}
	b, err := jsonMarshalStable(doc)
	if err != nil {
		return err
	}
	return writeFileAtomicDurable(r.path, b)
}

// GetOrAllocate implements the allocation algorithm:
//  1. If project already has an entry whose port is bindable or active, return it.
//  2. Else try preferred if given, bindable, and not in the inverted index.
//  3. Else scan the configured range for the first port absent from the index and bindable.
//  4. Fail if the range is exhausted.
func (r *Registry) GetOrAllocate(project string, preferred *int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.allocations[project]; ok {
		if e.Active || isBindable(e.Port) {
			return e.Port, nil
		}
	}

	if preferred != nil {
		p := *preferred
		if _, taken := r.index[p]; !taken && isBindable(p) {
			return r.allocateLocked(project, p)
		}
	}

	for p := r.rangeMin; p <= r.rangeMax; p++ {
		if _, taken := r.index[p]; taken {
			continue
		}
		if isBindable(p) {
			return r.allocateLocked(project, p)
		}
	}

	return 0, fmt.Errorf("no free port in [%d, %d]", r.rangeMin, r.rangeMax)
}

func (r *Registry) allocateLocked(project string, port int) (int, error) {
	e := PortEntry{
		Port:        port,
		Project:     project,
		AllocatedAt: time.Now().Unix(),
	}
	r.allocations[project] = e
	r.index[port] = project
	if err := r.saveLocked(); err != nil {
		return 0, err
	}
	return port, nil
}

// MarkActive sets the active flag and last-active timestamp.
func (r *Registry) MarkActive(project string, pid *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.allocations[project]
	if !ok {
		return fmt.Errorf("no port allocated for project %q", project)
	}
	now := time.Now().Unix()
	e.Active = true
	e.PID = pid
	e.LastActive = &now
	r.allocations[project] = e
	return r.saveLocked()
}

// MarkInactive clears the active flag and pid.
func (r *Registry) MarkInactive(project string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.allocations[project]
	if !ok {
		return fmt.Errorf("no port allocated for project %q", project)
	}
	e.Active = false
	e.PID = nil
	r.allocations[project] = e
	return r.saveLocked()
}

// Release removes the project's entry entirely.
func (r *Registry) Release(project string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.allocations[project]
	if !ok {
		return nil
	}
	delete(r.allocations, project)
	delete(r.index, e.Port)
	return r.saveLocked()
}

// Status returns the status of project's allocation in the registry's
// state machine.
func (r *Registry) Status(project string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.allocations[project]
	if !ok {
		return Available
	}
	if e.Active {
		return Active
	}
	if isBindable(e.Port) {
		return Reserved
	}
	return ExternallyUsed
}

// ListAllocations returns every entry, sorted by port.
func (r *Registry) ListAllocations() []PortEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PortEntry, 0, len(r.allocations))
	for _, e := range r.allocations {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// CleanupStale removes entries that are not active but whose port is also
// not currently bindable (an externally-owned port whose owner isn't us).
// Returns the removed project names.
func (r *Registry) CleanupStale() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for project, e := range r.allocations {
		if e.Active {
			continue
		}
		if !isBindable(e.Port) {
			removed = append(removed, project)
			delete(r.allocations, project)
			delete(r.index, e.Port)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	sort.Strings(removed)
	return removed, r.saveLocked()
}

// RefreshStatus nulls out active/pid for entries whose stored pid is no
// longer a live process.
func (r *Registry) RefreshStatus() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := false
	for project, e := range r.allocations {
		if e.Active && e.PID != nil && !isProcessAlive(*e.PID) {
			e.Active = false
			e.PID = nil
			r.allocations[project] = e
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return r.saveLocked()
}

// isBindable tests bindability by attempting a TCP bind on 127.0.0.1:port.
func isBindable(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// isProcessAlive tests liveness via kill(pid, 0) on POSIX; this repo targets
// POSIX build environments only.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil
}
