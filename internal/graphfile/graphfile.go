// Package graphfile loads the declarative YAML graph document and turns
// it into an internal/dag.Graph, including multi-project workspace
// discovery and namespacing.
package graphfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"gidterm/internal/dag"
	"gidterm/internal/task"
)

// Metadata is the optional document header.
type Metadata struct {
	Project     string `yaml:"project"`
	Version     string `yaml:"version,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// TaskSpec is one entry of the document's `tasks` map.
// Fields not used by the core engine are preserved in Extra so a
// round-trip keeps them unchanged.
type TaskSpec struct {
	Description      string            `yaml:"description"`
	Command          string            `yaml:"command,omitempty"`
	Status           string            `yaml:"status,omitempty"`
	Priority         string            `yaml:"priority,omitempty"`
	DependsOn        []string          `yaml:"depends_on,omitempty"`
	TaskType         string            `yaml:"task_type,omitempty"`
	SemanticCommands map[string]string `yaml:"semantic_commands,omitempty"`
	Extra            map[string]any    `yaml:",inline"`
}

// Document is the top-level shape of a graph.yml / gidterm.yml file.
type Document struct {
	Metadata *Metadata           `yaml:"metadata,omitempty"`
	Tasks    map[string]TaskSpec `yaml:"tasks"`
}

// Parse decodes raw YAML bytes into a Document.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse graph document: %w", err)
	}
	if doc.Tasks == nil {
		doc.Tasks = map[string]TaskSpec{}
	}
	return &doc, nil
}

// FromFile reads and parses path.
func FromFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// candidatePaths returns auto-detect locations in priority order:
// ".gid/graph.yml" first, then "gidterm.yml".
func candidatePaths(dir string) []string {
	return []string{
		filepath.Join(dir, ".gid", "graph.yml"),
		filepath.Join(dir, "gidterm.yml"),
	}
}

// AutoLoad finds and loads the graph file in dir, trying .gid/graph.yml
// then gidterm.yml.
func AutoLoad(dir string) (*Document, string, error) {
	for _, p := range candidatePaths(dir) {
		if _, err := os.Stat(p); err == nil {
			doc, err := FromFile(p)
			return doc, p, err
		}
	}
	return nil, "", fmt.Errorf("no graph file found in %s: expected .gid/graph.yml or gidterm.yml", dir)
}

// HasGraphFile reports whether dir contains a file AutoLoad would pick up;
// used by workspace discovery to decide whether a subdirectory is a project.
func HasGraphFile(dir string) bool {
	for _, p := range candidatePaths(dir) {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// ToGraph converts a Document into an internal/dag.Graph under the given
// project name (used for the un-namespaced, single-project case).
func ToGraph(project string, doc *Document) (*dag.Graph, error) {
	tasks := make(map[string]*task.Task, len(doc.Tasks))
	for id, spec := range doc.Tasks {
		tasks[id] = toTask(id, spec)
	}
	return dag.NewGraph(project, tasks)
}

func toTask(id string, spec TaskSpec) *task.Task {
	var semantic map[string]string
	if len(spec.SemanticCommands) > 0 {
		semantic = make(map[string]string, len(spec.SemanticCommands))
		for k, v := range spec.SemanticCommands {
			semantic[k] = v
		}
	}
	return &task.Task{
		ID:               id,
		Description:      spec.Description,
		Command:          spec.Command,
		Status:           task.ParseStatus(spec.Status),
		DependsOn:        append([]string(nil), spec.DependsOn...),
		TaskType:         spec.TaskType,
		SemanticCommands: semantic,
		Priority:         spec.Priority,
	}
}

// Project is one discovered workspace member.
type Project struct {
	Name string
	Path string
	Doc  *Document
}

// DiscoverWorkspace walks root's immediate subdirectories looking for a
// graph file in each. A load failure in one project is skipped rather
// than failing the whole discovery.
func DiscoverWorkspace(root string) ([]Project, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var projects []Project
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(root, e.Name())
		if !HasGraphFile(path) {
			continue
		}
		doc, _, err := AutoLoad(path)
		if err != nil {
			continue
		}
		projects = append(projects, Project{Name: e.Name(), Path: path, Doc: doc})
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("no projects with a graph file found in %s", root)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// UnifyWorkspace merges a discovered project set into one namespaced Graph,
// where every task id becomes "project:id" and every depends_on entry is
// rewritten the same way.
func UnifyWorkspace(projects []Project) (*dag.Graph, error) {
	tasks := make(map[string]*task.Task)
	for _, proj := range projects {
		for id, spec := range proj.Doc.Tasks {
			namespacedID := proj.Name + ":" + id
			namespacedDeps := make([]string, len(spec.DependsOn))
			for i, dep := range spec.DependsOn {
				namespacedDeps[i] = proj.Name + ":" + dep
			}
			ns := spec
			ns.DependsOn = namespacedDeps
			tasks[namespacedID] = toTask(namespacedID, ns)
		}
	}
	return dag.NewGraph("workspace", tasks)
}
