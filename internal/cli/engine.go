package cli

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"gidterm/internal/advisor"
	"gidterm/internal/bus"
	"gidterm/internal/config"
	"gidterm/internal/control"
	"gidterm/internal/dag"
	"gidterm/internal/executor"
	"gidterm/internal/graphfile"
	"gidterm/internal/logx"
	"gidterm/internal/parser"
	"gidterm/internal/ports"
)

// engine bundles everything a run or control invocation needs, wired once
// at startup.
type engine struct {
	runID       string
	cfg         *config.Config
	ctrl        *control.Controller
	broadcaster *bus.GidEventBroadcaster
	portReg     *ports.Registry
}

// buildEngine loads config, the graph file, and every core component,
// returning a fully-wired engine ready for Controller.Run.
func buildEngine(dir string, mode control.Mode) (*engine, error) {
	cfg, _, err := config.Load(dir)
	if err != nil {
		return nil, configErrorf("load config: %v", err)
	}

	logx.Init(cfg.LogLevel, cfg.LogFormat, isatty.IsTerminal(os.Stderr.Fd()))
	runID := uuid.NewString()
	log := logx.For("cli").With().Str("run_id", runID).Logger()

	doc, path, err := graphfile.AutoLoad(dir)
	if err != nil {
		return nil, invalidInvocationf("%v", err)
	}
	log.Info().Str("graph_file", path).Msg("loaded graph")

	project := filepath.Base(dir)
	if doc.Metadata != nil && doc.Metadata.Project != "" {
		project = doc.Metadata.Project
	}
	graph, err := graphfile.ToGraph(project, doc)
	if err != nil {
		return nil, graphFailuref("build graph: %v", err)
	}

	sched := dag.NewScheduler(graph)
	taskBus := bus.NewTaskBus()
	broadcaster := bus.NewGidEventBroadcaster()
	exec := executor.New(taskBus, dir)
	registry := parser.NewRegistry()
	adv := advisor.New()

	ctrl := control.NewWithLimits(mode, sched, exec, taskBus, broadcaster, registry, adv, cfg.ParserWindow, cfg.HistoryCap)

	portPath := cfg.PortRegistryPath
	if portPath == "" {
		portPath, err = ports.DefaultPath()
		if err != nil {
			return nil, configErrorf("resolve port registry path: %v", err)
		}
	}
	portReg, err := ports.Load(portPath, cfg.PortRangeMin, cfg.PortRangeMax)
	if err != nil {
		return nil, configErrorf("load port registry: %v", err)
	}

	return &engine{runID: runID, cfg: cfg, ctrl: ctrl, broadcaster: broadcaster, portReg: portReg}, nil
}
