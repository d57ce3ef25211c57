package control

import (
	"context"
	"fmt"
	"sync"

	"gidterm/internal/advisor"
	"gidterm/internal/bus"
	"gidterm/internal/dag"
	"gidterm/internal/executor"
	"gidterm/internal/history"
	"gidterm/internal/logx"
	"gidterm/internal/parser"
	"gidterm/internal/task"
)

// outputCap bounds the retained output buffer per task, independent of the
// parser's much smaller rolling window (internal/parser.Window).
const outputCap = 1000

// Controller is the outer driver described in control flow: it
// consumes the Scheduler, Executor, TaskBus, parser Registry, Advisor, and
// per-task History, and exposes the Control API that wraps
// them for non-TUI clients.
//
// Controller is itself the component with mark_started-before-dispatch and
// schedule-after-each-event responsibilities that assigns to
// "the driver"; nothing else in this repo owns that loop.
type Controller struct {
	mode        Mode
	sched       *dag.Scheduler
	exec        *executor.Executor
	taskBus     *bus.TaskBus
	broadcaster *bus.GidEventBroadcaster
	registry    *parser.Registry
	adv         *advisor.Advisor

	parserWindow int
	historyCap   int

	mu        sync.Mutex
	windows   map[string]*parser.Window
	histories map[string]*history.History
	metrics   map[string]parser.TaskMetrics
	outputs   map[string][]string
	errs      map[string]string
}

// New builds a Controller with default parser-window size and history cap.
func New(mode Mode, sched *dag.Scheduler, exec *executor.Executor, taskBus *bus.TaskBus, broadcaster *bus.GidEventBroadcaster, registry *parser.Registry, adv *advisor.Advisor) *Controller {
	return NewWithLimits(mode, sched, exec, taskBus, broadcaster, registry, adv, 0, 0)
}

// NewWithLimits builds a Controller with a configured parser-window size
// and history cap; 0 for either falls back to its package default.
func NewWithLimits(mode Mode, sched *dag.Scheduler, exec *executor.Executor, taskBus *bus.TaskBus, broadcaster *bus.GidEventBroadcaster, registry *parser.Registry, adv *advisor.Advisor, parserWindow, historyCap int) *Controller {
	return &Controller{
		mode:         mode,
		sched:        sched,
		exec:         exec,
		taskBus:      taskBus,
		broadcaster:  broadcaster,
		registry:     registry,
		adv:          adv,
		parserWindow: parserWindow,
		historyCap:   historyCap,
		windows:      make(map[string]*parser.Window),
		histories:    make(map[string]*history.History),
		metrics:      make(map[string]parser.TaskMetrics),
		outputs:      make(map[string][]string),
		errs:         make(map[string]string),
	}
}

// Mode reports how this controller is being driven.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Run pumps ready tasks and drains the TaskBus until every task is
// terminal or ctx is cancelled. The Controller is the only caller of
// Scheduler.MarkStarted/MarkDone/MarkFailed: Run and dispatchReady, plus
// the StartTask and StartAll control operations.
func (c *Controller) Run(ctx context.Context) error {
	log := logx.For("control")
	c.dispatchReady()
	if c.sched.AllDone() {
		c.broadcastAllDone()
		return nil
	}
	for {
		ev, ok := c.taskBus.Next(ctx)
		if !ok {
			return ctx.Err()
		}
		c.handleEvent(ev)
		c.dispatchReady()
		if c.sched.AllDone() {
			log.Info().Msg("all tasks terminal")
			c.broadcastAllDone()
			return nil
		}
	}
}

// dispatchReady starts every currently-ready task: marker tasks complete
// synchronously (a task with no command auto-completes as soon as it is
// ready, with no external resolution step), command tasks are handed to
// the Executor.
func (c *Controller) dispatchReady() {
	for _, id := range c.sched.ReadyTasks() {
		node := c.sched.Graph().Node(id)
		if node == nil {
			continue
		}
		if node.IsMarker() {
			_ = c.sched.MarkStarted(id)
			_ = c.sched.MarkDone(id)
			c.broadcaster.Publish(bus.NewTaskStarted(id))
			c.broadcaster.Publish(bus.NewTaskCompleted(id, 0))
			continue
		}
		if err := c.sched.MarkStarted(id); err != nil {
			continue
		}
		if err := c.exec.StartTask(id, node.Command); err != nil {
			_ = c.sched.MarkFailed(id)
			c.mu.Lock()
			c.errs[id] = err.Error()
			c.mu.Unlock()
			c.broadcaster.Publish(bus.NewTaskFailed(id, err.Error()))
		}
	}
}

func (c *Controller) handleEvent(ev executor.TaskEvent) {
	switch ev.Kind {
	case executor.Started:
		c.broadcaster.Publish(bus.NewTaskStarted(ev.ID))
	case executor.Output:
		c.broadcaster.Publish(bus.NewTaskOutput(ev.ID, ev.Line))
		c.handleOutput(ev.ID, ev.Line)
	case executor.Completed:
		_ = c.sched.MarkDone(ev.ID)
		c.broadcaster.Publish(bus.NewTaskCompleted(ev.ID, ev.ExitCode))
	case executor.Failed:
		_ = c.sched.MarkFailed(ev.ID)
		c.mu.Lock()
		c.errs[ev.ID] = ev.Error
		c.mu.Unlock()
		c.broadcaster.Publish(bus.NewTaskFailed(ev.ID, ev.Error))
	}
}

func (c *Controller) handleOutput(id, line string) {
	c.mu.Lock()
	out := append(c.outputs[id], line)
	if len(out) > outputCap {
		out = out[len(out)-outputCap:]
	}
	c.outputs[id] = out

	win, ok := c.windows[id]
	if !ok {
		win = parser.NewWindowWithSize(c.parserWindow)
		c.windows[id] = win
	}
	win.Add(line)

	hist, ok := c.histories[id]
	if !ok {
		hist = history.NewWithCap(c.historyCap)
		c.histories[id] = hist
	}

	var taskType *string
	if node := c.sched.Graph().Node(id); node != nil && node.TaskType != "" {
		tt := node.TaskType
		taskType = &tt
	}
	result := c.registry.Parse(taskType, win.Text())
	if result.HasSignal() {
		c.metrics[id] = result
	}
	stored := c.metrics[id]
	c.mu.Unlock()

	hist.Record(stored.Progress, stored.FloatMetrics())

	metricsOut := make(map[string]any, len(stored.Metrics))
	for k, v := range stored.Metrics {
		metricsOut[k] = v.AsString()
	}
	c.broadcaster.Publish(bus.NewMetricsUpdated(id, stored.Progress, metricsOut))

	for _, adv := range c.adv.Evaluate(stored, hist) {
		c.broadcaster.Publish(bus.NewAdvisoryTriggered(id, string(adv.Severity), adv.Message, adv.Suggestion))
	}
}

func (c *Controller) broadcastAllDone() {
	total, done, failed := 0, 0, 0
	for _, id := range c.sched.Graph().IDs() {
		total++
		st, _ := c.sched.Status(id)
		switch st {
		case task.Done:
			done++
		case task.Failed:
			failed++
		}
	}
	c.broadcaster.Publish(bus.NewAllDone(total, done, failed))
}

// GetState implements the Control API's get_state operation.
func (c *Controller) GetState() StateSnapshot {
	g := c.sched.Graph()
	ids := g.IDs()
	snap := StateSnapshot{Tasks: make([]TaskSnapshot, 0, len(ids)), TotalCount: len(ids)}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		node := g.Node(id)
		st, _ := c.sched.Status(id)
		switch st {
		case task.InProgress:
			snap.RunningCount++
		case task.Done:
			snap.DoneCount++
		case task.Failed:
			snap.FailedCount++
		}

		m := c.metrics[id]
		metricsOut := make(map[string]any, len(m.Metrics))
		for k, v := range m.Metrics {
			metricsOut[k] = v.AsString()
		}

		var lastOutput []string
		if buf := c.outputs[id]; len(buf) > 0 {
			n := 10
			if len(buf) < n {
				n = len(buf)
			}
			lastOutput = append(lastOutput, buf[len(buf)-n:]...)
		}

		snap.Tasks = append(snap.Tasks, TaskSnapshot{
			ID:          id,
			Status:      string(st),
			Description: node.Description,
			Progress:    m.Progress,
			Metrics:     metricsOut,
			LastOutput:  lastOutput,
		})
	}
	return snap
}

// StartTask implements the start_task operation: it dispatches a single
// Pending task regardless of whether it is currently "ready" by dependency
// order, matching the Control API's manual-override use case.
func (c *Controller) StartTask(id string) error {
	node := c.sched.Graph().Node(id)
	if node == nil {
		return task.ErrUnknownTask
	}
	st, ok := c.sched.Status(id)
	if !ok {
		return task.ErrUnknownTask
	}
	if st != task.Pending {
		return fmt.Errorf("task %s is not pending (status=%s)", id, st)
	}
	if err := c.sched.MarkStarted(id); err != nil {
		return err
	}
	if node.IsMarker() {
		_ = c.sched.MarkDone(id)
		c.broadcaster.Publish(bus.NewTaskStarted(id))
		c.broadcaster.Publish(bus.NewTaskCompleted(id, 0))
		return nil
	}
	if err := c.exec.StartTask(id, node.Command); err != nil {
		_ = c.sched.MarkFailed(id)
		return err
	}
	return nil
}

// StopTask implements stop_task.
func (c *Controller) StopTask(id string) error {
	return c.exec.StopTask(id)
}

// GetOutput implements get_output: the last n retained lines for id.
func (c *Controller) GetOutput(id string, n int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.outputs[id]
	if !ok {
		if c.sched.Graph().Node(id) == nil {
			return nil, task.ErrUnknownTask
		}
		return nil, nil
	}
	if n <= 0 || n >= len(buf) {
		return append([]string(nil), buf...), nil
	}
	return append([]string(nil), buf[len(buf)-n:]...), nil
}

// GetMetrics implements get_metrics.
func (c *Controller) GetMetrics(id string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.metrics[id]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(m.Metrics))
	for k, v := range m.Metrics {
		out[k] = v.AsString()
	}
	return out, true
}

// SendInput implements send_input.
func (c *Controller) SendInput(id, text string) error {
	return c.exec.SendInput(id, text)
}

// ExecuteSemanticCommand renders and sends the named semantic command
// template against the task's live PTY.
func (c *Controller) ExecuteSemanticCommand(id, label string, params map[string]string) (string, error) {
	node := c.sched.Graph().Node(id)
	if node == nil {
		return "", task.ErrUnknownTask
	}
	template, ok := node.SemanticCommands[label]
	if !ok {
		return "", fmt.Errorf("task %s has no semantic command %q", id, label)
	}
	rendered := Render(template, params)
	if err := c.exec.SendInput(id, rendered); err != nil {
		return "", err
	}
	return rendered, nil
}

// Dispatch executes a single Command against the Control API and returns
// its Response.
func (c *Controller) Dispatch(cmd Command) Response {
	switch cmd.Action {
	case ActionStartAll:
		c.dispatchReady()
		return OKEmpty()
	case ActionStartTask:
		if err := c.StartTask(cmd.TaskID); err != nil {
			return Err(err.Error())
		}
		return OKEmpty()
	case ActionStopTask:
		if err := c.StopTask(cmd.TaskID); err != nil {
			return Err(err.Error())
		}
		return OKEmpty()
	case ActionSendInput:
		if err := c.SendInput(cmd.TaskID, cmd.Input); err != nil {
			return Err(err.Error())
		}
		return OKEmpty()
	case ActionGetState:
		return OK(c.GetState())
	case ActionGetOutput:
		lines, err := c.GetOutput(cmd.TaskID, cmd.Lines)
		if err != nil {
			return Err(err.Error())
		}
		return OK(lines)
	case ActionGetMetrics:
		m, ok := c.GetMetrics(cmd.TaskID)
		if !ok {
			return Err(fmt.Sprintf("no metrics for task %s", cmd.TaskID))
		}
		return OK(m)
	case ActionQuit:
		return OKEmpty()
	default:
		return Err(fmt.Sprintf("unknown action %q", cmd.Action))
	}
}
