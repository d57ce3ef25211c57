package advisor

import (
	"strings"

	"gidterm/internal/history"
	"gidterm/internal/parser"
)

func metricFloat(m parser.TaskMetrics, h *history.History, name string) (float64, bool) {
	if v, ok := m.Metrics[name]; ok {
		return v.AsFloat(), true
	}
	if h != nil {
		return h.LatestMetric(name)
	}
	return 0, false
}

func snapshotCount(h *history.History) int {
	if h == nil {
		return 0
	}
	return h.Len()
}

// LossNaNRule fires when any error line contains "NaN" or "nan".
type LossNaNRule struct{}

func (LossNaNRule) Evaluate(m parser.TaskMetrics, h *history.History) *Advisory {
	for _, e := range m.Errors {
		if strings.Contains(e, "NaN") || strings.Contains(e, "nan") {
			return &Advisory{
				Severity:   Critical,
				Message:    "Loss is NaN - training diverged",
				Suggestion: "Stop training and reduce the learning rate before restarting",
				AutoAction: "early_stop",
			}
		}
	}
	return nil
}

// LossPlateauRule fires when the loss metric has plateaued over the last
// 20 snapshots with at least 20 recorded.
type LossPlateauRule struct{}

func (LossPlateauRule) Evaluate(_ parser.TaskMetrics, h *history.History) *Advisory {
	if snapshotCount(h) < 20 {
		return nil
	}
	if !h.IsPlateaued("loss", 20, 0.005) {
		return nil
	}
	return &Advisory{
		Severity:   Warning,
		Message:    "Loss has plateaued",
		Suggestion: "Consider adjusting the learning rate",
		AutoAction: "adjust_lr",
	}
}

// HighLossRule fires when progress >= 0.3 and loss > 1.0.
type HighLossRule struct{}

func (HighLossRule) Evaluate(m parser.TaskMetrics, h *history.History) *Advisory {
	loss, ok := metricFloat(m, h, "loss")
	if !ok || m.Progress < 0.3 || loss <= 1.0 {
		return nil
	}
	return &Advisory{
		Severity:   Warning,
		Message:    "Loss remains high well into training",
		Suggestion: "Check the learning rate and model architecture",
	}
}

// AccuracySaturationRule fires when accuracy has saturated above 0.99 and
// plateaued, with at least 20 recorded snapshots.
type AccuracySaturationRule struct{}

func (AccuracySaturationRule) Evaluate(_ parser.TaskMetrics, h *history.History) *Advisory {
	if snapshotCount(h) < 20 {
		return nil
	}
	acc, ok := h.LatestMetric("accuracy")
	if !ok || acc <= 0.99 {
		return nil
	}
	if !h.IsPlateaued("accuracy", 10, 0.001) {
		return nil
	}
	return &Advisory{
		Severity:   Info,
		Message:    "Accuracy has saturated",
		Suggestion: "Consider stopping and saving the checkpoint",
		AutoAction: "save_checkpoint",
	}
}

// ErrorSpikeRule fires when more than 5 errors are present in one evaluation.
type ErrorSpikeRule struct{}

func (ErrorSpikeRule) Evaluate(m parser.TaskMetrics, _ *history.History) *Advisory {
	if len(m.Errors) <= 5 {
		return nil
	}
	return &Advisory{
		Severity:   Warning,
		Message:    "Error rate spiked",
		Suggestion: "Inspect recent output for the root cause",
	}
}

// ConvergingWellRule fires when loss is trending down, progress is past
// halfway, and loss is already low, with at least 10 recorded snapshots.
type ConvergingWellRule struct{}

func (ConvergingWellRule) Evaluate(m parser.TaskMetrics, h *history.History) *Advisory {
	if snapshotCount(h) < 10 {
		return nil
	}
	slope, ok := h.Trend("loss", 10)
	if !ok || slope >= -0.01 {
		return nil
	}
	loss, ok := metricFloat(m, h, "loss")
	if !ok || m.Progress <= 0.5 || loss >= 0.5 {
		return nil
	}
	return &Advisory{
		Severity:   Info,
		Message:    "Training is converging well",
		Suggestion: "A good point to save a checkpoint",
		AutoAction: "save_checkpoint",
	}
}

// BuildFailureRule fires when the build parser's integer "errors" metric is
// positive.
type BuildFailureRule struct{}

func (BuildFailureRule) Evaluate(m parser.TaskMetrics, _ *history.History) *Advisory {
	v, ok := m.Metrics["errors"]
	if !ok || v.AsInt() <= 0 {
		return nil
	}
	return &Advisory{
		Severity: Critical,
		Message:  "Build failed with errors",
	}
}
