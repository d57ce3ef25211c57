// Package advisor implements the Advisor component: a stateless, ordered
// list of rules mapping (metrics, history) -> zero or more Advisory values,
// evaluated in registration order.
package advisor

import (
	"gidterm/internal/history"
	"gidterm/internal/parser"
)

// Severity is an Advisory's urgency.
type Severity string

const (
	Info     Severity = "INFO"
	Warning  Severity = "WARN"
	Critical Severity = "CRIT"
)

// Advisory is a structured recommendation produced from metrics and their
// history.
type Advisory struct {
	Severity   Severity
	Message    string
	Suggestion string
	AutoAction string // empty if none
}

// Rule maps a single (metrics, history) observation to an optional Advisory.
// Rules are independent: do not share mutable state across rules.
type Rule interface {
	Evaluate(m parser.TaskMetrics, h *history.History) *Advisory
}

// Advisor holds the ordered rule list and evaluates all of them.
type Advisor struct {
	rules []Rule
}

// New builds the default advisor with exactly the seven built-in rules in
// table, in registration order.
func New() *Advisor {
	return &Advisor{rules: []Rule{
		LossNaNRule{},
		LossPlateauRule{},
		HighLossRule{},
		AccuracySaturationRule{},
		ErrorSpikeRule{},
		ConvergingWellRule{},
		BuildFailureRule{},
	}}
}

// WithRules builds an advisor from an explicit rule list (for tests).
func WithRules(rules ...Rule) *Advisor {
	return &Advisor{rules: rules}
}

// Evaluate runs every rule and returns all non-nil results; multiple may
// fire on a single evaluation.
func (a *Advisor) Evaluate(m parser.TaskMetrics, h *history.History) []Advisory {
	var out []Advisory
	for _, r := range a.rules {
		if adv := r.Evaluate(m, h); adv != nil {
			out = append(out, *adv)
		}
	}
	return out
}
