// Package parser implements the Parser Registry component: a type-dispatched
// registry of parsers producing TaskMetrics from a rolling window of output
// lines.
package parser

// MetricValue is one of Float|Int|String|Bool. Go lacks sum
// types, so this is a thin wrapper with typed accessors.
type MetricValue struct {
	kind byte // 'f', 'i', 's', 'b'
	f    float64
	i    int64
	s    string
	b    bool
}

func Float(v float64) MetricValue { return MetricValue{kind: 'f', f: v} }
func Int(v int64) MetricValue     { return MetricValue{kind: 'i', i: v} }
func String(v string) MetricValue { return MetricValue{kind: 's', s: v} }
func Bool(v bool) MetricValue     { return MetricValue{kind: 'b', b: v} }

// AsFloat coerces the value to a float64: 1 or 0 for Bool, 0 for String.
func (v MetricValue) AsFloat() float64 {
	switch v.kind {
	case 'f':
		return v.f
	case 'i':
		return float64(v.i)
	case 'b':
		if v.b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// AsInt coerces the value to an int64: 1 or 0 for Bool, 0 for String.
func (v MetricValue) AsInt() int64 {
	switch v.kind {
	case 'f':
		return int64(v.f)
	case 'i':
		return v.i
	case 'b':
		if v.b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// AsString renders the value as text regardless of kind.
func (v MetricValue) AsString() string {
	switch v.kind {
	case 's':
		return v.s
	case 'f':
		return ftoa(v.f)
	case 'i':
		return itoa(v.i)
	case 'b':
		if v.b {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// TaskMetrics is the parser output: value semantics only, no identity, no
// mutation after creation.
type TaskMetrics struct {
	Progress float64
	Metrics  map[string]MetricValue
	Phase    string
	Errors   []string
}

// Empty is the benign zero-value result returned by the registry when
// nothing matches, and in place of a parser that panics (see safeParse).
func Empty() TaskMetrics {
	return TaskMetrics{Metrics: map[string]MetricValue{}}
}

// HasSignal reports whether m carries anything the outer driver should use
// to overwrite previously stored metrics, under a non-destructive update
// policy: progress > 0, or any metrics, or any errors.
func (m TaskMetrics) HasSignal() bool {
	return m.Progress > 0 || len(m.Metrics) > 0 || len(m.Errors) > 0
}

// FloatMetrics flattens Metrics to plain float64s for history recording.
func (m TaskMetrics) FloatMetrics() map[string]float64 {
	out := make(map[string]float64, len(m.Metrics))
	for k, v := range m.Metrics {
		out[k] = v.AsFloat()
	}
	return out
}
