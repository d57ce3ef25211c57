package parser

// Parser is the small contract each built-in parser satisfies: composition
// of small interfaces, not an inheritance hierarchy.
type Parser interface {
	Name() string
	SupportedTypes() []string
	CanParse(text string) bool
	Parse(text string) TaskMetrics
}

// Registry holds an ordered list of parsers and dispatches by task type or
// content sniff.
type Registry struct {
	parsers []Parser
}

// NewRegistry builds the default registry. Registration order is
// ml-training, build, regex: this order is load-bearing and preserved as
// an explicit slice literal rather than a map.
func NewRegistry() *Registry {
	return &Registry{parsers: []Parser{
		NewMLTrainingParser(),
		NewBuildParser(),
		NewRegexParser(),
	}}
}

// WithParsers builds a registry from an explicit, caller-supplied order.
func WithParsers(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// Parse dispatches by task type when given, else by content sniff in
// registration order, else returns an empty TaskMetrics.
func (r *Registry) Parse(taskType *string, text string) TaskMetrics {
	if taskType != nil && *taskType != "" {
		for _, p := range r.parsers {
			for _, t := range p.SupportedTypes() {
				if t == *taskType {
					return safeParse(p, text)
				}
			}
		}
		return Empty()
	}
	for _, p := range r.parsers {
		if p.CanParse(text) {
			return safeParse(p, text)
		}
	}
	return Empty()
}

// safeParse tolerates a parser implementation panicking: a parser that
// panics is skipped and a benign empty metrics result is used instead.
func safeParse(p Parser, text string) (out TaskMetrics) {
	defer func() {
		if recover() != nil {
			out = Empty()
		}
	}()
	return p.Parse(text)
}
