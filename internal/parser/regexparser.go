package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// RegexParser is the permissive fallback: it detects an explicit percentage
// or a [cur/total] step pattern from the most recent matching line.
type RegexParser struct {
	percent *regexp.Regexp
	step    *regexp.Regexp
}

func NewRegexParser() *RegexParser {
	return &RegexParser{
		percent: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`),
		step:    regexp.MustCompile(`\[(\d+)/(\d+)\]`),
	}
}

func (p *RegexParser) Name() string            { return "regex" }
func (p *RegexParser) SupportedTypes() []string { return nil }

func (p *RegexParser) CanParse(text string) bool {
	return p.percent.MatchString(text) || p.step.MatchString(text)
}

func (p *RegexParser) Parse(text string) TaskMetrics {
	lines := strings.Split(text, "\n")

	progress := 0.0
	for _, line := range lines {
		if m := p.percent.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				progress = v / 100.0
			}
			continue
		}
		if m := p.step.FindStringSubmatch(line); m != nil {
			cur, _ := strconv.ParseFloat(m[1], 64)
			total, _ := strconv.ParseFloat(m[2], 64)
			if total > 0 {
				progress = cur / total
			}
		}
	}

	return TaskMetrics{Progress: progress, Metrics: map[string]MetricValue{}}
}
