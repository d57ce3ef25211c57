package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// BuildParser extracts progress/metrics from cargo/npm/make-like build
// output: compile-phase and warning/error line counts.
type BuildParser struct {
	compiling  *regexp.Regexp
	warning    *regexp.Regexp
	errorLine  *regexp.Regexp
	npmWarn    *regexp.Regexp
	npmErr     *regexp.Regexp
	finished   *regexp.Regexp
	testResult *regexp.Regexp
	step       *regexp.Regexp
	linking    *regexp.Regexp
}

func NewBuildParser() *BuildParser {
	return &BuildParser{
		compiling:  regexp.MustCompile(`Compiling\s+[\w.-]+\s+v[\w.-]+`),
		warning:    regexp.MustCompile(`(?i)warning(\(.*\)|\[.*\])?:`),
		errorLine:  regexp.MustCompile(`(?i)^error(\(.*\)|\[.*\])?:`),
		npmWarn:    regexp.MustCompile(`(?i)npm warn`),
		npmErr:     regexp.MustCompile(`(?i)npm err!`),
		finished:   regexp.MustCompile("Finished\\s+`?(\\w+)`?\\s+profile.*?in\\s+([0-9.]+)s"),
		testResult: regexp.MustCompile(`test result:\s*(ok|FAILED)\.\s*(\d+)\s*passed;\s*(\d+)\s*failed`),
		step:       regexp.MustCompile(`\[(\d+)/(\d+)\]`),
		linking:    regexp.MustCompile(`(?i)linking`),
	}
}

func (p *BuildParser) Name() string            { return "build" }
func (p *BuildParser) SupportedTypes() []string { return []string{"build"} }

func (p *BuildParser) CanParse(text string) bool {
	return p.compiling.MatchString(text) || p.finished.MatchString(text) ||
		p.errorLine.MatchString(text) || p.warning.MatchString(text)
}

func (p *BuildParser) Parse(text string) TaskMetrics {
	lines := strings.Split(text, "\n")

	var crates, warnings, errorsCount int
	var errs []string
	var lastStep string
	var lastTestResult string
	var finishedMatch []string
	sawLinking := false

	for _, line := range lines {
		if p.compiling.MatchString(line) {
			crates++
		}
		if p.warning.MatchString(line) || p.npmWarn.MatchString(line) {
			warnings++
		}
		if p.errorLine.MatchString(line) || p.npmErr.MatchString(line) {
			errorsCount++
			errs = append(errs, strings.TrimSpace(line))
		}
		if p.linking.MatchString(line) {
			sawLinking = true
		}
		if m := p.step.FindStringSubmatch(line); m != nil {
			lastStep = line
			_ = m
		}
		if p.testResult.MatchString(line) {
			lastTestResult = line
		}
		if m := p.finished.FindStringSubmatch(line); m != nil {
			finishedMatch = m
		}
	}

	metrics := map[string]MetricValue{}
	if crates > 0 {
		metrics["crates_compiled"] = Int(int64(crates))
	}
	if warnings > 0 {
		metrics["warnings"] = Int(int64(warnings))
	}
	if errorsCount > 0 {
		metrics["errors"] = Int(int64(errorsCount))
	}

	progress := 0.0
	phase := ""

	if lastTestResult != "" {
		if m := p.testResult.FindStringSubmatch(lastTestResult); m != nil {
			passed, _ := strconv.Atoi(m[2])
			failed, _ := strconv.Atoi(m[3])
			metrics["tests_passed"] = Int(int64(passed))
			metrics["tests_failed"] = Int(int64(failed))
		}
		phase = "Testing"
	}
	if sawLinking {
		phase = "Linking"
	}
	if crates > 0 && phase == "" {
		phase = "Compiling"
	}
	if lastStep != "" {
		if m := p.step.FindStringSubmatch(lastStep); m != nil {
			cur, _ := strconv.ParseFloat(m[1], 64)
			total, _ := strconv.ParseFloat(m[2], 64)
			if total > 0 {
				progress = cur / total
			}
		}
	}
	if finishedMatch != nil {
		progress = 1.0
		phase = "Finished"
		metrics["profile"] = String(finishedMatch[1])
		if secs, err := strconv.ParseFloat(finishedMatch[2], 64); err == nil {
			metrics["build_time_secs"] = Float(secs)
		}
	}

	return TaskMetrics{
		Progress: progress,
		Metrics:  metrics,
		Phase:    phase,
		Errors:   errs,
	}
}
