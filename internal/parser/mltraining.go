package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// MLTrainingParser extracts epoch/loss/accuracy/lr fields from training
// logs.
type MLTrainingParser struct {
	epoch    *regexp.Regexp
	loss     *regexp.Regexp
	accuracy *regexp.Regexp
	lr       *regexp.Regexp
	nan      *regexp.Regexp
}

func NewMLTrainingParser() *MLTrainingParser {
	return &MLTrainingParser{
		epoch:    regexp.MustCompile(`(?i)epoch\s+(\d+)\s*/\s*(\d+)`),
		loss:     regexp.MustCompile(`(?i)loss:\s*([\w.+-]+)`),
		accuracy: regexp.MustCompile(`(?i)(?:accuracy|acc):\s*([0-9.]+)`),
		lr:       regexp.MustCompile(`(?i)lr:\s*([0-9.eE+-]+)`),
		nan:      regexp.MustCompile(`(?i)nan`),
	}
}

func (p *MLTrainingParser) Name() string            { return "ml-training" }
func (p *MLTrainingParser) SupportedTypes() []string { return []string{"ml-training", "training"} }

func (p *MLTrainingParser) CanParse(text string) bool {
	return p.epoch.MatchString(text) || p.loss.MatchString(text) || p.accuracy.MatchString(text)
}

func (p *MLTrainingParser) Parse(text string) TaskMetrics {
	lines := strings.Split(text, "\n")

	metrics := map[string]MetricValue{}
	var errs []string
	var epoch, totalEpochs float64
	haveEpoch := false

	for _, line := range lines {
		if m := p.epoch.FindStringSubmatch(line); m != nil {
			e, _ := strconv.ParseFloat(m[1], 64)
			t, _ := strconv.ParseFloat(m[2], 64)
			epoch, totalEpochs = e, t
			haveEpoch = true
			metrics["epoch"] = Int(int64(e))
			metrics["total_epochs"] = Int(int64(t))
		}
		lossMatched := false
		if m := p.loss.FindStringSubmatch(line); m != nil {
			lossMatched = true
			if p.nan.MatchString(m[1]) {
				metrics["loss"] = String("NaN")
				errs = append(errs, "Loss is NaN - training diverged")
			} else if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				metrics["loss"] = Float(v)
			}
		}
		if !lossMatched && p.nan.MatchString(line) {
			errs = append(errs, "Loss is NaN - training diverged")
		}
		if m := p.accuracy.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				metrics["accuracy"] = Float(v)
			}
		}
		if m := p.lr.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				metrics["lr"] = Float(v)
			}
		}
	}

	progress := 0.0
	if haveEpoch && totalEpochs > 0 {
		progress = epoch / totalEpochs
	}

	return TaskMetrics{
		Progress: progress,
		Metrics:  metrics,
		Errors:   errs,
	}
}
