// Package history implements the Metric History component: a per-task,
// append-only, capped log of MetricSnapshots plus ETA/trend/plateau queries.
package history

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// snapshotCap bounds the per-task history.
const snapshotCap = 500

// dedupProgressDelta and dedupWindow implement the dedup rule: a snapshot is
// skipped if both the progress delta and the elapsed wall time are small.
const (
	dedupProgressDelta = 0.001
	dedupWindow        = time.Second
)

// Snapshot is a single (timestamp, progress, named floats) data point.
type Snapshot struct {
	At       time.Time
	Progress float64
	Metrics  map[string]float64
}

// History is the append-only, capped log of Snapshots for one task.
type History struct {
	mu        sync.Mutex
	cap       int
	snapshots []Snapshot
}

// New builds a History capped at the default size.
func New() *History {
	return NewWithCap(snapshotCap)
}

// NewWithCap builds a History capped at cap snapshots, for callers driven
// by a configured history cap rather than the default.
func NewWithCap(cap int) *History {
	if cap <= 0 {
		cap = snapshotCap
	}
	return &History{cap: cap}
}

// Record appends a snapshot at time.Now(), applying the dedup rule.
func (h *History) Record(progress float64, metrics map[string]float64) {
	h.RecordAt(progress, metrics, time.Now())
}

// RecordAt is Record with an explicit timestamp, exposed so callers (and
// tests) can control elapsed time deterministically.
func (h *History) RecordAt(progress float64, metrics map[string]float64, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.snapshots); n > 0 {
		last := h.snapshots[n-1]
		if math.Abs(progress-last.Progress) < dedupProgressDelta && at.Sub(last.At) < dedupWindow {
			return
		}
	}

	h.snapshots = append(h.snapshots, Snapshot{At: at, Progress: progress, Metrics: metrics})
	if len(h.snapshots) > h.cap {
		h.snapshots = h.snapshots[len(h.snapshots)-h.cap:]
	}
}

// Len returns the number of retained snapshots.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.snapshots)
}

// CurrentProgress returns the most recent progress value.
func (h *History) CurrentProgress() (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.snapshots) == 0 {
		return 0, false
	}
	return h.snapshots[len(h.snapshots)-1].Progress, true
}

// ProgressRate returns the mean progress-per-second rate over the last
// min(10, len) snapshots.
func (h *History) ProgressRate() (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.progressRateLocked()
}

func (h *History) progressRateLocked() (float64, bool) {
	n := len(h.snapshots)
	if n < 2 {
		return 0, false
	}
	window := n
	if window > 10 {
		window = 10
	}
	first := h.snapshots[n-window]
	last := h.snapshots[n-1]
	elapsed := last.At.Sub(first.At).Seconds()
	if elapsed <= 0 {
		return 0, false
	}
	rate := (last.Progress - first.Progress) / elapsed
	return rate, true
}

// EstimateRemaining computes (1-progress)/rate from the ProgressRate,
// clamped to (0, 7 days]; none if rate <= 0.
func (h *History) EstimateRemaining() (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.snapshots) == 0 {
		return 0, false
	}
	progress := h.snapshots[len(h.snapshots)-1].Progress
	rate, ok := h.progressRateLocked()
	if !ok || rate <= 0 {
		return 0, false
	}
	secs := (1 - progress) / rate
	if secs <= 0 {
		return 0, false
	}
	d := time.Duration(secs * float64(time.Second))
	const maxETA = 7 * 24 * time.Hour
	if d > maxETA {
		d = maxETA
	}
	return d, true
}

// MetricValues returns the ordered last-N values of a named metric.
func (h *History) MetricValues(name string, lastN int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	var vals []float64
	for _, s := range h.snapshots {
		if v, ok := s.Metrics[name]; ok {
			vals = append(vals, v)
		}
	}
	if lastN > 0 && len(vals) > lastN {
		vals = vals[len(vals)-lastN:]
	}
	return vals
}

// ProgressValues returns the ordered last-N progress values.
func (h *History) ProgressValues(lastN int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	vals := make([]float64, len(h.snapshots))
	for i, s := range h.snapshots {
		vals[i] = s.Progress
	}
	if lastN > 0 && len(vals) > lastN {
		vals = vals[len(vals)-lastN:]
	}
	return vals
}

// LatestMetric returns the most recently observed value of name.
func (h *History) LatestMetric(name string) (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.snapshots) - 1; i >= 0; i-- {
		if v, ok := h.snapshots[i].Metrics[name]; ok {
			return v, true
		}
	}
	return 0, false
}

// Trend is the slope of a simple linear regression of the last window
// values of name against their index; none if window < 2.
func (h *History) Trend(name string, window int) (float64, bool) {
	if window < 2 {
		return 0, false
	}
	vals := h.MetricValues(name, window)
	return linregSlope(vals)
}

func linregSlope(y []float64) (float64, bool) {
	n := len(y)
	if n < 2 {
		return 0, false
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	slope := (nf*sumXY - sumX*sumY) / denom
	return slope, true
}

// IsPlateaued reports whether (max-min) < threshold over the last window
// values of name.
func (h *History) IsPlateaued(name string, window int, threshold float64) bool {
	vals := h.MetricValues(name, window)
	if len(vals) < window {
		return false
	}
	min, max := vals[0], vals[0]
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return (max - min) < threshold
}

// FormatETA renders a duration as "NNs" / "Nm Ns" / "Nh Nm".
func FormatETA(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	if total < 3600 {
		m := total / 60
		s := total % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := total / 3600
	m := (total % 3600) / 60
	return fmt.Sprintf("%dh %dm", h, m)
}
