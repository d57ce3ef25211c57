package parser

import "strings"

// windowSize is the rolling output window parsers process, not the whole
// history; this keeps parsing cost O(window) per event and makes parsers
// naturally incremental.
const windowSize = 20

// Window is a per-task rolling buffer of the last N output lines.
type Window struct {
	size  int
	lines []string
}

// NewWindow builds a Window capped at the default size.
func NewWindow() *Window {
	return NewWindowWithSize(windowSize)
}

// NewWindowWithSize builds a Window capped at size lines, for callers
// driven by a configured parser window rather than the default.
func NewWindowWithSize(size int) *Window {
	if size <= 0 {
		size = windowSize
	}
	return &Window{size: size}
}

// Add appends a line, dropping the oldest once the window exceeds its size.
func (w *Window) Add(line string) {
	w.lines = append(w.lines, line)
	if len(w.lines) > w.size {
		w.lines = w.lines[len(w.lines)-w.size:]
	}
}

// Text joins the window into the newline-delimited text parsers consume.
func (w *Window) Text() string {
	return strings.Join(w.lines, "\n")
}
