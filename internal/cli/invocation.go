// Package cli builds the cobra command tree (run, ports, control) that
// drives the scheduler/executor/bus loop to completion or into interactive
// control mode.
//
// InvocationError turns a validation failure into a stable process exit
// code, independent of which command parsed the offending flags.
package cli

import (
	"errors"
	"fmt"
)

const (
	ExitSuccess           = 0
	ExitGraphFailure      = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError      = 4
)

// InvocationError carries a specific process exit code alongside its
// message, so main can translate any returned error into the right code
// without a type switch over every possible failure.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

func configErrorf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf(format, args...)}
}

func graphFailuref(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitGraphFailure, Message: fmt.Sprintf(format, args...)}
}

// ExitCode extracts a semantic exit code from an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	return ExitInternalError
}
