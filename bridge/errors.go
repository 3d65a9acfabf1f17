package bridge

import (
	"fmt"
	"strings"
	"time"
)

// StartupError reports that the interpreter subprocess could not be
// started or never produced a valid initial state.
type StartupError struct {
	Stderr string
	Err    error
}

func (e *StartupError) Error() string {
	msg := fmt.Sprintf("bridge startup failed: %v", e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\nstderr: " + s
	}
	return msg
}

func (e *StartupError) Unwrap() error { return e.Err }

// TimeoutError reports that no schema-matching state line arrived
// within the read budget. Diagnostics holds the non-state lines that
// were read while waiting.
type TimeoutError struct {
	Budget      time.Duration
	Diagnostics []string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("bridge read timed out after %s (%d diagnostic lines buffered)",
		e.Budget, len(e.Diagnostics))
}

// ProtocolError reports a line that carried a state envelope but failed
// schema validation. The offending line is preserved for debugging.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	line := e.Line
	if len(line) > 200 {
		line = line[:200] + "..."
	}
	return fmt.Sprintf("bridge protocol violation: %v in line %q", e.Err, line)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// CrashedError reports that the subprocess exited or its stdout closed
// while a reply was expected.
type CrashedError struct {
	Stderr string
	Err    error
}

func (e *CrashedError) Error() string {
	msg := fmt.Sprintf("bridge subprocess crashed: %v", e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\nstderr: " + s
	}
	return msg
}

func (e *CrashedError) Unwrap() error { return e.Err }
