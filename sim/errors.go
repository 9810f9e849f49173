package sim

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Registry.Get for unknown (category, name) keys.
var ErrNotFound = errors.New("adapter not found")

// ParseError reports a malformed deck or result artifact. Source names the
// input (file path or artifact kind), Line the 1-based line where parsing
// stopped, Keyword the offending deck keyword (empty for result artifacts).
type ParseError struct {
	Source  string
	Line    int
	Keyword string
	Msg     string
}

func (e *ParseError) Error() string {
	if e.Keyword != "" {
		return fmt.Sprintf("%s:%d: keyword %s: %s", e.Source, e.Line, e.Keyword, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
}

// ExecutionError reports an external engine failure: non-zero exit, crash or
// timeout. StderrTail carries the last captured output so the failure is
// diagnosable without re-running.
type ExecutionError struct {
	Engine     string
	ExitCode   int
	Timeout    bool
	StderrTail string
}

func (e *ExecutionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("engine %s: timed out", e.Engine)
	}
	return fmt.Sprintf("engine %s: exit code %d", e.Engine, e.ExitCode)
}
