package trace

import "fmt"

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff Level = iota
	// LevelError only emits on errors/crashes.
	LevelError
	// LevelRoot covers driver and stack-root boundaries.
	LevelRoot
	// LevelTask adds per-task scheduling events.
	LevelTask
	// LevelDebug emits everything including leaf-registry churn.
	LevelDebug
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelRoot:
		return "root"
	case LevelTask:
		return "task"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "off", "OFF":
		return LevelOff, nil
	case "error", "ERROR":
		return LevelError, nil
	case "root", "ROOT":
		return LevelRoot, nil
	case "task", "TASK":
		return LevelTask, nil
	case "debug", "DEBUG":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|root|task|debug)", s)
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelOff:
		return false
	case LevelError:
		return false // error events always emitted via crash path
	case LevelRoot:
		return scope <= ScopeRoot
	case LevelTask:
		return scope <= ScopeTask
	case LevelDebug:
		return true
	}
	return false
}
