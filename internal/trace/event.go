package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
	// KindHeartbeat is a periodic liveness signal.
	KindHeartbeat
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event. Lower numeric values
// represent higher-level/coarser events.
type Scope uint8

const (
	// ScopeDriver represents top-level CLI/driver operations.
	ScopeDriver Scope = iota + 1
	// ScopeRoot represents stack-root and poll boundaries.
	ScopeRoot
	// ScopeTask represents per-task scheduling events.
	ScopeTask
	// ScopeLeaf represents suspended-leaf registry transitions (most detailed).
	ScopeLeaf
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopeRoot:
		return "root"
	case ScopeTask:
		return "task"
	case ScopeLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // unique span identifier
	ParentID uint64            // parent span (0 if root)
	GID      uint64            // goroutine ID (for concurrent drivers)
	Name     string            // e.g., "run", "poll", "leaf-activate"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
