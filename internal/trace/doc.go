// Package trace provides the tracing subsystem for the strand runtime.
//
// Tracing records root installs, task scheduling transitions and
// suspended-leaf registry churn so that hangs and scheduling bugs can be
// diagnosed from a log rather than a debugger.
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - NopTracer: zero-overhead no-op tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer for crash dumps
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
// Verbosity is controlled by levels:
//
//   - LevelOff: no tracing
//   - LevelError: only crash dumps
//   - LevelRoot: driver and stack-root boundaries
//   - LevelTask: per-task scheduling events
//   - LevelDebug: everything including leaf-registry churn
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeDriver: top-level CLI/driver operations
//   - ScopeRoot: stack-root install/uninstall and poll boundaries
//   - ScopeTask: per-task spawn/park/wake/done
//   - ScopeLeaf: suspended-leaf registry transitions
//
// # Context propagation
//
// Tracers travel through the driver via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeDriver, "run", 0)
//	defer span.End("")
package trace
