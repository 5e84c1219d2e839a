package asyncstack

import (
	"fmt"
	"sync"
)

// suspendedLeafMarker is the sentinel stored in a frame's root word while
// the frame is a suspended leaf. It is a distinguished Root that is never
// installed, so its address cannot collide with any live root's address.
var suspendedLeafMarker Root

// Debugger-facing globals. External tools locate these by symbol name:
// SuspendedFrameCookie is the word value marking suspended-leaf frames,
// FrameTrackingEnabled reports whether the leaf registry is populated, and
// LeafFrameStore is a type-erased reference to the registry's storage for
// tools that walk it without this package's type definitions (read-only,
// best-effort; torn reads are possible while the process runs).
var (
	SuspendedFrameCookie = &suspendedLeafMarker
	FrameTrackingEnabled = frameTrackingDefault
	LeafFrameStore       any
)

var leafFrames = struct {
	once   sync.Once
	mu     sync.RWMutex
	frames map[*Frame]struct{}
}{}

// leafFrameSet lazily builds the registry storage, once per process, and
// publishes the type-erased reference for external tools.
func leafFrameSet() map[*Frame]struct{} {
	leafFrames.once.Do(func() {
		leafFrames.frames = make(map[*Frame]struct{})
		LeafFrameStore = &leafFrames.frames
	})
	return leafFrames.frames
}

// ActivateSuspendedLeaf marks an unset frame as a suspended leaf: it
// exists, is not currently running, and is unreachable from any live
// root's chain. When frame tracking is enabled the frame also becomes
// enumerable through SweepSuspendedLeafFrames.
func ActivateSuspendedLeaf(frame *Frame) {
	if debugChecks {
		if state, _ := frame.State(); state != FrameUnset {
			panic(fmt.Sprintf("asyncstack: activating suspended leaf on %s frame", state))
		}
	}
	frame.stackRoot.Store(&suspendedLeafMarker)
	if FrameTrackingEnabled {
		set := leafFrameSet()
		leafFrames.mu.Lock()
		set[frame] = struct{}{}
		leafFrames.mu.Unlock()
	}
}

// IsSuspendedLeafActive reports whether the frame is currently a suspended
// leaf. No side effects; safe to call concurrently.
func IsSuspendedLeafActive(frame *Frame) bool {
	state, _ := frame.State()
	return state == FrameSuspendedLeaf
}

// DeactivateSuspendedLeaf clears a suspended-leaf frame back to unset. The
// frame must currently be a suspended leaf.
func DeactivateSuspendedLeaf(frame *Frame) {
	if debugChecks {
		if state, _ := frame.State(); state != FrameSuspendedLeaf {
			panic(fmt.Sprintf("asyncstack: deactivating suspended leaf on %s frame", state))
		}
	}
	frame.stackRoot.Store(nil)
	if FrameTrackingEnabled {
		set := leafFrameSet()
		leafFrames.mu.Lock()
		delete(set, frame)
		leafFrames.mu.Unlock()
	}
}

// SweepSuspendedLeafFrames invokes fn once per currently-suspended frame,
// in unspecified order. Must not be called from within an activation or
// deactivation (the sweep holds the registry read lock).
func SweepSuspendedLeafFrames(fn func(*Frame)) {
	set := leafFrameSet()
	leafFrames.mu.RLock()
	defer leafFrames.mu.RUnlock()
	for frame := range set {
		fn(frame)
	}
}
