package asyncstack

import (
	"runtime"
	"sync"
)

var (
	detachedOnce      sync.Once
	detachedRootFrame Frame
)

// detachedTaskMarker exists so that the detached root frame's return
// address resolves to a recognizable symbol in diagnostic output. Kept out
// of line so the captured PC stays inside this function.
//
//go:noinline
func detachedTaskMarker() uintptr {
	pc, _, _, _ := runtime.Caller(0)
	return pc
}

// GetDetachedRootFrame returns the process-wide frame representing async
// work with no meaningful caller (top-level detached tasks). Stack dumps
// resolve it to the detachedTaskMarker symbol, distinguishing deliberate
// detachment from a chain whose caller was lost to a bug. The same frame
// instance is returned for the process lifetime.
func GetDetachedRootFrame() *Frame {
	detachedOnce.Do(func() {
		detachedRootFrame.SetReturnAddress(detachedTaskMarker())
	})
	return &detachedRootFrame
}
