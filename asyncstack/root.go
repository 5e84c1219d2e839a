package asyncstack

import (
	"fmt"
	"sync/atomic"
)

// Root anchors a logical frame chain to one synchronous entry point into
// async execution on some goroutine. Roots form a per-goroutine LIFO stack
// through their nextRoot links, matching the nesting of synchronous
// driving calls.
//
// A Root is written only by the goroutine that installed it. The top-frame
// word is additionally read by inspectors on other goroutines, so all
// mutations of it go through atomics: stores that newly expose chain links
// publish them, and the matching loads observe a fully-linked chain.
type Root struct {
	topFrame atomic.Pointer[Frame]
	nextRoot *Root
	callerPC uintptr
}

// SetStackFrameContext records the program counter of the synchronous call
// site that installed this root, used to splice the logical chain onto a
// native unwind.
func (r *Root) SetStackFrameContext(pc uintptr) {
	r.callerPC = pc
}

// StackFrameContext returns the captured driving call-site PC.
func (r *Root) StackFrameContext() uintptr {
	return r.callerPC
}

// NextRoot returns the root that was current on this goroutine before this
// one was installed, or nil.
func (r *Root) NextRoot() *Root {
	return r.nextRoot
}

// TopFrame returns the currently active leaf frame of this root's chain,
// or nil. Safe to call from any goroutine.
func (r *Root) TopFrame() *Frame {
	return r.topFrame.Load()
}

// ActivateFrame makes frame the leaf of this root's chain. The root must
// have no active frame and the frame must be unset.
func (r *Root) ActivateFrame(frame *Frame) {
	if debugChecks {
		if top := r.topFrame.Load(); top != nil {
			panic(fmt.Sprintf("asyncstack: root already has active frame %p", top))
		}
		if state, _ := frame.State(); state != FrameUnset {
			panic(fmt.Sprintf("asyncstack: cannot activate %s frame", state))
		}
	}
	frame.stackRoot.Store(r)
	r.topFrame.Store(frame)
}

// DeactivateFrame detaches the root's active leaf frame, leaving the frame
// unset. The frame must be the root's current top frame.
func (r *Root) DeactivateFrame(frame *Frame) {
	if debugChecks {
		if top := r.topFrame.Load(); top != frame {
			panic(fmt.Sprintf("asyncstack: deactivating frame %p but top frame is %p", frame, top))
		}
	}
	r.topFrame.Store(nil)
	frame.stackRoot.Store(nil)
}

// PushFrameCallerCallee extends the chain by one logical call: callee
// becomes the leaf of the root currently governing caller, and caller
// steps back to an interior position (interior frames carry no root).
func PushFrameCallerCallee(caller, callee *Frame) {
	root := caller.boundRoot()
	callee.parent = caller
	callee.stackRoot.Store(root)
	root.topFrame.Store(callee)
	// Interior frames do not claim the root; only the leaf does.
	caller.stackRoot.Store(nil)
}

// DeactivateFrame detaches a bound leaf frame without naming its root:
// the root is read off the frame itself. Convenience variant of
// (*Root).DeactivateFrame for callers that only hold the frame.
func DeactivateFrame(frame *Frame) {
	frame.boundRoot().DeactivateFrame(frame)
}

// PopFrameCallee undoes one logical call: callee leaves the chain and its
// parent (if any) becomes the leaf again.
func PopFrameCallee(callee *Frame) {
	root := callee.boundRoot()
	parent := callee.parent
	if parent != nil {
		parent.stackRoot.Store(root)
		root.topFrame.Store(parent)
	} else {
		root.topFrame.Store(nil)
	}
	callee.stackRoot.Store(nil)
}
