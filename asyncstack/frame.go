package asyncstack

import "sync/atomic"

// Frame is one node in the logical call stack, corresponding to one
// asynchronous call. Frames are embedded in larger task/coroutine state by
// the collaborator that owns them; the zero value is ready to use.
//
// The parent link and return address are owned by the goroutine currently
// executing the logical call the frame represents. The root word is the
// only field with concurrent readers: inspectors on other goroutines load
// it and compare against SuspendedFrameCookie.
type Frame struct {
	parent    *Frame
	retAddr   uintptr
	stackRoot atomic.Pointer[Root]
}

// FrameState is the tagged view of a frame's one-word root state.
type FrameState uint8

const (
	// FrameUnset means the frame is not activated under any root.
	FrameUnset FrameState = iota
	// FrameBound means the frame belongs to a live root's chain.
	FrameBound
	// FrameSuspendedLeaf means the frame is parked and unreachable from
	// any root; it is discoverable only through the leaf registry.
	FrameSuspendedLeaf
)

// String returns the string representation of FrameState.
func (s FrameState) String() string {
	switch s {
	case FrameUnset:
		return "unset"
	case FrameBound:
		return "bound"
	case FrameSuspendedLeaf:
		return "suspended-leaf"
	default:
		return "unknown"
	}
}

// Parent returns the logically-calling frame, or nil for the outermost
// frame of its chain.
func (f *Frame) Parent() *Frame {
	return f.parent
}

// SetParent links the frame under a logical caller.
func (f *Frame) SetParent(parent *Frame) {
	f.parent = parent
}

// ReturnAddress returns the captured program counter for this logical call
// site, resolvable through runtime.FuncForPC.
func (f *Frame) ReturnAddress() uintptr {
	return f.retAddr
}

// SetReturnAddress records the program counter of the logical call site.
func (f *Frame) SetReturnAddress(pc uintptr) {
	f.retAddr = pc
}

// State decodes the frame's root word into its tagged form. The root
// result is non-nil only for FrameBound.
//
// Safe to call from any goroutine; a concurrent transition may be observed
// as either side of the transition, never as a torn value.
func (f *Frame) State() (FrameState, *Root) {
	root := f.stackRoot.Load()
	switch root {
	case nil:
		return FrameUnset, nil
	case &suspendedLeafMarker:
		return FrameSuspendedLeaf, nil
	default:
		return FrameBound, root
	}
}

// boundRoot returns the root the frame is bound to, panicking in
// instrumented builds if the frame is unset or a suspended leaf.
func (f *Frame) boundRoot() *Root {
	root := f.stackRoot.Load()
	if debugChecks {
		if root == nil {
			panic("asyncstack: frame has no root")
		}
		if root == &suspendedLeafMarker {
			panic("asyncstack: frame is a suspended leaf, not bound to a root")
		}
	}
	return root
}
