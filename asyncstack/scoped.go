package asyncstack

import (
	"fmt"
	"runtime"
)

// ScopedRoot installs a new root for the duration of a synchronous driving
// call. It is the only sanctioned way to introduce a root: Install and
// Uninstall must pair strictly LIFO on each goroutine, which callers get
// for free with defer:
//
//	var scope asyncstack.ScopedRoot
//	scope.Install()
//	defer scope.Uninstall()
//
// The zero value is ready for Install.
type ScopedRoot struct {
	root      Root
	installed bool
}

// Install captures the caller's program counter as the root's native
// context, links the root behind the goroutine's current root and installs
// it as current.
//
//go:noinline
func (s *ScopedRoot) Install() {
	pc, _, _, _ := runtime.Caller(1)
	s.InstallWithContext(pc)
}

// InstallWithContext is Install with an explicit driving call-site PC, for
// drivers that capture their own context.
func (s *ScopedRoot) InstallWithContext(pc uintptr) {
	if debugChecks && s.installed {
		panic("asyncstack: ScopedRoot installed twice")
	}
	s.root.SetStackFrameContext(pc)
	s.root.nextRoot = TryGetCurrentRoot()
	publishCurrent(&s.root)
	s.installed = true
}

// Uninstall removes the root and reinstates the previously current one.
// The root must still be the goroutine's current root (LIFO discipline)
// and must have an empty frame chain; violating either is a fatal
// programming error in instrumented builds.
func (s *ScopedRoot) Uninstall() {
	if debugChecks {
		if !s.installed {
			panic("asyncstack: ScopedRoot not installed")
		}
		if cur := TryGetCurrentRoot(); cur != &s.root {
			panic(fmt.Sprintf("asyncstack: uninstalling root %p out of LIFO order (current is %p)", &s.root, cur))
		}
		if top := s.root.topFrame.Load(); top != nil {
			panic(fmt.Sprintf("asyncstack: uninstalling root with active frame %p", top))
		}
	}
	restoreCurrent(s.root.nextRoot)
	s.installed = false
}

// Root returns the underlying root.
func (s *ScopedRoot) Root() *Root {
	return &s.root
}

// ActivateFrame makes frame the leaf of this scope's root.
func (s *ScopedRoot) ActivateFrame(frame *Frame) {
	s.root.ActivateFrame(frame)
}
