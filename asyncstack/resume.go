package asyncstack

// ResumeWithNewRoot resumes a suspended unit of async work under a fresh
// root bound to frame. While resume runs, TryGetCurrentRoot on this
// goroutine returns the new root; on return (completion or re-suspension)
// the previous root is exactly restored.
//
// resume must detach frame from the root before returning, either by
// deactivating it or by popping the chain down to empty, since root
// teardown asserts an empty chain. Kept out of line so the root's captured
// context is a real, symbolizable resumption call site.
//
//go:noinline
func ResumeWithNewRoot(frame *Frame, resume func()) {
	var scope ScopedRoot
	scope.Install()
	defer scope.Uninstall()
	scope.ActivateFrame(frame)
	resume()
}
