// Package asyncstack maintains a logical call stack for asynchronous work.
//
// Async execution suspends and resumes on arbitrary native stacks, so a
// physical stack walk cannot reconstruct the chain of async calls that led
// to a given point. This package keeps a parallel chain of lightweight
// Frame records mirroring the logical nesting of async calls, together
// with the machinery to splice that chain onto the real stack at the point
// where a synchronous driver resumes async work.
//
// # Frames and roots
//
// A Frame is one node of the logical stack: a parent link, a return
// address used for symbolization, and a one-word root state. A Root
// anchors a frame chain to a synchronous driving call on some goroutine.
// Frames are embedded in task state by the caller; this package never
// allocates or frees them.
//
// # Current root
//
// Each goroutine has at most one current Root, published through a
// process-wide registry so that inspectors on other goroutines (snapshot
// capture, profilers) can observe a fully-linked chain. Roots are
// installed strictly LIFO via ScopedRoot:
//
//	var scope asyncstack.ScopedRoot
//	scope.Install()
//	defer scope.Uninstall()
//
// # Suspended leaves
//
// A frame whose work is parked with no driver on any stack is unreachable
// from every root. ActivateSuspendedLeaf marks such a frame with a
// process-wide sentinel and, when frame tracking is enabled, records it in
// a registry that SweepSuspendedLeafFrames enumerates, so full-process
// stack dumps still see parked work.
//
// # Contract violations
//
// Misuse (uninstalling roots out of order, tearing down a root with live
// frames, double leaf activation) is a programming error. Checks panic in
// instrumented builds and are compiled out under the strand_release tag.
package asyncstack
