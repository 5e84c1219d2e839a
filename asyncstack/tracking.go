//go:build !strand_release

package asyncstack

// debugChecks gates contract-violation panics. Segregated by build tag so
// release builds compile the checks out entirely.
const debugChecks = true

// frameTrackingDefault is the build-time default for suspended-leaf frame
// tracking. Instrumented builds track leaves so external tools can
// enumerate parked work.
const frameTrackingDefault = true
