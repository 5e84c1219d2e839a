//go:build strand_release

package asyncstack

// Release builds skip contract checks and the leaf registry lock on the
// suspension path.
const debugChecks = false

const frameTrackingDefault = false
