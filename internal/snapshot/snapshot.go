// Package snapshot captures and renders logical stack dumps.
//
// It is the consumer side of the asyncstack contract: it walks the
// per-goroutine current roots and the suspended-leaf registry, resolves
// each frame's return address through the Go symbol table, and produces a
// serializable dump. Capture is best-effort by design; a chain mutating
// concurrently with the walk yields one side of the transition.
package snapshot

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"fortio.org/safecast"

	"strand/asyncstack"
)

// Current schema version - increment when the serialized format changes.
const snapshotSchemaVersion uint16 = 1

// FrameRecord is one resolved logical frame.
type FrameRecord struct {
	PC    uint64 `msgpack:"pc"`
	Func  string `msgpack:"func"`
	File  string `msgpack:"file"`
	Line  uint32 `msgpack:"line"`
	State string `msgpack:"state"`
}

// StackRecord is one walked logical chain, either anchored to a live root
// on some goroutine or hanging off a suspended leaf.
type StackRecord struct {
	Kind   string        `msgpack:"kind"` // "rooted" or "leaf"
	GID    uint64        `msgpack:"gid,omitempty"`
	RootPC uint64        `msgpack:"root_pc,omitempty"`
	Frames []FrameRecord `msgpack:"frames"`
}

// Snapshot is a full logical stack dump of the process.
type Snapshot struct {
	Schema      uint16        `msgpack:"schema"`
	TakenUnixMs int64         `msgpack:"taken_unix_ms"`
	Stacks      []StackRecord `msgpack:"stacks"`
}

// Capture walks all live roots and all suspended leaves into a Snapshot.
func Capture() Snapshot {
	snap := Snapshot{
		Schema:      snapshotSchemaVersion,
		TakenUnixMs: time.Now().UnixMilli(),
	}

	asyncstack.SweepGoroutineRoots(func(gid uint64, root *asyncstack.Root) {
		rec := StackRecord{
			Kind:   "rooted",
			GID:    gid,
			RootPC: uint64(root.StackFrameContext()),
			Frames: walkChain(root.TopFrame(), "bound"),
		}
		snap.Stacks = append(snap.Stacks, rec)
	})

	asyncstack.SweepSuspendedLeafFrames(func(leaf *asyncstack.Frame) {
		rec := StackRecord{
			Kind:   "leaf",
			Frames: walkChain(leaf, "suspended-leaf"),
		}
		snap.Stacks = append(snap.Stacks, rec)
	})

	// Deterministic order for rendering and golden comparisons.
	sort.SliceStable(snap.Stacks, func(i, j int) bool {
		a, b := snap.Stacks[i], snap.Stacks[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.GID != b.GID {
			return a.GID < b.GID
		}
		return leadPC(a) < leadPC(b)
	})
	return snap
}

func leadPC(rec StackRecord) uint64 {
	if len(rec.Frames) == 0 {
		return 0
	}
	return rec.Frames[0].PC
}

// walkChain resolves a frame and its logical callers. leafState labels the
// first frame; interior frames carry no root by construction.
func walkChain(frame *asyncstack.Frame, leafState string) []FrameRecord {
	var frames []FrameRecord
	detached := asyncstack.GetDetachedRootFrame()
	state := leafState
	for frame != nil {
		if frame == detached {
			state = "detached-root"
		}
		frames = append(frames, resolveFrame(frame, state))
		frame = frame.Parent()
		state = "interior"
	}
	return frames
}

// resolveFrame symbolizes one frame's return address.
func resolveFrame(frame *asyncstack.Frame, state string) FrameRecord {
	pc := frame.ReturnAddress()
	rec := FrameRecord{
		PC:    uint64(pc),
		Func:  "<unresolved>",
		State: state,
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return rec
	}
	rec.Func = fn.Name()
	file, line := fn.FileLine(pc)
	rec.File = file
	if l, err := safecast.Conv[uint32](line); err == nil {
		rec.Line = l
	}
	return rec
}

// Counts summarizes a snapshot for one-line reporting.
func (s *Snapshot) Counts() (rooted, leaves int) {
	for _, st := range s.Stacks {
		if st.Kind == "rooted" {
			rooted++
		} else {
			leaves++
		}
	}
	return rooted, leaves
}

// String returns a one-line summary.
func (s *Snapshot) String() string {
	rooted, leaves := s.Counts()
	return fmt.Sprintf("snapshot: %d rooted stacks, %d suspended leaves", rooted, leaves)
}
