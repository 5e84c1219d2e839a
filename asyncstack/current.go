package asyncstack

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Per-goroutine current-root slots. Each slot is written only by its
// owning goroutine; inspectors read it through the atomic pointer. The map
// itself is the discoverable process-wide storage table: external tools
// (and SweepGoroutineRoots) locate any goroutine's current root without
// cooperation from that goroutine's call stack.
var currentRoots = struct {
	mu    sync.RWMutex
	slots map[uint64]*rootSlot
}{slots: make(map[uint64]*rootSlot)}

type rootSlot struct {
	value atomic.Pointer[Root]
}

// goroutineID extracts the current goroutine ID using runtime.Stack.
// Stack format: "goroutine 123 [running]:\n...".
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}
	gid, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// currentSlot returns this goroutine's root slot, creating it when create
// is set. Slot creation is the one lazy allocation on this path; every
// subsequent operation reuses the slot.
func currentSlot(create bool) *rootSlot {
	gid := goroutineID()

	currentRoots.mu.RLock()
	slot := currentRoots.slots[gid]
	currentRoots.mu.RUnlock()
	if slot != nil || !create {
		return slot
	}

	currentRoots.mu.Lock()
	slot = currentRoots.slots[gid]
	if slot == nil {
		slot = &rootSlot{}
		currentRoots.slots[gid] = slot
	}
	currentRoots.mu.Unlock()
	return slot
}

// dropCurrentSlot removes this goroutine's slot once its root stack is
// empty, so finished goroutines do not accumulate in the table.
func dropCurrentSlot() {
	gid := goroutineID()
	currentRoots.mu.Lock()
	delete(currentRoots.slots, gid)
	currentRoots.mu.Unlock()
}

// TryGetCurrentRoot returns the calling goroutine's currently installed
// root, or nil if none is installed. Never blocks, never fails.
func TryGetCurrentRoot() *Root {
	slot := currentSlot(false)
	if slot == nil {
		return nil
	}
	return slot.value.Load()
}

// GetCurrentRoot returns the calling goroutine's current root. Calling it
// with no root installed is a contract violation.
func GetCurrentRoot() *Root {
	root := TryGetCurrentRoot()
	if root == nil {
		panic("asyncstack: no current root installed on this goroutine")
	}
	return root
}

// ExchangeCurrentRoot replaces the calling goroutine's current root and
// returns the previous one. Used when a driver takes over the currently
// executing async stack outside the ScopedRoot discipline. The store
// publishes newRoot's chain to concurrent inspectors.
func ExchangeCurrentRoot(newRoot *Root) *Root {
	if newRoot == nil {
		slot := currentSlot(false)
		if slot == nil {
			return nil
		}
		old := slot.value.Swap(nil)
		dropCurrentSlot()
		return old
	}
	return currentSlot(true).value.Swap(newRoot)
}

// publishCurrent installs root as current with publication semantics: an
// inspector that observes the pointer sees a fully-initialised root and,
// transitively, a fully-linked frame chain up to that point.
func publishCurrent(root *Root) {
	currentSlot(true).value.Store(root)
}

// restoreCurrent reinstates a previously published root on the fast
// teardown path. No chain links are newly exposed here: prev was already
// visible to inspectors before the inner root was installed.
func restoreCurrent(prev *Root) {
	if prev == nil {
		slot := currentSlot(false)
		if slot != nil {
			slot.value.Store(nil)
		}
		dropCurrentSlot()
		return
	}
	currentSlot(true).value.Store(prev)
}

// SweepGoroutineRoots invokes fn once per goroutine that currently has a
// root installed, in unspecified order. Roots observed concurrently with
// install/uninstall on their owning goroutine reflect one side of the
// transition; consumers are best-effort diagnostic walkers.
func SweepGoroutineRoots(fn func(gid uint64, root *Root)) {
	currentRoots.mu.RLock()
	defer currentRoots.mu.RUnlock()
	for gid, slot := range currentRoots.slots {
		if root := slot.value.Load(); root != nil {
			fn(gid, root)
		}
	}
}
