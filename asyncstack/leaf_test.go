package asyncstack

import (
	"sync"
	"testing"
)

func sweepSet() map[*Frame]struct{} {
	got := make(map[*Frame]struct{})
	SweepSuspendedLeafFrames(func(f *Frame) {
		got[f] = struct{}{}
	})
	return got
}

func TestSuspendedLeafCycle(t *testing.T) {
	var frame Frame
	if IsSuspendedLeafActive(&frame) {
		t.Fatalf("unset frame reported as suspended leaf")
	}
	ActivateSuspendedLeaf(&frame)
	if !IsSuspendedLeafActive(&frame) {
		t.Fatalf("activated frame not reported as suspended leaf")
	}
	if state, root := frame.State(); state != FrameSuspendedLeaf || root != nil {
		t.Fatalf("state after activation: want (%v, nil), got (%v, %p)", FrameSuspendedLeaf, state, root)
	}
	DeactivateSuspendedLeaf(&frame)
	if IsSuspendedLeafActive(&frame) {
		t.Fatalf("deactivated frame still reported as suspended leaf")
	}
	if state, _ := frame.State(); state != FrameUnset {
		t.Fatalf("state after deactivation: want %v, got %v", FrameUnset, state)
	}
}

func TestSweepVisitsExactlyActiveLeaves(t *testing.T) {
	const n = 8
	frames := make([]Frame, n)
	for i := range frames {
		ActivateSuspendedLeaf(&frames[i])
	}
	defer func() {
		// Leave the process-wide registry clean for other tests.
		for i := range frames {
			if IsSuspendedLeafActive(&frames[i]) {
				DeactivateSuspendedLeaf(&frames[i])
			}
		}
	}()

	got := sweepSet()
	for i := range frames {
		if _, ok := got[&frames[i]]; !ok {
			t.Fatalf("sweep missed frame %d", i)
		}
	}

	const m = 3
	for i := 0; i < m; i++ {
		DeactivateSuspendedLeaf(&frames[i])
	}
	got = sweepSet()
	for i := 0; i < m; i++ {
		if _, ok := got[&frames[i]]; ok {
			t.Fatalf("sweep visited deactivated frame %d", i)
		}
	}
	for i := m; i < n; i++ {
		if _, ok := got[&frames[i]]; !ok {
			t.Fatalf("sweep missed still-active frame %d", i)
		}
	}
}

func TestConcurrentSweepsObserveSameSet(t *testing.T) {
	frames := make([]Frame, 5)
	for i := range frames {
		ActivateSuspendedLeaf(&frames[i])
	}
	defer func() {
		for i := range frames {
			DeactivateSuspendedLeaf(&frames[i])
		}
	}()

	want := sweepSet()

	const sweepers = 4
	results := make([]map[*Frame]struct{}, sweepers)
	var wg sync.WaitGroup
	for i := 0; i < sweepers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = sweepSet()
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if len(got) != len(want) {
			t.Fatalf("sweeper %d: set size want %d, got %d", i, len(want), len(got))
		}
		for f := range want {
			if _, ok := got[f]; !ok {
				t.Fatalf("sweeper %d missed frame %p", i, f)
			}
		}
	}
}

func TestActivateSuspendedLeafTwicePanics(t *testing.T) {
	var frame Frame
	ActivateSuspendedLeaf(&frame)
	defer DeactivateSuspendedLeaf(&frame)
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on double leaf activation")
		}
	}()
	ActivateSuspendedLeaf(&frame)
}

func TestDeactivateNonLeafPanics(t *testing.T) {
	var frame Frame
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic deactivating an unset frame")
		}
	}()
	DeactivateSuspendedLeaf(&frame)
}

func TestSuspendedFrameCookieIsStable(t *testing.T) {
	if SuspendedFrameCookie == nil {
		t.Fatalf("suspended frame cookie not published")
	}
	var frame Frame
	ActivateSuspendedLeaf(&frame)
	defer DeactivateSuspendedLeaf(&frame)
	// The frame's root word must equal the published cookie so external
	// tools can classify it with a single compare.
	if got := frame.stackRoot.Load(); got != SuspendedFrameCookie {
		t.Fatalf("leaf root word: want cookie %p, got %p", SuspendedFrameCookie, got)
	}
}
