package asyncstack

import (
	"sync"
	"testing"
)

// runOnFreshGoroutine executes fn on its own goroutine and waits for it,
// so each scenario starts with no installed root.
func runOnFreshGoroutine(t *testing.T, fn func(t *testing.T)) {
	t.Helper()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn(t)
	}()
	wg.Wait()
}

func TestTryGetCurrentRootFreshGoroutine(t *testing.T) {
	runOnFreshGoroutine(t, func(t *testing.T) {
		if root := TryGetCurrentRoot(); root != nil {
			t.Fatalf("fresh goroutine should have no root, got %p", root)
		}
	})
}

func TestScopedRootInstallUninstall(t *testing.T) {
	runOnFreshGoroutine(t, func(t *testing.T) {
		var scope ScopedRoot
		scope.Install()
		if got := TryGetCurrentRoot(); got != scope.Root() {
			t.Fatalf("current root mismatch: want %p, got %p", scope.Root(), got)
		}
		if pc := scope.Root().StackFrameContext(); pc == 0 {
			t.Fatalf("installed root has no native context")
		}
		scope.Uninstall()
		if got := TryGetCurrentRoot(); got != nil {
			t.Fatalf("root still current after uninstall: %p", got)
		}
	})
}

func TestScopedRootNestingIsLIFO(t *testing.T) {
	runOnFreshGoroutine(t, func(t *testing.T) {
		var outer, inner ScopedRoot
		outer.Install()
		inner.Install()

		if got := TryGetCurrentRoot(); got != inner.Root() {
			t.Fatalf("inner root not current: want %p, got %p", inner.Root(), got)
		}
		if got := inner.Root().NextRoot(); got != outer.Root() {
			t.Fatalf("inner.nextRoot: want %p, got %p", outer.Root(), got)
		}

		inner.Uninstall()
		if got := TryGetCurrentRoot(); got != outer.Root() {
			t.Fatalf("outer root not restored: want %p, got %p", outer.Root(), got)
		}
		outer.Uninstall()
		if got := TryGetCurrentRoot(); got != nil {
			t.Fatalf("expected empty root stack, got %p", got)
		}
	})
}

func TestScopedRootUninstallOutOfOrderPanics(t *testing.T) {
	runOnFreshGoroutine(t, func(t *testing.T) {
		var outer, inner ScopedRoot
		outer.Install()
		inner.Install()
		defer func() {
			if recover() == nil {
				t.Errorf("expected panic on out-of-order uninstall")
			}
			// Unwind properly so the goroutine leaves no root behind.
			inner.Uninstall()
			outer.Uninstall()
		}()
		outer.Uninstall()
	})
}

func TestGetCurrentRootPanicsWithoutRoot(t *testing.T) {
	runOnFreshGoroutine(t, func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Errorf("expected panic from GetCurrentRoot with no root installed")
			}
		}()
		GetCurrentRoot()
	})
}

func TestExchangeCurrentRoot(t *testing.T) {
	runOnFreshGoroutine(t, func(t *testing.T) {
		var a, b Root
		if prev := ExchangeCurrentRoot(&a); prev != nil {
			t.Fatalf("expected no previous root, got %p", prev)
		}
		if prev := ExchangeCurrentRoot(&b); prev != &a {
			t.Fatalf("exchange previous: want %p, got %p", &a, prev)
		}
		if got := GetCurrentRoot(); got != &b {
			t.Fatalf("current after exchange: want %p, got %p", &b, got)
		}
		if prev := ExchangeCurrentRoot(nil); prev != &b {
			t.Fatalf("final exchange previous: want %p, got %p", &b, prev)
		}
		if got := TryGetCurrentRoot(); got != nil {
			t.Fatalf("expected no root after clearing, got %p", got)
		}
	})
}

func TestSweepGoroutineRootsSeesInstalledRoot(t *testing.T) {
	installed := make(chan *Root)
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		var scope ScopedRoot
		scope.Install()
		defer scope.Uninstall()
		installed <- scope.Root()
		<-release
	}()

	want := <-installed
	found := false
	SweepGoroutineRoots(func(gid uint64, root *Root) {
		if root == want {
			if gid == 0 {
				t.Errorf("swept root has zero goroutine ID")
			}
			found = true
		}
	})
	close(release)
	<-done
	if !found {
		t.Fatalf("sweep did not observe installed root %p", want)
	}
}
