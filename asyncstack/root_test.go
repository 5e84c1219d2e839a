package asyncstack

import "testing"

func TestActivateDeactivateFrame(t *testing.T) {
	runOnFreshGoroutine(t, func(t *testing.T) {
		var scope ScopedRoot
		scope.Install()
		defer scope.Uninstall()

		var frame Frame
		scope.ActivateFrame(&frame)
		if got := scope.Root().TopFrame(); got != &frame {
			t.Fatalf("top frame: want %p, got %p", &frame, got)
		}
		state, root := frame.State()
		if state != FrameBound || root != scope.Root() {
			t.Fatalf("frame state: want bound to %p, got (%v, %p)", scope.Root(), state, root)
		}

		scope.Root().DeactivateFrame(&frame)
		if got := scope.Root().TopFrame(); got != nil {
			t.Fatalf("top frame after deactivate: want nil, got %p", got)
		}
		if state, _ := frame.State(); state != FrameUnset {
			t.Fatalf("frame state after deactivate: want %v, got %v", FrameUnset, state)
		}
	})
}

func TestPushPopFrameChain(t *testing.T) {
	runOnFreshGoroutine(t, func(t *testing.T) {
		var scope ScopedRoot
		scope.Install()
		defer scope.Uninstall()

		var caller, callee Frame
		scope.ActivateFrame(&caller)
		PushFrameCallerCallee(&caller, &callee)

		if got := scope.Root().TopFrame(); got != &callee {
			t.Fatalf("top frame after push: want %p, got %p", &callee, got)
		}
		if got := callee.Parent(); got != &caller {
			t.Fatalf("callee parent: want %p, got %p", &caller, got)
		}
		// Interior frames carry no root; only the leaf does.
		if state, _ := caller.State(); state != FrameUnset {
			t.Fatalf("caller state after push: want %v, got %v", FrameUnset, state)
		}

		PopFrameCallee(&callee)
		if got := scope.Root().TopFrame(); got != &caller {
			t.Fatalf("top frame after pop: want %p, got %p", &caller, got)
		}
		if state, root := caller.State(); state != FrameBound || root != scope.Root() {
			t.Fatalf("caller rebound: want bound to %p, got (%v, %p)", scope.Root(), state, root)
		}

		scope.Root().DeactivateFrame(&caller)
	})
}

func TestUninstallWithActiveFramePanics(t *testing.T) {
	runOnFreshGoroutine(t, func(t *testing.T) {
		var scope ScopedRoot
		scope.Install()
		var frame Frame
		scope.ActivateFrame(&frame)
		defer func() {
			if recover() == nil {
				t.Errorf("expected panic uninstalling root with active frame")
			}
			scope.Root().DeactivateFrame(&frame)
			scope.Uninstall()
		}()
		scope.Uninstall()
	})
}
