package executor

import (
	"fmt"
	"testing"
)

func TestScopeExitPanicsOnLiveChildren(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	owner := exec.Spawn(nil)
	scopeID := exec.EnterScope(owner, false)
	child := exec.Spawn(nil)
	exec.RegisterChild(scopeID, child)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic on scope exit with live children")
		}
		msg := fmt.Sprint(r)
		want := fmt.Sprintf("scope %d exited with live children: [%d]", scopeID, child)
		if msg != want {
			t.Fatalf("panic mismatch: want %q, got %q", want, msg)
		}
	}()

	exec.ExitScope(scopeID)
}

func TestScopeExitAfterChildrenComplete(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	owner := exec.Spawn(nil)
	scopeID := exec.EnterScope(owner, false)
	child := exec.Spawn(func(ctx *TaskContext) PollOutcome {
		return PollOutcome{Kind: PollDone}
	})
	exec.RegisterChild(scopeID, child)

	exec.pollOnce(child)

	done, pending, failfast := exec.JoinAllChildren(scopeID)
	if !done || pending != 0 || failfast {
		t.Fatalf("join: want done with no pending, got done=%v pending=%d failfast=%v", done, pending, failfast)
	}
	exec.ExitScope(scopeID)

	if exec.Task(owner).ScopeID != 0 {
		t.Fatalf("scope exit did not clear owner's scope id")
	}
}

func TestFailfastCancelsSiblingsOnChildCancel(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	owner := exec.Spawn(nil)
	scopeID := exec.EnterScope(owner, true)

	spawnChild := func(key WakerKey) TaskID {
		id := exec.Spawn(func(ctx *TaskContext) PollOutcome {
			if ctx.Cancelled() {
				return PollOutcome{Kind: PollCancelled}
			}
			return PollOutcome{Kind: PollParked, ParkKey: key}
		})
		exec.RegisterChild(scopeID, id)
		return id
	}
	victim := spawnChild(EventKey(1))
	sibling := spawnChild(EventKey(2))

	exec.RunUntilIdle()
	exec.Cancel(victim)
	exec.Wake(sibling)
	exec.RunUntilIdle()

	if got := exec.Task(sibling).ResultKind; got != ResultCancelled {
		t.Fatalf("sibling result: want %v, got %v", ResultCancelled, got)
	}
	done, _, failfast := exec.JoinAllChildren(scopeID)
	if !done || !failfast {
		t.Fatalf("join after failfast: want done with failfast, got done=%v failfast=%v", done, failfast)
	}
}
