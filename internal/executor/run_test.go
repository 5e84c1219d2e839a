package executor

import (
	"runtime"
	"strings"
	"testing"

	"strand/asyncstack"
)

func TestCallPushesNestedFrame(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	var nested asyncstack.Frame
	var topDuringCall *asyncstack.Frame
	var parentDuringCall *asyncstack.Frame
	var topAfterCall *asyncstack.Frame
	exec.Spawn(func(ctx *TaskContext) PollOutcome {
		ctx.Call(&nested, func() {
			root := asyncstack.GetCurrentRoot()
			topDuringCall = root.TopFrame()
			parentDuringCall = nested.Parent()
		})
		topAfterCall = asyncstack.GetCurrentRoot().TopFrame()
		return PollOutcome{Kind: PollDone}
	})

	exec.RunUntilIdle()

	if topDuringCall != &nested {
		t.Fatalf("callee was not the top frame during Call")
	}
	if parentDuringCall == nil || parentDuringCall != topAfterCall {
		t.Fatalf("callee parent should be the task frame restored after Call")
	}
	if nested.ReturnAddress() == 0 {
		t.Fatalf("Call did not record a return address")
	}
	fn := runtime.FuncForPC(nested.ReturnAddress())
	if fn == nil || !strings.Contains(fn.Name(), "TestCallPushesNestedFrame") {
		t.Fatalf("return address does not resolve to the call site: %v", fn)
	}
}

func TestStepAdvancesTimersWhenIdle(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	slept := false
	id := exec.Spawn(func(ctx *TaskContext) PollOutcome {
		if !slept {
			slept = true
			return PollOutcome{Kind: PollParked, ParkKey: ctx.Sleep(20)}
		}
		return PollOutcome{Kind: PollDone}
	})

	steps := 0
	for exec.Step() {
		steps++
		if steps > 10 {
			t.Fatalf("step loop did not terminate")
		}
	}

	if got := exec.Task(id).Status; got != TaskDone {
		t.Fatalf("status: want %v, got %v", TaskDone, got)
	}
	if steps != 2 {
		t.Fatalf("steps: want 2, got %d", steps)
	}
}

func TestStatusCountsTallyStates(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	exec.Spawn(func(ctx *TaskContext) PollOutcome {
		return PollOutcome{Kind: PollDone}
	})
	exec.Spawn(func(ctx *TaskContext) PollOutcome {
		return PollOutcome{Kind: PollParked, ParkKey: EventKey(3)}
	})
	exec.RunUntilIdle()

	counts := exec.StatusCounts()
	if counts[TaskDone] != 1 || counts[TaskWaiting] != 1 {
		t.Fatalf("counts: want 1 done and 1 waiting, got %v", counts)
	}
	if exec.LiveTasks() != 1 {
		t.Fatalf("live tasks: want 1, got %d", exec.LiveTasks())
	}
}
