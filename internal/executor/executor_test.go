package executor

import (
	"testing"

	"strand/asyncstack"
)

func doneOutcome() PollOutcome {
	return PollOutcome{Kind: PollDone}
}

func TestSpawnActivatesSuspendedLeaf(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	id := exec.Spawn(func(ctx *TaskContext) PollOutcome {
		return doneOutcome()
	})

	task := exec.Task(id)
	if task == nil {
		t.Fatalf("task %d not registered", id)
	}
	if task.Status != TaskReady {
		t.Fatalf("status: want %v, got %v", TaskReady, task.Status)
	}
	if !asyncstack.IsSuspendedLeafActive(task.Frame()) {
		t.Fatalf("spawned task frame is not a suspended leaf")
	}
	if !task.Detached {
		t.Fatalf("top-level task should be detached")
	}
	if task.Frame().Parent() != asyncstack.GetDetachedRootFrame() {
		t.Fatalf("top-level task frame should chain to the detached root frame")
	}
	if task.Frame().ReturnAddress() == 0 {
		t.Fatalf("spawn did not record a return address")
	}

	exec.RunUntilIdle()

	if task.Status != TaskDone {
		t.Fatalf("status after run: want %v, got %v", TaskDone, task.Status)
	}
	if asyncstack.IsSuspendedLeafActive(task.Frame()) {
		t.Fatalf("completed task frame still registered as a leaf")
	}
}

func TestSpawnChildChainsToParentFrame(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	var childID TaskID
	parentID := exec.Spawn(func(ctx *TaskContext) PollOutcome {
		if childID == 0 {
			childID = ctx.Executor().Spawn(func(ctx *TaskContext) PollOutcome {
				return doneOutcome()
			})
		}
		return doneOutcome()
	})

	exec.RunUntilIdle()

	if childID == 0 {
		t.Fatalf("parent never spawned a child")
	}
	parent := exec.Task(parentID)
	child := exec.Task(childID)
	if child.Detached {
		t.Fatalf("child spawned during a poll should not be detached")
	}
	if child.Frame().Parent() != parent.Frame() {
		t.Fatalf("child frame parent should be the parent task frame")
	}
	if len(parent.Children) != 1 || parent.Children[0] != childID {
		t.Fatalf("parent children: want [%d], got %v", childID, parent.Children)
	}
}

func TestFrameActiveOnlyDuringPoll(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	var sawRoot bool
	var sawTop bool
	exec.Spawn(func(ctx *TaskContext) PollOutcome {
		root := asyncstack.TryGetCurrentRoot()
		sawRoot = root != nil
		sawTop = root != nil && root.TopFrame() == ctx.Frame()
		return doneOutcome()
	})

	exec.RunUntilIdle()

	if !sawRoot {
		t.Fatalf("poll ran without a current stack root")
	}
	if !sawTop {
		t.Fatalf("task frame was not the top frame during its poll")
	}
	if got := asyncstack.TryGetCurrentRoot(); got != nil {
		t.Fatalf("stack root leaked after run: %p", got)
	}
}

func TestParkedTaskStaysEnumerableAsLeaf(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	key := EventKey(7)
	polls := 0
	id := exec.Spawn(func(ctx *TaskContext) PollOutcome {
		polls++
		if polls == 1 {
			return PollOutcome{Kind: PollParked, ParkKey: key}
		}
		return doneOutcome()
	})

	exec.RunUntilIdle()

	task := exec.Task(id)
	if task.Status != TaskWaiting {
		t.Fatalf("status: want %v, got %v", TaskWaiting, task.Status)
	}
	if !asyncstack.IsSuspendedLeafActive(task.Frame()) {
		t.Fatalf("parked task frame should be a suspended leaf")
	}

	exec.WakeKeyOne(key)
	exec.RunUntilIdle()

	if task.Status != TaskDone {
		t.Fatalf("status after wake: want %v, got %v", TaskDone, task.Status)
	}
	if polls != 2 {
		t.Fatalf("polls: want 2, got %d", polls)
	}
}

func TestSleepAdvancesVirtualClock(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	const delayMs = 250
	slept := false
	id := exec.Spawn(func(ctx *TaskContext) PollOutcome {
		if !slept {
			slept = true
			return PollOutcome{Kind: PollParked, ParkKey: ctx.Sleep(delayMs)}
		}
		return doneOutcome()
	})

	exec.RunUntilIdle()

	if got := exec.Task(id).Status; got != TaskDone {
		t.Fatalf("status: want %v, got %v", TaskDone, got)
	}
	if now := exec.NowMs(); now < delayMs {
		t.Fatalf("virtual clock did not advance: now=%dms, want >= %dms", now, delayMs)
	}
}

func TestTimersFireInDeadlineOrder(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	var order []string
	spawnSleeper := func(name string, delayMs uint64) {
		slept := false
		exec.Spawn(func(ctx *TaskContext) PollOutcome {
			if !slept {
				slept = true
				return PollOutcome{Kind: PollParked, ParkKey: ctx.Sleep(delayMs)}
			}
			order = append(order, name)
			return doneOutcome()
		})
	}
	spawnSleeper("slow", 50)
	spawnSleeper("fast", 10)

	exec.RunUntilIdle()

	if len(order) != 2 || order[0] != "fast" || order[1] != "slow" {
		t.Fatalf("wake order: want [fast slow], got %v", order)
	}
}

func TestCancelPropagatesToDescendants(t *testing.T) {
	exec := New(Config{Deterministic: true})
	defer exec.Drain()

	childKey := EventKey(1)
	var childID TaskID
	parentID := exec.Spawn(func(ctx *TaskContext) PollOutcome {
		if ctx.Cancelled() {
			return PollOutcome{Kind: PollCancelled}
		}
		if childID == 0 {
			childID = ctx.Executor().Spawn(func(ctx *TaskContext) PollOutcome {
				if ctx.Cancelled() {
					return PollOutcome{Kind: PollCancelled}
				}
				return PollOutcome{Kind: PollParked, ParkKey: childKey}
			})
		}
		return PollOutcome{Kind: PollParked, ParkKey: EventKey(2)}
	})

	exec.RunUntilIdle()
	exec.Cancel(parentID)
	exec.Wake(childID)
	exec.RunUntilIdle()

	for _, id := range []TaskID{parentID, childID} {
		task := exec.Task(id)
		if task.Status != TaskDone {
			t.Fatalf("task %d status: want %v, got %v", id, TaskDone, task.Status)
		}
		if task.ResultKind != ResultCancelled {
			t.Fatalf("task %d result: want %v, got %v", id, ResultCancelled, task.ResultKind)
		}
	}
}

func TestFuzzSchedulingIsReproducible(t *testing.T) {
	runOrder := func(seed uint64) []TaskID {
		exec := New(Config{Fuzz: true, Seed: seed})
		defer exec.Drain()

		var order []TaskID
		for i := 0; i < 16; i++ {
			exec.Spawn(func(ctx *TaskContext) PollOutcome {
				order = append(order, ctx.TaskID())
				return doneOutcome()
			})
		}
		exec.RunUntilIdle()
		return order
	}

	first := runOrder(42)
	second := runOrder(42)
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order diverged at %d: %v vs %v", i, first, second)
		}
	}
}

func TestDrainDetachesLeafFrames(t *testing.T) {
	exec := New(Config{Deterministic: true})

	id := exec.Spawn(func(ctx *TaskContext) PollOutcome {
		return PollOutcome{Kind: PollParked, ParkKey: EventKey(9)}
	})
	exec.RunUntilIdle()

	task := exec.Task(id)
	if !asyncstack.IsSuspendedLeafActive(task.Frame()) {
		t.Fatalf("parked task frame should be a leaf before drain")
	}

	tasks := exec.Drain()
	if len(tasks) != 1 {
		t.Fatalf("drained tasks: want 1, got %d", len(tasks))
	}
	if asyncstack.IsSuspendedLeafActive(tasks[0].Frame()) {
		t.Fatalf("drain left a frame in the leaf registry")
	}
	if exec.LiveTasks() != 0 {
		t.Fatalf("drain did not reset task table")
	}
}
