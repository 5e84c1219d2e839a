package executor

import (
	"fmt"
	"runtime"
	"time"

	"strand/asyncstack"
	"strand/internal/trace"
)

// TaskContext is handed to a task's PollFunc for the duration of one poll.
type TaskContext struct {
	exec *Executor
	task *Task
}

// Executor returns the executor polling the task.
func (c *TaskContext) Executor() *Executor {
	return c.exec
}

// TaskID returns the identity of the task being polled.
func (c *TaskContext) TaskID() TaskID {
	return c.task.ID
}

// Cancelled reports whether the task has been cancelled.
func (c *TaskContext) Cancelled() bool {
	return c.task.Cancelled
}

// Frame returns the task's logical stack frame.
func (c *TaskContext) Frame() *asyncstack.Frame {
	return &c.task.frame
}

// Sleep schedules a timer for the task and returns the park key to wait
// on. The caller's PollFunc should return PollParked with this key.
func (c *TaskContext) Sleep(delayMs uint64) WakerKey {
	return c.exec.ScheduleTimer(c.task.ID, delayMs)
}

// Call runs fn as a logical sub-call of the task: callee is pushed onto
// the task's frame chain with the Call site as its return address, and
// popped when fn returns. Snapshots taken while fn runs see the nested
// frame.
//
//go:noinline
func (c *TaskContext) Call(callee *asyncstack.Frame, fn func()) {
	pc, _, _, _ := runtime.Caller(1)
	callee.SetReturnAddress(pc)
	top := asyncstack.GetCurrentRoot().TopFrame()
	asyncstack.PushFrameCallerCallee(top, callee)
	defer asyncstack.PopFrameCallee(callee)
	fn()
}

// pollOnce drives one task through one poll under a fresh stack root.
func (e *Executor) pollOnce(id TaskID) {
	task := e.tasks[id]
	if task == nil || task.Status == TaskDone {
		return
	}
	if asyncstack.IsSuspendedLeafActive(&task.frame) {
		asyncstack.DeactivateSuspendedLeaf(&task.frame)
	}
	// Tasks spawned without a poll body complete immediately.
	if task.Poll == nil {
		e.MarkDone(id, ResultSuccess, nil)
		return
	}
	task.Status = TaskRunning
	e.current = id
	e.emit(trace.ScopeRoot, "poll", taskDetail(id))

	var outcome PollOutcome
	asyncstack.ResumeWithNewRoot(&task.frame, func() {
		outcome = task.Poll(&TaskContext{exec: e, task: task})
		asyncstack.DeactivateFrame(&task.frame)
	})
	e.current = 0

	switch outcome.Kind {
	case PollDone:
		e.MarkDone(id, ResultSuccess, outcome.Value)
	case PollCancelled:
		e.MarkDone(id, ResultCancelled, outcome.Value)
	case PollYielded:
		asyncstack.ActivateSuspendedLeaf(&task.frame)
		e.emit(trace.ScopeLeaf, "leaf-activate", taskDetail(id))
		e.Yield(id)
	case PollParked:
		asyncstack.ActivateSuspendedLeaf(&task.frame)
		e.emit(trace.ScopeLeaf, "leaf-activate", taskDetail(id))
		e.parkTask(id, outcome.ParkKey)
	}
}

// RunUntilIdle polls tasks until no task is ready and no timer can make
// one ready. Tasks parked on external events stay parked; their frames
// remain enumerable as suspended leaves.
func (e *Executor) RunUntilIdle() {
	for {
		id, ok := e.NextReady()
		if !ok {
			deadline, haveTimer := e.nextTimerDeadline()
			if !haveTimer {
				return
			}
			e.clock.SleepUntilMs(deadline)
			e.fireDueTimers()
			continue
		}
		e.pollOnce(id)
	}
}

// Step polls at most one ready task and reports whether it did any work.
// Due timers fire before the ready queue is consulted; if nothing is
// ready but a timer is pending, Step sleeps to its deadline and retries.
func (e *Executor) Step() bool {
	e.fireDueTimers()
	id, ok := e.NextReady()
	if !ok {
		deadline, haveTimer := e.nextTimerDeadline()
		if !haveTimer {
			return false
		}
		e.clock.SleepUntilMs(deadline)
		e.fireDueTimers()
		id, ok = e.NextReady()
		if !ok {
			return false
		}
	}
	e.pollOnce(id)
	return true
}

// LiveTasks counts tasks that have not completed.
func (e *Executor) LiveTasks() int {
	live := 0
	for _, task := range e.tasks {
		if task.Status != TaskDone {
			live++
		}
	}
	return live
}

// StatusCounts tallies tasks by scheduling state.
func (e *Executor) StatusCounts() map[TaskStatus]int {
	counts := make(map[TaskStatus]int, 4)
	for _, task := range e.tasks {
		counts[task.Status]++
	}
	return counts
}

// NowMs returns current executor time in milliseconds.
func (e *Executor) NowMs() uint64 {
	return e.clock.NowMs()
}

func (e *Executor) emit(scope trace.Scope, name, detail string) {
	if !e.tracer.Enabled() {
		return
	}
	e.tracer.Emit(&trace.Event{
		Time:   time.Now(),
		Kind:   trace.KindPoint,
		Scope:  scope,
		Name:   name,
		Detail: detail,
	})
}

func taskDetail(id TaskID) string {
	return fmt.Sprintf("task %d", id)
}
