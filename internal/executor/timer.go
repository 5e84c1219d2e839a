package executor

import "container/heap"

// TimerID identifies a scheduled timer.
type TimerID uint64

// Timer represents a single scheduled wakeup.
type Timer struct {
	id         TimerID
	deadlineMs uint64
	key        WakerKey
	taskID     TaskID
	cancelled  bool
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadlineMs == h[j].deadlineMs {
		return h[i].id < h[j].id
	}
	return h[i].deadlineMs < h[j].deadlineMs
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	timer, ok := x.(*Timer)
	if !ok || timer == nil {
		return
	}
	*h = append(*h, timer)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	if n == 0 {
		return (*Timer)(nil)
	}
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// ScheduleTimer schedules a wakeup for taskID once delayMs has elapsed and
// returns the key the task should park on.
func (e *Executor) ScheduleTimer(taskID TaskID, delayMs uint64) WakerKey {
	e.nextTimerID++
	id := e.nextTimerID
	timer := &Timer{
		id:         id,
		deadlineMs: e.clock.NowMs() + delayMs,
		key:        TimerKey(id),
		taskID:     taskID,
	}
	heap.Push(&e.timers, timer)
	return timer.key
}

// CancelTimer prevents a scheduled timer from firing.
func (e *Executor) CancelTimer(id TimerID) {
	for _, timer := range e.timers {
		if timer.id == id {
			timer.cancelled = true
			return
		}
	}
}

// nextTimerDeadline returns the earliest live timer deadline.
func (e *Executor) nextTimerDeadline() (uint64, bool) {
	for len(e.timers) > 0 {
		if e.timers[0].cancelled {
			heap.Pop(&e.timers)
			continue
		}
		return e.timers[0].deadlineMs, true
	}
	return 0, false
}

// fireDueTimers wakes every task whose timer deadline has passed.
func (e *Executor) fireDueTimers() {
	now := e.clock.NowMs()
	for len(e.timers) > 0 {
		timer := e.timers[0]
		if timer.cancelled {
			heap.Pop(&e.timers)
			continue
		}
		if timer.deadlineMs > now {
			return
		}
		heap.Pop(&e.timers)
		e.WakeKeyAll(timer.key)
	}
}
