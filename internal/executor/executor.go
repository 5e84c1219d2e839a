// Package executor runs async tasks on a single goroutine with a
// deterministic FIFO scheduler by default. Seeded fuzz scheduling is
// supported for reproducible interleavings.
//
// Every task embeds an asyncstack.Frame. The executor keeps the logical
// call stack honest: while a task is being polled its frame is active
// under a fresh asyncstack root; at any other point in a live task's life
// the frame is a suspended leaf, so stack dumps enumerate parked and
// queued work alike.
package executor

import (
	"math/rand"
	"runtime"

	"strand/asyncstack"
	"strand/internal/trace"
)

// TaskID identifies a spawned task.
type TaskID uint64

// TaskStatus describes task scheduling state.
type TaskStatus uint8

const (
	TaskReady TaskStatus = iota
	TaskRunning
	TaskWaiting
	TaskDone
)

// String returns the string representation of TaskStatus.
func (s TaskStatus) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskWaiting:
		return "waiting"
	case TaskDone:
		return "done"
	default:
		return "unknown"
	}
}

// ResultKind describes how a task completed.
type ResultKind uint8

const (
	ResultSuccess ResultKind = iota
	ResultCancelled
)

// PollOutcomeKind reports how a poll iteration completed.
type PollOutcomeKind uint8

const (
	// PollDone indicates the task completed.
	PollDone PollOutcomeKind = iota
	// PollCancelled indicates the task observed cancellation and stopped.
	PollCancelled
	// PollYielded indicates the task yielded and wants to run again.
	PollYielded
	// PollParked indicates the task is waiting on a waker key.
	PollParked
)

// PollOutcome describes the outcome of polling a task once.
type PollOutcome struct {
	Kind    PollOutcomeKind
	Value   any
	ParkKey WakerKey
}

// PollFunc advances a task to its next suspension or completion. It runs
// with the task's frame active under the executor's current stack root.
type PollFunc func(ctx *TaskContext) PollOutcome

// Task stores executor-visible task state.
type Task struct {
	ID            TaskID
	Poll          PollFunc
	ResultKind    ResultKind
	ResultValue   any
	Status        TaskStatus
	Cancelled     bool
	Detached      bool
	ScopeID       ScopeID
	ParentScopeID ScopeID
	Children      []TaskID

	frame asyncstack.Frame
}

// Frame returns the task's logical stack frame.
func (t *Task) Frame() *asyncstack.Frame {
	return &t.frame
}

// Config configures executor scheduling behavior.
type Config struct {
	Deterministic bool
	Fuzz          bool
	Seed          uint64
	TimerMode     TimerMode
	Tracer        trace.Tracer
}

// Executor schedules tasks and maintains their logical stack bookkeeping.
type Executor struct {
	cfg         Config
	nextID      TaskID
	nextScopeID uint64
	ready       []TaskID
	readySet    map[TaskID]struct{}
	tasks       map[TaskID]*Task
	scopes      map[ScopeID]*Scope
	waiters     map[WakerKey][]TaskID
	parked      map[TaskID]WakerKey
	current     TaskID
	rng         *rand.Rand
	tracer      trace.Tracer

	nowMs       uint64
	timers      timerHeap
	nextTimerID TimerID
	clock       Clock
}

// New constructs an executor with the provided configuration.
func New(cfg Config) *Executor {
	exec := &Executor{
		cfg:      cfg,
		nextID:   1,
		readySet: make(map[TaskID]struct{}),
		tasks:    make(map[TaskID]*Task),
		scopes:   make(map[ScopeID]*Scope),
		waiters:  make(map[WakerKey][]TaskID),
		parked:   make(map[TaskID]WakerKey),
		tracer:   cfg.Tracer,
	}
	if exec.tracer == nil {
		exec.tracer = trace.Nop
	}
	if cfg.Fuzz {
		seed := cfg.Seed
		if seed == 0 {
			seed = 1
		}
		exec.rng = rand.New(rand.NewSource(int64(seed))) //nolint:gosec // deterministic scheduler seed
	}
	switch cfg.TimerMode {
	case TimerModeReal:
		exec.clock = &RealClock{NowFunc: monotonicNowMs}
	default:
		exec.clock = &VirtualClock{ex: exec}
	}
	return exec
}

// Current returns the ID of the task being polled, or 0.
func (e *Executor) Current() TaskID {
	return e.current
}

// Task returns a task by ID.
func (e *Executor) Task(id TaskID) *Task {
	return e.tasks[id]
}

// Spawn registers a task as a logical child of the task being polled (or
// as a detached top-level task when no task is running) and enqueues it.
// The spawn call site becomes the child frame's return address.
//
//go:noinline
func (e *Executor) Spawn(poll PollFunc) TaskID {
	pc, _, _, _ := runtime.Caller(1)
	return e.SpawnAt(poll, pc)
}

// SpawnAt is Spawn with an explicit call-site PC, for drivers that capture
// their own context.
func (e *Executor) SpawnAt(poll PollFunc, pc uintptr) TaskID {
	id := e.nextID
	e.nextID++

	task := &Task{
		ID:     id,
		Poll:   poll,
		Status: TaskReady,
	}
	task.frame.SetReturnAddress(pc)
	if e.current != 0 {
		if parent := e.tasks[e.current]; parent != nil {
			parent.Children = append(parent.Children, id)
			task.frame.SetParent(parent.Frame())
		}
	} else {
		task.Detached = true
		task.frame.SetParent(asyncstack.GetDetachedRootFrame())
	}
	e.tasks[id] = task

	// A live task that is not being polled is a suspended leaf.
	asyncstack.ActivateSuspendedLeaf(&task.frame)
	e.emit(trace.ScopeTask, "spawn", taskDetail(id))
	e.enqueue(id)
	return id
}

// NextReady returns the next ready task according to scheduler policy.
func (e *Executor) NextReady() (TaskID, bool) {
	for len(e.ready) > 0 {
		idx := 0
		if e.cfg.Fuzz && e.rng != nil {
			idx = e.rng.Intn(len(e.ready))
		}
		id := e.ready[idx]
		copy(e.ready[idx:], e.ready[idx+1:])
		e.ready = e.ready[:len(e.ready)-1]
		delete(e.readySet, id)
		task := e.tasks[id]
		if task == nil || task.Status == TaskDone {
			continue
		}
		return id, true
	}
	return 0, false
}

// Wake enqueues a task if it is not done.
func (e *Executor) Wake(id TaskID) {
	task := e.tasks[id]
	if task == nil || task.Status == TaskDone {
		return
	}
	if key, ok := e.parked[id]; ok {
		e.removeWaiter(key, id)
		delete(e.parked, id)
	}
	e.emit(trace.ScopeTask, "wake", taskDetail(id))
	e.enqueue(id)
}

// Yield requeues a task after it voluntarily yielded.
func (e *Executor) Yield(id TaskID) {
	task := e.tasks[id]
	if task == nil || task.Status == TaskDone {
		return
	}
	e.enqueue(id)
}

// WakeKeyOne wakes the oldest task waiting on a key.
func (e *Executor) WakeKeyOne(key WakerKey) {
	if !key.IsValid() {
		return
	}
	waiters := e.waiters[key]
	if len(waiters) == 0 {
		return
	}
	id := waiters[0]
	waiters = waiters[1:]
	if len(waiters) == 0 {
		delete(e.waiters, key)
	} else {
		e.waiters[key] = waiters
	}
	delete(e.parked, id)
	e.Wake(id)
}

// WakeKeyAll wakes all tasks waiting on a key.
func (e *Executor) WakeKeyAll(key WakerKey) {
	if !key.IsValid() {
		return
	}
	waiters := e.waiters[key]
	if len(waiters) == 0 {
		return
	}
	delete(e.waiters, key)
	for _, id := range waiters {
		delete(e.parked, id)
		e.Wake(id)
	}
}

// MarkDone marks a task as completed and wakes join waiters. The task's
// frame must already be detached (the poll loop handles this).
func (e *Executor) MarkDone(id TaskID, kind ResultKind, result any) {
	task := e.tasks[id]
	if task == nil {
		return
	}
	task.ResultKind = kind
	task.ResultValue = result
	task.Status = TaskDone
	if key, ok := e.parked[id]; ok {
		e.removeWaiter(key, id)
		delete(e.parked, id)
	}
	if kind == ResultCancelled && task.ParentScopeID != 0 {
		if scope := e.scopes[task.ParentScopeID]; scope != nil && scope.Failfast && !scope.FailfastTriggered {
			scope.FailfastTriggered = true
			e.CancelAllChildren(scope.ID)
			if owner := e.tasks[scope.Owner]; owner != nil && owner.Status != TaskDone {
				e.Wake(scope.Owner)
			}
		}
	}
	e.emit(trace.ScopeTask, "done", taskDetail(id))
	e.WakeKeyAll(JoinKey(id))
}

// Cancel marks a task and its descendants as cancelled and wakes the task
// so it can observe the flag at its next poll.
func (e *Executor) Cancel(id TaskID) {
	e.cancelRecursive(id)
	e.Wake(id)
}

func (e *Executor) cancelRecursive(id TaskID) {
	task := e.tasks[id]
	if task == nil || task.Status == TaskDone {
		return
	}
	task.Cancelled = true
	for _, child := range task.Children {
		e.cancelRecursive(child)
	}
}

func (e *Executor) enqueue(id TaskID) {
	if _, ok := e.readySet[id]; ok {
		return
	}
	e.ready = append(e.ready, id)
	e.readySet[id] = struct{}{}
	if task := e.tasks[id]; task != nil && task.Status != TaskDone {
		task.Status = TaskReady
	}
}

func (e *Executor) parkTask(id TaskID, key WakerKey) {
	if !key.IsValid() {
		return
	}
	task := e.tasks[id]
	if task == nil || task.Status == TaskDone {
		return
	}
	if prev, ok := e.parked[id]; ok {
		if prev == key {
			task.Status = TaskWaiting
			return
		}
		e.removeWaiter(prev, id)
	}
	e.parked[id] = key
	e.waiters[key] = append(e.waiters[key], id)
	task.Status = TaskWaiting
	e.emit(trace.ScopeTask, "park", taskDetail(id))
}

func (e *Executor) removeWaiter(key WakerKey, id TaskID) {
	waiters := e.waiters[key]
	for i, waiter := range waiters {
		if waiter == id {
			copy(waiters[i:], waiters[i+1:])
			waiters = waiters[:len(waiters)-1]
			break
		}
	}
	if len(waiters) == 0 {
		delete(e.waiters, key)
		return
	}
	e.waiters[key] = waiters
}

// Drain detaches the frames of all unfinished tasks from the leaf
// registry, returns every task, and resets the executor queues.
func (e *Executor) Drain() []*Task {
	tasks := make([]*Task, 0, len(e.tasks))
	for _, task := range e.tasks {
		if asyncstack.IsSuspendedLeafActive(&task.frame) {
			asyncstack.DeactivateSuspendedLeaf(&task.frame)
		}
		tasks = append(tasks, task)
	}
	e.tasks = make(map[TaskID]*Task)
	clear(e.scopes)
	e.ready = nil
	clear(e.readySet)
	clear(e.waiters)
	clear(e.parked)
	e.timers = nil
	e.nextScopeID = 0
	e.current = 0
	return tasks
}
