// Package workload builds synthetic async task graphs for exercising and
// demonstrating the strand runtime: nested logical calls, timer parks,
// child fanout and deliberately stranded tasks that stay visible as
// suspended leaves.
package workload

import (
	"fmt"

	"strand/asyncstack"
	"strand/internal/config"
	"strand/internal/executor"
)

// Result summarizes one completed scenario run.
type Result struct {
	Spawned   int
	Completed int
	Stranded  int
	FinalMs   uint64
}

// Build translates a scenario config into an executor populated with
// ready tasks. The caller owns driving the executor.
func Build(exec *executor.Executor, cfg config.WorkloadConfig) {
	for i := 0; i < cfg.Tasks; i++ {
		spawnTopLevel(exec, cfg, i)
	}
	for i := 0; i < cfg.Stranded; i++ {
		id := i
		exec.Spawn(func(ctx *executor.TaskContext) executor.PollOutcome {
			if ctx.Cancelled() {
				return executor.PollOutcome{Kind: executor.PollCancelled}
			}
			// Park on an event key nothing ever fires: the task stays a
			// suspended leaf for the life of the run.
			return executor.PollOutcome{
				Kind:    executor.PollParked,
				ParkKey: executor.EventKey(uint64(id)),
			}
		})
	}
}

// Run builds the workload, drives the executor until idle, and reports.
func Run(exec *executor.Executor, cfg config.WorkloadConfig) Result {
	Build(exec, cfg)
	exec.RunUntilIdle()
	return Summarize(exec)
}

// Summarize drains the executor and counts task outcomes. Callers that
// want to snapshot suspended leaves must do so before calling it, since
// draining deactivates them.
func Summarize(exec *executor.Executor) Result {
	res := Result{FinalMs: exec.NowMs()}
	for _, task := range exec.Drain() {
		res.Spawned++
		switch task.Status {
		case executor.TaskDone:
			res.Completed++
		default:
			res.Stranded++
		}
	}
	return res
}

func spawnTopLevel(exec *executor.Executor, cfg config.WorkloadConfig, n int) {
	remaining := cfg.Parks
	spawnedChildren := false
	exec.Spawn(func(ctx *executor.TaskContext) executor.PollOutcome {
		if ctx.Cancelled() {
			return executor.PollOutcome{Kind: executor.PollCancelled}
		}
		if !spawnedChildren {
			spawnedChildren = true
			for c := 0; c < cfg.Fanout; c++ {
				spawnChild(ctx, cfg)
			}
		}
		if remaining > 0 {
			remaining--
			return executor.PollOutcome{
				Kind:    executor.PollParked,
				ParkKey: ctx.Sleep(cfg.SleepMs),
			}
		}
		value := compute(ctx, cfg.Depth, n)
		return executor.PollOutcome{Kind: executor.PollDone, Value: value}
	})
}

func spawnChild(ctx *executor.TaskContext, cfg config.WorkloadConfig) {
	remaining := cfg.Parks
	ctx.Executor().Spawn(func(child *executor.TaskContext) executor.PollOutcome {
		if child.Cancelled() {
			return executor.PollOutcome{Kind: executor.PollCancelled}
		}
		if remaining > 0 {
			remaining--
			return executor.PollOutcome{
				Kind:    executor.PollParked,
				ParkKey: child.Sleep(cfg.SleepMs),
			}
		}
		return executor.PollOutcome{Kind: executor.PollDone, Value: compute(child, cfg.Depth, 0)}
	})
}

// compute burns a little work under depth nested logical frames, so a
// snapshot taken mid-poll shows a chain deeper than one frame.
func compute(ctx *executor.TaskContext, depth, seed int) string {
	acc := seed
	var descend func(level int)
	descend = func(level int) {
		if level <= 0 {
			acc = acc*31 + level
			return
		}
		var frame asyncstack.Frame
		ctx.Call(&frame, func() {
			acc = acc*31 + level
			descend(level - 1)
		})
	}
	descend(depth)
	return fmt.Sprintf("task-%d:%d", seed, acc)
}
