package workload

import (
	"testing"

	"strand/internal/config"
	"strand/internal/executor"
)

func TestRunCompletesConfiguredGraph(t *testing.T) {
	exec := executor.New(executor.Config{Deterministic: true})
	cfg := config.WorkloadConfig{
		Tasks:   3,
		Depth:   2,
		Parks:   2,
		SleepMs: 5,
		Fanout:  2,
	}

	res := Run(exec, cfg)

	wantSpawned := cfg.Tasks * (1 + cfg.Fanout)
	if res.Spawned != wantSpawned {
		t.Fatalf("spawned: want %d, got %d", wantSpawned, res.Spawned)
	}
	if res.Completed != wantSpawned {
		t.Fatalf("completed: want %d, got %d", wantSpawned, res.Completed)
	}
	if res.Stranded != 0 {
		t.Fatalf("stranded: want 0, got %d", res.Stranded)
	}
	if res.FinalMs < cfg.SleepMs*uint64(cfg.Parks) {
		t.Fatalf("virtual time: want >= %dms, got %dms", cfg.SleepMs*uint64(cfg.Parks), res.FinalMs)
	}
}

func TestRunCountsStrandedTasks(t *testing.T) {
	exec := executor.New(executor.Config{Deterministic: true})
	cfg := config.WorkloadConfig{Tasks: 1, Stranded: 4}

	res := Run(exec, cfg)

	if res.Completed != 1 {
		t.Fatalf("completed: want 1, got %d", res.Completed)
	}
	if res.Stranded != 4 {
		t.Fatalf("stranded: want 4, got %d", res.Stranded)
	}
}

func TestRunIsDeterministicAcrossExecutors(t *testing.T) {
	cfg := config.WorkloadConfig{Tasks: 4, Depth: 3, Parks: 1, SleepMs: 7, Fanout: 2}

	run := func() Result {
		return Run(executor.New(executor.Config{Deterministic: true}), cfg)
	}
	first := run()
	second := run()
	if first != second {
		t.Fatalf("deterministic runs diverged: %+v vs %+v", first, second)
	}
}
