package main

import (
	"fmt"
	"runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"strand/asyncstack"
	"strand/internal/config"
	"strand/internal/executor"
	"strand/internal/trace"
	"strand/internal/ui"
	"strand/internal/workload"
)

var (
	watchScenario string
	watchInterval time.Duration
	watchSlowMs   int
)

func init() {
	watchCmd.Flags().StringVar(&watchScenario, "scenario", "", "path to scenario manifest (default: nearest strand.toml)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 100*time.Millisecond, "sampling interval")
	watchCmd.Flags().IntVar(&watchSlowMs, "slow-ms", 5, "artificial delay per scheduler step, for observability")
}

const watchLeafLimit = 8

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a scenario with a live view of tasks and suspended leaves",
	RunE: func(cmd *cobra.Command, args []string) error {
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		scen, err := loadScenario(watchScenario)
		if err != nil {
			return err
		}

		samples := make(chan ui.Sample, 1)
		go driveWatched(scen.Config, trace.FromContext(cmd.Context()), samples)

		model := ui.NewWatchModel("strand watch", samples)
		prog := tea.NewProgram(model, tea.WithOutput(cmd.OutOrStdout()))
		if _, err := prog.Run(); err != nil {
			return fmt.Errorf("watch ui: %w", err)
		}
		return nil
	},
}

// driveWatched steps the executor on its own goroutine and publishes
// periodic samples. Closing the channel signals the UI that the run is
// idle.
func driveWatched(cfg config.Config, tracer trace.Tracer, samples chan<- ui.Sample) {
	defer close(samples)
	span := trace.Begin(tracer, trace.ScopeDriver, "watch", 0)
	defer span.End("")

	exec := executor.New(executor.Config{
		Deterministic: cfg.Executor.Deterministic,
		Fuzz:          cfg.Executor.Fuzz,
		Seed:          cfg.Executor.Seed,
		TimerMode:     executor.TimerModeVirtual,
		Tracer:        tracer,
	})
	workload.Build(exec, cfg.Workload)

	lastSample := time.Time{}
	for exec.Step() {
		if watchSlowMs > 0 {
			time.Sleep(time.Duration(watchSlowMs) * time.Millisecond)
		}
		if time.Since(lastSample) >= watchInterval {
			publishSample(exec, samples)
			lastSample = time.Now()
		}
	}
	publishSample(exec, samples)
	exec.Drain()
}

func publishSample(exec *executor.Executor, samples chan<- ui.Sample) {
	counts := exec.StatusCounts()
	s := ui.Sample{
		NowMs:   exec.NowMs(),
		Ready:   counts[executor.TaskReady],
		Waiting: counts[executor.TaskWaiting],
		Done:    counts[executor.TaskDone],
	}

	asyncstack.SweepGoroutineRoots(func(gid uint64, root *asyncstack.Root) {
		s.Roots++
	})
	asyncstack.SweepSuspendedLeafFrames(func(frame *asyncstack.Frame) {
		s.Leaves++
		if len(s.TopLeaves) < watchLeafLimit {
			if fn := runtime.FuncForPC(frame.ReturnAddress()); fn != nil {
				s.TopLeaves = append(s.TopLeaves, fn.Name())
			}
		}
	})

	// Drop the sample rather than stall the scheduler when the UI lags.
	select {
	case samples <- s:
	default:
	}
}
