package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"strand/internal/config"
	"strand/internal/executor"
	"strand/internal/prof"
	"strand/internal/snapshot"
	"strand/internal/trace"
	"strand/internal/workload"
)

var (
	runScenario   string
	runOut        string
	runParallel   int
	runNoSnapshot bool
	runCPUProfile string
	runMemProfile string
	runExecTrace  string
)

func init() {
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "path to scenario manifest (default: nearest strand.toml)")
	runCmd.Flags().StringVar(&runOut, "out", "", "write the stack snapshot to this msgpack file")
	runCmd.Flags().IntVar(&runParallel, "parallel", 1, "number of independent runs to drive concurrently")
	runCmd.Flags().BoolVar(&runNoSnapshot, "no-snapshot", false, "skip the final stack snapshot")
	runCmd.Flags().StringVar(&runCPUProfile, "cpuprofile", "", "write a CPU profile to this file")
	runCmd.Flags().StringVar(&runMemProfile, "memprofile", "", "write a heap profile to this file")
	runCmd.Flags().StringVar(&runExecTrace, "exectrace", "", "write a runtime execution trace to this file")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario and print its final logical stacks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if runParallel < 1 {
			return fmt.Errorf("--parallel must be at least 1, got %d", runParallel)
		}

		quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")

		scen, err := loadScenario(runScenario)
		if err != nil {
			return err
		}
		if scen.Path == "" && !quiet {
			fmt.Fprintln(cmd.ErrOrStderr(), config.NoManifestMessage())
		}

		if runCPUProfile != "" {
			if err := prof.StartCPU(runCPUProfile); err != nil {
				return err
			}
			defer prof.StopCPU()
		}
		if runExecTrace != "" {
			if err := prof.StartTrace(runExecTrace); err != nil {
				return err
			}
			defer prof.StopTrace()
		}

		tracer := trace.FromContext(cmd.Context())
		span := trace.Begin(tracer, trace.ScopeDriver, "run", 0).
			WithExtra("parallel", fmt.Sprint(runParallel))

		start := time.Now()
		if runParallel == 1 {
			err = runSingle(cmd, scen, tracer, quiet)
		} else {
			err = runParallelScenarios(cmd, scen, tracer, quiet)
		}
		span.End(scen.Path)
		if err != nil {
			return err
		}

		if runMemProfile != "" {
			if err := prof.WriteMem(runMemProfile); err != nil {
				return err
			}
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "elapsed: %s\n", time.Since(start).Round(time.Millisecond))
		}
		return nil
	},
}

// runSingle drives one executor to idle, snapshotting the surviving
// suspended leaves before the drain clears them.
func runSingle(cmd *cobra.Command, scen config.Scenario, tracer trace.Tracer, quiet bool) error {
	exec := executor.New(executorConfig(scen, tracer))
	workload.Build(exec, scen.Config.Workload)
	exec.RunUntilIdle()

	var snap snapshot.Snapshot
	if !runNoSnapshot {
		snap = snapshot.Capture()
	}
	res := workload.Summarize(exec)

	if !quiet {
		printResult(cmd, res)
	}
	if runNoSnapshot {
		return nil
	}

	if runOut != "" {
		if err := snap.WriteFile(runOut); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot written to %s\n", runOut)
		}
		return nil
	}

	snap.Render(cmd.OutOrStdout(), colorEnabled(cmd, os.Stdout))
	return nil
}

// runParallelScenarios runs the same scenario on independent executors,
// one goroutine each, and aggregates the results. Snapshots are skipped:
// concurrent runs interleave their leaves in the shared registry, so a
// per-run capture would mix them.
func runParallelScenarios(cmd *cobra.Command, scen config.Scenario, tracer trace.Tracer, quiet bool) error {
	results := make([]workload.Result, runParallel)

	var g errgroup.Group
	for i := 0; i < runParallel; i++ {
		i := i
		g.Go(func() error {
			cfg := executorConfig(scen, tracer)
			// Distinct seeds keep fuzz runs from replaying each other.
			cfg.Seed += uint64(i)
			exec := executor.New(cfg)
			results[i] = workload.Run(exec, scen.Config.Workload)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var total workload.Result
	for _, res := range results {
		total.Spawned += res.Spawned
		total.Completed += res.Completed
		total.Stranded += res.Stranded
		if res.FinalMs > total.FinalMs {
			total.FinalMs = res.FinalMs
		}
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%d runs:\n", runParallel)
		printResult(cmd, total)
	}
	return nil
}

func printResult(cmd *cobra.Command, res workload.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "spawned: %d  completed: %d  stranded: %d  virtual time: %dms\n",
		res.Spawned, res.Completed, res.Stranded, res.FinalMs)
}

// loadScenario resolves the manifest: an explicit path wins, otherwise
// the nearest strand.toml above the working directory, otherwise defaults.
func loadScenario(path string) (config.Scenario, error) {
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Scenario{}, err
	}
	return config.LoadOrDefault(wd)
}

func executorConfig(scen config.Scenario, tracer trace.Tracer) executor.Config {
	mode := executor.TimerModeVirtual
	if scen.Config.Executor.Timers == "real" {
		mode = executor.TimerModeReal
	}
	return executor.Config{
		Deterministic: scen.Config.Executor.Deterministic,
		Fuzz:          scen.Config.Executor.Fuzz,
		Seed:          scen.Config.Executor.Seed,
		TimerMode:     mode,
		Tracer:        tracer,
	}
}
