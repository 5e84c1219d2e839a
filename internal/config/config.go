// Package config loads strand scenario manifests (strand.toml).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const noManifestMessage = "no strand.toml found, using the built-in scenario\nspecify one explicitly with:\n  strand run --scenario path/to/strand.toml"

// Scenario is a loaded manifest together with its location.
type Scenario struct {
	Path   string
	Root   string
	Config Config
}

// Config is the TOML shape of a scenario manifest.
type Config struct {
	Executor ExecutorConfig `toml:"executor"`
	Workload WorkloadConfig `toml:"workload"`
}

// ExecutorConfig selects scheduling and timer behavior.
type ExecutorConfig struct {
	Deterministic bool   `toml:"deterministic"`
	Fuzz          bool   `toml:"fuzz"`
	Seed          uint64 `toml:"seed"`
	Timers        string `toml:"timers"` // "virtual" (default) or "real"
}

// WorkloadConfig shapes the synthetic async workload.
type WorkloadConfig struct {
	Tasks    int    `toml:"tasks"`     // top-level tasks to spawn
	Depth    int    `toml:"depth"`     // nested logical calls per task
	Parks    int    `toml:"parks"`     // timer parks per task before completing
	SleepMs  uint64 `toml:"sleep_ms"`  // timer delay per park
	Fanout   int    `toml:"fanout"`    // child tasks spawned per top-level task
	Stranded int    `toml:"stranded"`  // tasks left parked forever (visible as leaves)
	Failfast bool   `toml:"failfast"`  // cancel siblings when a child is cancelled
}

// Default returns the scenario used when no manifest is present.
func Default() Config {
	return Config{
		Executor: ExecutorConfig{Deterministic: true, Timers: "virtual"},
		Workload: WorkloadConfig{
			Tasks:   4,
			Depth:   3,
			Parks:   2,
			SleepMs: 5,
			Fanout:  2,
		},
	}
}

// Find walks up from startDir looking for a strand.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "strand.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses and validates a scenario manifest at path.
func Load(path string) (Scenario, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return Scenario{}, err
	}
	return Scenario{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

// LoadOrDefault loads the nearest manifest, or the default scenario when
// none exists.
func LoadOrDefault(startDir string) (Scenario, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Scenario{}, err
	}
	if !ok {
		return Scenario{Config: Default()}, nil
	}
	return Load(path)
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("workload") {
		return Config{}, fmt.Errorf("%s: missing [workload]", path)
	}
	if cfg.Workload.Tasks <= 0 {
		return Config{}, fmt.Errorf("%s: [workload].tasks must be positive", path)
	}
	if cfg.Workload.Depth < 0 || cfg.Workload.Parks < 0 || cfg.Workload.Fanout < 0 || cfg.Workload.Stranded < 0 {
		return Config{}, fmt.Errorf("%s: [workload] counts must be non-negative", path)
	}
	switch strings.TrimSpace(cfg.Executor.Timers) {
	case "", "virtual", "real":
		// supported
	default:
		return Config{}, fmt.Errorf("%s: [executor].timers must be \"virtual\" or \"real\"", path)
	}
	return cfg, nil
}

// NoManifestMessage explains how to point the CLI at a scenario.
func NoManifestMessage() string {
	return noManifestMessage
}
