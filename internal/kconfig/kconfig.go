// Package kconfig holds the boot-time tunables the original implementation
// hard-coded as constants: the preemption quantum, the ST clock base, and
// the per-thread stack/heap sizing. Decoded from an optional YAML file,
// falling back to the spec's defaults when absent — grounded on the
// teacher's practice of a YAML-decoded settings struct with defaults behind
// an optional -config flag (cmd/cc's *-config consumers).
package kconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries every tunable named or implied by spec.md.
type Config struct {
	// SchedulerInterval is the fixed preemption quantum in ST ticks (§4.6).
	SchedulerInterval uint32 `yaml:"scheduler_interval"`
	// TimerHz is the ST periodic-interval clock base (§6: 32768 Hz).
	TimerHz uint32 `yaml:"timer_hz"`
	// StackSize is the size in bytes of each thread's dedicated stack
	// region (§3: "a dedicated downward-growing stack region").
	StackSize uint32 `yaml:"stack_size"`
	// HeapSize is the size in bytes of the process-wide heap (§6: the MC
	// remap leaves 0x2300_0000-0x2400_0000, 16 MiB, for the heap).
	HeapSize uint32 `yaml:"heap_size"`
}

// Default returns the built-in defaults matching spec.md's constants.
func Default() Config {
	return Config{
		SchedulerInterval: 10,
		TimerHz:           32768,
		StackSize:         4096,
		HeapSize:          16 << 20,
	}
}

// Load reads a YAML config file at path, overlaying it onto Default(). An
// empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("kconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("kconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}
