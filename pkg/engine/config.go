package engine

import (
	"io"

	"github.com/goccy/go-yaml"
)

// EngineConfig collects the tunables spec.md leaves implementation-defined:
// the allocator's GC threshold/growth factor (§3.5, §4.4) and the nested
// call-depth bound standing in for §4.3's MAX_STACK_SIZE (a call recurses
// through Go's own stack rather than a shared frame slice here, so depth is
// the bound that actually matters — see internal/vm.VM.callDepth).
//
// Grounded on go-dws's functional-options configuration style
// (internal/interp.Options), generalized per SPEC_FULL.md §A to also load
// from YAML via github.com/goccy/go-yaml, since an embedder tuning GC
// behavior for a long-lived process is a config-file concern as much as an
// in-process one.
type EngineConfig struct {
	// InitialGCThreshold is the live-node count at which the allocator
	// first considers collecting (heap.NewWithConfig's initialThreshold).
	// Zero falls back to the allocator's built-in default.
	InitialGCThreshold int `yaml:"initial_gc_threshold"`

	// GCGrowthFactor multiplies the threshold each time a collection still
	// leaves the heap at or above it. Zero (or <=1.0) falls back to the
	// allocator's built-in default.
	GCGrowthFactor float64 `yaml:"gc_growth_factor"`

	// MaxCallDepth bounds nested user-function calls before RangeError
	// "Maximum call stack size exceeded" is raised. Zero keeps the VM's
	// built-in default of 2048.
	MaxCallDepth int `yaml:"max_call_depth"`

	// MicrotaskBatchLimit bounds how many queued microtasks Drain will run
	// in a single call before returning, so a reaction that keeps
	// scheduling more of itself cannot wedge an embedder's event loop
	// indefinitely inside one Drain call. Zero means unbounded (drain to
	// fixpoint, spec.md §4.3's default "Promise driver" behavior).
	MicrotaskBatchLimit int `yaml:"microtask_batch_limit"`
}

// LoadConfig reads an EngineConfig from YAML (SPEC_FULL.md §A
// "Configuration"). Any field absent from the document keeps its Go zero
// value, which every consumer of EngineConfig already treats as "use the
// built-in default" rather than as an invalid value.
func LoadConfig(r io.Reader) (EngineConfig, error) {
	var cfg EngineConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return EngineConfig{}, err
	}
	return cfg, nil
}
