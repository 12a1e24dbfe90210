// Package engine is the embedder-facing boundary (spec.md §6): compiling an
// AST produced elsewhere into bytecode, running that bytecode on a fresh VM
// with the native prototype surface installed, and draining the resulting
// microtask queue.
//
// Grounded on go-dws's pkg/dwscript package, the thin public wrapper around
// internal/interp that keeps the interpreter's own package free of its
// evaluator's imports via an Options interface (internal/interp/options.go,
// wired up in internal/interp/runner.New/NewWithOptions). pkg/engine plays
// the identical role here: it wires internal/natives onto a fresh
// internal/vm, so internal/vm never imports internal/natives (natives
// itself builds on internal/vm).
package engine

import (
	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/compiler"
	"github.com/lumenjs/engine/internal/errors"
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/natives"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// Engine is one script-execution session: a VM with its prototype surface
// installed, ready to compile and run programs against a shared global
// object and string table. An Engine is not safe for concurrent use —
// spec.md §5 establishes the whole core as single-threaded cooperative, and
// that constraint is inherited from internal/vm.VM unchanged.
type Engine struct {
	vm *vm.VM
}

// options accumulates what New's functional Options configure before a VM
// (and its allocator) exist to apply a post-hoc setter to — the GC
// threshold/growth factor must be baked into heap.NewWithConfig at
// construction, not adjusted afterward.
type options struct {
	initialGCThreshold  int
	gcGrowthFactor      float64
	maxCallDepth        int
	microtaskBatchLimit int
}

// Option configures a new Engine (SPEC_FULL.md §A "Configuration"). Grounded
// on go-dws's functional-options pattern (CompilerOption, interp.Options);
// here the options are plain closures since there is only ever one concrete
// Engine type to configure, not an interface multiple callers implement
// differently.
type Option func(*options)

// WithConfig applies every tunable an EngineConfig carries (typically one
// loaded via LoadConfig). A zero-valued field in cfg leaves the matching
// default untouched.
func WithConfig(cfg EngineConfig) Option {
	return func(o *options) {
		if cfg.InitialGCThreshold > 0 {
			o.initialGCThreshold = cfg.InitialGCThreshold
		}
		if cfg.GCGrowthFactor > 0 {
			o.gcGrowthFactor = cfg.GCGrowthFactor
		}
		if cfg.MaxCallDepth > 0 {
			o.maxCallDepth = cfg.MaxCallDepth
		}
		if cfg.MicrotaskBatchLimit > 0 {
			o.microtaskBatchLimit = cfg.MicrotaskBatchLimit
		}
	}
}

// WithMaxCallDepth overrides the nested-call-depth bound directly, without
// going through an EngineConfig.
func WithMaxCallDepth(n int) Option {
	return func(o *options) { o.maxCallDepth = n }
}

// New builds an Engine: an allocator tuned by any WithConfig/WithMaxCallDepth
// options (or the built-in defaults otherwise), a VM over that allocator,
// and the full native prototype surface (Object, Function, Array, Number,
// Boolean, String, Symbol, Error and its subclasses, Promise, ArrayBuffer,
// the nine typed-array kinds, Math) installed onto its global object.
func New(opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	alloc := heap.NewWithConfig(o.initialGCThreshold, o.gcGrowthFactor)
	v := vm.NewWithAllocator(alloc)
	if o.maxCallDepth > 0 {
		v.SetMaxCallDepth(o.maxCallDepth)
	}
	if o.microtaskBatchLimit > 0 {
		v.SetMicrotaskBatchLimit(o.microtaskBatchLimit)
	}

	if err := natives.Install(v); err != nil {
		return nil, err
	}
	return &Engine{vm: v}, nil
}

// Compile compiles program against this Engine's string table (spec.md
// §4.2, §6.1), returning every diagnostic collected rather than stopping at
// the first (spec.md §7 "Failure semantics"). The returned
// *bytecode.CompiledFunction is only valid to Run on this same Engine —
// interned string/symbol ids inside it are meaningless against a different
// Engine's table.
func (e *Engine) Compile(program *ast.Program) (*bytecode.CompiledFunction, errors.CompileErrors) {
	return compiler.Compile(program, e.vm.Strings())
}

// Run executes a compiled top-level program to completion and returns its
// final value (spec.md §4.3). A thrown value that escapes every frame comes
// back as a *vm.RuntimeException; an engine-authored failure (compile
// mismatch, internal invariant violation) comes back as an
// *errors.EngineError. Run does not itself drain the microtask queue — call
// Drain afterward to run any reactions or async continuations the script
// scheduled (spec.md §4.3 "Promise driver").
func (e *Engine) Run(fn *bytecode.CompiledFunction) (value.Value, error) {
	return e.vm.RunProgram(fn)
}

// Drain pumps the microtask queue to fixpoint, or to EngineConfig's
// MicrotaskBatchLimit if one was set (spec.md §4.3 "Promise driver"). Call
// it after Run, and again after delivering any host callback that might
// settle a promise, per spec.md §4.3's "after every host-visible point" rule.
func (e *Engine) Drain() error {
	return e.vm.Drain()
}

// RejectedPromises reports every promise presently rejected with no
// rejection handler ever attached (SPEC_FULL.md §C.6). Call after Drain —
// a .catch() registered mid-drain already removes its promise from this
// set, so what remains is genuinely unhandled as of this call.
func (e *Engine) RejectedPromises() []vm.RejectedPromise {
	return e.vm.RejectedPromises()
}

// Global returns the engine's global object, the root an embedder reaches
// host bindings and script-defined top-level declarations through alike
// (spec.md §6.4 "Environment" — the core exposes no CLI or environment
// variables of its own, only this object).
func (e *Engine) Global() value.Value {
	return e.vm.GlobalsValue()
}

// Disassemble renders fn's instruction stream as text (SPEC_FULL.md §C.4),
// resolving interned string ids against this Engine's own table.
func (e *Engine) Disassemble(fn *bytecode.CompiledFunction) string {
	return bytecode.Disassemble(fn, e.vm.Strings().Resolve)
}

// Stats reports the allocator's current GC activity (SPEC_FULL.md §C.5).
func (e *Engine) Stats() heap.Stats {
	return e.vm.Alloc().Stats()
}
