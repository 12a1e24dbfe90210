package vm

import (
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
)

// microtask is one queued job of the promise driver (spec.md §4.3 "Promise
// driver"): a zero-argument closure the VM runs to fixpoint on Drain.
// Grounded on the "reaction" shape internal/object.Reaction already
// describes; the queue itself holds the already-bound closures rather than
// raw Reaction values so settling a promise and reacting to it stay
// decoupled (a .then() callback may itself schedule more microtasks).
type microtask func(v *VM) error

// VM executes compiled bytecode (spec.md §4.3). It owns the allocator, the
// well-known-prototype table, the string interner, the global object, and
// the microtask queue; pkg/engine constructs exactly one VM per Engine and
// gives internal/natives a chance to populate globals/prototypes before
// any user bytecode runs.
type VM struct {
	alloc   *heap.Allocator
	statics *statics.Table
	strings *StringTable
	globals *object.OrdObject
	globalsID value.ObjectId

	microtasks []microtask

	// rejectedPromises tracks every promise currently rejected with no
	// rejection handler ever attached (SPEC_FULL.md §C.6, spec.md §4.3's
	// "rejected-promise set"). Entries are added in rejectPromise and
	// removed the moment PromiseThen registers a real onRejected handler,
	// so what remains after Drain is exactly the unhandled set.
	rejectedPromises map[*object.PromiseObject]RejectedPromise

	// current is the execContext presently being driven by run(); nil
	// between top-level calls. Exposed to Collect via Roots so a GC cycle
	// triggered mid-execution still sees every live frame.
	current *execContext

	// mathPoisoned disables OpIntrinsic's Math.* fast path once one of the
	// specialized Math methods has been reassigned, so a script that
	// shadows `Math.sqrt` doesn't silently keep observing the builtin
	// (spec.md §4.2 "Specialization"). Reassigning the global Math binding
	// itself does not set it.
	mathPoisoned bool

	// callDepth/maxCallDepth bound nested user-function calls (spec.md
	// §4.3's MAX_STACK_SIZE — since a nested call recurses through Go's own
	// call stack rather than pushing onto a shared frame slice, the
	// equivalent limit here is call depth, not operand-stack bytes).
	// pkg/engine sets maxCallDepth from EngineConfig; zero means unbounded.
	callDepth    int
	maxCallDepth int

	// microtaskBatchLimit bounds how many queued microtasks a single Drain
	// call runs before returning, even if more remain (EngineConfig's
	// MicrotaskBatchLimit). Zero means unbounded — drain to fixpoint.
	microtaskBatchLimit int
}

// SetMicrotaskBatchLimit overrides Drain's default unbounded behavior,
// normally sourced from EngineConfig.MicrotaskBatchLimit (pkg/engine).
func (v *VM) SetMicrotaskBatchLimit(n int) { v.microtaskBatchLimit = n }

// New creates a VM with a fresh allocator, string table, and global object.
// Callers (pkg/engine, via internal/natives) still need to populate the
// statics table's prototypes/constructors before running user code.
const defaultMaxCallDepth = 2048

func New() *VM {
	return NewWithAllocator(heap.New())
}

// NewWithAllocator lets pkg/engine hand in an allocator tuned from
// EngineConfig (GC threshold/growth factor) instead of the default.
func NewWithAllocator(alloc *heap.Allocator) *VM {
	v := &VM{alloc: alloc, statics: statics.New(), strings: NewStringTable(), maxCallDepth: defaultMaxCallDepth}
	v.globals = object.NewOrdObject(value.Nul())
	v.globalsID = v.alloc.AllocObject(v.globals, v)
	return v
}

// SetMaxCallDepth overrides the default nested-call-depth limit, normally
// sourced from EngineConfig's MaxCallDepth (pkg/engine). A value of 0
// disables the check entirely.
func (v *VM) SetMaxCallDepth(n int) { v.maxCallDepth = n }

func (v *VM) Alloc() *heap.Allocator  { return v.alloc }
func (v *VM) Statics() *statics.Table { return v.statics }
func (v *VM) Strings() *StringTable   { return v.strings }
func (v *VM) Globals() *object.OrdObject { return v.globals }
func (v *VM) GlobalsValue() value.Value  { return value.Obj(v.globalsID) }

// PoisonMath is called by natives when script code reassigns one of the
// specialized Math methods, permanently disabling
// OpIntrinsic's fast path for the rest of this VM's lifetime.
func (v *VM) PoisonMath() { v.mathPoisoned = true }

// Roots implements heap.RootProvider (spec.md §4.4 Mark phase): the
// currently executing call stack's locals/operand-stack/upvalues/this, the
// global object, every builtin prototype/constructor, and anything queued
// on the microtask queue that a reaction closure captured by value.
// Suspended generator/async frames are NOT walked here — they are owned by
// a GeneratorObject/PromiseObject reachable (or not) through the ordinary
// object graph, and that object's own Trace method marks them instead.
func (v *VM) Roots(yield func(value.ObjectId)) {
	yield(v.globalsID)
	for i := 0; i < protoTableSize; i++ {
		markIfObject(v.statics.Prototype(statics.ProtoKey(i)), yield)
		markIfObject(v.statics.Constructor(statics.ProtoKey(i)), yield)
	}
	if v.current != nil {
		for _, f := range v.current.frames {
			markFrame(f, yield)
		}
	}
}

// protoTableSize mirrors statics.protoCount, which is unexported; the two
// are kept equal by hand.
const protoTableSize = 16

func markIfObject(val value.Value, yield func(value.ObjectId)) {
	if val.IsObject() || val.IsExternal() {
		yield(val.ObjectID())
	}
}

func markFrame(f *Frame, yield func(value.ObjectId)) {
	markIfObject(f.this, yield)
	markIfObject(f.newTarget, yield)
	for _, l := range f.locals {
		markIfObject(l, yield)
	}
	for _, s := range f.stack {
		markIfObject(s, yield)
	}
	for _, uv := range f.upvalues {
		markIfObject(uv.Value, yield)
	}
	for _, uv := range f.captured {
		markIfObject(uv.Value, yield)
	}
}
