package vm

import (
	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/value"
)

const initialFrameStackCapacity = 16

// Frame is one activation of a compiled function (spec.md §4.3 "call
// frame"): its own operand stack, local-slot array, the upvalue cells it
// closed over at construction, and its fetch/decode cursor. Frames live in
// an execContext's flat slice rather than on Go's call stack, so a
// generator/async frame can be lifted out, parked, and resumed later
// without unwinding any native Go frames at all.
type Frame struct {
	fn        *bytecode.CompiledFunction
	ip        int
	locals    []value.Value
	upvalues  []*object.Upvalue
	this      value.Value
	newTarget value.Value
	stack     []value.Value

	// captured holds, by local slot index, the Upvalue cell a nested
	// closure built from this frame has captured by reference. A slot
	// appearing here is read/written through the cell from this point
	// on, by this frame AND by every closure holding the same *Upvalue,
	// so mutations stay visible on both sides — the shared-cell half of
	// spec.md §3.3's upvalue model that a plain []value.Value copy alone
	// cannot express.
	captured map[int]*object.Upvalue
}

func newFrame(fn *bytecode.CompiledFunction, upvalues []*object.Upvalue, this, newTarget value.Value) *Frame {
	return &Frame{
		fn:        fn,
		locals:    make([]value.Value, fn.LocalCount),
		upvalues:  upvalues,
		this:      this,
		newTarget: newTarget,
		stack:     make([]value.Value, 0, 16),
	}
}

// getLocal/setLocal route through a captured cell when the slot has been
// closed over by some nested function created earlier in this frame's
// execution (see captureLocal).
func (f *Frame) getLocal(i int) value.Value {
	if f.captured != nil {
		if uv, ok := f.captured[i]; ok {
			return uv.Value
		}
	}
	return f.locals[i]
}

func (f *Frame) setLocal(i int, v value.Value) {
	if f.captured != nil {
		if uv, ok := f.captured[i]; ok {
			uv.Value = v
			return
		}
	}
	f.locals[i] = v
}

// captureLocal returns the Upvalue cell backing local slot i, creating it
// (seeded with the slot's current value) the first time any closure
// captures that slot.
func (f *Frame) captureLocal(i int) *object.Upvalue {
	if f.captured == nil {
		f.captured = make(map[int]*object.Upvalue)
	}
	if uv, ok := f.captured[i]; ok {
		return uv
	}
	uv := &object.Upvalue{Value: f.locals[i]}
	f.captured[i] = uv
	return uv
}

func (f *Frame) push(v value.Value) { f.stack = append(f.stack, v) }

func (f *Frame) pop() value.Value {
	n := len(f.stack) - 1
	v := f.stack[n]
	f.stack = f.stack[:n]
	return v
}

func (f *Frame) peek() value.Value { return f.stack[len(f.stack)-1] }

// handler is one entry of an execContext's runtime exception-handler stack,
// pushed by OpTry and consulted by raiseException (internal/vm/exceptions.go)
// rather than statically scanning CompiledFunction.Exceptions on every
// throw — grounded on go-dws's exceptionHandler/vm.exceptionHandlers.
type handler struct {
	region           bytecode.ExceptionRegion
	frameIndex       int
	stackDepth       int
	active           bool
	deliveredToCatch bool
}

// pendingRethrow records the exception a finally block was entered to
// clean up after, so OpFinallyEnd knows whether to resume propagating it
// once the finally body completes normally (spec.md §4.2 "finally always
// runs, then re-raises unless overridden").
type pendingRethrow struct {
	active bool
	value  value.Value
}

// execContext is one independently-suspendable call stack: the main
// program runs in one execContext for its whole lifetime; every generator
// and every async function call gets its own, so Resume can restart it
// exactly where OpYield/OpAwait left off without touching any other
// execContext's state.
type execContext struct {
	frames  []*Frame
	handlers []handler
	pending pendingRethrow
}

func newExecContext() *execContext {
	return &execContext{frames: make([]*Frame, 0, initialFrameStackCapacity)}
}

func (ex *execContext) top() *Frame { return ex.frames[len(ex.frames)-1] }

func (ex *execContext) pushFrame(f *Frame) { ex.frames = append(ex.frames, f) }

func (ex *execContext) popFrame() { ex.frames = ex.frames[:len(ex.frames)-1] }
