package vm

import (
	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/value"
)

// findRegion locates the ExceptionRegion a just-executed TRY instruction at
// byte offset opStart belongs to. Regions are identified by their TryIP
// rather than recomputed at runtime, since the compiler already assigned
// each try exactly one region (internal/compiler/exception.go).
func findRegion(fn *bytecode.CompiledFunction, opStart int) (bytecode.ExceptionRegion, bool) {
	for _, r := range fn.Exceptions {
		if r.TryIP == opStart {
			return r, true
		}
	}
	return bytecode.ExceptionRegion{}, false
}

// raiseException implements spec.md §4.2's exception-region protocol: walk
// the execContext's handler stack from innermost outward, unwind frames and
// the matched frame's operand stack back to where TRY was executed, then
// dispatch into that try's catch (pushing the thrown value, once per
// handler) or finally (recording a pendingRethrow so OpFinallyEnd resumes
// propagation once cleanup completes). A handler is retired — popped off
// the stack — the moment it hands off to finally, so an exception thrown
// from within that finally (or from within its own catch) is never
// recaptured by the same try; it is evaluated against the next handler out,
// exactly like go-dws's raiseException/exceptionHandlers stack.
//
// Returns a RuntimeException error (never recovered by any handler) when
// the stack is exhausted — the embedder boundary (pkg/engine) is what
// finally surfaces that to the caller of Run.
func (ex *execContext) raiseException(exc value.Value) error {
	for len(ex.handlers) > 0 {
		h := &ex.handlers[len(ex.handlers)-1]
		for len(ex.frames)-1 > h.frameIndex {
			ex.popFrame()
		}
		frame := ex.frames[h.frameIndex]
		if h.stackDepth <= len(frame.stack) {
			frame.stack = frame.stack[:h.stackDepth]
		}

		if !h.active {
			h.active = true
			h.deliveredToCatch = !h.region.HasCatch
		}

		if h.region.HasCatch && !h.deliveredToCatch {
			h.deliveredToCatch = true
			frame.ip = h.region.CatchIP
			frame.push(exc)
			return nil
		}
		if h.region.HasFinally {
			ex.handlers = ex.handlers[:len(ex.handlers)-1]
			ex.pending = pendingRethrow{active: true, value: exc}
			frame.ip = h.region.FinallyIP
			return nil
		}
		ex.handlers = ex.handlers[:len(ex.handlers)-1]
	}
	return &RuntimeException{Value: exc}
}

// RuntimeException wraps a thrown JS value that escaped every handler in
// the execContext it was thrown in (spec.md §7 "uncaught exception"). The
// embedder boundary (pkg/engine) is expected to format Value via the
// engine's own string/error conversions rather than this type's Error().
type RuntimeException struct {
	Value value.Value
}

func (e *RuntimeException) Error() string { return "uncaught exception" }
