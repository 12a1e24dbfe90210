package vm

import "github.com/lumenjs/engine/internal/value"

// This file is the coercion/promise surface internal/natives builds on.
// natives lives in its own package (so the ordinary/array/function shapes
// it wires stay decoupled from the dispatch loop that calls them) and so
// cannot reach vm's unexported coercion helpers directly; these thin
// exports forward to the same logic coerce.go/promise.go already
// implement for the opcode handlers, rather than giving natives a second
// copy of ToNumber/ToString to maintain.

// ToNumber implements ECMAScript ToNumber (spec.md §4.3), usable from a
// native function body.
func (v *VM) ToNumber(val value.Value) (float64, error) { return v.toNumber(val) }

// ToStringValue implements ECMAScript ToString, returning an interned
// String value.
func (v *VM) ToStringValue(val value.Value) (value.Value, error) { return v.toStringValue(val) }

// Truthy implements ECMAScript ToBoolean, including the string-length case
// value.Value.Truthy() cannot decide on its own.
func (v *VM) Truthy(val value.Value) bool { return v.truthy(val) }

// StrictEquals implements `===`.
func (v *VM) StrictEquals(a, b value.Value) (bool, error) { return v.strictEquals(a, b) }

// LooseEquals implements `==`.
func (v *VM) LooseEquals(a, b value.Value) (bool, error) { return v.looseEquals(a, b) }

// Compare implements the relational operators' abstract comparison.
func (v *VM) Compare(a, b value.Value) (result int, ok bool, err error) { return v.compare(a, b) }

// ToPrimitive implements ECMAScript ToPrimitive.
func (v *VM) ToPrimitive(val value.Value) (value.Value, error) { return v.toPrimitive(val) }

// TypeError/RangeError build the matching EngineError category, for
// natives to return from a CallContext body as a Go error — errorToValue
// converts it into a thrown Error instance the same way an opcode-raised
// failure is, at the point it crosses back into the dispatch loop.
func (v *VM) TypeError(format string, args ...any) error { return v.typeError(format, args...) }
func (v *VM) RangeError(format string, args ...any) error { return v.rangeError(format, args...) }
func (v *VM) ReferenceError(format string, args ...any) error {
	return v.referenceError(format, args...)
}

// ErrorToValue converts a Go-side failure (typically one returned from
// TypeError/RangeError/ReferenceError above, or any other error a native
// function body returns) into a thrown Error instance, the same
// conversion an opcode-raised failure goes through before it becomes
// script-visible (spec.md §7).
func (v *VM) ErrorToValue(err error) value.Value { return v.errorToValue(err) }

// NewPromiseCapability allocates a fresh pending promise plus the
// resolve/reject function pair an executor (`new Promise((res, rej) => ...)`)
// or a native's own async bookkeeping calls to settle it (spec.md §5).
func (v *VM) NewPromiseCapability() (promiseVal, resolveVal, rejectVal value.Value) {
	p, pVal := v.newPromise()
	resolveVal = v.wrapGoReaction(func(val value.Value) { v.resolvePromise(p, pVal, val) })
	rejectVal = v.wrapGoReaction(func(val value.Value) { v.rejectPromise(p, pVal, val) })
	return pVal, resolveVal, rejectVal
}

// PromiseResolveValue implements `Promise.resolve(x)`: returns x unchanged
// if it is already one of this VM's promises, otherwise wraps it in a new
// promise resolved with x (which itself adopts x's state if x is a
// thenable, per resolvePromise).
func (v *VM) PromiseResolveValue(x value.Value) value.Value {
	if _, ok := v.resolveDerivedPromise(x); ok {
		return x
	}
	p, pVal := v.newPromise()
	v.resolvePromise(p, pVal, x)
	return pVal
}

// PromiseRejectValue implements `Promise.reject(x)`: always allocates a new
// promise, even if x is itself a promise (no state adoption on reject).
func (v *VM) PromiseRejectValue(x value.Value) value.Value {
	p, pVal := v.newPromise()
	v.rejectPromise(p, pVal, x)
	return pVal
}
