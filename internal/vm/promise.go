package vm

import (
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
)

// newPromise allocates a fresh pending promise (spec.md §5 "Promise
// object").
func (v *VM) newPromise() (*object.PromiseObject, value.Value) {
	p := object.NewPromiseObject(v.statics.Prototype(statics.ProtoPromise))
	id := v.alloc.AllocObject(p, v)
	return p, value.Obj(id)
}

// wrapGoReaction adapts a Go continuation into a callable JS-visible
// function value, so it can be stored directly in a Reaction's
// OnFulfilled/OnRejected slot (object.Reaction only ever holds "function or
// Undefined" per spec.md §5) without inventing a parallel reaction shape
// just for internally driven continuations.
func (v *VM) wrapGoReaction(fn func(val value.Value)) value.Value {
	nf := object.NewNativeFunction(v.statics.Prototype(statics.ProtoFunction), "", func(ctx *object.CallContext) (value.Value, error) {
		fn(ctx.Arg(0))
		return value.Undef(), nil
	})
	id := v.alloc.AllocObject(nf, v)
	return value.Obj(id)
}

// resolvePromise settles p as fulfilled with result, adopting result's own
// state first if result is itself a thenable (spec.md §5 "resolution
// adopts a thenable's eventual state rather than fulfilling with the
// thenable object itself").
func (v *VM) resolvePromise(p *object.PromiseObject, promiseVal, result value.Value) {
	if p.State != object.PromisePending {
		return
	}
	if result.IsObject() {
		raw, ok := v.alloc.Resolve(result.ObjectID())
		if ok {
			obj := raw.(object.Object)
			scope := heap.NewScope()
			thenVal, err := object.Get(v.alloc, obj, result, object.StringKey(v.strings.Intern("then")), v.Invoke, scope)
			if err != nil {
				v.rejectPromise(p, promiseVal, v.errorToValue(err))
				return
			}
			if thenVal.IsObject() {
				if thenObj, ok := v.alloc.Resolve(thenVal.ObjectID()); ok {
					if _, callable := thenObj.(object.Object).Extract(object.TagFunction); callable {
						onFulfilled := v.wrapGoReaction(func(val value.Value) { v.resolvePromise(p, promiseVal, val) })
						onRejected := v.wrapGoReaction(func(val value.Value) { v.rejectPromise(p, promiseVal, val) })
						if _, err := v.Call(v.alloc, scope, thenVal, result, []value.Value{onFulfilled, onRejected}); err != nil {
							v.rejectPromise(p, promiseVal, v.errorToValue(err))
						}
						return
					}
				}
			}
		}
	}
	p.State = object.PromiseFulfilled
	p.Result = result
	v.scheduleReactions(p)
}

func (v *VM) rejectPromise(p *object.PromiseObject, promiseVal, reason value.Value) {
	if p.State != object.PromisePending {
		return
	}
	p.State = object.PromiseRejected
	p.Result = reason
	if v.rejectedPromises == nil {
		v.rejectedPromises = make(map[*object.PromiseObject]RejectedPromise)
	}
	v.rejectedPromises[p] = RejectedPromise{Promise: promiseVal, Reason: reason}
	v.scheduleReactions(p)
}

// RejectedPromise records one promise that settled as rejected with no
// rejection handler attached at the time (SPEC_FULL.md §C.6).
type RejectedPromise struct {
	Promise value.Value
	Reason  value.Value
}

// RejectedPromises returns every promise presently rejected with no
// rejection handler ever attached — the embedder boundary's hook for
// diagnosing unhandled rejections once Drain returns (pkg/engine's
// Engine.RejectedPromises).
func (v *VM) RejectedPromises() []RejectedPromise {
	out := make([]RejectedPromise, 0, len(v.rejectedPromises))
	for _, rp := range v.rejectedPromises {
		out = append(out, rp)
	}
	return out
}

// scheduleReactions enqueues one microtask per registered reaction once p
// has settled (spec.md §5 "reactions run as microtasks, never
// synchronously"), then drops the list — a promise only settles once.
func (v *VM) scheduleReactions(p *object.PromiseObject) {
	reactions := p.Reactions
	p.Reactions = nil
	state, result := p.State, p.Result
	for _, r := range reactions {
		r := r
		v.microtasks = append(v.microtasks, func(v *VM) error {
			v.runReaction(state, result, r)
			return nil
		})
	}
}

// runReaction is one .then() continuation's microtask body: call the
// matching handler (or pass the settlement through unchanged if that
// handler is absent), then settle the derived promise with the outcome
// (spec.md §5).
func (v *VM) runReaction(state object.PromiseState, result value.Value, r Reaction) {
	resultObj, ok := v.resolveDerivedPromise(r.Result)
	if !ok {
		return
	}
	handler := r.OnRejected
	if state == object.PromiseFulfilled {
		handler = r.OnFulfilled
	}
	if !handler.IsObject() {
		if state == object.PromiseFulfilled {
			v.resolvePromise(resultObj, r.Result, result)
		} else {
			v.rejectPromise(resultObj, r.Result, result)
		}
		return
	}
	scope := heap.NewScope()
	out, err := v.Call(v.alloc, scope, handler, value.Undef(), []value.Value{result})
	if err != nil {
		v.rejectPromise(resultObj, r.Result, v.errorToValue(err))
		return
	}
	v.resolvePromise(resultObj, r.Result, out)
}

func (v *VM) resolveDerivedPromise(promiseVal value.Value) (*object.PromiseObject, bool) {
	if !promiseVal.IsObject() {
		return nil, false
	}
	raw, ok := v.alloc.Resolve(promiseVal.ObjectID())
	if !ok {
		return nil, false
	}
	p, ok := raw.(object.Object).Extract(object.TagPromise)
	if !ok {
		return nil, false
	}
	return p.(*object.PromiseObject), true
}

// Reaction is a local alias so this file reads naturally against
// object.Reaction without importing it under a different name at every
// call site.
type Reaction = object.Reaction

// PromiseThen implements the .then()/.catch() algorithm for natives to call
// into (spec.md §5): register a reaction, returning the derived promise
// immediately and scheduling the reaction's microtask right away if the
// source promise has already settled.
func (v *VM) PromiseThen(p *object.PromiseObject, onFulfilled, onRejected value.Value) value.Value {
	if onRejected.IsObject() {
		p.Handled = true
		delete(v.rejectedPromises, p)
	}
	_, resultVal := v.newPromise()
	r := Reaction{OnFulfilled: onFulfilled, OnRejected: onRejected, Result: resultVal}
	if p.State == object.PromisePending {
		p.Reactions = append(p.Reactions, r)
		return resultVal
	}
	state, result := p.State, p.Result
	v.microtasks = append(v.microtasks, func(v *VM) error {
		v.runReaction(state, result, r)
		return nil
	})
	return resultVal
}

// Drain runs the microtask queue to fixpoint, or until
// microtaskBatchLimit tasks have run if one is set (spec.md §4.3 "Promise
// driver"/"Drain"), the embedder boundary's hook for pumping pending .then
// reactions and async-function continuations after a top-level Run call
// returns without the queue having fully drained on its own (e.g. a promise
// resolved by a host callback rather than from within running bytecode). A
// batch limit leaves the remainder queued for the next Drain call rather
// than discarding it.
func (v *VM) Drain() error {
	ran := 0
	for len(v.microtasks) > 0 {
		if v.microtaskBatchLimit > 0 && ran >= v.microtaskBatchLimit {
			return nil
		}
		task := v.microtasks[0]
		v.microtasks = v.microtasks[1:]
		if err := task(v); err != nil {
			return err
		}
		ran++
	}
	return nil
}

// startAsyncCall runs an async function body synchronously up to its first
// await (or to completion), returning the promise that drives the rest of
// it (spec.md §4.2).
func (v *VM) startAsyncCall(ex *execContext) (value.Value, error) {
	p, pVal := v.newPromise()
	v.stepAsync(ex, p, pVal, value.Undef(), false, false)
	return pVal, nil
}

// stepAsync resumes ex (or starts it, on the first call) and either settles
// p directly, or — if the body awaits again — registers a continuation on
// the awaited value's promise so the next step runs as a microtask once it
// settles.
func (v *VM) stepAsync(ex *execContext, p *object.PromiseObject, pVal, sendValue value.Value, isThrow, hasSend bool) {
	if isThrow {
		if err := ex.raiseException(sendValue); err != nil {
			v.rejectPromise(p, pVal, v.errorToValue(err))
			return
		}
	} else if hasSend {
		ex.top().push(sendValue)
	}

	prev := v.current
	v.current = ex
	result, sig, err := v.run(ex)
	v.current = prev
	if err != nil {
		v.rejectPromise(p, pVal, v.errorToValue(err))
		return
	}
	if sig == nil {
		v.resolvePromise(p, pVal, result)
		return
	}

	awaited := sig.value
	onFulfilled := v.wrapGoReaction(func(val value.Value) { v.stepAsync(ex, p, pVal, val, false, true) })
	onRejected := v.wrapGoReaction(func(val value.Value) { v.stepAsync(ex, p, pVal, val, true, false) })

	if awaited.IsObject() {
		if ap, ok := v.resolveDerivedPromise(awaited); ok {
			v.PromiseThen(ap, onFulfilled, onRejected)
			return
		}
		if raw, ok := v.alloc.Resolve(awaited.ObjectID()); ok {
			scope := heap.NewScope()
			thenVal, err := object.Get(v.alloc, raw.(object.Object), awaited, object.StringKey(v.strings.Intern("then")), v.Invoke, scope)
			if err == nil && thenVal.IsObject() {
				if thenObj, ok := v.alloc.Resolve(thenVal.ObjectID()); ok {
					if _, callable := thenObj.(object.Object).Extract(object.TagFunction); callable {
						if _, err := v.Call(v.alloc, scope, thenVal, awaited, []value.Value{onFulfilled, onRejected}); err != nil {
							v.stepAsync(ex, p, pVal, v.errorToValue(err), true, false)
						}
						return
					}
				}
			}
		}
	}
	// Not a thenable: await on a plain value settles on the next microtask
	// turn with that value, same as Promise.resolve(value).await.
	v.microtasks = append(v.microtasks, func(v *VM) error {
		v.stepAsync(ex, p, pVal, awaited, false, true)
		return nil
	})
}
