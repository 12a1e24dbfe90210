package natives

import (
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// installPromise wires Promise.prototype (then/catch/finally) and the
// Promise constructor/statics (spec.md §5). The actual resolution
// algorithm, reaction scheduling, and microtask draining all live in
// internal/vm/promise.go; this file is only the script-visible surface
// over vm.VM's already-exported capability/resolve/reject helpers.
func installPromise(v *vm.VM) {
	protoVal := v.Statics().Prototype(statics.ProtoPromise)
	proto, _ := resolveObject(v, protoVal)

	thisPromise := func(ctx *object.CallContext) (*object.PromiseObject, bool) {
		obj, ok := resolveObject(v, ctx.This)
		if !ok {
			return nil, false
		}
		p, ok := obj.Extract(object.TagPromise)
		if !ok {
			return nil, false
		}
		return p.(*object.PromiseObject), true
	}

	defineMethod(v, proto, "then", func(ctx *object.CallContext) (value.Value, error) {
		p, ok := thisPromise(ctx)
		if !ok {
			return value.Undef(), v.TypeError("Promise.prototype.then called on non-promise")
		}
		return v.PromiseThen(p, ctx.Arg(0), ctx.Arg(1)), nil
	})
	defineMethod(v, proto, "catch", func(ctx *object.CallContext) (value.Value, error) {
		p, ok := thisPromise(ctx)
		if !ok {
			return value.Undef(), v.TypeError("Promise.prototype.catch called on non-promise")
		}
		return v.PromiseThen(p, value.Undef(), ctx.Arg(0)), nil
	})
	defineMethod(v, proto, "finally", func(ctx *object.CallContext) (value.Value, error) {
		p, ok := thisPromise(ctx)
		if !ok {
			return value.Undef(), v.TypeError("Promise.prototype.finally called on non-promise")
		}
		onFinally := ctx.Arg(0)
		wrap := func(passthrough bool) value.Value {
			nf := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), "", func(inner *object.CallContext) (value.Value, error) {
				if onFinally.IsObject() {
					if _, err := inner.Invoke(inner.Alloc, inner.Scope, onFinally, value.Undef(), nil); err != nil {
						return value.Undef(), err
					}
				}
				if passthrough {
					return inner.Arg(0), nil
				}
				return value.Undef(), &vm.RuntimeException{Value: inner.Arg(0)}
			})
			id := v.Alloc().AllocObject(nf, v)
			return value.Obj(id)
		}
		return v.PromiseThen(p, wrap(true), wrap(false)), nil
	})

	newConstructor(v, statics.ProtoPromise, "Promise", func(ctx *object.CallContext) (value.Value, error) {
		if !ctx.NewTarget.IsObject() {
			return value.Undef(), v.TypeError("Promise constructor cannot be invoked without 'new'")
		}
		executor := ctx.Arg(0)
		if obj, ok := resolveObject(v, executor); !ok {
			return value.Undef(), v.TypeError("Promise resolver is not a function")
		} else if _, callable := obj.Extract(object.TagFunction); !callable {
			return value.Undef(), v.TypeError("Promise resolver is not a function")
		}
		promiseVal, resolveFn, rejectFn := v.NewPromiseCapability()
		if _, err := ctx.Invoke(ctx.Alloc, ctx.Scope, executor, value.Undef(), []value.Value{resolveFn, rejectFn}); err != nil {
			if _, err2 := ctx.Invoke(ctx.Alloc, ctx.Scope, rejectFn, value.Undef(), []value.Value{errValueOf(v, err)}); err2 != nil {
				return value.Undef(), err2
			}
		}
		return promiseVal, nil
	})
	ctorVal := v.Statics().Constructor(statics.ProtoPromise)
	ctorObj, _ := resolveObject(v, ctorVal)

	defineMethod(v, ctorObj, "resolve", func(ctx *object.CallContext) (value.Value, error) {
		return v.PromiseResolveValue(ctx.Arg(0)), nil
	})
	defineMethod(v, ctorObj, "reject", func(ctx *object.CallContext) (value.Value, error) {
		return v.PromiseRejectValue(ctx.Arg(0)), nil
	})
	defineMethod(v, ctorObj, "all", func(ctx *object.CallContext) (value.Value, error) {
		items, _, err := drainIterable(v, ctx, ctx.Arg(0))
		if err != nil {
			return value.Undef(), err
		}
		if items == nil {
			items, _ = toArrayLike(v, ctx.Arg(0))
		}
		resultPromiseVal, resolveFn, rejectFn := v.NewPromiseCapability()
		if len(items) == 0 {
			_, err := ctx.Invoke(ctx.Alloc, ctx.Scope, resolveFn, value.Undef(), []value.Value{arrayFromValues(v, nil)})
			return resultPromiseVal, err
		}
		results := make([]value.Value, len(items))
		remaining := len(items)
		settled := false
		for i, item := range items {
			i := i
			itemPromise := v.PromiseResolveValue(item)
			p, _ := resolveObject(v, itemPromise)
			pp, _ := p.Extract(object.TagPromise)
			onFulfilled := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), "", func(inner *object.CallContext) (value.Value, error) {
				results[i] = inner.Arg(0)
				remaining--
				if remaining == 0 && !settled {
					settled = true
					return inner.Invoke(inner.Alloc, inner.Scope, resolveFn, value.Undef(), []value.Value{arrayFromValues(v, results)})
				}
				return value.Undef(), nil
			})
			onRejected := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), "", func(inner *object.CallContext) (value.Value, error) {
				if !settled {
					settled = true
					return inner.Invoke(inner.Alloc, inner.Scope, rejectFn, value.Undef(), []value.Value{inner.Arg(0)})
				}
				return value.Undef(), nil
			})
			onFulfilledID := v.Alloc().AllocObject(onFulfilled, v)
			onRejectedID := v.Alloc().AllocObject(onRejected, v)
			v.PromiseThen(pp.(*object.PromiseObject), value.Obj(onFulfilledID), value.Obj(onRejectedID))
		}
		return resultPromiseVal, nil
	})
	defineMethod(v, ctorObj, "race", func(ctx *object.CallContext) (value.Value, error) {
		items, _, err := drainIterable(v, ctx, ctx.Arg(0))
		if err != nil {
			return value.Undef(), err
		}
		if items == nil {
			items, _ = toArrayLike(v, ctx.Arg(0))
		}
		resultPromiseVal, resolveFn, rejectFn := v.NewPromiseCapability()
		settled := false
		for _, item := range items {
			itemPromise := v.PromiseResolveValue(item)
			p, _ := resolveObject(v, itemPromise)
			pp, _ := p.Extract(object.TagPromise)
			onFulfilled := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), "", func(inner *object.CallContext) (value.Value, error) {
				if !settled {
					settled = true
					return inner.Invoke(inner.Alloc, inner.Scope, resolveFn, value.Undef(), []value.Value{inner.Arg(0)})
				}
				return value.Undef(), nil
			})
			onRejected := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), "", func(inner *object.CallContext) (value.Value, error) {
				if !settled {
					settled = true
					return inner.Invoke(inner.Alloc, inner.Scope, rejectFn, value.Undef(), []value.Value{inner.Arg(0)})
				}
				return value.Undef(), nil
			})
			onFulfilledID := v.Alloc().AllocObject(onFulfilled, v)
			onRejectedID := v.Alloc().AllocObject(onRejected, v)
			v.PromiseThen(pp.(*object.PromiseObject), value.Obj(onFulfilledID), value.Obj(onRejectedID))
		}
		return resultPromiseVal, nil
	})
}

func errValueOf(v *vm.VM, err error) value.Value {
	return v.ErrorToValue(err)
}
