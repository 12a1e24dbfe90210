// Package natives implements L7: the minimal prototype surface (Object,
// Function, Array, Number, Boolean, String, Symbol, Error, Promise,
// ArrayBuffer, typed arrays) and wires it onto a *vm.VM's statics table and
// global object (spec.md §2, §6.2).
//
// Grounded on go-dws's internal/interp/builtins/registry.go (a name→
// FunctionInfo registry populated by one register*Builtins(vm) function per
// builtin group) and internal/bytecode/vm_builtins_string.go (one file per
// group, case-sensitive here since JS property names are). Install is the
// single entry point pkg/engine calls during bootstrap, in the dependency
// order the prototype chain itself needs (Object before everything else,
// Function before any native method can be attached to a prototype).
package natives

import (
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// methodFlags matches how built-in methods are conventionally described:
// writable and configurable (a script may monkey-patch or delete them) but
// not enumerable, so a plain `for...in`/Object.keys over a user object that
// inherits from e.g. Array.prototype doesn't see "push", "pop", etc.
const methodFlags = object.Writable | object.Configurable

// constFlags describes a non-writable, non-configurable, non-enumerable
// built-in constant (Number.MAX_SAFE_INTEGER and friends).
const constFlags = object.Descriptor(0)

func defineMethod(v *vm.VM, owner object.Object, name string, fn object.NativeFn) {
	nf := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), name, fn)
	id := v.Alloc().AllocObject(nf, v)
	owner.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern(name)), object.PropertyValue{
		Static: value.Obj(id), Flags: methodFlags,
	})
}

func defineValue(v *vm.VM, owner object.Object, name string, val value.Value, flags object.Descriptor) {
	owner.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern(name)), object.PropertyValue{
		Static: val, Flags: flags,
	})
}

// defineGetter installs a read-only accessor property, used for the
// host-computed fields (ArrayBuffer.prototype.byteLength,
// TypedArray.prototype.length) that must reflect live state rather than a
// value snapshotted at definition time.
func defineGetter(v *vm.VM, owner object.Object, name string, fn object.NativeFn) {
	nf := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), name, fn)
	id := v.Alloc().AllocObject(nf, v)
	owner.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern(name)), object.PropertyValue{
		IsAccessor: true, Getter: value.Obj(id), Flags: methodFlags,
	})
}

// newNamedNativeObject creates an OrdObject rooted against v, used for the
// plain namespace objects (Math) that are not themselves constructible.
func newNamedNativeObject(v *vm.VM, prototype value.Value) *object.OrdObject {
	obj := object.NewOrdObject(prototype)
	v.Alloc().AllocObject(obj, v)
	return obj
}

// newConstructor builds a FuncNative FunctionObject, sets "prototype"/
// "constructor" cross-links the way every built-in constructor/prototype
// pair needs (spec.md §3.3), and registers both in the statics table.
func newConstructor(v *vm.VM, key statics.ProtoKey, name string, fn object.NativeFn) *object.FunctionObject {
	proto := v.Statics().Prototype(key).ObjectID()
	protoRaw, _ := v.Alloc().Resolve(proto)
	protoObj := protoRaw.(object.Object)

	ctor := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), name, fn)
	ctorID := v.Alloc().AllocObject(ctor, v)
	ctorVal := value.Obj(ctorID)

	ctor.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern("prototype")), object.PropertyValue{
		Static: v.Statics().Prototype(key), Flags: constFlags,
	})
	protoObj.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern("constructor")), object.PropertyValue{
		Static: ctorVal, Flags: methodFlags,
	})
	v.Statics().SetConstructor(key, ctorVal)
	return ctor
}

// resolveObject recovers the Object behind an Object-kind Value, or false
// if the id is dangling (should not happen in a well-formed heap) or val
// is not an object at all.
func resolveObject(v *vm.VM, val value.Value) (object.Object, bool) {
	if !val.IsObject() {
		return nil, false
	}
	raw, ok := v.Alloc().Resolve(val.ObjectID())
	if !ok {
		return nil, false
	}
	obj, ok := raw.(object.Object)
	return obj, ok
}

func newOrdinary(v *vm.VM) (*object.OrdObject, value.Value) {
	obj := object.NewOrdObject(v.Statics().Prototype(statics.ProtoObject))
	id := v.Alloc().AllocObject(obj, v)
	return obj, value.Obj(id)
}

func newArray(v *vm.VM) (*object.ArrayObject, value.Value) {
	arr := object.NewArrayObject(v.Statics().Prototype(statics.ProtoArray))
	id := v.Alloc().AllocObject(arr, v)
	return arr, value.Obj(id)
}

func arrayFromValues(v *vm.VM, items []value.Value) value.Value {
	arr, val := newArray(v)
	for i, item := range items {
		arr.SetElement(uint32(i), item)
	}
	return val
}

// toArrayLike reads a dense snapshot of val's elements when val is a
// genuine ArrayObject. Any other value, including a non-array object with
// a length property, yields (nil, false); no length-driven walk is made.
func toArrayLike(v *vm.VM, val value.Value) ([]value.Value, bool) {
	obj, ok := resolveObject(v, val)
	if !ok {
		return nil, false
	}
	if arr, ok := obj.Extract(object.TagArray); ok {
		a := arr.(*object.ArrayObject)
		out := make([]value.Value, a.Length())
		for i := range out {
			out[i] = a.GetElement(uint32(i))
		}
		return out, true
	}
	return nil, false
}

// drainIterable walks val via its Symbol.iterator protocol, the minimal
// local re-implementation of internal/vm's unexported iterableToSlice —
// natives cannot reach that helper directly (it is vm-package-private), so
// Array.from's iterable path re-derives the same next()/done/value walk
// spec.md §4.2 describes, calling back into JS through ctx.Invoke.
func drainIterable(v *vm.VM, ctx *object.CallContext, val value.Value) ([]value.Value, bool, error) {
	obj, ok := resolveObject(v, val)
	if !ok {
		return nil, false, nil
	}
	iterKey := object.SymbolKey(statics.SymIterator)
	iterFn, err := object.Get(ctx.Alloc, obj, val, iterKey, ctx.Invoke, ctx.Scope)
	if err != nil {
		return nil, false, err
	}
	if !iterFn.IsObject() {
		return nil, false, nil
	}
	iter, err := ctx.Invoke(ctx.Alloc, ctx.Scope, iterFn, val, nil)
	if err != nil {
		return nil, false, err
	}
	iterObj, ok := resolveObject(v, iter)
	if !ok {
		return nil, false, nil
	}
	nextKey := object.StringKey(v.Strings().Intern("next"))
	doneKey := object.StringKey(v.Strings().Intern("done"))
	valueKey := object.StringKey(v.Strings().Intern("value"))
	var out []value.Value
	for {
		nextFn, err := object.Get(ctx.Alloc, iterObj, iter, nextKey, ctx.Invoke, ctx.Scope)
		if err != nil {
			return nil, false, err
		}
		result, err := ctx.Invoke(ctx.Alloc, ctx.Scope, nextFn, iter, nil)
		if err != nil {
			return nil, false, err
		}
		resultObj, ok := resolveObject(v, result)
		if !ok {
			return nil, false, nil
		}
		doneVal, err := object.Get(ctx.Alloc, resultObj, result, doneKey, ctx.Invoke, ctx.Scope)
		if err != nil {
			return nil, false, err
		}
		if v.Truthy(doneVal) {
			return out, true, nil
		}
		itemVal, err := object.Get(ctx.Alloc, resultObj, result, valueKey, ctx.Invoke, ctx.Scope)
		if err != nil {
			return nil, false, err
		}
		out = append(out, itemVal)
	}
}
