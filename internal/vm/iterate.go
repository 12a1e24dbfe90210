package vm

import (
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
)

// getIterator implements IntrinsicGetIterator and the spread/for-of entry
// point (spec.md §4.2 "Specialization"): look up val[Symbol.iterator] and
// call it, yielding the iterator object a for-of loop or spread element
// then drives with repeated .next() calls.
func (v *VM) getIterator(alloc *heap.Allocator, scope *heap.LocalScope, val value.Value) (value.Value, error) {
	if !val.IsObject() {
		return value.Undef(), v.typeError("value is not iterable")
	}
	raw, ok := alloc.Resolve(val.ObjectID())
	if !ok {
		return value.Undef(), v.typeError("value is not iterable")
	}
	obj := raw.(object.Object)
	method, err := object.Get(alloc, obj, val, object.SymbolKey(statics.SymIterator), v.Invoke, scope)
	if err != nil {
		return value.Undef(), err
	}
	if !method.IsObject() {
		return value.Undef(), v.typeError("value is not iterable")
	}
	return v.Call(alloc, scope, method, val, nil)
}

// iterNext drives one step of the iterator protocol: call iterator.next(),
// read .done/.value off the result object (spec.md §4.2 "iterator
// protocol"). sent is pushed as the (optional) argument, used by `yield*`
// to forward a resumed value into the delegated iterator.
func (v *VM) iterNext(alloc *heap.Allocator, scope *heap.LocalScope, iterator value.Value, sent value.Value, hasSent bool) (val value.Value, done bool, err error) {
	raw, ok := alloc.Resolve(iterator.ObjectID())
	if !ok {
		return value.Undef(), true, v.typeError("iterator result is not an object")
	}
	obj := raw.(object.Object)
	nextFn, err := object.Get(alloc, obj, iterator, object.StringKey(v.strings.Intern("next")), v.Invoke, scope)
	if err != nil {
		return value.Undef(), true, err
	}
	var args []value.Value
	if hasSent {
		args = []value.Value{sent}
	}
	result, err := v.Call(alloc, scope, nextFn, iterator, args)
	if err != nil {
		return value.Undef(), true, err
	}
	if !result.IsObject() {
		return value.Undef(), true, v.typeError("iterator result is not an object")
	}
	resultRaw, ok := alloc.Resolve(result.ObjectID())
	if !ok {
		return value.Undef(), true, v.typeError("iterator result is not an object")
	}
	resultObj := resultRaw.(object.Object)
	doneVal, err := object.Get(alloc, resultObj, result, object.StringKey(v.strings.Intern("done")), v.Invoke, scope)
	if err != nil {
		return value.Undef(), true, err
	}
	valueVal, err := object.Get(alloc, resultObj, result, object.StringKey(v.strings.Intern("value")), v.Invoke, scope)
	if err != nil {
		return value.Undef(), true, err
	}
	return valueVal, v.truthy(doneVal), nil
}

// iterableToSlice drains an iterable fully, used for spread arguments/array
// elements (spec.md §4.1 ArrayElemSpread). Array operands take a fast path
// that skips the iterator protocol entirely.
func (v *VM) iterableToSlice(alloc *heap.Allocator, scope *heap.LocalScope, val value.Value) ([]value.Value, error) {
	if val.IsObject() {
		if raw, ok := alloc.Resolve(val.ObjectID()); ok {
			if arr, ok := raw.(object.Object).Extract(object.TagArray); ok {
				a := arr.(*object.ArrayObject)
				out := make([]value.Value, a.Length())
				for i := range out {
					out[i] = a.GetElement(uint32(i))
				}
				return out, nil
			}
		}
	}
	iter, err := v.getIterator(alloc, scope, val)
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for {
		item, done, err := v.iterNext(alloc, scope, iter, value.Value{}, false)
		if err != nil {
			return nil, err
		}
		if done {
			return out, nil
		}
		out = append(out, item)
	}
}

// forInKeys implements IntrinsicForInKeys: collects the own+inherited
// enumerable string keys of val, in the order for-in conventionally walks
// them (own keys of each prototype-chain link, nearest first), and returns
// them as a fresh Array of strings for the compiler's for-in lowering to
// iterate with a plain index (spec.md §4.2 "for-in lowers to an
// intrinsic-produced key array rather than its own opcode").
func (v *VM) forInKeys(alloc *heap.Allocator, val value.Value) (value.Value, error) {
	arr := v.newArray()
	idx := uint32(0)
	if !val.IsObject() {
		id := alloc.AllocObject(arr, v)
		return value.Obj(id), nil
	}
	seen := make(map[value.InternedStringId]bool)
	raw, ok := alloc.Resolve(val.ObjectID())
	if !ok {
		id := alloc.AllocObject(arr, v)
		return value.Obj(id), nil
	}
	cur := raw.(object.Object)
	for cur != nil {
		for _, key := range cur.OwnKeys(alloc) {
			if key.IsSymbol || seen[key.ID] {
				continue
			}
			pv, ok := cur.GetOwnPropertyDescriptor(alloc, key)
			if !ok || pv.Flags&object.Enumerable == 0 {
				seen[key.ID] = true
				continue
			}
			seen[key.ID] = true
			arr.SetElement(idx, value.Str(key.ID))
			idx++
		}
		proto := cur.GetPrototype()
		if !proto.IsObject() {
			break
		}
		next, ok := alloc.Resolve(proto.ObjectID())
		if !ok {
			break
		}
		cur = next.(object.Object)
	}
	id := alloc.AllocObject(arr, v)
	return value.Obj(id), nil
}
