package natives

import (
	"strconv"

	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// installArray wires Array.prototype and the Array constructor (spec.md
// §3.4, §2). Grounded on go-dws's vm_builtins pattern of one native per
// method; every mutator reads/writes straight through ArrayObject's own
// Length/GetElement/SetElement rather than going through the generic
// property map, the same fast path internal/vm/props.go takes for bracket
// access.
func installArray(v *vm.VM) {
	protoVal := v.Statics().Prototype(statics.ProtoArray)
	protoObj, _ := resolveObject(v, protoVal)

	thisArray := func(ctx *object.CallContext) (*object.ArrayObject, bool) {
		obj, ok := resolveObject(v, ctx.This)
		if !ok {
			return nil, false
		}
		arr, ok := obj.Extract(object.TagArray)
		if !ok {
			return nil, false
		}
		return arr.(*object.ArrayObject), true
	}

	defineMethod(v, protoObj, "push", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Undef(), v.TypeError("Array.prototype.push called on non-array")
		}
		n := arr.Length()
		for _, a := range ctx.Args {
			arr.SetElement(n, a)
			n++
		}
		return value.Num(float64(arr.Length())), nil
	})

	defineMethod(v, protoObj, "pop", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok || arr.Length() == 0 {
			return value.Undef(), nil
		}
		last := arr.Length() - 1
		val := arr.GetElement(last)
		arr.DeleteElement(last)
		arr.SetLength(last)
		return val, nil
	})

	defineMethod(v, protoObj, "shift", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok || arr.Length() == 0 {
			return value.Undef(), nil
		}
		first := arr.GetElement(0)
		n := arr.Length()
		for i := uint32(1); i < n; i++ {
			arr.SetElement(i-1, arr.GetElement(i))
		}
		arr.DeleteElement(n - 1)
		arr.SetLength(n - 1)
		return first, nil
	})

	defineMethod(v, protoObj, "unshift", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Undef(), v.TypeError("Array.prototype.unshift called on non-array")
		}
		k := uint32(len(ctx.Args))
		n := arr.Length()
		for i := n; i > 0; i-- {
			arr.SetElement(i-1+k, arr.GetElement(i-1))
		}
		for i, a := range ctx.Args {
			arr.SetElement(uint32(i), a)
		}
		return value.Num(float64(arr.Length())), nil
	})

	defineMethod(v, protoObj, "slice", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return arrayFromValues(v, nil), nil
		}
		start, end, err := sliceRange(v, ctx, arr.Length())
		if err != nil {
			return value.Undef(), err
		}
		var out []value.Value
		for i := start; i < end; i++ {
			out = append(out, arr.GetElement(i))
		}
		return arrayFromValues(v, out), nil
	})

	defineMethod(v, protoObj, "splice", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return arrayFromValues(v, nil), nil
		}
		n := arr.Length()
		start := clampIndex(argNumber(v, ctx, 0, 0), n)
		deleteCount := n - start
		if len(ctx.Args) > 1 {
			dc, err := v.ToNumber(ctx.Arg(1))
			if err != nil {
				return value.Undef(), err
			}
			if dc < 0 {
				dc = 0
			}
			if uint32(dc) < deleteCount {
				deleteCount = uint32(dc)
			}
		}
		var inserted []value.Value
		if len(ctx.Args) > 2 {
			inserted = ctx.Args[2:]
		}
		var removed []value.Value
		for i := uint32(0); i < deleteCount; i++ {
			removed = append(removed, arr.GetElement(start+i))
		}
		var tail []value.Value
		for i := start + deleteCount; i < n; i++ {
			tail = append(tail, arr.GetElement(i))
		}
		idx := start
		for _, val := range inserted {
			arr.SetElement(idx, val)
			idx++
		}
		for _, val := range tail {
			arr.SetElement(idx, val)
			idx++
		}
		for ; idx < n; idx++ {
			arr.DeleteElement(idx)
		}
		arr.SetLength(start + uint32(len(inserted)) + uint32(len(tail)))
		return arrayFromValues(v, removed), nil
	})

	defineMethod(v, protoObj, "concat", func(ctx *object.CallContext) (value.Value, error) {
		base, _ := toArrayLike(v, ctx.This)
		out := append([]value.Value{}, base...)
		for _, a := range ctx.Args {
			if elems, ok := toArrayLike(v, a); ok {
				out = append(out, elems...)
			} else {
				out = append(out, a)
			}
		}
		return arrayFromValues(v, out), nil
	})

	defineMethod(v, protoObj, "join", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Str(v.Strings().Intern("")), nil
		}
		sep := ","
		if ctx.Arg(0).IsString() {
			sep = v.Strings().Resolve(ctx.Arg(0).StringID())
		} else if len(ctx.Args) > 0 && !ctx.Arg(0).IsUndefined() {
			s, err := v.ToStringValue(ctx.Arg(0))
			if err != nil {
				return value.Undef(), err
			}
			sep = v.Strings().Resolve(s.StringID())
		}
		out := ""
		for i := uint32(0); i < arr.Length(); i++ {
			if i > 0 {
				out += sep
			}
			el := arr.GetElement(i)
			if el.IsNullish() {
				continue
			}
			s, err := v.ToStringValue(el)
			if err != nil {
				return value.Undef(), err
			}
			out += v.Strings().Resolve(s.StringID())
		}
		return value.Str(v.Strings().Intern(out)), nil
	})

	defineMethod(v, protoObj, "indexOf", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Num(-1), nil
		}
		target := ctx.Arg(0)
		for i := uint32(0); i < arr.Length(); i++ {
			eq, err := v.StrictEquals(arr.GetElement(i), target)
			if err != nil {
				return value.Undef(), err
			}
			if eq {
				return value.Num(float64(i)), nil
			}
		}
		return value.Num(-1), nil
	})

	defineMethod(v, protoObj, "includes", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Bool(false), nil
		}
		target := ctx.Arg(0)
		for i := uint32(0); i < arr.Length(); i++ {
			el := arr.GetElement(i)
			if value.SameValueZero(el, target) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	})

	defineMethod(v, protoObj, "reverse", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return ctx.This, nil
		}
		n := arr.Length()
		for i, j := uint32(0), n; i < j; i, j = i+1, j-1 {
			vi, vj := arr.GetElement(i), arr.GetElement(j-1)
			arr.SetElement(i, vj)
			arr.SetElement(j-1, vi)
		}
		return ctx.This, nil
	})

	defineMethod(v, protoObj, "fill", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return ctx.This, nil
		}
		start, end, err := sliceRange(v, sliceCtxFrom(ctx, 1), arr.Length())
		if err != nil {
			return value.Undef(), err
		}
		fillVal := ctx.Arg(0)
		for i := start; i < end; i++ {
			arr.SetElement(i, fillVal)
		}
		return ctx.This, nil
	})

	defineMethod(v, protoObj, "forEach", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Undef(), nil
		}
		cb, thisArg := ctx.Arg(0), ctx.Arg(1)
		for i := uint32(0); i < arr.Length(); i++ {
			if _, err := ctx.Invoke(ctx.Alloc, ctx.Scope, cb, thisArg, []value.Value{arr.GetElement(i), value.Num(float64(i)), ctx.This}); err != nil {
				return value.Undef(), err
			}
		}
		return value.Undef(), nil
	})

	defineMethod(v, protoObj, "map", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return arrayFromValues(v, nil), nil
		}
		cb, thisArg := ctx.Arg(0), ctx.Arg(1)
		out := make([]value.Value, 0, arr.Length())
		for i := uint32(0); i < arr.Length(); i++ {
			res, err := ctx.Invoke(ctx.Alloc, ctx.Scope, cb, thisArg, []value.Value{arr.GetElement(i), value.Num(float64(i)), ctx.This})
			if err != nil {
				return value.Undef(), err
			}
			out = append(out, res)
		}
		return arrayFromValues(v, out), nil
	})

	defineMethod(v, protoObj, "filter", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return arrayFromValues(v, nil), nil
		}
		cb, thisArg := ctx.Arg(0), ctx.Arg(1)
		var out []value.Value
		for i := uint32(0); i < arr.Length(); i++ {
			el := arr.GetElement(i)
			res, err := ctx.Invoke(ctx.Alloc, ctx.Scope, cb, thisArg, []value.Value{el, value.Num(float64(i)), ctx.This})
			if err != nil {
				return value.Undef(), err
			}
			if v.Truthy(res) {
				out = append(out, el)
			}
		}
		return arrayFromValues(v, out), nil
	})

	defineMethod(v, protoObj, "find", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Undef(), nil
		}
		cb, thisArg := ctx.Arg(0), ctx.Arg(1)
		for i := uint32(0); i < arr.Length(); i++ {
			el := arr.GetElement(i)
			res, err := ctx.Invoke(ctx.Alloc, ctx.Scope, cb, thisArg, []value.Value{el, value.Num(float64(i)), ctx.This})
			if err != nil {
				return value.Undef(), err
			}
			if v.Truthy(res) {
				return el, nil
			}
		}
		return value.Undef(), nil
	})

	defineMethod(v, protoObj, "findIndex", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Num(-1), nil
		}
		cb, thisArg := ctx.Arg(0), ctx.Arg(1)
		for i := uint32(0); i < arr.Length(); i++ {
			el := arr.GetElement(i)
			res, err := ctx.Invoke(ctx.Alloc, ctx.Scope, cb, thisArg, []value.Value{el, value.Num(float64(i)), ctx.This})
			if err != nil {
				return value.Undef(), err
			}
			if v.Truthy(res) {
				return value.Num(float64(i)), nil
			}
		}
		return value.Num(-1), nil
	})

	defineMethod(v, protoObj, "some", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Bool(false), nil
		}
		cb, thisArg := ctx.Arg(0), ctx.Arg(1)
		for i := uint32(0); i < arr.Length(); i++ {
			el := arr.GetElement(i)
			res, err := ctx.Invoke(ctx.Alloc, ctx.Scope, cb, thisArg, []value.Value{el, value.Num(float64(i)), ctx.This})
			if err != nil {
				return value.Undef(), err
			}
			if v.Truthy(res) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	})

	defineMethod(v, protoObj, "every", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Bool(true), nil
		}
		cb, thisArg := ctx.Arg(0), ctx.Arg(1)
		for i := uint32(0); i < arr.Length(); i++ {
			el := arr.GetElement(i)
			res, err := ctx.Invoke(ctx.Alloc, ctx.Scope, cb, thisArg, []value.Value{el, value.Num(float64(i)), ctx.This})
			if err != nil {
				return value.Undef(), err
			}
			if !v.Truthy(res) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	})

	defineMethod(v, protoObj, "reduce", func(ctx *object.CallContext) (value.Value, error) {
		arr, ok := thisArray(ctx)
		if !ok {
			return value.Undef(), v.TypeError("Array.prototype.reduce called on non-array")
		}
		cb := ctx.Arg(0)
		n := arr.Length()
		i := uint32(0)
		var acc value.Value
		if len(ctx.Args) > 1 {
			acc = ctx.Arg(1)
		} else {
			if n == 0 {
				return value.Undef(), v.TypeError("reduce of empty array with no initial value")
			}
			acc = arr.GetElement(0)
			i = 1
		}
		for ; i < n; i++ {
			el := arr.GetElement(i)
			res, err := ctx.Invoke(ctx.Alloc, ctx.Scope, cb, value.Undef(), []value.Value{acc, el, value.Num(float64(i)), ctx.This})
			if err != nil {
				return value.Undef(), err
			}
			acc = res
		}
		return acc, nil
	})

	defineMethod(v, protoObj, "toString", func(ctx *object.CallContext) (value.Value, error) {
		joinFn, err := object.Get(ctx.Alloc, protoObj, ctx.This, object.StringKey(v.Strings().Intern("join")), ctx.Invoke, ctx.Scope)
		if err != nil {
			return value.Undef(), err
		}
		return ctx.Invoke(ctx.Alloc, ctx.Scope, joinFn, ctx.This, nil)
	})

	ctor := newConstructor(v, statics.ProtoArray, "Array", func(ctx *object.CallContext) (value.Value, error) {
		if len(ctx.Args) == 1 && ctx.Arg(0).IsNumber() {
			n := ctx.Arg(0).Number()
			if n < 0 || n != float64(uint32(n)) {
				return value.Undef(), v.RangeError("invalid array length")
			}
			arr, val := newArray(v)
			arr.SetLength(uint32(n))
			return val, nil
		}
		return arrayFromValues(v, ctx.Args), nil
	})
	ctorObj := object.Object(ctor)

	defineMethod(v, ctorObj, "isArray", func(ctx *object.CallContext) (value.Value, error) {
		obj, ok := resolveObject(v, ctx.Arg(0))
		if !ok {
			return value.Bool(false), nil
		}
		_, ok = obj.Extract(object.TagArray)
		return value.Bool(ok), nil
	})

	defineMethod(v, ctorObj, "of", func(ctx *object.CallContext) (value.Value, error) {
		return arrayFromValues(v, ctx.Args), nil
	})

	defineMethod(v, ctorObj, "from", func(ctx *object.CallContext) (value.Value, error) {
		src := ctx.Arg(0)
		mapFn := ctx.Arg(1)

		var items []value.Value
		if elems, ok := toArrayLike(v, src); ok {
			items = elems
		} else if drained, ok, err := drainIterable(v, ctx, src); err != nil {
			return value.Undef(), err
		} else if ok {
			items = drained
		} else if obj, ok := resolveObject(v, src); ok {
			lenVal, err := object.Get(ctx.Alloc, obj, src, object.StringKey(v.Strings().Intern("length")), ctx.Invoke, ctx.Scope)
			if err != nil {
				return value.Undef(), err
			}
			n, err := v.ToNumber(lenVal)
			if err != nil {
				return value.Undef(), err
			}
			for i := 0; i < int(n); i++ {
				el, err := object.Get(ctx.Alloc, obj, src, object.StringKey(v.Strings().Intern(strconv.Itoa(i))), ctx.Invoke, ctx.Scope)
				if err != nil {
					return value.Undef(), err
				}
				items = append(items, el)
			}
		}

		if mapFn.IsObject() {
			mapped := make([]value.Value, len(items))
			for i, el := range items {
				out, err := ctx.Invoke(ctx.Alloc, ctx.Scope, mapFn, value.Undef(), []value.Value{el, value.Num(float64(i))})
				if err != nil {
					return value.Undef(), err
				}
				mapped[i] = out
			}
			items = mapped
		}
		return arrayFromValues(v, items), nil
	})
}

func sliceRange(v *vm.VM, ctx *object.CallContext, length uint32) (uint32, uint32, error) {
	start := clampIndex(argNumber(v, ctx, 0, 0), length)
	end := length
	if len(ctx.Args) > 1 && !ctx.Arg(1).IsUndefined() {
		end = clampIndex(argNumber(v, ctx, 1, float64(length)), length)
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

func argNumber(v *vm.VM, ctx *object.CallContext, i int, fallback float64) float64 {
	if i >= len(ctx.Args) || ctx.Arg(i).IsUndefined() {
		return fallback
	}
	n, err := v.ToNumber(ctx.Arg(i))
	if err != nil {
		return fallback
	}
	return n
}

func clampIndex(n float64, length uint32) uint32 {
	if n < 0 {
		n += float64(length)
	}
	if n < 0 {
		return 0
	}
	if n > float64(length) {
		return length
	}
	return uint32(n)
}
