package natives

import (
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// typedArrayKinds lists the nine TypedArray constructors by script-visible
// name and element kind; installArrayBuffer builds one native constructor
// per entry and returns them so natives.go can bind each onto globals. All nine
// share the single ProtoTypedArray prototype the statics table carries —
// spec.md's minimal prototype surface does not need Int8Array.prototype
// distinct from Float64Array.prototype, only the element-kind-specific
// GetElement/SetElement behavior already lives on TypedArrayObject itself.
var typedArrayKinds = []struct {
	name string
	kind object.TypedArrayKind
}{
	{"Int8Array", object.KindInt8},
	{"Uint8Array", object.KindUint8},
	{"Uint8ClampedArray", object.KindUint8Clamped},
	{"Int16Array", object.KindInt16},
	{"Uint16Array", object.KindUint16},
	{"Int32Array", object.KindInt32},
	{"Uint32Array", object.KindUint32},
	{"Float32Array", object.KindFloat32},
	{"Float64Array", object.KindFloat64},
}

// installArrayBuffer wires ArrayBuffer and the nine TypedArray
// constructors/prototype methods (spec.md §2). Returns the constructor
// FunctionObjects so natives.go can bind them as globals.
func installArrayBuffer(v *vm.VM) map[string]*object.FunctionObject {
	abProtoVal := v.Statics().Prototype(statics.ProtoArrayBuffer)
	abProto, _ := resolveObject(v, abProtoVal)

	defineMethod(v, abProto, "slice", func(ctx *object.CallContext) (value.Value, error) {
		obj, ok := resolveObject(v, ctx.This)
		if !ok {
			return value.Undef(), v.TypeError("ArrayBuffer.prototype.slice called on non-buffer")
		}
		raw, ok := obj.Extract(object.TagArrayBuffer)
		if !ok {
			return value.Undef(), v.TypeError("ArrayBuffer.prototype.slice called on non-buffer")
		}
		buf := raw.(*object.ArrayBufferObject)
		start, end, err := sliceRange(v, ctx, uint32(buf.ByteLength()))
		if err != nil {
			return value.Undef(), err
		}
		out := object.NewArrayBufferObject(abProtoVal, int(end-start))
		copy(out.Bytes(), buf.Bytes()[start:end])
		id := ctx.Alloc.AllocObject(out, v)
		return value.Obj(id), nil
	})

	newConstructor(v, statics.ProtoArrayBuffer, "ArrayBuffer", func(ctx *object.CallContext) (value.Value, error) {
		n, err := v.ToNumber(ctx.Arg(0))
		if err != nil {
			return value.Undef(), err
		}
		if n < 0 {
			return value.Undef(), v.RangeError("invalid ArrayBuffer length")
		}
		buf := object.NewArrayBufferObject(abProtoVal, int(n))
		id := ctx.Alloc.AllocObject(buf, v)
		return value.Obj(id), nil
	})
	defineGetter(v, abProto, "byteLength", func(ctx *object.CallContext) (value.Value, error) {
		obj, ok := resolveObject(v, ctx.This)
		if !ok {
			return value.Num(0), nil
		}
		if raw, ok := obj.Extract(object.TagArrayBuffer); ok {
			return value.Num(float64(raw.(*object.ArrayBufferObject).ByteLength())), nil
		}
		return value.Num(0), nil
	})

	taProtoVal := v.Statics().Prototype(statics.ProtoTypedArray)
	taProto, _ := resolveObject(v, taProtoVal)

	thisTyped := func(ctx *object.CallContext) (*object.TypedArrayObject, bool) {
		obj, ok := resolveObject(v, ctx.This)
		if !ok {
			return nil, false
		}
		raw, ok := obj.Extract(object.TagTypedArray)
		if !ok {
			return nil, false
		}
		return raw.(*object.TypedArrayObject), true
	}

	defineMethod(v, taProto, "fill", func(ctx *object.CallContext) (value.Value, error) {
		t, ok := thisTyped(ctx)
		if !ok {
			return ctx.This, nil
		}
		n, err := v.ToNumber(ctx.Arg(0))
		if err != nil {
			return value.Undef(), err
		}
		start, end, err := sliceRange(v, sliceCtxFrom(ctx, 1), uint32(t.Length()))
		if err != nil {
			return value.Undef(), err
		}
		for i := start; i < end; i++ {
			t.SetElement(int(i), n)
		}
		return ctx.This, nil
	})
	defineMethod(v, taProto, "forEach", func(ctx *object.CallContext) (value.Value, error) {
		t, ok := thisTyped(ctx)
		if !ok {
			return value.Undef(), nil
		}
		cb, thisArg := ctx.Arg(0), ctx.Arg(1)
		for i := 0; i < t.Length(); i++ {
			if _, err := ctx.Invoke(ctx.Alloc, ctx.Scope, cb, thisArg, []value.Value{t.GetElement(i), value.Num(float64(i)), ctx.This}); err != nil {
				return value.Undef(), err
			}
		}
		return value.Undef(), nil
	})
	defineGetter(v, taProto, "length", func(ctx *object.CallContext) (value.Value, error) {
		t, ok := thisTyped(ctx)
		if !ok {
			return value.Num(0), nil
		}
		return value.Num(float64(t.Length())), nil
	})

	ctors := make(map[string]*object.FunctionObject, len(typedArrayKinds))
	for _, tk := range typedArrayKinds {
		tk := tk
		ctors[tk.name] = object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), tk.name, func(ctx *object.CallContext) (value.Value, error) {
			if !ctx.NewTarget.IsObject() {
				return value.Undef(), v.TypeError(tk.name + " constructor requires 'new'")
			}
			arg := ctx.Arg(0)
			elemSize := tk.kind.ElementSize()

			if bufObj, ok := resolveObject(v, arg); ok {
				if raw, ok := bufObj.Extract(object.TagArrayBuffer); ok {
					buf := raw.(*object.ArrayBufferObject)
					offset := 0
					if len(ctx.Args) > 1 {
						off, err := v.ToNumber(ctx.Arg(1))
						if err != nil {
							return value.Undef(), err
						}
						offset = int(off)
					}
					length := (buf.ByteLength() - offset) / elemSize
					if len(ctx.Args) > 2 {
						l, err := v.ToNumber(ctx.Arg(2))
						if err != nil {
							return value.Undef(), err
						}
						length = int(l)
					}
					ta := object.NewTypedArrayObject(taProtoVal, arg, buf, offset, length, tk.kind)
					id := ctx.Alloc.AllocObject(ta, v)
					return value.Obj(id), nil
				}
			}

			var items []value.Value
			if elems, ok := toArrayLike(v, arg); ok {
				items = elems
			} else if drained, ok, err := drainIterable(v, ctx, arg); err != nil {
				return value.Undef(), err
			} else if ok {
				items = drained
			}

			length := len(items)
			if items == nil && arg.IsNumber() {
				length = int(arg.Number())
			}
			buf := object.NewArrayBufferObject(v.Statics().Prototype(statics.ProtoArrayBuffer), length*elemSize)
			bufID := ctx.Alloc.AllocObject(buf, v)
			bufVal := value.Obj(bufID)
			ta := object.NewTypedArrayObject(taProtoVal, bufVal, buf, 0, length, tk.kind)
			for i, item := range items {
				n, err := v.ToNumber(item)
				if err != nil {
					return value.Undef(), err
				}
				ta.SetElement(i, n)
			}
			id := ctx.Alloc.AllocObject(ta, v)
			return value.Obj(id), nil
		})
		ctorID := v.Alloc().AllocObject(ctors[tk.name], v)
		ctorVal := value.Obj(ctorID)
		ctors[tk.name].SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern("prototype")), object.PropertyValue{
			Static: taProtoVal, Flags: constFlags,
		})
		taProto.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern("constructor")), object.PropertyValue{
			Static: ctorVal, Flags: methodFlags,
		})
	}
	return ctors
}

// sliceCtxFrom builds a shallow CallContext view shifted by n args, the way
// fill(value, start, end) on a typed array needs to reuse sliceRange's
// (start, end) arg-reading convention without fill itself occupying arg 0.
func sliceCtxFrom(ctx *object.CallContext, n int) *object.CallContext {
	shifted := *ctx
	if len(ctx.Args) > n {
		shifted.Args = ctx.Args[n:]
	} else {
		shifted.Args = nil
	}
	return &shifted
}
