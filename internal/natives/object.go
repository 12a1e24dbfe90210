package natives

import (
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// installObject wires Object.prototype and the Object constructor (spec.md
// §3.2, §2's minimum prototype surface). Grounded on go-dws's
// registry.go pattern: one function per builtin group, called in
// dependency order from Install.
func installObject(v *vm.VM) {
	protoVal := v.Statics().Prototype(statics.ProtoObject)
	proto, _ := resolveObject(v, protoVal)

	defineMethod(v, proto, "hasOwnProperty", func(ctx *object.CallContext) (value.Value, error) {
		self, ok := resolveObject(v, ctx.This)
		if !ok {
			return value.Bool(false), nil
		}
		key, err := propertyKeyArg(v, ctx, 0)
		if err != nil {
			return value.Undef(), err
		}
		_, ok = self.GetOwnPropertyDescriptor(ctx.Alloc, key)
		return value.Bool(ok), nil
	})

	defineMethod(v, proto, "isPrototypeOf", func(ctx *object.CallContext) (value.Value, error) {
		arg := ctx.Arg(0)
		if !arg.IsObject() || !ctx.This.IsObject() {
			return value.Bool(false), nil
		}
		argObj, ok := resolveObject(v, arg)
		if !ok {
			return value.Bool(false), nil
		}
		cur := argObj.GetPrototype()
		for cur.IsObject() {
			if cur.ObjectID() == ctx.This.ObjectID() {
				return value.Bool(true), nil
			}
			next, ok := resolveObject(v, cur)
			if !ok {
				break
			}
			cur = next.GetPrototype()
		}
		return value.Bool(false), nil
	})

	defineMethod(v, proto, "propertyIsEnumerable", func(ctx *object.CallContext) (value.Value, error) {
		self, ok := resolveObject(v, ctx.This)
		if !ok {
			return value.Bool(false), nil
		}
		key, err := propertyKeyArg(v, ctx, 0)
		if err != nil {
			return value.Undef(), err
		}
		pv, ok := self.GetOwnPropertyDescriptor(ctx.Alloc, key)
		return value.Bool(ok && pv.Flags&object.Enumerable != 0), nil
	})

	defineMethod(v, proto, "toString", func(ctx *object.CallContext) (value.Value, error) {
		return value.Str(v.Strings().Intern("[object Object]")), nil
	})

	defineMethod(v, proto, "valueOf", func(ctx *object.CallContext) (value.Value, error) {
		return ctx.This, nil
	})

	ctor := newConstructor(v, statics.ProtoObject, "Object", func(ctx *object.CallContext) (value.Value, error) {
		arg := ctx.Arg(0)
		if arg.IsObject() {
			return arg, nil
		}
		_, val := newOrdinary(v)
		return val, nil
	})
	ctorObj := object.Object(ctor)

	defineMethod(v, ctorObj, "keys", func(ctx *object.CallContext) (value.Value, error) {
		obj, ok := resolveObject(v, ctx.Arg(0))
		if !ok {
			return arrayFromValues(v, nil), nil
		}
		var out []value.Value
		for _, key := range obj.OwnKeys(ctx.Alloc) {
			if key.IsSymbol {
				continue
			}
			pv, ok := obj.GetOwnPropertyDescriptor(ctx.Alloc, key)
			if !ok || pv.Flags&object.Enumerable == 0 {
				continue
			}
			out = append(out, value.Str(key.ID))
		}
		return arrayFromValues(v, out), nil
	})
	defineMethod(v, ctorObj, "values", func(ctx *object.CallContext) (value.Value, error) {
		obj, ok := resolveObject(v, ctx.Arg(0))
		if !ok {
			return arrayFromValues(v, nil), nil
		}
		var out []value.Value
		for _, key := range obj.OwnKeys(ctx.Alloc) {
			if key.IsSymbol {
				continue
			}
			pv, ok := obj.GetOwnPropertyDescriptor(ctx.Alloc, key)
			if !ok || pv.Flags&object.Enumerable == 0 {
				continue
			}
			val, err := object.Get(ctx.Alloc, obj, ctx.Arg(0), key, ctx.Invoke, ctx.Scope)
			if err != nil {
				return value.Undef(), err
			}
			out = append(out, val)
		}
		return arrayFromValues(v, out), nil
	})
	defineMethod(v, ctorObj, "entries", func(ctx *object.CallContext) (value.Value, error) {
		obj, ok := resolveObject(v, ctx.Arg(0))
		if !ok {
			return arrayFromValues(v, nil), nil
		}
		var entries []value.Value
		for _, key := range obj.OwnKeys(ctx.Alloc) {
			if key.IsSymbol {
				continue
			}
			pv, ok := obj.GetOwnPropertyDescriptor(ctx.Alloc, key)
			if !ok || pv.Flags&object.Enumerable == 0 {
				continue
			}
			val, err := object.Get(ctx.Alloc, obj, ctx.Arg(0), key, ctx.Invoke, ctx.Scope)
			if err != nil {
				return value.Undef(), err
			}
			entries = append(entries, arrayFromValues(v, []value.Value{value.Str(key.ID), val}))
		}
		return arrayFromValues(v, entries), nil
	})
	defineMethod(v, ctorObj, "assign", func(ctx *object.CallContext) (value.Value, error) {
		target, ok := resolveObject(v, ctx.Arg(0))
		if !ok {
			return value.Undef(), v.TypeError("Object.assign target must be an object")
		}
		extra := ctx.Args
		if len(extra) > 1 {
			extra = extra[1:]
		} else {
			extra = nil
		}
		for _, src := range extra {
			srcObj, ok := resolveObject(v, src)
			if !ok {
				continue
			}
			for _, key := range srcObj.OwnKeys(ctx.Alloc) {
				pv, ok := srcObj.GetOwnPropertyDescriptor(ctx.Alloc, key)
				if !ok || pv.Flags&object.Enumerable == 0 {
					continue
				}
				val, err := object.Get(ctx.Alloc, srcObj, src, key, ctx.Invoke, ctx.Scope)
				if err != nil {
					return value.Undef(), err
				}
				if err := object.Set(ctx.Alloc, target, ctx.Arg(0), key, val, ctx.Invoke, ctx.Scope); err != nil {
					return value.Undef(), err
				}
			}
		}
		return ctx.Arg(0), nil
	})
	defineMethod(v, ctorObj, "freeze", func(ctx *object.CallContext) (value.Value, error) {
		if obj, ok := resolveObject(v, ctx.Arg(0)); ok {
			if ord, ok := obj.(interface{ SetExtensible(bool) }); ok {
				ord.SetExtensible(false)
			}
		}
		return ctx.Arg(0), nil
	})
	defineMethod(v, ctorObj, "isFrozen", func(ctx *object.CallContext) (value.Value, error) {
		obj, ok := resolveObject(v, ctx.Arg(0))
		if !ok {
			return value.Bool(true), nil
		}
		if ord, ok := obj.(interface{ Extensible() bool }); ok {
			return value.Bool(!ord.Extensible()), nil
		}
		return value.Bool(false), nil
	})
	defineMethod(v, ctorObj, "getPrototypeOf", func(ctx *object.CallContext) (value.Value, error) {
		obj, ok := resolveObject(v, ctx.Arg(0))
		if !ok {
			return value.Nul(), nil
		}
		return obj.GetPrototype(), nil
	})
	defineMethod(v, ctorObj, "setPrototypeOf", func(ctx *object.CallContext) (value.Value, error) {
		obj, ok := resolveObject(v, ctx.Arg(0))
		if !ok {
			return ctx.Arg(0), nil
		}
		return ctx.Arg(0), obj.SetPrototype(ctx.Arg(1))
	})
	defineMethod(v, ctorObj, "create", func(ctx *object.CallContext) (value.Value, error) {
		proto := ctx.Arg(0)
		if !proto.IsObject() && !proto.IsNull() {
			return value.Undef(), v.TypeError("Object.create prototype must be an object or null")
		}
		inst := object.NewOrdObject(proto)
		id := ctx.Alloc.AllocObject(inst, v)
		return value.Obj(id), nil
	})
	defineMethod(v, ctorObj, "defineProperty", func(ctx *object.CallContext) (value.Value, error) {
		target, ok := resolveObject(v, ctx.Arg(0))
		if !ok {
			return value.Undef(), v.TypeError("Object.defineProperty target must be an object")
		}
		key, err := propertyKeyArg(v, ctx, 1)
		if err != nil {
			return value.Undef(), err
		}
		desc, ok := resolveObject(v, ctx.Arg(2))
		if !ok {
			return value.Undef(), v.TypeError("property descriptor must be an object")
		}
		pv := descriptorFromObject(v, ctx, desc)
		if err := target.SetProperty(ctx.Alloc, key, pv); err != nil {
			return value.Undef(), err
		}
		return ctx.Arg(0), nil
	})
	defineMethod(v, ctorObj, "getOwnPropertyNames", func(ctx *object.CallContext) (value.Value, error) {
		obj, ok := resolveObject(v, ctx.Arg(0))
		if !ok {
			return arrayFromValues(v, nil), nil
		}
		var out []value.Value
		for _, key := range obj.OwnKeys(ctx.Alloc) {
			if !key.IsSymbol {
				out = append(out, value.Str(key.ID))
			}
		}
		return arrayFromValues(v, out), nil
	})
}

func propertyKeyArg(v *vm.VM, ctx *object.CallContext, i int) (object.PropertyKey, error) {
	arg := ctx.Arg(i)
	if arg.IsSymbol() {
		return object.SymbolKey(arg.StringID()), nil
	}
	s, err := v.ToStringValue(arg)
	if err != nil {
		return object.PropertyKey{}, err
	}
	return object.StringKey(s.StringID()), nil
}

func descriptorFromObject(v *vm.VM, ctx *object.CallContext, desc object.Object) object.PropertyValue {
	get := func(name string) (value.Value, bool) {
		pv, ok := desc.GetOwnPropertyDescriptor(ctx.Alloc, object.StringKey(v.Strings().Intern(name)))
		if !ok {
			return value.Undef(), false
		}
		return pv.Static, true
	}
	pv := object.PropertyValue{}
	if val, ok := get("value"); ok {
		pv.Static = val
	}
	if getter, ok := get("get"); ok {
		pv.IsAccessor = true
		pv.Getter = getter
	}
	if setter, ok := get("set"); ok {
		pv.IsAccessor = true
		pv.Setter = setter
	}
	if w, ok := get("writable"); ok && v.Truthy(w) {
		pv.Flags |= object.Writable
	}
	if e, ok := get("enumerable"); ok && v.Truthy(e) {
		pv.Flags |= object.Enumerable
	}
	if c, ok := get("configurable"); ok && v.Truthy(c) {
		pv.Flags |= object.Configurable
	}
	return pv
}

