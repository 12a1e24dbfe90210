package natives

import (
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// installBoolean wires Boolean.prototype and the Boolean constructor
// (spec.md §2). Like Number, `new Boolean(x)` boxes via object.NewBoxObject;
// calling Boolean(x) without `new` just coerces to a primitive.
func installBoolean(v *vm.VM) {
	protoVal := v.Statics().Prototype(statics.ProtoBoolean)
	proto, _ := resolveObject(v, protoVal)

	unbox := func(ctx *object.CallContext) (bool, error) {
		if ctx.This.IsBoolean() {
			return ctx.This.Boolean(), nil
		}
		if obj, ok := resolveObject(v, ctx.This); ok {
			if slots := obj.InternalSlots(); slots != nil && slots.Kind == value.Boolean {
				return slots.Value.Boolean(), nil
			}
		}
		return false, v.TypeError("Boolean.prototype method called on incompatible receiver")
	}

	defineMethod(v, proto, "valueOf", func(ctx *object.CallContext) (value.Value, error) {
		b, err := unbox(ctx)
		return value.Bool(b), err
	})
	defineMethod(v, proto, "toString", func(ctx *object.CallContext) (value.Value, error) {
		b, err := unbox(ctx)
		if err != nil {
			return value.Undef(), err
		}
		if b {
			return value.Str(v.Strings().Intern("true")), nil
		}
		return value.Str(v.Strings().Intern("false")), nil
	})

	newConstructor(v, statics.ProtoBoolean, "Boolean", func(ctx *object.CallContext) (value.Value, error) {
		b := v.Truthy(ctx.Arg(0))
		if !ctx.NewTarget.IsObject() {
			return value.Bool(b), nil
		}
		box := object.NewBoxObject(v.Statics().Prototype(statics.ProtoBoolean), value.Bool(b))
		id := ctx.Alloc.AllocObject(box, v)
		return value.Obj(id), nil
	})
}
