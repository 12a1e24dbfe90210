package natives

import (
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// installFunction wires Function.prototype (call/apply/bind/toString) and
// the Function constructor (spec.md §3.3). Dynamic code construction
// (`new Function("a", "return a")`) has no home here: parsing source text
// is explicitly outside this module's boundary (spec.md §1), so the
// constructor always fails rather than silently accepting and ignoring its
// string arguments.
func installFunction(v *vm.VM) {
	protoVal := v.Statics().Prototype(statics.ProtoFunction)
	proto, _ := resolveObject(v, protoVal)

	defineMethod(v, proto, "call", func(ctx *object.CallContext) (value.Value, error) {
		this := ctx.Arg(0)
		var args []value.Value
		if len(ctx.Args) > 1 {
			args = ctx.Args[1:]
		}
		return ctx.Invoke(ctx.Alloc, ctx.Scope, ctx.This, this, args)
	})

	defineMethod(v, proto, "apply", func(ctx *object.CallContext) (value.Value, error) {
		this := ctx.Arg(0)
		args, ok := toArrayLike(v, ctx.Arg(1))
		if !ok && ctx.Arg(1).IsObject() {
			return value.Undef(), v.TypeError("second argument to apply must be an array")
		}
		return ctx.Invoke(ctx.Alloc, ctx.Scope, ctx.This, this, args)
	})

	defineMethod(v, proto, "bind", func(ctx *object.CallContext) (value.Value, error) {
		this := ctx.Arg(0)
		var bound []value.Value
		if len(ctx.Args) > 1 {
			bound = append(bound, ctx.Args[1:]...)
		}
		fn := object.NewBoundFunction(v.Statics().Prototype(statics.ProtoFunction), ctx.This, this, bound)
		id := ctx.Alloc.AllocObject(fn, v)
		return value.Obj(id), nil
	})

	defineMethod(v, proto, "toString", func(ctx *object.CallContext) (value.Value, error) {
		name := "anonymous"
		if obj, ok := resolveObject(v, ctx.This); ok {
			if fn, ok := obj.Extract(object.TagFunction); ok {
				name = fn.(*object.FunctionObject).Name
			}
		}
		return value.Str(v.Strings().Intern("function " + name + "() { [native code] }")), nil
	})

	newConstructor(v, statics.ProtoFunction, "Function", func(ctx *object.CallContext) (value.Value, error) {
		return value.Undef(), v.TypeError("Function constructor from source text is not supported")
	})
}
