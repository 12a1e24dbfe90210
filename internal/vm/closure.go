package vm

import (
	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
)

// makeClosure builds a FunctionObject from a constant-pool function
// template, resolving each upvalue descriptor against the enclosing frame
// currently executing the LOAD_CONST that references it (spec.md §3.3
// "closures capture by reference"). IsExternal reuses the enclosing
// function's own upvalue cell directly; otherwise a new cell is minted (or
// reused, if some earlier closure already captured the same local) via
// Frame.captureLocal so every closure over that local shares one cell.
func (v *VM) makeClosure(enclosing *Frame, cf *bytecode.CompiledFunction) value.Value {
	upvalues := make([]*object.Upvalue, len(cf.Upvalues))
	for i, d := range cf.Upvalues {
		if d.IsExternal {
			upvalues[i] = enclosing.upvalues[d.Index]
		} else {
			upvalues[i] = enclosing.captureLocal(int(d.Index))
		}
	}
	fo := object.NewUserFunction(v.statics.Prototype(statics.ProtoFunction), cf, upvalues)
	id := v.alloc.AllocObject(fo, v)
	fnVal := value.Obj(id)

	// Every non-arrow function gets a fresh .prototype object with a
	// .constructor back-reference, the object `new` binds an instance's
	// own prototype to (spec.md §3.3 "constructor invocation"). Arrow
	// functions are not distinguished in CompiledFunction today, so this
	// engine gives every compiled function one, arrows included, and
	// nothing rejects `new` on an arrow function.
	protoObj := object.NewOrdObject(v.statics.Prototype(statics.ProtoObject))
	protoID := v.alloc.AllocObject(protoObj, v)
	ctorKey := object.StringKey(v.strings.Intern("constructor"))
	protoObj.SetProperty(v.alloc, ctorKey, object.PropertyValue{
		Static: fnVal,
		Flags:  object.Writable | object.Configurable,
	})
	protoKey := object.StringKey(v.strings.Intern("prototype"))
	fo.SetProperty(v.alloc, protoKey, object.PropertyValue{
		Static: value.Obj(protoID),
		Flags:  object.Writable,
	})
	return fnVal
}
