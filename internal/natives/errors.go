package natives

import (
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// errorKinds lists every concrete Error subclass this engine builds,
// paired with the ProtoKey internal/vm/errvalue.go's protoForCategory
// already expects (spec.md §7 "Error hierarchy"). Error itself comes
// first since every subclass prototype chains to it.
var errorKinds = []struct {
	key  statics.ProtoKey
	name string
}{
	{statics.ProtoError, "Error"},
	{statics.ProtoTypeError, "TypeError"},
	{statics.ProtoRangeError, "RangeError"},
	{statics.ProtoReferenceError, "ReferenceError"},
	{statics.ProtoSyntaxError, "SyntaxError"},
}

// installErrors wires the Error/TypeError/RangeError/ReferenceError/
// SyntaxError prototypes and constructors. Every subclass constructor
// builds an *object.ErrorObject (the same shape internal/vm/errvalue.go
// builds for engine-raised errors), so `catch (e)` sees one consistent
// representation whether the throw came from script code or the VM
// itself.
func installErrors(v *vm.VM) {
	for _, kind := range errorKinds {
		kind := kind
		protoVal := v.Statics().Prototype(kind.key)
		proto, _ := resolveObject(v, protoVal)

		defineValue(v, proto, "name", value.Str(v.Strings().Intern(kind.name)), methodFlags)
		defineValue(v, proto, "message", value.Str(v.Strings().Intern("")), methodFlags)

		defineMethod(v, proto, "toString", func(ctx *object.CallContext) (value.Value, error) {
			self, ok := resolveObject(v, ctx.This)
			if !ok {
				return value.Str(v.Strings().Intern(kind.name)), nil
			}
			name := kind.name
			if pv, ok := self.GetOwnPropertyDescriptor(ctx.Alloc, object.StringKey(v.Strings().Intern("name"))); ok {
				if s, err := v.ToStringValue(pv.Static); err == nil {
					name = v.Strings().Resolve(s.StringID())
				}
			}
			message := ""
			if pv, ok := self.GetOwnPropertyDescriptor(ctx.Alloc, object.StringKey(v.Strings().Intern("message"))); ok {
				if s, err := v.ToStringValue(pv.Static); err == nil {
					message = v.Strings().Resolve(s.StringID())
				}
			}
			if message == "" {
				return value.Str(v.Strings().Intern(name)), nil
			}
			return value.Str(v.Strings().Intern(name + ": " + message)), nil
		})

		name := kind.name
		key := kind.key
		newConstructor(v, key, name, func(ctx *object.CallContext) (value.Value, error) {
			message := ""
			if len(ctx.Args) > 0 && !ctx.Arg(0).IsUndefined() {
				s, err := v.ToStringValue(ctx.Arg(0))
				if err != nil {
					return value.Undef(), err
				}
				message = v.Strings().Resolve(s.StringID())
			}
			obj := object.NewErrorObject(v.Statics().Prototype(key), v.Strings().Intern(name), v.Strings().Intern(message), nil)
			obj.SetProperty(ctx.Alloc, object.StringKey(v.Strings().Intern("message")), object.PropertyValue{
				Static: value.Str(v.Strings().Intern(message)), Flags: object.DefaultDataDescriptor(),
			})
			id := ctx.Alloc.AllocObject(obj, v)
			return value.Obj(id), nil
		})
	}

	// Every non-base Error prototype chains to Error.prototype, not
	// directly to Object.prototype, so `err instanceof Error` holds for
	// every subclass.
	for _, kind := range errorKinds[1:] {
		protoVal := v.Statics().Prototype(kind.key)
		proto, _ := resolveObject(v, protoVal)
		proto.SetPrototype(v.Statics().Prototype(statics.ProtoError))
	}
}
