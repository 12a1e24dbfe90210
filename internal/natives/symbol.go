package natives

import (
	"fmt"

	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// installSymbol's descriptions map takes an interned symbol id back to its
// human-readable description for Symbol.prototype.toString. The interner
// dedups by string content, so two `Symbol("x")` calls minting the same
// description text directly would collide into the same InternedStringId —
// wrong, since distinct Symbol() calls must never compare equal. symbolSeq
// instead gives each call a unique interned string by suffixing a counter,
// and this side table recovers the description the caller actually asked
// for.
var symbolSeq int

func installSymbol(v *vm.VM) {
	protoVal := v.Statics().Prototype(statics.ProtoSymbol)
	proto, _ := resolveObject(v, protoVal)
	descriptions := make(map[value.InternedStringId]string)

	defineMethod(v, proto, "toString", func(ctx *object.CallContext) (value.Value, error) {
		if !ctx.This.IsSymbol() {
			return value.Undef(), v.TypeError("Symbol.prototype.toString called on non-symbol")
		}
		desc := descriptions[ctx.This.StringID()]
		return value.Str(v.Strings().Intern("Symbol(" + desc + ")")), nil
	})
	defineMethod(v, proto, "valueOf", func(ctx *object.CallContext) (value.Value, error) {
		return ctx.This, nil
	})

	ctor := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), "Symbol", func(ctx *object.CallContext) (value.Value, error) {
		if ctx.NewTarget.IsObject() {
			return value.Undef(), v.TypeError("Symbol is not a constructor")
		}
		desc := ""
		if len(ctx.Args) > 0 && !ctx.Arg(0).IsUndefined() {
			s, err := v.ToStringValue(ctx.Arg(0))
			if err != nil {
				return value.Undef(), err
			}
			desc = v.Strings().Resolve(s.StringID())
		}
		symbolSeq++
		id := v.Strings().Intern(fmt.Sprintf("@@symbol:%d:%s", symbolSeq, desc))
		descriptions[id] = desc
		return value.Sym(id), nil
	})
	ctorID := v.Alloc().AllocObject(ctor, v)
	ctorVal := value.Obj(ctorID)
	ctor.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern("prototype")), object.PropertyValue{
		Static: protoVal, Flags: constFlags,
	})
	proto.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern("constructor")), object.PropertyValue{
		Static: ctorVal, Flags: methodFlags,
	})
	v.Statics().SetConstructor(statics.ProtoSymbol, ctorVal)

	defineValue(v, ctor, "iterator", value.Sym(statics.SymIterator), constFlags)
	defineValue(v, ctor, "asyncIterator", value.Sym(statics.SymAsyncIterator), constFlags)
	defineValue(v, ctor, "toPrimitive", value.Sym(statics.SymToPrimitive), constFlags)
	defineValue(v, ctor, "toStringTag", value.Sym(statics.SymToStringTag), constFlags)
	defineValue(v, ctor, "hasInstance", value.Sym(statics.SymHasInstance), constFlags)
}
