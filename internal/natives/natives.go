package natives

import (
	"math"

	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// protoChain lists every ProtoKey this package bootstraps, in the order
// their prototype objects must exist before the matching install*
// function runs. Object comes first since every other prototype chains to
// it (directly or, for the Error subclasses, via Error.prototype);
// Function comes second since defineMethod/newConstructor need
// statics.ProtoFunction to already hold a real object before the very
// first native method can be built.
var protoChain = []statics.ProtoKey{
	statics.ProtoObject,
	statics.ProtoFunction,
	statics.ProtoArray,
	statics.ProtoNumber,
	statics.ProtoBoolean,
	statics.ProtoString,
	statics.ProtoSymbol,
	statics.ProtoError,
	statics.ProtoTypeError,
	statics.ProtoRangeError,
	statics.ProtoReferenceError,
	statics.ProtoSyntaxError,
	statics.ProtoPromise,
	statics.ProtoArrayBuffer,
	statics.ProtoTypedArray,
	statics.ProtoGenerator,
}

// Install bootstraps the full prototype surface onto a fresh *vm.VM and
// binds every constructor plus the Math namespace onto its global object
// (spec.md §2, §6.2). pkg/engine calls this once, right after vm.New,
// before any user bytecode runs.
func Install(v *vm.VM) error {
	for _, key := range protoChain {
		proto := object.NewOrdObject(v.Statics().Prototype(statics.ProtoObject))
		if key == statics.ProtoObject {
			proto.SetPrototype(value.Nul())
		}
		id := v.Alloc().AllocObject(proto, v)
		v.Statics().SetPrototype(key, value.Obj(id))
	}

	installObject(v)
	installFunction(v)
	installArray(v)
	installNumber(v)
	installBoolean(v)
	installString(v)
	installSymbol(v)
	installErrors(v)
	installPromise(v)
	typedCtors := installArrayBuffer(v)
	installGenerator(v)

	globals := v.Globals()
	bindGlobalCtor := func(name string, key statics.ProtoKey) {
		globals.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern(name)), object.PropertyValue{
			Static: v.Statics().Constructor(key), Flags: methodFlags,
		})
	}
	bindGlobalCtor("Object", statics.ProtoObject)
	bindGlobalCtor("Function", statics.ProtoFunction)
	bindGlobalCtor("Array", statics.ProtoArray)
	bindGlobalCtor("Number", statics.ProtoNumber)
	bindGlobalCtor("Boolean", statics.ProtoBoolean)
	bindGlobalCtor("String", statics.ProtoString)
	bindGlobalCtor("Symbol", statics.ProtoSymbol)
	bindGlobalCtor("Error", statics.ProtoError)
	bindGlobalCtor("TypeError", statics.ProtoTypeError)
	bindGlobalCtor("RangeError", statics.ProtoRangeError)
	bindGlobalCtor("ReferenceError", statics.ProtoReferenceError)
	bindGlobalCtor("SyntaxError", statics.ProtoSyntaxError)
	bindGlobalCtor("Promise", statics.ProtoPromise)
	bindGlobalCtor("ArrayBuffer", statics.ProtoArrayBuffer)
	for name, ctor := range typedCtors {
		id := v.Alloc().AllocObject(ctor, v)
		globals.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern(name)), object.PropertyValue{
			Static: value.Obj(id), Flags: methodFlags,
		})
	}

	installMath(v, globals)
	return nil
}

// installGenerator wires the one piece of Generator.prototype spec.md
// needs outside what vm's per-instance next/throw/return bindings already
// cover: Symbol.iterator, so `for...of` over a generator (or spreading
// one) works via the same iterator protocol as every other iterable.
func installGenerator(v *vm.VM) {
	protoVal := v.Statics().Prototype(statics.ProtoGenerator)
	proto, _ := resolveObject(v, protoVal)
	nf := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), "[Symbol.iterator]", func(ctx *object.CallContext) (value.Value, error) {
		return ctx.This, nil
	})
	id := v.Alloc().AllocObject(nf, v)
	proto.SetProperty(v.Alloc(), object.SymbolKey(statics.SymIterator), object.PropertyValue{
		Static: value.Obj(id), Flags: methodFlags,
	})
}

// installMath builds the Math namespace object (spec.md §2 minimum
// surface's arithmetic intrinsics; internal/vm/intrinsics.go's fast path
// inlines Math.sin/cos/sqrt/abs/floor/ceil/pow/min/max and falls back to a
// dynamic Math.<method> call once v.mathPoisoned is set). Each of those
// nine is installed as an accessor property whose setter calls
// v.PoisonMath, so monkey-patching one of them is what actually disables
// the fast path.
func installMath(v *vm.VM, globals *object.OrdObject) {
	proto := v.Statics().Prototype(statics.ProtoObject)
	math1 := func(name string, f func(float64) float64) func(*object.CallContext) (value.Value, error) {
		return func(ctx *object.CallContext) (value.Value, error) {
			n, err := v.ToNumber(ctx.Arg(0))
			if err != nil {
				return value.Undef(), err
			}
			return value.Num(f(n)), nil
		}
	}
	mathObj := newNamedNativeObject(v, proto)

	// definePoisoningMethod installs name as an accessor rather than a
	// plain data property: reading it returns the native function as
	// normal, but writing it (Math.sin = something) poisons the VM's
	// intrinsic-dispatch fast path, since internal/vm/intrinsics.go's
	// fast path inlines these nine operations. Reassigning the whole Math
	// object does not poison it (see below).
	definePoisoningMethod := func(name string, fn object.NativeFn) {
		nf := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), name, fn)
		fnID := v.Alloc().AllocObject(nf, v)
		v.Alloc().Retain(fnID)
		getter := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), name, func(*object.CallContext) (value.Value, error) {
			return value.Obj(fnID), nil
		})
		getterID := v.Alloc().AllocObject(getter, v)
		mathObj.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern(name)), object.PropertyValue{
			IsAccessor: true,
			Getter:     value.Obj(getterID),
			Setter:     mathSetter(v),
			Flags:      object.Configurable,
		})
	}

	definePoisoningMethod("sin", math1("sin", math.Sin))
	definePoisoningMethod("cos", math1("cos", math.Cos))
	definePoisoningMethod("sqrt", math1("sqrt", math.Sqrt))
	definePoisoningMethod("abs", math1("abs", math.Abs))
	definePoisoningMethod("floor", math1("floor", math.Floor))
	definePoisoningMethod("ceil", math1("ceil", math.Ceil))
	definePoisoningMethod("pow", func(ctx *object.CallContext) (value.Value, error) {
		base, err := v.ToNumber(ctx.Arg(0))
		if err != nil {
			return value.Undef(), err
		}
		exp, err := v.ToNumber(ctx.Arg(1))
		if err != nil {
			return value.Undef(), err
		}
		return value.Num(math.Pow(base, exp)), nil
	})
	definePoisoningMethod("min", func(ctx *object.CallContext) (value.Value, error) {
		m := math.Inf(1)
		for _, a := range ctx.Args {
			n, err := v.ToNumber(a)
			if err != nil {
				return value.Undef(), err
			}
			m = math.Min(m, n)
		}
		return value.Num(m), nil
	})
	definePoisoningMethod("max", func(ctx *object.CallContext) (value.Value, error) {
		m := math.Inf(-1)
		for _, a := range ctx.Args {
			n, err := v.ToNumber(a)
			if err != nil {
				return value.Undef(), err
			}
			m = math.Max(m, n)
		}
		return value.Num(m), nil
	})
	defineValue(v, mathObj, "PI", value.Num(math.Pi), constFlags)
	defineValue(v, mathObj, "E", value.Num(math.E), constFlags)

	// internal/vm/intrinsics.go's callMathFallback reads this property's
	// Static field directly rather than going through the generic
	// accessor-aware getter, so Math itself stays a plain data property;
	// per-method poisoning (above) is what catches the realistic
	// `Math.sin = ...` monkey-patch case. Wholesale `Math = {...}`
	// reassignment is not separately poisoned — a rare enough pattern
	// that the fast path still computing sin/cos/etc. on the old values
	// is an acceptable gap rather than one worth a global-assignment hook.
	mathID := v.Alloc().AllocObject(mathObj, v)
	globals.SetProperty(v.Alloc(), object.StringKey(v.Strings().Intern("Math")), object.PropertyValue{
		Static: value.Obj(mathID), Flags: methodFlags,
	})
}

func mathSetter(v *vm.VM) value.Value {
	nf := object.NewNativeFunction(v.Statics().Prototype(statics.ProtoFunction), "", func(ctx *object.CallContext) (value.Value, error) {
		v.PoisonMath()
		return value.Undef(), nil
	})
	id := v.Alloc().AllocObject(nf, v)
	return value.Obj(id)
}
