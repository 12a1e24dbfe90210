package natives

import (
	"math"
	"strconv"

	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

// installNumber wires Number.prototype and the Number constructor (spec.md
// §2). `new Number(x)` boxes x via object.NewBoxObject (spec.md §3.2
// "internal_slots()"); calling Number(x) without `new` just coerces.
func installNumber(v *vm.VM) {
	protoVal := v.Statics().Prototype(statics.ProtoNumber)
	protoObj, _ := resolveObject(v, protoVal)

	unbox := func(ctx *object.CallContext) (float64, error) {
		if ctx.This.IsNumber() {
			return ctx.This.Number(), nil
		}
		if obj, ok := resolveObject(v, ctx.This); ok {
			if slots := obj.InternalSlots(); slots != nil && slots.Kind == value.Number {
				return slots.Value.Number(), nil
			}
		}
		return 0, v.TypeError("Number.prototype method called on incompatible receiver")
	}

	defineMethod(v, protoObj, "valueOf", func(ctx *object.CallContext) (value.Value, error) {
		n, err := unbox(ctx)
		return value.Num(n), err
	})
	defineMethod(v, protoObj, "toString", func(ctx *object.CallContext) (value.Value, error) {
		n, err := unbox(ctx)
		if err != nil {
			return value.Undef(), err
		}
		radix := 10
		if len(ctx.Args) > 0 && !ctx.Arg(0).IsUndefined() {
			r, err := v.ToNumber(ctx.Arg(0))
			if err != nil {
				return value.Undef(), err
			}
			radix = int(r)
		}
		if radix == 10 {
			return value.Str(v.Strings().Intern(formatJSNumber(n))), nil
		}
		return value.Str(v.Strings().Intern(strconv.FormatInt(int64(n), radix))), nil
	})
	defineMethod(v, protoObj, "toFixed", func(ctx *object.CallContext) (value.Value, error) {
		n, err := unbox(ctx)
		if err != nil {
			return value.Undef(), err
		}
		digits := 0
		if len(ctx.Args) > 0 {
			d, err := v.ToNumber(ctx.Arg(0))
			if err != nil {
				return value.Undef(), err
			}
			digits = int(d)
		}
		return value.Str(v.Strings().Intern(strconv.FormatFloat(n, 'f', digits, 64))), nil
	})

	ctor := newConstructor(v, statics.ProtoNumber, "Number", func(ctx *object.CallContext) (value.Value, error) {
		var n float64
		if len(ctx.Args) > 0 {
			var err error
			n, err = v.ToNumber(ctx.Arg(0))
			if err != nil {
				return value.Undef(), err
			}
		}
		if !ctx.NewTarget.IsObject() {
			return value.Num(n), nil
		}
		box := object.NewBoxObject(v.Statics().Prototype(statics.ProtoNumber), value.Num(n))
		id := ctx.Alloc.AllocObject(box, v)
		return value.Obj(id), nil
	})
	ctorObj := object.Object(ctor)

	defineValue(v, ctorObj, "MAX_SAFE_INTEGER", value.Num(9007199254740991), constFlags)
	defineValue(v, ctorObj, "MIN_SAFE_INTEGER", value.Num(-9007199254740991), constFlags)
	defineValue(v, ctorObj, "MAX_VALUE", value.Num(math.MaxFloat64), constFlags)
	defineValue(v, ctorObj, "EPSILON", value.Num(2.220446049250313e-16), constFlags)
	defineValue(v, ctorObj, "POSITIVE_INFINITY", value.Num(math.Inf(1)), constFlags)
	defineValue(v, ctorObj, "NEGATIVE_INFINITY", value.Num(math.Inf(-1)), constFlags)
	defineValue(v, ctorObj, "NaN", value.Num(math.NaN()), constFlags)

	defineMethod(v, ctorObj, "isInteger", func(ctx *object.CallContext) (value.Value, error) {
		if !ctx.Arg(0).IsNumber() {
			return value.Bool(false), nil
		}
		n := ctx.Arg(0).Number()
		return value.Bool(!math.IsNaN(n) && !math.IsInf(n, 0) && n == math.Trunc(n)), nil
	})
	defineMethod(v, ctorObj, "isFinite", func(ctx *object.CallContext) (value.Value, error) {
		if !ctx.Arg(0).IsNumber() {
			return value.Bool(false), nil
		}
		n := ctx.Arg(0).Number()
		return value.Bool(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
	})
	defineMethod(v, ctorObj, "isNaN", func(ctx *object.CallContext) (value.Value, error) {
		return value.Bool(ctx.Arg(0).IsNumber() && math.IsNaN(ctx.Arg(0).Number())), nil
	})
	defineMethod(v, ctorObj, "parseFloat", func(ctx *object.CallContext) (value.Value, error) {
		s, err := v.ToStringValue(ctx.Arg(0))
		if err != nil {
			return value.Undef(), err
		}
		f, ok := parseLeadingFloat(v.Strings().Resolve(s.StringID()))
		if !ok {
			return value.Num(math.NaN()), nil
		}
		return value.Num(f), nil
	})
	defineMethod(v, ctorObj, "parseInt", func(ctx *object.CallContext) (value.Value, error) {
		s, err := v.ToStringValue(ctx.Arg(0))
		if err != nil {
			return value.Undef(), err
		}
		f, ok := parseLeadingFloat(v.Strings().Resolve(s.StringID()))
		if !ok {
			return value.Num(math.NaN()), nil
		}
		return value.Num(math.Trunc(f)), nil
	})
}

func formatJSNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// parseLeadingFloat reads the longest numeric prefix of s, the way
// Number.parseFloat/parseInt tolerate trailing garbage ("12px" -> 12)
// rather than failing outright.
func parseLeadingFloat(s string) (float64, bool) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	sawDigit := false
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		sawDigit = true
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			sawDigit = true
		}
	}
	if !sawDigit {
		return 0, false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && s[j] >= '0' && s[j] <= '9' {
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			i = j
		}
	}
	f, err := strconv.ParseFloat(s[start:i], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
