package vm

import (
	"math"
	"strconv"

	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/value"
)

// toPrimitive implements the ECMAScript ToPrimitive abstract operation for
// the "number" hint used throughout the arithmetic opcodes (spec.md §4.3
// "Operand coercion"): objects try valueOf() then toString() before giving
// up and falling back to the object's own [object Object]-style tag,
// exactly the order a `+`/`-`/comparison operator needs.
func (v *VM) toPrimitive(val value.Value) (value.Value, error) {
	if !val.IsObject() {
		return val, nil
	}
	raw, ok := v.alloc.Resolve(val.ObjectID())
	if !ok {
		return value.Undef(), nil
	}
	obj, ok := raw.(object.Object)
	if !ok {
		return value.Undef(), nil
	}
	scope := heap.NewScope()
	for _, name := range [...]string{"valueOf", "toString"} {
		key := object.StringKey(v.strings.Intern(name))
		method, err := object.Get(v.alloc, obj, val, key, v.Invoke, scope)
		if err != nil {
			return value.Undef(), err
		}
		if !method.IsObject() {
			continue
		}
		result, err := v.Call(v.alloc, scope, method, val, nil)
		if err != nil {
			return value.Undef(), err
		}
		if !result.IsObject() {
			return result, nil
		}
	}
	return value.Str(v.strings.Intern("[object Object]")), nil
}

// toNumber implements ToNumber (spec.md §4.3).
func (v *VM) toNumber(val value.Value) (float64, error) {
	switch val.Kind() {
	case value.Number:
		return val.Number(), nil
	case value.Boolean:
		if val.Boolean() {
			return 1, nil
		}
		return 0, nil
	case value.Undefined:
		return math.NaN(), nil
	case value.Null:
		return 0, nil
	case value.String:
		s := v.strings.Resolve(val.StringID())
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), nil
		}
		return f, nil
	case value.Object:
		prim, err := v.toPrimitive(val)
		if err != nil {
			return 0, err
		}
		if prim.IsObject() {
			return math.NaN(), nil
		}
		return v.toNumber(prim)
	default:
		return math.NaN(), nil
	}
}

// toStringValue implements ToString, returning an already-interned String
// Value (spec.md §4.3).
func (v *VM) toStringValue(val value.Value) (value.Value, error) {
	switch val.Kind() {
	case value.String:
		return val, nil
	case value.Undefined:
		return value.Str(v.strings.Intern("undefined")), nil
	case value.Null:
		return value.Str(v.strings.Intern("null")), nil
	case value.Boolean:
		if val.Boolean() {
			return value.Str(v.strings.Intern("true")), nil
		}
		return value.Str(v.strings.Intern("false")), nil
	case value.Number:
		return value.Str(v.strings.Intern(formatNumber(val.Number()))), nil
	case value.Symbol:
		return value.Undef(), v.typeError("cannot convert a Symbol to a string")
	case value.Object:
		prim, err := v.toPrimitive(val)
		if err != nil {
			return value.Undef(), err
		}
		if prim.IsObject() {
			return value.Str(v.strings.Intern("[object Object]")), nil
		}
		return v.toStringValue(prim)
	default:
		return value.Str(v.strings.Intern("")), nil
	}
}

func formatNumber(f float64) string {
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

// truthy resolves ECMAScript ToBoolean fully, including the string-length
// check value.Value.Truthy() defers to its caller (spec.md §3.1's note that
// "" is falsy requires consulting the interner).
func (v *VM) truthy(val value.Value) bool {
	if val.Kind() == value.String {
		return v.strings.Resolve(val.StringID()) != ""
	}
	return val.Truthy()
}

// looseEquals implements the abstract equality comparison (`==`), including
// the numeric<->string and boolean coercions ECMAScript specifies; object
// operands compare by identity once reduced to a primitive.
func (v *VM) looseEquals(a, b value.Value) (bool, error) {
	if a.Kind() == b.Kind() {
		return v.strictEquals(a, b)
	}
	if a.IsNullish() && b.IsNullish() {
		return true, nil
	}
	if a.IsNullish() || b.IsNullish() {
		return false, nil
	}
	if a.Kind() == value.Number && b.Kind() == value.String {
		bn, err := v.toNumber(b)
		if err != nil {
			return false, err
		}
		return a.Number() == bn, nil
	}
	if a.Kind() == value.String && b.Kind() == value.Number {
		return v.looseEquals(b, a)
	}
	if a.Kind() == value.Boolean {
		return v.looseEquals(value.Num(boolToFloat(a.Boolean())), b)
	}
	if b.Kind() == value.Boolean {
		return v.looseEquals(a, value.Num(boolToFloat(b.Boolean())))
	}
	if a.IsObject() && !b.IsObject() {
		pa, err := v.toPrimitive(a)
		if err != nil {
			return false, err
		}
		return v.looseEquals(pa, b)
	}
	if b.IsObject() && !a.IsObject() {
		return v.looseEquals(b, a)
	}
	return false, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// strictEquals implements `===`: same Kind required, NaN !== NaN, and +0
// === -0 (unlike value.SameValueZero, which this engine reserves for
// internal hashing/Map-key semantics, not script-visible equality).
func (v *VM) strictEquals(a, b value.Value) (bool, error) {
	if a.Kind() != b.Kind() {
		return false, nil
	}
	switch a.Kind() {
	case value.Undefined, value.Null:
		return true, nil
	case value.Number:
		return a.Number() == b.Number(), nil
	case value.Boolean:
		return a.Boolean() == b.Boolean(), nil
	case value.String:
		return v.strings.Resolve(a.StringID()) == v.strings.Resolve(b.StringID()), nil
	case value.Symbol:
		return a.StringID() == b.StringID(), nil
	case value.Object, value.External:
		return a.ObjectID() == b.ObjectID(), nil
	default:
		return false, nil
	}
}

// compare implements the relational operators' abstract comparison: string
// operands compare lexicographically, everything else coerces to Number
// first (spec.md §4.3). ok is false when either side coerces to NaN, per
// `NaN < x` being false for every relational operator.
func (v *VM) compare(a, b value.Value) (result int, ok bool, err error) {
	pa, err := v.toPrimitive(a)
	if err != nil {
		return 0, false, err
	}
	pb, err := v.toPrimitive(b)
	if err != nil {
		return 0, false, err
	}
	if pa.Kind() == value.String && pb.Kind() == value.String {
		sa, sb := v.strings.Resolve(pa.StringID()), v.strings.Resolve(pb.StringID())
		switch {
		case sa < sb:
			return -1, true, nil
		case sa > sb:
			return 1, true, nil
		default:
			return 0, true, nil
		}
	}
	na, err := v.toNumber(pa)
	if err != nil {
		return 0, false, err
	}
	nb, err := v.toNumber(pb)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(na) || math.IsNaN(nb) {
		return 0, false, nil
	}
	switch {
	case na < nb:
		return -1, true, nil
	case na > nb:
		return 1, true, nil
	default:
		return 0, true, nil
	}
}

// keyFromValue turns a dynamic property-access key operand into a
// PropertyKey, interning a numeric index's decimal text the way array
// bracket access does (spec.md §3.4 "`a[0]` and `a["0"]` name the same
// slot").
func (v *VM) keyFromValue(val value.Value) object.PropertyKey {
	switch val.Kind() {
	case value.Symbol:
		return object.SymbolKey(val.StringID())
	case value.String:
		return object.StringKey(val.StringID())
	case value.Number:
		s, _ := v.toStringValue(val)
		return object.StringKey(s.StringID())
	default:
		return object.StringKey(0)
	}
}

func (v *VM) keyFromValueCoerced(val value.Value) (object.PropertyKey, error) {
	if val.Kind() == value.Symbol {
		return object.SymbolKey(val.StringID()), nil
	}
	s, err := v.toStringValue(val)
	if err != nil {
		return object.PropertyKey{}, err
	}
	return object.StringKey(s.StringID()), nil
}
