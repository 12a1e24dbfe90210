// Package value implements L1 of the core engine: the tagged Value union
// (spec.md §3.1) shared by the compiler's constant pool, the VM's operand
// stack, and the object model.
//
// Value is deliberately a plain struct, not an interface{}-boxed union —
// spec.md §3.1 requires O(1) tag discrimination and cheap copy, which an
// interface payload does not give for the hot Number/Boolean path.
package value

import "math"

// Kind discriminates the Value union's active variant.
type Kind uint8

const (
	Undefined Kind = iota
	Null
	Number
	Boolean
	String
	Symbol
	Object
	External
)

func (k Kind) String() string {
	switch k {
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case String:
		return "string"
	case Symbol:
		return "symbol"
	case Object:
		return "object"
	case External:
		return "external"
	default:
		return "unknown"
	}
}

// InternedStringId is a compact identifier for an interned identifier or
// string-literal payload, supplied by the external string interner pinned
// in spec.md §1.
type InternedStringId uint32

// ObjectId is an opaque handle into the allocator (internal/heap); Value
// never dereferences it directly.
type ObjectId uint32

// Value is the tagged union described in spec.md §3.1.
//
// Every variant fits in the same three payload fields so Value stays a
// small, comparable-by-copy struct:
//   - num  holds Number's f64 and Boolean's 0/1.
//   - str  holds String's and Symbol's InternedStringId.
//   - obj  holds Object's and External's ObjectId.
type Value struct {
	kind Kind
	num  float64
	str  InternedStringId
	obj  ObjectId
}

// Kind returns the value's active tag.
func (v Value) Kind() Kind { return v.kind }

func Undef() Value { return Value{kind: Undefined} }
func Nul() Value   { return Value{kind: Null} }

func Num(f float64) Value { return Value{kind: Number, num: f} }

func Bool(b bool) Value {
	n := 0.0
	if b {
		n = 1.0
	}
	return Value{kind: Boolean, num: n}
}

func Str(id InternedStringId) Value { return Value{kind: String, str: id} }
func Sym(id InternedStringId) Value { return Value{kind: Symbol, str: id} }
func Obj(id ObjectId) Value         { return Value{kind: Object, obj: id} }

// Ext wraps id as the indirection cell used for mutable upvalue capture
// (spec.md §3.1): two closures sharing an upvalue hold the same External
// value, and the cell's inner object id can be reassigned independently of
// this Value.
func Ext(id ObjectId) Value { return Value{kind: External, obj: id} }

func (v Value) IsUndefined() bool { return v.kind == Undefined }
func (v Value) IsNull() bool      { return v.kind == Null }
func (v Value) IsNullish() bool   { return v.kind == Undefined || v.kind == Null }
func (v Value) IsNumber() bool    { return v.kind == Number }
func (v Value) IsBoolean() bool   { return v.kind == Boolean }
func (v Value) IsString() bool    { return v.kind == String }
func (v Value) IsSymbol() bool    { return v.kind == Symbol }
func (v Value) IsObject() bool    { return v.kind == Object }
func (v Value) IsExternal() bool  { return v.kind == External }

// Number panics if v is not a Number; callers must check Kind first, the
// same discipline spec.md §3.1 imposes on the VM's arithmetic opcodes
// (type coercion happens before unpacking, not after).
func (v Value) Number() float64 {
	if v.kind != Number {
		panic("value: Number() on non-number Value")
	}
	return v.num
}

func (v Value) Boolean() bool {
	if v.kind != Boolean {
		panic("value: Boolean() on non-boolean Value")
	}
	return v.num != 0
}

func (v Value) StringID() InternedStringId {
	if v.kind != String && v.kind != Symbol {
		panic("value: StringID() on non-string/symbol Value")
	}
	return v.str
}

func (v Value) ObjectID() ObjectId {
	if v.kind != Object && v.kind != External {
		panic("value: ObjectID() on non-object/external Value")
	}
	return v.obj
}

// Truthy implements ECMAScript ToBoolean for the variants decidable
// without consulting the object model (Object truthiness is always true
// at this layer: an empty object is truthy in JS).
func (v Value) Truthy() bool {
	switch v.kind {
	case Undefined, Null:
		return false
	case Boolean:
		return v.num != 0
	case Number:
		return v.num != 0 && !math.IsNaN(v.num)
	case String:
		// String truthiness ("" is falsy) requires the interner to resolve
		// length; the VM consults the interner directly rather than Value.
		return true
	default:
		return true
	}
}

// SameValueZero implements the equality spec.md §3.1 requires for the
// engine-internal Hash path: NaN is NaN (unlike IEEE-754 `==`), -0 and +0
// are in fact distinguished nowhere else in this layer.
func SameValueZero(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Number:
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		return a.num == b.num
	case Boolean:
		return a.num == b.num
	case String, Symbol:
		return a.str == b.str
	case Object, External:
		return a.obj == b.obj
	default:
		return true // Undefined/Null: single inhabitant each
	}
}

// Hash produces a hash of v's raw bit pattern, per spec.md §3.1's note that
// the engine-internal Hash path hashes raw bits rather than applying
// IEEE-754 equality (so NaN hashes consistently despite comparing unequal
// to itself under `==`).
func Hash(v Value) uint64 {
	var h uint64 = 1469598103934665603 // FNV-1a offset basis
	mix := func(x uint64) {
		h ^= x
		h *= 1099511628211
	}
	mix(uint64(v.kind))
	mix(math.Float64bits(v.num))
	mix(uint64(v.str))
	mix(uint64(v.obj))
	return h
}
