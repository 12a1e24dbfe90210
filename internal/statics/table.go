package statics

import "github.com/lumenjs/engine/internal/value"

// ProtoKey names one of the minimum prototype surface's builtin prototypes
// (spec.md §1 "minimum prototype surface"; SPEC_FULL.md §B native Go stack
// wiring).
type ProtoKey int

const (
	ProtoObject ProtoKey = iota
	ProtoFunction
	ProtoArray
	ProtoNumber
	ProtoBoolean
	ProtoString
	ProtoSymbol
	ProtoError
	ProtoTypeError
	ProtoRangeError
	ProtoReferenceError
	ProtoSyntaxError
	ProtoPromise
	ProtoArrayBuffer
	ProtoTypedArray
	ProtoGenerator
	protoCount
)

// Table is the VM-instance-scoped registry of builtin prototype and
// constructor objects, populated once during engine bootstrap
// (internal/natives) and consulted by the compiler/VM whenever a literal or
// intrinsic needs to root a new object in the right prototype chain.
type Table struct {
	prototypes   [protoCount]value.Value
	constructors [protoCount]value.Value
}

func New() *Table {
	t := &Table{}
	for i := range t.prototypes {
		t.prototypes[i] = value.Undef()
		t.constructors[i] = value.Undef()
	}
	return t
}

func (t *Table) Prototype(key ProtoKey) value.Value   { return t.prototypes[key] }
func (t *Table) Constructor(key ProtoKey) value.Value { return t.constructors[key] }

func (t *Table) SetPrototype(key ProtoKey, v value.Value)   { t.prototypes[key] = v }
func (t *Table) SetConstructor(key ProtoKey, v value.Value) { t.constructors[key] = v }
