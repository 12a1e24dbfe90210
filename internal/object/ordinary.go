package object

import (
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

// OrdObject is the common object shape (spec.md §3.2 "OrdObject"): an
// insertion-ordered property map, an optional prototype, and an optional
// constructor. Lookups follow the prototype chain via object.Get/object.Set;
// OrdObject itself only implements the own-property half of the contract.
//
// Grounded on go-dws's ObjectInstance (Fields map[string]Value + Class
// pointer), generalized from a fixed class-instance shape to a free-form
// property bag since JS objects are not tied to a declared class.
type OrdObject struct {
	props      map[PropertyKey]PropertyValue
	order      []PropertyKey // insertion order, for OwnKeys and for-in
	prototype  value.Value   // Object kind, or Null
	constructor value.Value  // Object kind, or Undefined
	extensible bool
}

func NewOrdObject(prototype value.Value) *OrdObject {
	return &OrdObject{
		props:      make(map[PropertyKey]PropertyValue),
		prototype:  prototype,
		extensible: true,
	}
}

func (o *OrdObject) GetOwnPropertyDescriptor(_ *heap.Allocator, key PropertyKey) (PropertyValue, bool) {
	pv, ok := o.props[key]
	return pv, ok
}

func (o *OrdObject) SetProperty(_ *heap.Allocator, key PropertyKey, pv PropertyValue) error {
	if _, exists := o.props[key]; !exists {
		if !o.extensible {
			return nil // silently ignored per non-strict semantics; strict mode is out of scope (spec.md §1 Non-goals)
		}
		o.order = append(o.order, key)
	}
	o.props[key] = pv
	return nil
}

func (o *OrdObject) DeleteProperty(_ *heap.Allocator, key PropertyKey) (value.Value, bool) {
	pv, ok := o.props[key]
	if !ok {
		return value.Undef(), true
	}
	if pv.Flags&Configurable == 0 {
		return value.Undef(), false
	}
	delete(o.props, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	if pv.IsAccessor {
		return value.Undef(), true
	}
	return pv.Static, true
}

func (o *OrdObject) GetPrototype() value.Value { return o.prototype }

func (o *OrdObject) SetPrototype(v value.Value) error {
	o.prototype = v
	return nil
}

func (o *OrdObject) OwnKeys(_ *heap.Allocator) []PropertyKey {
	out := make([]PropertyKey, len(o.order))
	copy(out, o.order)
	return out
}

func (o *OrdObject) SetExtensible(v bool) { o.extensible = v }
func (o *OrdObject) Extensible() bool     { return o.extensible }

func (o *OrdObject) Constructor() value.Value      { return o.constructor }
func (o *OrdObject) SetConstructor(v value.Value) { o.constructor = v }

// Apply on a plain ordinary object is not callable; natives and compiled
// functions override this via FunctionObject (function.go).
func (o *OrdObject) Apply(ctx *CallContext) (value.Value, error) {
	return value.Undef(), errNotCallable
}

func (o *OrdObject) Construct(ctx *CallContext) (value.Value, error) {
	return value.Undef(), errNotCallable
}

func (o *OrdObject) TypeOf() Typeof { return TypeofObject }

func (o *OrdObject) InternalSlots() *PrimitiveBox { return nil }

func (o *OrdObject) Extract(tag TypeTag) (any, bool) {
	if tag == TagOrdinary {
		return o, true
	}
	return nil, false
}

// Trace visits the prototype, constructor, and every property value that
// can reference another heap node (spec.md §4.4 Mark phase; §9 "Cyclic
// object graphs" — prototype/constructor are plain ObjectIds the tracer
// visits unconditionally, so `a.b = a` terminates via the mark bit, not
// special-cased cycle detection).
func (o *OrdObject) Trace(mark func(value.ObjectId)) {
	if o.prototype.IsObject() || o.prototype.IsExternal() {
		mark(o.prototype.ObjectID())
	}
	if o.constructor.IsObject() || o.constructor.IsExternal() {
		mark(o.constructor.ObjectID())
	}
	for _, pv := range o.props {
		traceValue(pv.Static, mark)
		traceValue(pv.Getter, mark)
		traceValue(pv.Setter, mark)
	}
}

func traceValue(v value.Value, mark func(value.ObjectId)) {
	if v.IsObject() || v.IsExternal() {
		mark(v.ObjectID())
	}
}
