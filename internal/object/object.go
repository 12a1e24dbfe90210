// Package object implements L3 of the core engine: the polymorphic object
// capability set, the ordinary/array/function/promise/error object shapes,
// and the property model tying them to the prototype chain (spec.md
// §3.2–§3.4).
//
// Grounded on go-dws's internal/interp/runtime package: ObjectInstance's
// Fields map + prototype pointer (object.go) generalizes into OrdObject
// here, the IClassInfo interface-to-avoid-import-cycle pattern
// (class_interface.go) becomes this package's Object interface (resolved by
// internal/heap without heap importing object back), and the RefCount
// field on ObjectInstance (refcount.go) generalizes into the Persistent
// handle in internal/heap.
package object

import (
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

// Typeof mirrors the ECMAScript `typeof` result categories an object can
// report (spec.md §3.2 "type_of()").
type Typeof string

const (
	TypeofObject   Typeof = "object"
	TypeofFunction Typeof = "function"
)

// PropertyKey is either an interned string id or a well-known/user symbol
// (spec.md §3.2).
type PropertyKey struct {
	ID       value.InternedStringId
	IsSymbol bool
}

func StringKey(id value.InternedStringId) PropertyKey { return PropertyKey{ID: id} }
func SymbolKey(id value.InternedStringId) PropertyKey  { return PropertyKey{ID: id, IsSymbol: true} }

// Descriptor flags (spec.md §3.2 "descriptor: bitflags(Writable, Enumerable,
// Configurable)").
type Descriptor uint8

const (
	Writable Descriptor = 1 << iota
	Enumerable
	Configurable
)

func DefaultDataDescriptor() Descriptor {
	return Writable | Enumerable | Configurable
}

// PropertyValue is the { kind, descriptor } tuple of spec.md §3.2. A Static
// property carries a value directly; an Accessor property carries
// getter/setter object ids (either may be the zero value meaning absent).
type PropertyValue struct {
	IsAccessor bool
	Static     value.Value
	Getter     value.Value // Object kind, or Undefined if absent
	Setter     value.Value
	Flags      Descriptor
}

// TypeTag is a compile-time-assigned identifier used by Object.Extract to
// let natives recover concrete state without a type switch over every
// possible object shape (spec.md §3.2 "extract<T>()").
type TypeTag int

const (
	TagOrdinary TypeTag = iota
	TagArray
	TagFunction
	TagPromise
	TagError
	TagPrimitiveBox
	TagArrayBuffer
	TagTypedArray
)

// Invoke is supplied by the VM so natives and the object model can call
// back into JS (spec.md §6.2) without this package importing internal/vm —
// internal/vm imports internal/object, not the reverse.
type Invoke func(alloc *heap.Allocator, scope *heap.LocalScope, callee, this value.Value, args []value.Value) (value.Value, error)

// CallContext is the native-function ABI's argument bundle (spec.md §6.2).
type CallContext struct {
	Alloc     *heap.Allocator
	Scope     *heap.LocalScope
	This      value.Value
	Args      []value.Value
	NewTarget value.Value // Undefined unless this is a [[Construct]] call
	Invoke    Invoke
}

func (c *CallContext) Arg(i int) value.Value {
	if i < 0 || i >= len(c.Args) {
		return value.Undef()
	}
	return c.Args[i]
}

// Object is the capability set every heap-resident object implements
// (spec.md §3.2). Methods take the allocator explicitly (rather than
// closing over one) so internal/heap can resolve an ObjectId to an Object
// and hand it back to callers without either package importing the other
// in the wrong direction.
type Object interface {
	heap.Traceable

	GetOwnPropertyDescriptor(alloc *heap.Allocator, key PropertyKey) (PropertyValue, bool)
	SetProperty(alloc *heap.Allocator, key PropertyKey, pv PropertyValue) error
	DeleteProperty(alloc *heap.Allocator, key PropertyKey) (value.Value, bool)
	GetPrototype() value.Value
	SetPrototype(v value.Value) error
	OwnKeys(alloc *heap.Allocator) []PropertyKey

	Apply(ctx *CallContext) (value.Value, error)
	Construct(ctx *CallContext) (value.Value, error)

	TypeOf() Typeof
	InternalSlots() *PrimitiveBox
	Extract(tag TypeTag) (any, bool)
}

// Get performs the full property-get algorithm spec.md §3.2 describes:
// walk the prototype chain, and invoke an accessor's getter if found.
// thisVal is the receiver `this` bound to an inherited accessor's getter —
// ordinarily the object Get was called on, distinct from where the
// accessor is physically defined.
func Get(alloc *heap.Allocator, self Object, thisVal value.Value, key PropertyKey, invoke Invoke, scope *heap.LocalScope) (value.Value, error) {
	cur := self
	for cur != nil {
		if pv, ok := cur.GetOwnPropertyDescriptor(alloc, key); ok {
			if !pv.IsAccessor {
				return pv.Static, nil
			}
			if pv.Getter.IsUndefined() {
				return value.Undef(), nil
			}
			if invoke == nil {
				return value.Undef(), nil
			}
			return invoke(alloc, scope, pv.Getter, thisVal, nil)
		}
		proto := cur.GetPrototype()
		if !proto.IsObject() {
			return value.Undef(), nil
		}
		next, ok := alloc.Resolve(proto.ObjectID())
		if !ok {
			return value.Undef(), nil
		}
		cur = next.(Object)
	}
	return value.Undef(), nil
}

// Set performs the full property-set algorithm: if an accessor is found
// anywhere on the chain, its setter is invoked; otherwise the property is
// created/overwritten on the receiver (spec.md §3.2 "set on a key owned by
// an accessor somewhere on the chain invokes the setter").
func Set(alloc *heap.Allocator, self Object, thisVal value.Value, key PropertyKey, v value.Value, invoke Invoke, scope *heap.LocalScope) error {
	cur := self
	for cur != nil {
		if pv, ok := cur.GetOwnPropertyDescriptor(alloc, key); ok {
			if pv.IsAccessor {
				if pv.Setter.IsUndefined() || invoke == nil {
					return nil
				}
				_, err := invoke(alloc, scope, pv.Setter, thisVal, []value.Value{v})
				return err
			}
			if cur == self {
				if pv.Flags&Writable == 0 {
					return nil
				}
				return self.SetProperty(alloc, key, PropertyValue{Static: v, Flags: pv.Flags})
			}
			break
		}
		proto := cur.GetPrototype()
		if !proto.IsObject() {
			break
		}
		next, ok := alloc.Resolve(proto.ObjectID())
		if !ok {
			break
		}
		cur = next.(Object)
	}
	return self.SetProperty(alloc, key, PropertyValue{Static: v, Flags: DefaultDataDescriptor()})
}

// InstanceOf implements spec.md §8's prototype-transitivity property: v
// instanceof ctor iff ctor's .prototype appears in v's prototype chain.
func InstanceOf(alloc *heap.Allocator, v value.Value, ctorPrototype value.Value) bool {
	if !v.IsObject() || !ctorPrototype.IsObject() {
		return false
	}
	obj, ok := alloc.Resolve(v.ObjectID())
	if !ok {
		return false
	}
	cur := obj.(Object)
	for {
		proto := cur.GetPrototype()
		if !proto.IsObject() {
			return false
		}
		if proto.ObjectID() == ctorPrototype.ObjectID() {
			return true
		}
		next, ok := alloc.Resolve(proto.ObjectID())
		if !ok {
			return false
		}
		cur = next.(Object)
	}
}
