package object

import (
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

// PrimitiveBox holds the boxed value backing `new Number(...)`, `new
// String(...)`, and `new Boolean(...)` (spec.md §3.2 "internal_slots()").
// Boxing exists only so boxed primitives can carry properties and a
// prototype chain; unboxed Values never allocate a box.
type PrimitiveBox struct {
	Kind  value.Kind
	Value value.Value
}

// BoxObject is an OrdObject with a PrimitiveBox internal slot, used for the
// boxed-primitive wrapper prototypes (spec.md §3.2; native surface in
// internal/natives).
type BoxObject struct {
	*OrdObject
	box PrimitiveBox
}

func NewBoxObject(prototype value.Value, boxed value.Value) *BoxObject {
	return &BoxObject{
		OrdObject: NewOrdObject(prototype),
		box:       PrimitiveBox{Kind: boxed.Kind(), Value: boxed},
	}
}

func (b *BoxObject) InternalSlots() *PrimitiveBox { return &b.box }

func (b *BoxObject) Extract(tag TypeTag) (any, bool) {
	if tag == TagPrimitiveBox {
		return &b.box, true
	}
	return b.OrdObject.Extract(tag)
}

func (b *BoxObject) Trace(mark func(value.ObjectId)) {
	b.OrdObject.Trace(mark)
	traceValue(b.box.Value, mark)
}

var _ Object = (*BoxObject)(nil)
var _ heap.Traceable = (*BoxObject)(nil)
