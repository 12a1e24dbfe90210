package object

import (
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

// StackFrame is one entry of a captured call-stack snapshot (spec.md §7
// "Error object" — name, message, and a stack trace captured at throw
// time).
type StackFrame struct {
	FunctionName string
	Line         int
	Column       int
}

// ErrorObject is the Error object shape (spec.md §7). Message is stored as
// an interned string id rather than a Go string so it participates in the
// same interning scheme as every other JS string; Stack is captured once at
// construction and never mutated afterward.
type ErrorObject struct {
	*OrdObject

	Name    value.InternedStringId
	Message value.InternedStringId
	Stack   []StackFrame
}

func NewErrorObject(prototype value.Value, name, message value.InternedStringId, stack []StackFrame) *ErrorObject {
	return &ErrorObject{
		OrdObject: NewOrdObject(prototype),
		Name:      name,
		Message:   message,
		Stack:     stack,
	}
}

func (e *ErrorObject) Extract(tag TypeTag) (any, bool) {
	if tag == TagError {
		return e, true
	}
	return e.OrdObject.Extract(tag)
}

var (
	_ Object         = (*ErrorObject)(nil)
	_ heap.Traceable = (*ErrorObject)(nil)
)
