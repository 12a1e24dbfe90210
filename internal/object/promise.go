package object

import (
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

// PromiseState is the promise's settlement state (spec.md §5 "Promise
// object").
type PromiseState int

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

// Reaction is one entry of a promise's reaction list: a continuation
// registered by .then()/.catch() that the VM's promise driver runs once the
// promise settles (spec.md §5 "reactions").
type Reaction struct {
	OnFulfilled value.Value // function or Undefined
	OnRejected  value.Value
	// Result is the derived promise returned by .then(), settled by the
	// driver once this reaction runs. It is an Object-kind Value (not a raw
	// pointer) so the allocator's normal tracing reaches it.
	Result value.Value
}

// PromiseObject is the promise object shape (spec.md §5). State transitions
// are one-way (pending -> fulfilled | pending -> rejected) and are driven
// entirely by the VM's microtask queue, never synchronously from here.
type PromiseObject struct {
	*OrdObject

	State     PromiseState
	Result    value.Value // the fulfillment value or rejection reason, once settled
	Reactions []Reaction

	// Handled records whether a rejected promise ever had a rejection
	// handler attached, for unhandled-rejection diagnostics
	// (SPEC_FULL.md §C.6).
	Handled bool
}

func NewPromiseObject(prototype value.Value) *PromiseObject {
	return &PromiseObject{
		OrdObject: NewOrdObject(prototype),
		State:     PromisePending,
	}
}

func (p *PromiseObject) Extract(tag TypeTag) (any, bool) {
	if tag == TagPromise {
		return p, true
	}
	return p.OrdObject.Extract(tag)
}

func (p *PromiseObject) Trace(mark func(value.ObjectId)) {
	p.OrdObject.Trace(mark)
	traceValue(p.Result, mark)
	for _, r := range p.Reactions {
		traceValue(r.OnFulfilled, mark)
		traceValue(r.OnRejected, mark)
		traceValue(r.Result, mark)
	}
}

var (
	_ Object         = (*PromiseObject)(nil)
	_ heap.Traceable = (*PromiseObject)(nil)
)
