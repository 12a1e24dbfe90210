package object

import (
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

// arrayMode tracks whether ArrayObject is storing elements densely or has
// fallen back to a sparse index map (spec.md §3.4 "dense/table
// transition").
type arrayMode int

const (
	arrayDense arrayMode = iota
	arrayTable
)

// holeRun marks a run of consecutive unset dense slots (an elision, e.g.
// `[1,,3]`). Dash tracks holes as run lengths rather than one flag per slot
// so a long sparse prefix (`new Array(1000)`) doesn't cost a scan per
// element; ArrayObject keeps the same idea as a small sorted run list
// instead of a bitmap (SPEC_FULL.md §C.1).
type holeRun struct {
	start int
	len   int
}

// denseOverflowThreshold bounds how far past the current length a single
// out-of-range index write may extend the dense backing slice before
// ArrayObject gives up and converts to table mode (spec.md §3.4 "conversion
// trigger"; avoids `a[1e9] = 1` allocating a billion slots).
const denseOverflowThreshold = 4096

// ArrayObject is the array exotic object (spec.md §3.4). It starts dense
// (elements indexed directly by position); a write far past the current
// length converts it to table mode, where elements live in a sparse map
// keyed by index instead. Non-index properties ("foo" on an array) always
// go through the embedded OrdObject's ordinary property map regardless of
// mode.
type ArrayObject struct {
	*OrdObject

	mode     arrayMode
	elements []value.Value
	holes    []holeRun
	table    map[uint32]value.Value
	length   uint32
}

func NewArrayObject(prototype value.Value) *ArrayObject {
	return &ArrayObject{
		OrdObject: NewOrdObject(prototype),
		mode:      arrayDense,
	}
}

func (a *ArrayObject) Length() uint32 { return a.length }

func (a *ArrayObject) SetLength(n uint32) {
	if a.mode == arrayDense && int(n) < len(a.elements) {
		a.elements = a.elements[:n]
		a.trimHolesAbove(int(n))
	}
	a.length = n
}

func (a *ArrayObject) trimHolesAbove(n int) {
	out := a.holes[:0]
	for _, r := range a.holes {
		if r.start >= n {
			continue
		}
		if r.start+r.len > n {
			r.len = n - r.start
		}
		out = append(out, r)
	}
	a.holes = out
}

func (a *ArrayObject) isHole(i int) bool {
	for _, r := range a.holes {
		if i >= r.start && i < r.start+r.len {
			return true
		}
	}
	return false
}

func (a *ArrayObject) markHole(i int) {
	for idx, r := range a.holes {
		if i == r.start+r.len {
			a.holes[idx].len++
			return
		}
		if i == r.start-1 {
			a.holes[idx].start--
			a.holes[idx].len++
			return
		}
	}
	a.holes = append(a.holes, holeRun{start: i, len: 1})
}

func (a *ArrayObject) unmarkHole(i int) {
	out := a.holes[:0]
	for _, r := range a.holes {
		if i < r.start || i >= r.start+r.len {
			out = append(out, r)
			continue
		}
		if r.start < i {
			out = append(out, holeRun{start: r.start, len: i - r.start})
		}
		if i+1 < r.start+r.len {
			out = append(out, holeRun{start: i + 1, len: r.start + r.len - i - 1})
		}
	}
	a.holes = out
}

// Mode reports whether the array is still dense, for diagnostics/tests.
func (a *ArrayObject) Mode() string {
	if a.mode == arrayDense {
		return "dense"
	}
	return "table"
}

// GetElement reads index i (spec.md §3.4). A hole or unset table entry
// yields Undefined, matching `[1,,3][1] === undefined`.
func (a *ArrayObject) GetElement(i uint32) value.Value {
	if a.mode == arrayTable {
		v, ok := a.table[i]
		if !ok {
			return value.Undef()
		}
		return v
	}
	idx := int(i)
	if idx < 0 || idx >= len(a.elements) || a.isHole(idx) {
		return value.Undef()
	}
	return a.elements[idx]
}

// SetElement writes index i, growing the dense backing store or converting
// to table mode if the index would overflow denseOverflowThreshold past the
// current length (spec.md §3.4).
func (a *ArrayObject) SetElement(i uint32, v value.Value) {
	if i+1 > a.length {
		a.length = i + 1
	}
	if a.mode == arrayTable {
		a.table[i] = v
		return
	}

	idx := int(i)
	if idx >= len(a.elements) {
		gap := idx - len(a.elements)
		if gap > denseOverflowThreshold {
			a.convertToTable()
			a.table[i] = v
			return
		}
		for len(a.elements) <= idx {
			a.markHole(len(a.elements))
			a.elements = append(a.elements, value.Undef())
		}
	}
	a.elements[idx] = v
	a.unmarkHole(idx)
}

// DeleteElement removes index i, leaving a hole in dense mode (spec.md
// §3.4 "delete on an array index leaves a hole, does not shift").
func (a *ArrayObject) DeleteElement(i uint32) {
	if a.mode == arrayTable {
		delete(a.table, i)
		return
	}
	idx := int(i)
	if idx < 0 || idx >= len(a.elements) {
		return
	}
	a.elements[idx] = value.Undef()
	a.markHole(idx)
}

func (a *ArrayObject) convertToTable() {
	a.mode = arrayTable
	a.table = make(map[uint32]value.Value, len(a.elements))
	for idx, v := range a.elements {
		if a.isHole(idx) {
			continue
		}
		a.table[uint32(idx)] = v
	}
	a.elements = nil
	a.holes = nil
}

func (a *ArrayObject) Extract(tag TypeTag) (any, bool) {
	if tag == TagArray {
		return a, true
	}
	return a.OrdObject.Extract(tag)
}

func (a *ArrayObject) Trace(mark func(value.ObjectId)) {
	a.OrdObject.Trace(mark)
	for _, v := range a.elements {
		traceValue(v, mark)
	}
	for _, v := range a.table {
		traceValue(v, mark)
	}
}

var (
	_ Object         = (*ArrayObject)(nil)
	_ heap.Traceable = (*ArrayObject)(nil)
)
