package heap

import "github.com/lumenjs/engine/internal/value"

// LocalScope is a scoped root set attached to a VM borrow (spec.md §3.6).
// Values rooted in a scope are traced as GC roots for the scope's lifetime;
// an Unrooted value must be rooted via Root before any operation that may
// allocate, or the collector may reclaim it out from under the caller.
//
// Grounded on go-dws's native-call convention of threading an explicit
// context through every call (internal/interp's CallContext-shaped
// plumbing) — LocalScope plays the same "explicit borrow" role spec.md
// §6.2 assigns it in the native function ABI.
type LocalScope struct {
	parent *LocalScope
	values []value.Value
}

// NewScope creates a root LocalScope with no parent.
func NewScope() *LocalScope {
	return &LocalScope{}
}

// Child opens a nested scope; values rooted in the child are released when
// the child scope ends, independent of the parent.
func (s *LocalScope) Child() *LocalScope {
	return &LocalScope{parent: s}
}

// Root adds v to the scope's root set, returning v unchanged for chaining
// (e.g. `x := scope.Root(allocateSomething())`).
func (s *LocalScope) Root(v value.Value) value.Value {
	s.values = append(s.values, v)
	return v
}

// Unrooted marks a value that has not yet been added to any scope. It
// exists purely as a documentation type: Go has no linear-typing to enforce
// "must root before use", so natives and compiler-generated VM helpers use
// Unrooted in signatures to flag the obligation at the API boundary (spec.md
// §3.6) even though the runtime check is advisory.
type Unrooted = value.Value

// Roots implements heap.RootProvider by visiting every Value rooted in this
// scope and its ancestors.
func (s *LocalScope) Roots(yield func(value.ObjectId)) {
	for sc := s; sc != nil; sc = sc.parent {
		for _, v := range sc.values {
			if v.IsObject() || v.IsExternal() {
				yield(v.ObjectID())
			}
		}
	}
}
