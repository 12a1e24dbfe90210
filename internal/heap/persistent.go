package heap

import "github.com/lumenjs/engine/internal/value"

// Persistent is a refcounted handle that keeps its referent alive across GC
// regardless of tracer reachability (spec.md §3.5, §GLOSSARY "Persistent").
// It must be released before the owning Allocator is discarded; a Persistent
// is not itself a GC root source consulted by RootProvider — the allocator
// checks node refcounts directly during mark (see Allocator.mark), so a
// Persistent's only job is to keep that refcount balanced.
type Persistent struct {
	alloc *Allocator
	id    value.ObjectId
	valid bool
}

// NewPersistent retains id and returns a handle that must eventually be
// released with Release (or Clone'd, which retains again).
func NewPersistent(alloc *Allocator, id value.ObjectId) Persistent {
	alloc.Retain(id)
	return Persistent{alloc: alloc, id: id, valid: true}
}

// Clone increments the refcount again and returns an independent handle to
// the same node; both handles must be released independently.
func (p Persistent) Clone() Persistent {
	if !p.valid {
		return Persistent{}
	}
	p.alloc.Retain(p.id)
	return p
}

// Release decrements the refcount. After Release the handle must not be
// used again; Release is idempotent-safe to call at most once per handle
// (calling it twice on the same logical reference double-releases, the
// mirror image of a double free).
func (p *Persistent) Release() {
	if !p.valid {
		return
	}
	p.alloc.Release(p.id)
	p.valid = false
}

// Value returns the wrapped object as a value.Value.
func (p Persistent) Value() value.Value {
	return value.Obj(p.id)
}

func (p Persistent) ObjectID() value.ObjectId { return p.id }
func (p Persistent) Valid() bool              { return p.valid }
