// Package heap implements L2 of the core engine: the mark-and-sweep
// allocator, object identifiers, and the root-set machinery (Persistent
// handles, LocalScope) described in spec.md §3.5, §3.6 and §4.4.
//
// Grounded on go-dws's internal/interp/runtime/pool.go (node lifecycle
// bookkeeping) and refcount.go (the RefCount discipline on ObjectInstance),
// generalized into the two-tier reachability model spec.md §3.5 describes:
// tracing GC as the primary mechanism, Persistent refcounts as an override
// that pins a node regardless of what the tracer can reach.
//
// spec.md §9 calls out that the source this spec distills from carries two
// allocator designs and two GC implementations, and says to treat "the
// intrusive list + mark-and-sweep as authoritative". That is what this file
// implements: nodes form a single slice-backed intrusive free list, not a
// size-class arena.
package heap

import "github.com/lumenjs/engine/internal/value"

// Traceable is implemented by every heap-resident payload. Trace must call
// mark for every value.ObjectId the payload directly references (its
// prototype, its properties, captured upvalues, …) so the collector can
// follow the reference graph. Trace must not recurse into the allocator
// itself — the allocator drives the traversal.
type Traceable interface {
	Trace(mark func(value.ObjectId))
}

type node struct {
	obj      Traceable
	mark     bool
	refcount uint32
	alive    bool
	next     int // intrusive free-list link when !alive; unused otherwise
}

// Stats is a point-in-time snapshot of collector activity (SPEC_FULL.md §C.5
// "GC statistics", grounded on the original's gc/gc2.rs cycle counters).
type Stats struct {
	Cycles        int
	LastSwept     int
	LiveNodes     int
	Threshold     int
	GrowthFactor  float64
}

// Allocator owns every heap node for one VM instance. It is not safe for
// concurrent use — spec.md §5 establishes the engine as single-threaded
// cooperative, and the allocator inherits that invariant.
type Allocator struct {
	nodes        []node
	freeHead     int // index of first free node, or -1
	threshold    int
	growthFactor float64
	cycles       int
	lastSwept    int
}

const defaultInitialThreshold = 256
const defaultGrowthFactor = 1.5

// New creates an allocator with the default GC threshold/growth tunables.
// Use NewWithConfig to apply values loaded from EngineConfig (pkg/engine).
func New() *Allocator {
	return NewWithConfig(defaultInitialThreshold, defaultGrowthFactor)
}

func NewWithConfig(initialThreshold int, growthFactor float64) *Allocator {
	if initialThreshold <= 0 {
		initialThreshold = defaultInitialThreshold
	}
	if growthFactor <= 1.0 {
		growthFactor = defaultGrowthFactor
	}
	return &Allocator{
		freeHead:     -1,
		threshold:    initialThreshold,
		growthFactor: growthFactor,
	}
}

// AllocObject registers obj as a new heap node and returns its id.
//
// This is a designated allocation point: per spec.md §4.3 "Resource
// discipline", a GC cycle may run here once the node count reaches the
// threshold. Callers must have already rooted every value they need to
// survive (via a LocalScope, a Persistent handle, or a live stack/frame
// slot the tracer walks) before calling AllocObject, not after.
func (a *Allocator) AllocObject(obj Traceable, roots RootProvider) value.ObjectId {
	if a.liveCount() >= a.threshold {
		a.Collect(roots)
		if a.liveCount() >= a.threshold {
			a.threshold = int(float64(a.threshold) * a.growthFactor)
		}
	}

	if a.freeHead >= 0 {
		idx := a.freeHead
		a.freeHead = a.nodes[idx].next
		a.nodes[idx] = node{obj: obj, alive: true}
		return value.ObjectId(idx)
	}

	a.nodes = append(a.nodes, node{obj: obj, alive: true})
	return value.ObjectId(len(a.nodes) - 1)
}

// Resolve returns the live payload behind id, or (nil, false) if id refers
// to a freed or out-of-range node (a use-after-free bug upstream, never a
// normal outcome for a rooted value).
func (a *Allocator) Resolve(id value.ObjectId) (Traceable, bool) {
	idx := int(id)
	if idx < 0 || idx >= len(a.nodes) || !a.nodes[idx].alive {
		return nil, false
	}
	return a.nodes[idx].obj, true
}

// Retain increments id's refcount, pinning it against collection regardless
// of tracer reachability (spec.md §3.5 "Persistent"). Pairs with Release.
func (a *Allocator) Retain(id value.ObjectId) {
	idx := int(id)
	if idx >= 0 && idx < len(a.nodes) && a.nodes[idx].alive {
		a.nodes[idx].refcount++
	}
}

// Release decrements id's refcount. It does not free the node immediately
// even at zero — the node is reclaimed on the next sweep that finds it both
// unmarked and unreferenced, per spec.md §3.5's lifecycle description.
func (a *Allocator) Release(id value.ObjectId) {
	idx := int(id)
	if idx >= 0 && idx < len(a.nodes) && a.nodes[idx].alive && a.nodes[idx].refcount > 0 {
		a.nodes[idx].refcount--
	}
}

func (a *Allocator) liveCount() int {
	n := 0
	for i := range a.nodes {
		if a.nodes[i].alive {
			n++
		}
	}
	return n
}

// RootProvider supplies every root the mark phase must start from (spec.md
// §4.4 Mark phase, items a–e): LocalScopes, Persistent handles (already
// covered by node.refcount), the operand stack and frame registers of every
// VM frame (including suspended generator frames), the globals object and
// statics table, and VM bookkeeping such as the microtask queue.
type RootProvider interface {
	Roots(yield func(value.ObjectId))
}

// Collect runs one full mark-and-sweep cycle (spec.md §4.4).
func (a *Allocator) Collect(roots RootProvider) {
	a.mark(roots)
	a.sweep()
	a.cycles++
}

func (a *Allocator) mark(roots RootProvider) {
	var stack []value.ObjectId
	visit := func(id value.ObjectId) {
		idx := int(id)
		if idx < 0 || idx >= len(a.nodes) || !a.nodes[idx].alive || a.nodes[idx].mark {
			return
		}
		a.nodes[idx].mark = true
		stack = append(stack, id)
	}

	if roots != nil {
		roots.Roots(visit)
	}
	// Persistent handles are immune to collection regardless of reachability
	// (spec.md §3.5); mark every refcounted node directly as an additional
	// root so the trace below also walks what they reference.
	for i := range a.nodes {
		if a.nodes[i].alive && a.nodes[i].refcount > 0 {
			visit(value.ObjectId(i))
		}
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		idx := int(id)
		a.nodes[idx].obj.Trace(visit)
	}
}

func (a *Allocator) sweep() {
	swept := 0
	for i := range a.nodes {
		if !a.nodes[i].alive {
			continue
		}
		if a.nodes[i].mark {
			a.nodes[i].mark = false
			continue
		}
		if a.nodes[i].refcount > 0 {
			continue
		}
		a.nodes[i] = node{alive: false, next: a.freeHead}
		a.freeHead = i
		swept++
	}
	a.lastSwept = swept
}

// Stats reports the allocator's current state (SPEC_FULL.md §C.5).
func (a *Allocator) Stats() Stats {
	return Stats{
		Cycles:       a.cycles,
		LastSwept:    a.lastSwept,
		LiveNodes:    a.liveCount(),
		Threshold:    a.threshold,
		GrowthFactor: a.growthFactor,
	}
}
