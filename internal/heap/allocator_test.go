package heap

import (
	"testing"

	"github.com/lumenjs/engine/internal/value"
)

type fakeNode struct {
	refs []value.ObjectId
}

func (f *fakeNode) Trace(mark func(value.ObjectId)) {
	for _, id := range f.refs {
		mark(id)
	}
}

type noRoots struct{}

func (noRoots) Roots(func(value.ObjectId)) {}

func TestAllocAndResolve(t *testing.T) {
	a := New()
	id := a.AllocObject(&fakeNode{}, noRoots{})
	obj, ok := a.Resolve(id)
	if !ok {
		t.Fatal("Resolve failed for freshly allocated node")
	}
	if obj == nil {
		t.Fatal("Resolve returned nil object")
	}
}

func TestSweepReclaimsUnreachable(t *testing.T) {
	a := New()
	id := a.AllocObject(&fakeNode{}, noRoots{})
	a.Collect(noRoots{})
	if _, ok := a.Resolve(id); ok {
		t.Fatal("expected unreachable node to be swept")
	}
}

type scopeRoots struct{ s *LocalScope }

func (r scopeRoots) Roots(yield func(value.ObjectId)) { r.s.Roots(yield) }

func TestRootedValueSurvivesCollection(t *testing.T) {
	a := New()
	scope := NewScope()
	id := a.AllocObject(&fakeNode{}, noRoots{})
	scope.Root(value.Obj(id))

	a.Collect(scopeRoots{scope})

	if _, ok := a.Resolve(id); !ok {
		t.Fatal("rooted value was collected")
	}
}

func TestPersistentSurvivesWithoutRoots(t *testing.T) {
	a := New()
	id := a.AllocObject(&fakeNode{}, noRoots{})
	p := NewPersistent(a, id)

	a.Collect(noRoots{})
	if _, ok := a.Resolve(id); !ok {
		t.Fatal("persistent-held value was collected")
	}

	p.Release()
	a.Collect(noRoots{})
	if _, ok := a.Resolve(id); ok {
		t.Fatal("value survived after persistent handle released")
	}
}

func TestTraceReachesReferencedNode(t *testing.T) {
	a := New()
	child := a.AllocObject(&fakeNode{}, noRoots{})
	parent := a.AllocObject(&fakeNode{refs: []value.ObjectId{child}}, noRoots{})

	scope := NewScope()
	scope.Root(value.Obj(parent))

	a.Collect(scopeRoots{scope})

	if _, ok := a.Resolve(child); !ok {
		t.Fatal("child reachable via parent's Trace was collected")
	}
}

func TestCyclicGraphCollectedWithoutRoots(t *testing.T) {
	a := New()
	idA := a.AllocObject(&fakeNode{}, noRoots{})
	idB := a.AllocObject(&fakeNode{}, noRoots{})
	na, _ := a.Resolve(idA)
	nb, _ := a.Resolve(idB)
	na.(*fakeNode).refs = []value.ObjectId{idB}
	nb.(*fakeNode).refs = []value.ObjectId{idA}

	a.Collect(noRoots{})

	if _, ok := a.Resolve(idA); ok {
		t.Fatal("unreachable cycle member A survived collection")
	}
	if _, ok := a.Resolve(idB); ok {
		t.Fatal("unreachable cycle member B survived collection")
	}
}

func TestStatsReportsCycles(t *testing.T) {
	a := New()
	a.Collect(noRoots{})
	a.Collect(noRoots{})
	if got := a.Stats().Cycles; got != 2 {
		t.Errorf("Stats().Cycles = %d, want 2", got)
	}
}
