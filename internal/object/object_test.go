package object

import (
	"testing"

	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

func newTestAlloc() *heap.Allocator { return heap.New() }

type noRoots struct{}

func (noRoots) Roots(func(value.ObjectId)) {}

func allocOrdinary(t *testing.T, alloc *heap.Allocator, proto value.Value) (value.Value, *OrdObject) {
	t.Helper()
	o := NewOrdObject(proto)
	id := alloc.AllocObject(o, noRoots{})
	return value.Obj(id), o
}

func TestGetOwnDataProperty(t *testing.T) {
	alloc := newTestAlloc()
	v, o := allocOrdinary(t, alloc, value.Nul())
	key := StringKey(1)
	if err := o.SetProperty(alloc, key, PropertyValue{Static: value.Num(42), Flags: DefaultDataDescriptor()}); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	got, err := Get(alloc, o, v, key, nil, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Number() != 42 {
		t.Errorf("Get = %v, want 42", got)
	}
}

func TestGetWalksPrototypeChain(t *testing.T) {
	alloc := newTestAlloc()
	protoVal, proto := allocOrdinary(t, alloc, value.Nul())
	key := StringKey(2)
	_ = proto.SetProperty(alloc, key, PropertyValue{Static: value.Num(7), Flags: DefaultDataDescriptor()})

	childVal, child := allocOrdinary(t, alloc, protoVal)
	_ = childVal

	got, err := Get(alloc, child, childVal, key, nil, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Number() != 7 {
		t.Errorf("Get via prototype = %v, want 7", got)
	}
}

func TestSetCreatesOwnPropertyWhenAbsentOnChain(t *testing.T) {
	alloc := newTestAlloc()
	protoVal, _ := allocOrdinary(t, alloc, value.Nul())
	childVal, child := allocOrdinary(t, alloc, protoVal)

	key := StringKey(3)
	if err := Set(alloc, child, childVal, key, value.Num(9), nil, nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	pv, ok := child.GetOwnPropertyDescriptor(alloc, key)
	if !ok || pv.Static.Number() != 9 {
		t.Errorf("own property after Set = %+v, ok=%v", pv, ok)
	}
}

func TestDeleteRespectsConfigurable(t *testing.T) {
	alloc := newTestAlloc()
	_, o := allocOrdinary(t, alloc, value.Nul())
	key := StringKey(4)
	_ = o.SetProperty(alloc, key, PropertyValue{Static: value.Num(1), Flags: Writable | Enumerable})

	_, ok := o.DeleteProperty(alloc, key)
	if ok {
		t.Error("DeleteProperty should fail on non-configurable property")
	}
	if _, stillThere := o.GetOwnPropertyDescriptor(alloc, key); !stillThere {
		t.Error("non-configurable property was removed")
	}
}

func TestOwnKeysPreservesInsertionOrder(t *testing.T) {
	alloc := newTestAlloc()
	_, o := allocOrdinary(t, alloc, value.Nul())
	keys := []PropertyKey{StringKey(10), StringKey(5), StringKey(8)}
	for _, k := range keys {
		_ = o.SetProperty(alloc, k, PropertyValue{Static: value.Num(1), Flags: DefaultDataDescriptor()})
	}
	got := o.OwnKeys(alloc)
	if len(got) != 3 {
		t.Fatalf("OwnKeys len = %d, want 3", len(got))
	}
	for i, k := range keys {
		if got[i] != k {
			t.Errorf("OwnKeys[%d] = %+v, want %+v", i, got[i], k)
		}
	}
}

func TestInstanceOfWalksChain(t *testing.T) {
	alloc := newTestAlloc()
	grandProtoVal, _ := allocOrdinary(t, alloc, value.Nul())
	protoVal, _ := allocOrdinary(t, alloc, grandProtoVal)
	instVal, _ := allocOrdinary(t, alloc, protoVal)

	if !InstanceOf(alloc, instVal, protoVal) {
		t.Error("InstanceOf direct prototype = false, want true")
	}
	if !InstanceOf(alloc, instVal, grandProtoVal) {
		t.Error("InstanceOf transitive prototype = false, want true")
	}
	other, _ := allocOrdinary(t, alloc, value.Nul())
	if InstanceOf(alloc, instVal, other) {
		t.Error("InstanceOf unrelated prototype = true, want false")
	}
}

func TestAccessorGetterInvoked(t *testing.T) {
	alloc := newTestAlloc()
	v, o := allocOrdinary(t, alloc, value.Nul())
	getterCalled := false
	invoke := func(alloc *heap.Allocator, scope *heap.LocalScope, callee, this value.Value, args []value.Value) (value.Value, error) {
		getterCalled = true
		return value.Num(99), nil
	}
	key := StringKey(6)
	_ = o.SetProperty(alloc, key, PropertyValue{IsAccessor: true, Getter: value.Num(0), Flags: Enumerable | Configurable})

	got, err := Get(alloc, o, v, key, invoke, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !getterCalled {
		t.Error("accessor getter was not invoked")
	}
	if got.Number() != 99 {
		t.Errorf("Get via accessor = %v, want 99", got)
	}
}
