package statics

import (
	"testing"

	"github.com/lumenjs/engine/internal/value"
)

func TestReservedSymbolsAreDistinct(t *testing.T) {
	seen := map[value.InternedStringId]bool{}
	ids := []value.InternedStringId{SymIterator, SymAsyncIterator, SymToPrimitive, SymToStringTag, SymHasInstance}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate reserved symbol id %d", id)
		}
		seen[id] = true
	}
	if ReservedSymbolCount != len(ids) {
		t.Errorf("ReservedSymbolCount = %d, want %d", ReservedSymbolCount, len(ids))
	}
}

func TestWellKnownSymbolProducesSymbolKind(t *testing.T) {
	v := WellKnownSymbol(SymIterator)
	if !v.IsSymbol() {
		t.Errorf("WellKnownSymbol should produce a Symbol value, got %v", v.Kind())
	}
}

func TestTableDefaultsToUndefined(t *testing.T) {
	tbl := New()
	if !tbl.Prototype(ProtoArray).IsUndefined() {
		t.Error("unpopulated prototype slot should default to Undefined")
	}
	tbl.SetPrototype(ProtoArray, value.Obj(5))
	if tbl.Prototype(ProtoArray).ObjectID() != 5 {
		t.Error("SetPrototype/Prototype round trip failed")
	}
}
