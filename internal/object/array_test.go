package object

import (
	"testing"

	"github.com/lumenjs/engine/internal/value"
)

func TestArrayDenseSetGet(t *testing.T) {
	a := NewArrayObject(value.Nul())
	a.SetElement(0, value.Num(1))
	a.SetElement(1, value.Num(2))

	if a.Mode() != "dense" {
		t.Fatalf("Mode = %s, want dense", a.Mode())
	}
	if a.GetElement(0).Number() != 1 || a.GetElement(1).Number() != 2 {
		t.Errorf("unexpected elements")
	}
	if a.Length() != 2 {
		t.Errorf("Length = %d, want 2", a.Length())
	}
}

func TestArrayHoleReadsUndefined(t *testing.T) {
	a := NewArrayObject(value.Nul())
	a.SetElement(0, value.Num(1))
	a.SetElement(2, value.Num(3))

	if got := a.GetElement(1); !got.IsUndefined() {
		t.Errorf("hole read = %v, want undefined", got)
	}
	if a.Length() != 3 {
		t.Errorf("Length = %d, want 3", a.Length())
	}
}

func TestArrayDeleteLeavesHoleWithoutShifting(t *testing.T) {
	a := NewArrayObject(value.Nul())
	a.SetElement(0, value.Num(1))
	a.SetElement(1, value.Num(2))
	a.SetElement(2, value.Num(3))

	a.DeleteElement(1)

	if got := a.GetElement(1); !got.IsUndefined() {
		t.Errorf("deleted slot = %v, want undefined", got)
	}
	if got := a.GetElement(2); got.Number() != 3 {
		t.Errorf("GetElement(2) = %v, want 3 (no shift)", got)
	}
	if a.Length() != 3 {
		t.Errorf("Length = %d after delete, want unchanged 3", a.Length())
	}
}

func TestArrayFarIndexConvertsToTable(t *testing.T) {
	a := NewArrayObject(value.Nul())
	a.SetElement(0, value.Num(1))
	a.SetElement(1_000_000, value.Num(2))

	if a.Mode() != "table" {
		t.Fatalf("Mode = %s, want table after far write", a.Mode())
	}
	if a.GetElement(0).Number() != 1 {
		t.Errorf("table mode lost prior dense element")
	}
	if a.GetElement(1_000_000).Number() != 2 {
		t.Errorf("table mode element = %v, want 2", a.GetElement(1_000_000))
	}
	if a.GetElement(500).IsUndefined() == false {
		t.Errorf("unset table index should read undefined")
	}
}

func TestArraySetLengthTruncates(t *testing.T) {
	a := NewArrayObject(value.Nul())
	a.SetElement(0, value.Num(1))
	a.SetElement(1, value.Num(2))
	a.SetElement(2, value.Num(3))

	a.SetLength(1)

	if a.Length() != 1 {
		t.Errorf("Length after truncate = %d, want 1", a.Length())
	}
	if got := a.GetElement(1); !got.IsUndefined() {
		t.Errorf("GetElement(1) after truncate = %v, want undefined", got)
	}
}
