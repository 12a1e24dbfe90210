package value

import (
	"math"
	"testing"
)

func TestConstructorsRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		kind Kind
	}{
		{"undef", Undef(), Undefined},
		{"null", Nul(), Null},
		{"num", Num(3.5), Number},
		{"bool", Bool(true), Boolean},
		{"str", Str(7), String},
		{"sym", Sym(9), Symbol},
		{"obj", Obj(42), Object},
		{"ext", Ext(1), External},
	}
	for _, c := range cases {
		if c.v.Kind() != c.kind {
			t.Errorf("%s: Kind() = %v, want %v", c.name, c.v.Kind(), c.kind)
		}
	}
}

func TestNumberPayload(t *testing.T) {
	v := Num(42)
	if got := v.Number(); got != 42 {
		t.Errorf("Number() = %v, want 42", got)
	}
}

func TestBooleanPayload(t *testing.T) {
	if !Bool(true).Boolean() {
		t.Error("Bool(true).Boolean() = false")
	}
	if Bool(false).Boolean() {
		t.Error("Bool(false).Boolean() = true")
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Undef(), false},
		{Nul(), false},
		{Bool(false), false},
		{Bool(true), true},
		{Num(0), false},
		{Num(math.NaN()), false},
		{Num(1), true},
		{Obj(0), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v.Kind(), got, c.want)
		}
	}
}

func TestSameValueZeroNaN(t *testing.T) {
	nan := Num(math.NaN())
	if !SameValueZero(nan, nan) {
		t.Error("SameValueZero(NaN, NaN) = false, want true (unlike ==)")
	}
}

func TestSameValueZeroCrossKind(t *testing.T) {
	if SameValueZero(Num(0), Bool(false)) {
		t.Error("SameValueZero across kinds should be false")
	}
}

func TestHashStableAcrossNaN(t *testing.T) {
	a := Hash(Num(math.NaN()))
	b := Hash(Num(math.NaN()))
	if a != b {
		t.Error("Hash(NaN) not stable across identical bit patterns")
	}
}

func TestPanicsOnWrongAccessor(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic accessing Number() on a Boolean Value")
		}
	}()
	Bool(true).Number()
}
