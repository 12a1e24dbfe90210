package bytecode

import (
	"testing"

	"github.com/lumenjs/engine/internal/value"
)

func sampleFn() *CompiledFunction {
	b := &Builder{}
	b.EmitOp(OpLoadConstNarrow)
	b.EmitU8(0)
	b.EmitOp(OpReturn)
	b.EmitU16(0)

	return &CompiledFunction{
		Name:       "sample",
		ParamCount: 1,
		LocalCount: 2,
		Code:       b.Code,
		Constants: []Constant{
			{Kind: ConstNumber, Number: 42},
			{Kind: ConstSymbol, Symbol: value.InternedStringId(7)},
		},
		DebugSpans: []SpanEntry{{IPOffset: 0, SpanIdx: 0}},
		Exceptions: []ExceptionRegion{{TryIP: 0, EndIP: len(b.Code), HasCatch: true, CatchIP: 1}},
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	fn := sampleFn()
	data, err := Serialize(fn)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if got.Name != fn.Name || got.ParamCount != fn.ParamCount || got.LocalCount != fn.LocalCount {
		t.Fatalf("header mismatch: %+v vs %+v", got, fn)
	}
	if len(got.Constants) != len(fn.Constants) {
		t.Fatalf("constant count mismatch: %d vs %d", len(got.Constants), len(fn.Constants))
	}
	if got.Constants[0].Number != 42 {
		t.Errorf("constant[0].Number = %v, want 42", got.Constants[0].Number)
	}
	if string(got.Code) != string(fn.Code) {
		t.Errorf("code mismatch")
	}
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	if _, err := Deserialize([]byte{0, 0, 0, 0}); err == nil {
		t.Error("expected error for bad magic")
	}
}

func TestSerializeNestedFunctionConstant(t *testing.T) {
	inner := sampleFn()
	outer := &CompiledFunction{
		Name: "outer",
		Constants: []Constant{
			{Kind: ConstFunction, Function: inner},
		},
	}
	data, err := Serialize(outer)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.Constants[0].Function.Name != "sample" {
		t.Errorf("nested function name = %q, want sample", got.Constants[0].Function.Name)
	}
}
