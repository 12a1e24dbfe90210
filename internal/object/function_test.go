package object

import (
	"testing"

	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

func TestNativeFunctionApply(t *testing.T) {
	fn := NewNativeFunction(value.Nul(), "double", func(ctx *CallContext) (value.Value, error) {
		return value.Num(ctx.Arg(0).Number() * 2), nil
	})
	got, err := fn.Apply(&CallContext{Args: []value.Value{value.Num(21)}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Number() != 42 {
		t.Errorf("Apply = %v, want 42", got)
	}
	if fn.TypeOf() != TypeofFunction {
		t.Errorf("TypeOf = %v, want function", fn.TypeOf())
	}
}

func TestUserFunctionKindFromCompiledFlags(t *testing.T) {
	gen := NewUserFunction(value.Nul(), &bytecode.CompiledFunction{Name: "g", IsGenerator: true}, nil)
	if gen.Kind != FuncGenerator {
		t.Errorf("Kind = %v, want FuncGenerator", gen.Kind)
	}
	async := NewUserFunction(value.Nul(), &bytecode.CompiledFunction{Name: "a", IsAsync: true}, nil)
	if async.Kind != FuncAsync {
		t.Errorf("Kind = %v, want FuncAsync", async.Kind)
	}
	plain := NewUserFunction(value.Nul(), &bytecode.CompiledFunction{Name: "p"}, nil)
	if plain.Kind != FuncUser {
		t.Errorf("Kind = %v, want FuncUser", plain.Kind)
	}
}

func TestBoundFunctionSplicesArgsAndThis(t *testing.T) {
	alloc := heap.New()
	target := NewNativeFunction(value.Nul(), "sum3", func(ctx *CallContext) (value.Value, error) {
		total := 0.0
		for _, a := range ctx.Args {
			total += a.Number()
		}
		return value.Num(total), nil
	})
	targetID := alloc.AllocObject(target, noRoots{})
	targetVal := value.Obj(targetID)

	bound := NewBoundFunction(value.Nul(), targetVal, value.Num(0), []value.Value{value.Num(1), value.Num(2)})

	var invoke Invoke
	invoke = func(alloc *heap.Allocator, scope *heap.LocalScope, callee, this value.Value, args []value.Value) (value.Value, error) {
		obj, _ := alloc.Resolve(callee.ObjectID())
		return obj.(Object).Apply(&CallContext{Alloc: alloc, This: this, Args: args, Invoke: invoke})
	}

	got, err := bound.Apply(&CallContext{Alloc: alloc, Args: []value.Value{value.Num(3)}, Invoke: invoke})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Number() != 6 {
		t.Errorf("bound Apply = %v, want 6", got)
	}
}

func TestPrimitiveBoxExtract(t *testing.T) {
	box := NewBoxObject(value.Nul(), value.Str(3))
	v, ok := box.Extract(TagPrimitiveBox)
	if !ok {
		t.Fatal("Extract(TagPrimitiveBox) failed")
	}
	pb := v.(*PrimitiveBox)
	if pb.Kind != value.String || pb.Value.StringID() != 3 {
		t.Errorf("PrimitiveBox = %+v", pb)
	}
}
