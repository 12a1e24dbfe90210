package vm

import (
	"errors"
	"testing"

	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/compiler"
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/value"
)

func TestRunProgramEvaluatesArithmetic(t *testing.T) {
	v := New()
	fn, errs := compiler.Compile(&ast.Program{Statements: []ast.Statement{
		&ast.Return{Value: &ast.Binary{
			Op: ast.OpAdd,
			L:  &ast.Literal{Kind: ast.LitNumber, Number: 40},
			R:  &ast.Literal{Kind: ast.LitNumber, Number: 2},
		}},
	}}, v.Strings())
	if errs.HasErrors() {
		t.Fatalf("compile failed: %v", errs)
	}
	result, err := v.RunProgram(fn)
	if err != nil {
		t.Fatalf("RunProgram failed: %v", err)
	}
	if !result.IsNumber() || result.Number() != 42 {
		t.Fatalf("got %#v, want 42", result)
	}
}

func TestCallDepthLimitRaisesRangeError(t *testing.T) {
	v := New()
	v.SetMaxCallDepth(4)

	loopIdent := func() ast.Expression { return &ast.Literal{Kind: ast.LitIdentifier, Str: "loop"} }
	decl := &ast.FunctionDeclaration{
		Name: "loop",
		Body: &ast.Block{Statements: []ast.Statement{
			&ast.Return{Value: &ast.Call{Target: loopIdent()}},
		}},
	}
	fn, errs := compiler.Compile(&ast.Program{Statements: []ast.Statement{
		&ast.FunctionDeclStatement{Decl: decl},
		&ast.Return{Value: &ast.Call{Target: loopIdent()}},
	}}, v.Strings())
	if errs.HasErrors() {
		t.Fatalf("compile failed: %v", errs)
	}

	_, err := v.RunProgram(fn)
	if err == nil {
		t.Fatalf("expected unbounded recursion to fail")
	}
	var rt *RuntimeException
	if !errors.As(err, &rt) {
		t.Fatalf("expected a RuntimeException, got %v (%T)", err, err)
	}
}

func TestCallDepthUnboundedByDefaultZero(t *testing.T) {
	v := New()
	v.SetMaxCallDepth(0)
	if v.maxCallDepth != 0 {
		t.Fatalf("SetMaxCallDepth(0) did not disable the check")
	}
}

func TestRejectedPromiseTrackedUntilHandlerAttached(t *testing.T) {
	v := New()
	p, pVal := v.newPromise()
	reason := value.Str(v.strings.Intern("boom"))

	v.rejectPromise(p, pVal, reason)
	if got := v.RejectedPromises(); len(got) != 1 {
		t.Fatalf("expected 1 rejected promise, got %d", len(got))
	}

	handler := value.Obj(v.alloc.AllocObject(object.NewNativeFunction(v.Statics().Prototype(0), "", func(ctx *object.CallContext) (value.Value, error) {
		return value.Undef(), nil
	}), v))
	v.PromiseThen(p, value.Undef(), handler)

	if got := v.RejectedPromises(); len(got) != 0 {
		t.Fatalf("expected rejection to be cleared once a handler attached, got %d entries", len(got))
	}
	if !p.Handled {
		t.Fatalf("expected Handled to be set once a real onRejected is registered")
	}
}

func TestDrainRunsQueuedMicrotasksToFixpoint(t *testing.T) {
	v := New()
	ran := 0
	v.microtasks = append(v.microtasks, func(v *VM) error {
		ran++
		if ran < 3 {
			v.microtasks = append(v.microtasks, func(v *VM) error { ran++; return nil })
		}
		return nil
	})
	if err := v.Drain(); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if ran != 3 {
		t.Fatalf("ran = %d, want 3 (queue should drain to fixpoint)", ran)
	}
}

func TestDrainStopsAtMicrotaskBatchLimit(t *testing.T) {
	v := New()
	v.SetMicrotaskBatchLimit(1)
	ran := 0
	v.microtasks = append(v.microtasks,
		func(v *VM) error { ran++; return nil },
		func(v *VM) error { ran++; return nil },
	)
	if err := v.Drain(); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if ran != 1 {
		t.Fatalf("ran = %d, want 1 (batch limit should stop early)", ran)
	}
	if len(v.microtasks) != 1 {
		t.Fatalf("expected the remaining task to stay queued, got %d left", len(v.microtasks))
	}
}

func TestTypedArrayIndexedPropertyFastPath(t *testing.T) {
	v := New()
	scope := heap.NewScope()

	buf := object.NewArrayBufferObject(value.Nul(), 4)
	bufID := v.alloc.AllocObject(buf, v)
	bufVal := value.Obj(bufID)

	ta := object.NewTypedArrayObject(value.Nul(), bufVal, buf, 0, 4, object.KindUint8)
	taID := v.alloc.AllocObject(ta, v)
	taVal := value.Obj(taID)

	key := object.StringKey(v.strings.Intern("0"))
	if err := v.setProp(v.alloc, scope, taVal, key, value.Num(200)); err != nil {
		t.Fatalf("setProp failed: %v", err)
	}
	got, err := v.getProp(v.alloc, scope, taVal, key)
	if err != nil {
		t.Fatalf("getProp failed: %v", err)
	}
	if !got.IsNumber() || got.Number() != 200 {
		t.Fatalf("got %#v, want 200 read back through the buffer", got)
	}
	if buf.Bytes()[0] != 200 {
		t.Fatalf("expected the write to land in the backing buffer, got %d", buf.Bytes()[0])
	}

	lengthKey := object.StringKey(v.strings.Intern("length"))
	lengthVal, err := v.getProp(v.alloc, scope, taVal, lengthKey)
	if err != nil {
		t.Fatalf("getProp(length) failed: %v", err)
	}
	if lengthVal.Number() != 4 {
		t.Fatalf("length = %v, want 4", lengthVal)
	}
}

func TestTypedArrayOutOfRangeWriteIsNoOp(t *testing.T) {
	v := New()
	scope := heap.NewScope()

	buf := object.NewArrayBufferObject(value.Nul(), 2)
	v.alloc.AllocObject(buf, v)
	ta := object.NewTypedArrayObject(value.Nul(), value.Nul(), buf, 0, 2, object.KindUint8)
	taID := v.alloc.AllocObject(ta, v)
	taVal := value.Obj(taID)

	key := object.StringKey(v.strings.Intern("5"))
	if err := v.setProp(v.alloc, scope, taVal, key, value.Num(9)); err != nil {
		t.Fatalf("setProp failed: %v", err)
	}
	got, err := v.getProp(v.alloc, scope, taVal, key)
	if err != nil {
		t.Fatalf("getProp failed: %v", err)
	}
	if !got.IsUndefined() {
		t.Fatalf("out-of-range read = %v, want undefined", got)
	}
}
