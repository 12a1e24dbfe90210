package natives

import (
	"testing"

	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/compiler"
	"github.com/lumenjs/engine/internal/value"
	"github.com/lumenjs/engine/internal/vm"
)

func ident(name string) ast.Expression { return &ast.Literal{Kind: ast.LitIdentifier, Str: name} }
func str(s string) ast.Expression      { return &ast.Literal{Kind: ast.LitString, Str: s} }
func num(n float64) ast.Expression     { return &ast.Literal{Kind: ast.LitNumber, Number: n} }

func member(target ast.Expression, name string) *ast.PropertyAccess {
	return &ast.PropertyAccess{Target: target, Property: str(name)}
}

func call(target ast.Expression, args ...ast.Expression) *ast.Call {
	argList := make([]ast.Arg, len(args))
	for i, a := range args {
		argList[i] = ast.Arg{Kind: ast.ArgNormal, Value: a}
	}
	return &ast.Call{Target: target, Args: argList}
}

func construct(target ast.Expression, args ...ast.Expression) *ast.Call {
	c := call(target, args...)
	c.IsConstructor = true
	return c
}

// run builds a fresh natives-installed VM, compiles a program whose sole
// statement returns expr, and runs it — the same "boundary is the AST, not
// source text" shape pkg/engine's own tests use (spec.md §6.1), but scoped
// here to exercising the native prototype surface Install wires up.
func run(t *testing.T, expr ast.Expression) (value.Value, *vm.VM, error) {
	t.Helper()
	v := vm.New()
	if err := Install(v); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	fn, errs := compiler.Compile(&ast.Program{Statements: []ast.Statement{&ast.Return{Value: expr}}}, v.Strings())
	if errs.HasErrors() {
		t.Fatalf("compile failed: %v", errs)
	}
	result, err := v.RunProgram(fn)
	return result, v, err
}

func TestArrayJoinOverThreeElements(t *testing.T) {
	arr := &ast.ArrayLit{Elements: []ast.ArrayElement{
		{Kind: ast.ArrayItem, Value: num(1)},
		{Kind: ast.ArrayItem, Value: num(2)},
		{Kind: ast.ArrayItem, Value: num(3)},
	}}
	result, v, err := run(t, call(member(arr, "join"), str("-")))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !result.IsString() || v.Strings().Resolve(result.StringID()) != "1-2-3" {
		t.Fatalf("got %#v, want \"1-2-3\"", result)
	}
}

func TestArrayPushReturnsNewLength(t *testing.T) {
	arr := &ast.ArrayLit{Elements: []ast.ArrayElement{
		{Kind: ast.ArrayItem, Value: num(1)},
	}}
	result, _, err := run(t, call(member(arr, "push"), num(2), num(3)))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !result.IsNumber() || result.Number() != 3 {
		t.Fatalf("got %#v, want length 3", result)
	}
}

func TestMathSqrtIntrinsic(t *testing.T) {
	result, _, err := run(t, call(member(ident("Math"), "sqrt"), num(16)))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !result.IsNumber() || result.Number() != 4 {
		t.Fatalf("got %#v, want 4", result)
	}
}

func TestTypeErrorConstructorSetsMessage(t *testing.T) {
	result, v, err := run(t, member(construct(ident("TypeError"), str("bad input")), "message"))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !result.IsString() || v.Strings().Resolve(result.StringID()) != "bad input" {
		t.Fatalf("got %#v, want \"bad input\"", result)
	}
}

func TestStringToUpperCase(t *testing.T) {
	result, v, err := run(t, call(member(str("hello"), "toUpperCase")))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !result.IsString() || v.Strings().Resolve(result.StringID()) != "HELLO" {
		t.Fatalf("got %#v, want \"HELLO\"", result)
	}
}

func TestArrayIsArray(t *testing.T) {
	arr := &ast.ArrayLit{}
	result, _, err := run(t, call(member(ident("Array"), "isArray"), arr))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !result.IsBoolean() || !result.Boolean() {
		t.Fatalf("got %#v, want true", result)
	}
}
