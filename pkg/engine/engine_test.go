package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/vm"
)

// litNumber/litString/binary/ret are small builders so each test's AST
// reads close to the script it represents, the way the teacher's own
// table-driven tests build up a tiny fixture per case rather than round
// tripping through a parser pkg/engine deliberately has no dependency on
// (spec.md §6.1: the compiler's input boundary is the AST, not source text).
func litNumber(n float64) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Number: n} }

func binary(op ast.BinaryOp, l, r ast.Expression) *ast.Binary {
	return &ast.Binary{Op: op, L: l, R: r}
}

func programReturning(expr ast.Expression) *ast.Program {
	return &ast.Program{Statements: []ast.Statement{&ast.Return{Value: expr}}}
}

func TestRunReturnsArithmeticResult(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	program := programReturning(binary(ast.OpAdd, litNumber(40), litNumber(2)))
	fn, compileErrs := e.Compile(program)
	if compileErrs.HasErrors() {
		t.Fatalf("Compile failed: %v", compileErrs)
	}

	result, err := e.Run(fn)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.IsNumber() || result.Number() != 42 {
		t.Fatalf("expected 42, got %#v", result)
	}
}

func TestRunDrainsNoMicrotasksWhenScriptSchedulesNone(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	fn, compileErrs := e.Compile(programReturning(litNumber(1)))
	if compileErrs.HasErrors() {
		t.Fatalf("Compile failed: %v", compileErrs)
	}
	if _, err := e.Run(fn); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := e.Drain(); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if got := e.RejectedPromises(); len(got) != 0 {
		t.Fatalf("expected no rejected promises, got %d", len(got))
	}
}

func TestWithMaxCallDepthBoundsRecursion(t *testing.T) {
	e, err := New(WithMaxCallDepth(4))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// A self-referential function that always recurses overflows almost
	// immediately at a depth of 4, which is the point of this test: the
	// bound is enforced, not the exact depth at which it trips.
	loopIdent := func() ast.Expression { return &ast.Literal{Kind: ast.LitIdentifier, Str: "loop"} }
	decl := &ast.FunctionDeclaration{
		Name: "loop",
		Body: &ast.Block{Statements: []ast.Statement{
			&ast.Return{Value: &ast.Call{Target: loopIdent()}},
		}},
	}
	program := &ast.Program{Statements: []ast.Statement{
		&ast.FunctionDeclStatement{Decl: decl},
		&ast.Return{Value: &ast.Call{Target: loopIdent()}},
	}}

	fn, compileErrs := e.Compile(program)
	if compileErrs.HasErrors() {
		t.Fatalf("Compile failed: %v", compileErrs)
	}

	_, err = e.Run(fn)
	if err == nil {
		t.Fatalf("expected unbounded recursion to fail")
	}
	var rt *vm.RuntimeException
	if !errors.As(err, &rt) {
		t.Fatalf("expected a thrown RuntimeException, got %v (%T)", err, err)
	}
	raw, ok := e.vm.Alloc().Resolve(rt.Value.ObjectID())
	if !ok {
		t.Fatalf("thrown value is not a live object")
	}
	errVal, ok := raw.(object.Object).Extract(object.TagError)
	if !ok {
		t.Fatalf("expected the thrown value to be an Error instance")
	}
	msg := e.vm.Strings().Resolve(errVal.(*object.ErrorObject).Message)
	if !strings.Contains(msg, "call stack") {
		t.Fatalf("expected a call-stack error message, got %q", msg)
	}
}

func TestDisassembleRendersOpcodes(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	fn, compileErrs := e.Compile(programReturning(litNumber(1)))
	if compileErrs.HasErrors() {
		t.Fatalf("Compile failed: %v", compileErrs)
	}
	text := e.Disassemble(fn)
	if text == "" {
		t.Fatalf("expected non-empty disassembly")
	}
}

func TestStatsReportsLiveNodes(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	stats := e.Stats()
	if stats.Threshold <= 0 {
		t.Fatalf("expected a positive default GC threshold, got %d", stats.Threshold)
	}
}

func TestLoadConfigAppliesYAMLTunables(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`
initial_gc_threshold: 64
gc_growth_factor: 2.0
max_call_depth: 8
microtask_batch_limit: 10
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.InitialGCThreshold != 64 || cfg.GCGrowthFactor != 2.0 || cfg.MaxCallDepth != 8 || cfg.MicrotaskBatchLimit != 10 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	e, err := New(WithConfig(cfg))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if stats := e.Stats(); stats.Threshold != 64 {
		t.Fatalf("expected initial GC threshold 64, got %d", stats.Threshold)
	}
}

func TestLoadConfigEmptyDocumentYieldsZeroValues(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadConfig failed on empty document: %v", err)
	}
	if cfg.InitialGCThreshold != 0 || cfg.MaxCallDepth != 0 {
		t.Fatalf("expected zero-valued config from an empty document, got %+v", cfg)
	}
}
