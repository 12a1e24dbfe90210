// Package compiler implements L5 of the core engine: a visitor over the
// boundary AST (internal/ast) that lowers source into a bytecode.CompiledFunction
// (spec.md §4.2). It resolves scopes, assigns local slots, resolves
// upvalues, fixes up jumps, emits exception regions, desugars for-of/for-in
// and generator/async control flow, and specializes known builtin calls
// into IntrinsicOp.
//
// Grounded on go-dws's internal/bytecode/compiler_core.go (enclosing-
// pointer function nesting, locals-as-a-flat-stack-with-depth, upvalue
// resolution via addUpvalue/resolveUpvalue, loop-context break/continue
// jump lists) and compiler_statements.go/compiler_expressions.go for the
// statement/expression visitor split — adapted from DWScript's statically
// typed declarations to plain dynamically-typed JS bindings, and from a
// fixed-width instruction word to the variable-length bytecode.Builder
// (internal/bytecode).
package compiler

import (
	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/errors"
	"github.com/lumenjs/engine/internal/token"
	"github.com/lumenjs/engine/internal/value"
)

// Interner supplies compact identifiers for source identifiers and string
// literals. The interner itself is an external collaborator (spec.md §1);
// this package only consumes it through this boundary.
type Interner interface {
	Intern(s string) value.InternedStringId
}

type localVar struct {
	name  string
	depth int
	slot  uint16
}

type upvalueDesc struct {
	index      uint16
	isExternal bool
}

// loopCtx tracks one active loop's pending break/continue jump sites,
// patched once the loop's end-label (break) and continue-label are known
// (spec.md §4.2 "Loops").
type loopCtx struct {
	label         string
	breakJumps    []int
	continueJumps []int
}

// Compiler compiles one function body. Nested function literals get their
// own child Compiler with `enclosing` set, mirroring the teacher's
// per-function compiler-instance nesting.
type Compiler struct {
	interner  Interner
	enclosing *Compiler

	builder   *bytecode.Builder
	constants []bytecode.Constant
	numberIdx map[float64]int
	symbolIdx map[value.InternedStringId]int

	locals     []localVar
	scopeDepth int
	nextSlot   uint16
	maxSlot    uint16

	upvalues []upvalueDesc

	loopStack []*loopCtx

	spans   []token.Span
	spanIdx map[token.Span]int
	debug   []bytecode.SpanEntry

	exceptions []bytecode.ExceptionRegion
	tryDepth   int

	name        string
	restParam   bool
	paramCount  int
	isGenerator bool
	isAsync     bool

	errs errors.CompileErrors
}

func newCompiler(interner Interner, enclosing *Compiler, name string) *Compiler {
	return &Compiler{
		interner:  interner,
		enclosing: enclosing,
		builder:   &bytecode.Builder{},
		numberIdx: make(map[float64]int),
		symbolIdx: make(map[value.InternedStringId]int),
		spanIdx:   make(map[token.Span]int),
		name:      name,
	}
}

// Compile lowers a whole program into one top-level CompiledFunction whose
// final expression statement's value (if any) is the completion value
// returned to the host — the conventional "last expression wins" behavior
// an embedder relies on for scripted evaluation (spec.md §8 scenarios 1-2
// both end on a bare expression).
func Compile(program *ast.Program, interner Interner) (*bytecode.CompiledFunction, errors.CompileErrors) {
	c := newCompiler(interner, nil, "")
	c.compileProgramBody(program.Statements)
	fn := c.finish()
	if c.errs.HasErrors() {
		return nil, c.errs
	}
	return fn, nil
}

func (c *Compiler) compileProgramBody(stmts []ast.Statement) {
	for i, s := range stmts {
		if i == len(stmts)-1 {
			if es, ok := s.(*ast.ExpressionStatement); ok {
				c.compileExpr(es.Expr)
				c.emitReturn(es.Span)
				return
			}
		}
		c.compileStatement(s)
	}
	c.builder.EmitOp(bytecode.OpLoadUndefined)
	c.emitReturn(token.Span{})
}

func (c *Compiler) emitReturn(span token.Span) {
	c.markSpan(c.builder.Len(), span)
	c.builder.EmitOp(bytecode.OpReturn)
	c.builder.EmitU16(uint16(c.tryDepth))
}

func (c *Compiler) finish() *bytecode.CompiledFunction {
	return &bytecode.CompiledFunction{
		Name:        c.name,
		ParamCount:  c.paramCount,
		LocalCount:  int(c.maxSlot),
		RestParam:   c.restParam,
		IsGenerator: c.isGenerator,
		IsAsync:     c.isAsync,
		Upvalues:    c.buildUpvalueDefs(),
		Code:        c.builder.Code,
		Constants:   c.constants,
		Exceptions:  c.exceptions,
		DebugSpans:  c.debug,
		Spans:       c.spans,
	}
}

func (c *Compiler) buildUpvalueDefs() []bytecode.UpvalueDesc {
	if len(c.upvalues) == 0 {
		return nil
	}
	defs := make([]bytecode.UpvalueDesc, len(c.upvalues))
	for i, uv := range c.upvalues {
		defs[i] = bytecode.UpvalueDesc{IsExternal: uv.isExternal, Index: uv.index}
	}
	return defs
}

// ---- constant pool ----------------------------------------------------

func (c *Compiler) addConstant(k bytecode.Constant) int {
	idx := len(c.constants)
	if idx >= bytecode.MaxConstants {
		c.errorAt(token.Span{}, "ConstantPoolLimitExceeded: function exceeds %d constants", bytecode.MaxConstants)
		return 0
	}
	c.constants = append(c.constants, k)
	return idx
}

func (c *Compiler) numberConstant(f float64) int {
	if idx, ok := c.numberIdx[f]; ok {
		return idx
	}
	idx := c.addConstant(bytecode.Constant{Kind: bytecode.ConstNumber, Number: f})
	c.numberIdx[f] = idx
	return idx
}

func (c *Compiler) symbolConstant(id value.InternedStringId) int {
	if idx, ok := c.symbolIdx[id]; ok {
		return idx
	}
	idx := c.addConstant(bytecode.Constant{Kind: bytecode.ConstSymbol, Symbol: id})
	c.symbolIdx[id] = idx
	return idx
}

func (c *Compiler) internName(name string) value.InternedStringId {
	if c.interner == nil {
		return value.InternedStringId(0)
	}
	return c.interner.Intern(name)
}

func (c *Compiler) functionConstant(fn *bytecode.CompiledFunction) int {
	return c.addConstant(bytecode.Constant{Kind: bytecode.ConstFunction, Function: fn})
}

// emitLoadConst picks the narrow or wide opcode per spec.md §4.1's
// "two flavors" rule, based on whether idx fits a u8.
func (c *Compiler) emitLoadConst(idx int) {
	if idx <= 0xFF {
		c.builder.EmitOp(bytecode.OpLoadConstNarrow)
		c.builder.EmitU8(byte(idx))
	} else {
		c.builder.EmitOp(bytecode.OpLoadConstWide)
		c.builder.EmitU16(uint16(idx))
	}
}

func (c *Compiler) emitLoadGlobal(idx int) {
	if idx <= 0xFF {
		c.builder.EmitOp(bytecode.OpLoadGlobalNarrow)
		c.builder.EmitU8(byte(idx))
	} else {
		c.builder.EmitOp(bytecode.OpLoadGlobalWide)
		c.builder.EmitU16(uint16(idx))
	}
}

func (c *Compiler) emitStoreGlobal(idx int) {
	if idx <= 0xFF {
		c.builder.EmitOp(bytecode.OpStoreGlobalNarrow)
		c.builder.EmitU8(byte(idx))
	} else {
		c.builder.EmitOp(bytecode.OpStoreGlobalWide)
		c.builder.EmitU16(uint16(idx))
	}
}

// ---- scopes & locals ----------------------------------------------------

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	if c.scopeDepth == 0 {
		return
	}
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth == c.scopeDepth {
		c.locals = c.locals[:len(c.locals)-1]
	}
	c.scopeDepth--
}

func (c *Compiler) declareLocalAtDepth(name string, depth int, span token.Span) uint16 {
	if depth == c.scopeDepth {
		for i := len(c.locals) - 1; i >= 0; i-- {
			if c.locals[i].depth != depth {
				break
			}
			if c.locals[i].name == name {
				c.errorAt(span, "DuplicateBinding: %q already declared in this scope", name)
				return c.locals[i].slot
			}
		}
	}
	slot := c.nextSlot
	if int(slot) >= bytecode.MaxLocals-1 {
		c.errorAt(span, "LocalLimitExceeded: function exceeds %d locals", bytecode.MaxLocals-1)
		return slot
	}
	c.nextSlot++
	if c.nextSlot > c.maxSlot {
		c.maxSlot = c.nextSlot
	}
	c.locals = append(c.locals, localVar{name: name, depth: depth, slot: slot})
	return slot
}

// declareBinding implements spec.md §4.2's hoisting tie-break: `var`
// bindings live at function-scope depth 0 and are deduped by name so
// repeated `var x` declarations share a slot; `let`/`const` (and compiler
// temporaries) are block-scoped to the current depth. At the top level of a
// script (the outermost compiler at scope depth 0) no slot is reserved:
// storeLocalOrGlobal stores those bindings as globals, and loads of the
// name fall through to the global lookup.
func (c *Compiler) declareBinding(kind ast.DeclKind, name string, span token.Span) uint16 {
	if c.enclosing == nil && c.isTopLevelScope() {
		return 0
	}
	if kind == ast.DeclVar {
		for i := range c.locals {
			if c.locals[i].depth == 0 && c.locals[i].name == name {
				return c.locals[i].slot
			}
		}
		return c.declareLocalAtDepth(name, 0, span)
	}
	return c.declareLocalAtDepth(name, c.scopeDepth, span)
}

// declareTemp reserves an unnameable local for compiler-generated state
// (e.g. for-of's __iter/__step); it can never collide with a user
// identifier because no source name is ever equal to the empty-prefixed
// synthetic name passed in.
func (c *Compiler) declareTemp(name string) uint16 {
	return c.declareLocalAtDepth(name, c.scopeDepth, token.Span{})
}

func (c *Compiler) resolveLocal(name string) (uint16, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return c.locals[i].slot, true
		}
	}
	return 0, false
}

// resolveUpvalue implements spec.md §4.2's three-step identifier
// resolution for names found in an enclosing function scope: step 2
// registers an ExternalDescriptor with is_external=false on the innermost
// enclosing function that owns the local, and is_external=true on every
// further-out wrapper in between.
func (c *Compiler) resolveUpvalue(name string) (uint16, bool) {
	if c.enclosing == nil {
		return 0, false
	}
	if slot, ok := c.enclosing.resolveLocal(name); ok {
		return c.addUpvalue(slot, false), true
	}
	if idx, ok := c.enclosing.resolveUpvalue(name); ok {
		return c.addUpvalue(idx, true), true
	}
	return 0, false
}

func (c *Compiler) addUpvalue(index uint16, isExternal bool) uint16 {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isExternal == isExternal {
			return uint16(i)
		}
	}
	c.upvalues = append(c.upvalues, upvalueDesc{index: index, isExternal: isExternal})
	return uint16(len(c.upvalues) - 1)
}

// ---- spans & errors ------------------------------------------------------

func (c *Compiler) markSpan(ip int, span token.Span) {
	if span.IsZero() {
		return
	}
	idx, ok := c.spanIdx[span]
	if !ok {
		idx = len(c.spans)
		c.spans = append(c.spans, span)
		c.spanIdx[span] = idx
	}
	c.debug = append(c.debug, bytecode.SpanEntry{IPOffset: ip, SpanIdx: idx})
}

func (c *Compiler) errorAt(span token.Span, format string, args ...any) {
	c.errs = append(c.errs, errors.NewCompile(span, format, args...))
}

func (c *Compiler) patchJump(site int) {
	target := c.builder.Len()
	if err := c.builder.PatchI16(site, target); err != nil {
		c.errorAt(token.Span{}, "JumpOffsetExceeded: %v", err)
	}
}

func (c *Compiler) patchJumpTo(site int, target int) {
	if err := c.builder.PatchI16(site, target); err != nil {
		c.errorAt(token.Span{}, "JumpOffsetExceeded: %v", err)
	}
}
