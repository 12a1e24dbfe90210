package compiler

import (
	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/bytecode"
)

// compileFunctionDeclStatement declares the function's name as a binding in
// the enclosing scope and compiles its body as a child function, the
// go-dws newChildCompiler pattern generalized to closures: every nested
// function gets its own Compiler with `enclosing` set so resolveUpvalue
// can walk outward (spec.md §4.2).
func (c *Compiler) compileFunctionDeclStatement(n *ast.FunctionDeclStatement) {
	slot := c.declareBinding(ast.DeclVar, n.Decl.Name, n.Span)
	c.compileFunctionLiteral(n.Decl)
	c.storeLocalOrGlobal(n.Decl.Name, slot, ast.DeclVar, n.Span)
}

func (c *Compiler) compileFunctionExpr(n *ast.FunctionExpr) {
	c.compileFunctionLiteral(n.Decl)
}

// compileFunctionLiteral compiles decl's body into a nested CompiledFunction,
// adds it to the constant pool, and emits a LOAD_CONST of it; the VM builds
// the closure, binding its upvalue table against the currently-live
// locals/upvalues, when that LOAD_CONST executes.
func (c *Compiler) compileFunctionLiteral(decl *ast.FunctionDeclaration) {
	child := newCompiler(c.interner, c, decl.Name)
	child.isGenerator = decl.IsGenerator
	child.isAsync = decl.IsAsync
	child.paramCount = len(decl.Params)

	child.beginScope()
	for _, p := range decl.Params {
		slot := child.declareLocalAtDepth(p.Name, child.scopeDepth, decl.Span)
		if p.Default != nil {
			child.builder.EmitOp(bytecode.OpLoadLocal)
			child.builder.EmitU16(slot)
			skip := child.emitJumpPlaceholder(bytecode.OpJumpIfNullishNoPop)
			child.builder.EmitOp(bytecode.OpPop)
			child.compileExpr(p.Default)
			child.builder.EmitOp(bytecode.OpStoreLocal)
			child.builder.EmitU16(slot)
			child.patchJump(skip)
			child.builder.EmitOp(bytecode.OpPop)
		}
	}
	if decl.Rest {
		child.restParam = true
	}

	for _, st := range decl.Body.Statements {
		child.compileStatement(st)
	}
	child.builder.EmitOp(bytecode.OpLoadUndefined)
	child.emitReturn(decl.Body.Span)
	child.endScope()

	fn := child.finish()
	if child.errs.HasErrors() {
		c.errs = append(c.errs, child.errs...)
	}

	idx := c.functionConstant(fn)
	c.emitLoadConst(idx)
}
