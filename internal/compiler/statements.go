package compiler

import (
	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/token"
)

// compileStatement dispatches on the concrete AST statement type, mirroring
// go-dws's compiler_statements.go switch but over the JS statement set
// (spec.md §6.1).
func (c *Compiler) compileStatement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.ExpressionStatement:
		c.compileExpr(n.Expr)
		c.builder.EmitOp(bytecode.OpPop)
	case *ast.VariableDeclarations:
		c.compileVarDecl(n)
	case *ast.Block:
		c.beginScope()
		for _, st := range n.Statements {
			c.compileStatement(st)
		}
		c.endScope()
	case *ast.If:
		c.compileIf(n)
	case *ast.Loop:
		c.compileLoop(n)
	case *ast.LabelledStatement:
		c.compileLabelled(n)
	case *ast.Return:
		c.compileReturn(n)
	case *ast.Try:
		c.compileTry(n)
	case *ast.Throw:
		c.compileExpr(n.Value)
		c.markSpan(c.builder.Len(), n.Span)
		c.builder.EmitOp(bytecode.OpThrow)
	case *ast.FunctionDeclStatement:
		c.compileFunctionDeclStatement(n)
	case *ast.Switch:
		c.compileSwitch(n)
	case *ast.Break:
		c.compileBreak(n)
	case *ast.Continue:
		c.compileContinue(n)
	case *ast.Class:
		c.errorAt(n.Span, "Unimplemented: class declarations are not supported by this compiler")
	case *ast.Import, *ast.Export:
		c.errorAt(s.Pos(), "Unimplemented: module import/export is a host-loader concern, not a compiler one")
	case *ast.Debugger, *ast.Empty:
		// no-op
	default:
		c.errorAt(s.Pos(), "Unimplemented: unsupported statement form %T", n)
	}
}

func (c *Compiler) compileVarDecl(n *ast.VariableDeclarations) {
	for _, b := range n.Bindings {
		slot := c.declareBinding(n.Kind, b.Name, n.Span)
		if b.Init != nil {
			c.compileExpr(b.Init)
		} else {
			c.builder.EmitOp(bytecode.OpLoadUndefined)
		}
		c.storeLocalOrGlobal(b.Name, slot, n.Kind, n.Span)
	}
}

// storeLocalOrGlobal stores the top-of-stack value into the binding just
// declared. Top-level `var`/`let`/`const` outside any function (scopeDepth
// tracks block nesting, not function nesting, so this checks whether we are
// the outermost, enclosing-less compiler) target globals instead of a slot,
// matching scripts that share state across separately compiled top-level
// statements (spec.md §4.2 "global fallback").
func (c *Compiler) storeLocalOrGlobal(name string, slot uint16, kind ast.DeclKind, span token.Span) {
	if c.enclosing == nil && c.isTopLevelScope() {
		idx := c.symbolConstant(c.internName(name))
		c.emitStoreGlobal(idx)
		return
	}
	c.builder.EmitOp(bytecode.OpStoreLocal)
	c.builder.EmitU16(slot)
}

func (c *Compiler) isTopLevelScope() bool {
	return c.scopeDepth == 0
}

func (c *Compiler) compileIf(n *ast.If) {
	c.compileExpr(n.Cond)
	elseJump := c.emitJumpPlaceholder(bytecode.OpJumpIfFalse)
	c.compileStatement(wrapBlock(n.Then))
	var endJumps []int
	endJumps = append(endJumps, c.emitJumpPlaceholder(bytecode.OpJump))
	c.patchJump(elseJump)

	for _, br := range n.Branches {
		c.compileExpr(br.Cond)
		nextJump := c.emitJumpPlaceholder(bytecode.OpJumpIfFalse)
		c.compileStatement(wrapBlock(br.Then))
		endJumps = append(endJumps, c.emitJumpPlaceholder(bytecode.OpJump))
		c.patchJump(nextJump)
	}

	if n.Else != nil {
		c.compileStatement(wrapBlock(n.Else))
	}
	for _, j := range endJumps {
		c.patchJump(j)
	}
}

func wrapBlock(b *ast.Block) ast.Statement { return b }

func (c *Compiler) compileLabelled(n *ast.LabelledStatement) {
	switch inner := n.Stmt.(type) {
	case *ast.Loop:
		inner.Label = n.Label
		c.compileLoop(inner)
	default:
		// A label on a non-loop statement only matters to `break label;`;
		// model it as a breakable block so break resolves uniformly.
		lc := &loopCtx{label: n.Label}
		c.loopStack = append(c.loopStack, lc)
		c.compileStatement(n.Stmt)
		c.loopStack = c.loopStack[:len(c.loopStack)-1]
		for _, j := range lc.breakJumps {
			c.patchJump(j)
		}
	}
}

func (c *Compiler) compileReturn(n *ast.Return) {
	if n.Value != nil {
		c.compileExpr(n.Value)
	} else {
		c.builder.EmitOp(bytecode.OpLoadUndefined)
	}
	c.emitReturn(n.Span)
}

func (c *Compiler) compileBreak(n *ast.Break) {
	lc := c.findLoop(n.Label)
	if lc == nil {
		c.errorAt(n.Span, "UnexpectedToken: break outside of a loop or labelled statement")
		return
	}
	j := c.emitJumpPlaceholder(bytecode.OpJump)
	lc.breakJumps = append(lc.breakJumps, j)
}

func (c *Compiler) compileContinue(n *ast.Continue) {
	lc := c.findLoop(n.Label)
	if lc == nil {
		c.errorAt(n.Span, "UnexpectedToken: continue outside of a loop")
		return
	}
	j := c.emitJumpPlaceholder(bytecode.OpJump)
	lc.continueJumps = append(lc.continueJumps, j)
}

func (c *Compiler) findLoop(label string) *loopCtx {
	if label == "" {
		if len(c.loopStack) == 0 {
			return nil
		}
		return c.loopStack[len(c.loopStack)-1]
	}
	for i := len(c.loopStack) - 1; i >= 0; i-- {
		if c.loopStack[i].label == label {
			return c.loopStack[i]
		}
	}
	return nil
}

func (c *Compiler) emitJumpPlaceholder(op bytecode.OpCode) int {
	c.builder.EmitOp(op)
	return c.builder.EmitI16Placeholder()
}

// compileSwitch lowers to a chain of strict-equality comparisons against
// the discriminant (held in a temporary local) followed by conditional
// jumps to each case body, the conventional desugaring used when the
// target ISA has no dedicated switch/jump-table opcode.
func (c *Compiler) compileSwitch(n *ast.Switch) {
	c.beginScope()
	discSlot := c.declareTemp("__switch_disc")
	c.compileExpr(n.Discriminant)
	c.builder.EmitOp(bytecode.OpStoreLocal)
	c.builder.EmitU16(discSlot)

	lc := &loopCtx{}
	c.loopStack = append(c.loopStack, lc)

	var caseJumps []int
	defaultIdx := -1
	for i, cs := range n.Cases {
		if cs.Test == nil {
			defaultIdx = i
			caseJumps = append(caseJumps, -1)
			continue
		}
		c.builder.EmitOp(bytecode.OpLoadLocal)
		c.builder.EmitU16(discSlot)
		c.compileExpr(cs.Test)
		c.builder.EmitOp(bytecode.OpStrictEq)
		j := c.emitJumpPlaceholder(bytecode.OpJumpIfTrue)
		caseJumps = append(caseJumps, j)
	}
	fallthroughToDefault := c.emitJumpPlaceholder(bytecode.OpJump)

	bodyStarts := make([]int, len(n.Cases))
	for i, cs := range n.Cases {
		bodyStarts[i] = c.builder.Len()
		if i == defaultIdx {
			c.patchJumpTo(fallthroughToDefault, bodyStarts[i])
		}
		if caseJumps[i] >= 0 {
			c.patchJump(caseJumps[i])
		}
		for _, st := range cs.Body {
			c.compileStatement(st)
		}
	}
	if defaultIdx == -1 {
		c.patchJump(fallthroughToDefault)
	}

	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.endScope()
}
