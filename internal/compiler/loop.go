package compiler

import (
	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/bytecode"
)

// compileLoop dispatches the five loop shapes spec.md §6.1 enumerates
// under Loop(Kind). For/While/DoWhile compile directly against the
// condition/body/post triple; ForOf/ForIn desugar into iterator-protocol
// driven loops over two unnameable locals (spec.md §4.2 "for-of/for-in
// desugaring").
func (c *Compiler) compileLoop(n *ast.Loop) {
	switch n.Kind {
	case ast.LoopWhile:
		c.compileWhile(n)
	case ast.LoopDoWhile:
		c.compileDoWhile(n)
	case ast.LoopFor:
		c.compileFor(n)
	case ast.LoopForOf:
		c.compileForOf(n)
	case ast.LoopForIn:
		c.compileForIn(n)
	}
}

func (c *Compiler) compileWhile(n *ast.Loop) {
	lc := &loopCtx{label: n.Label}
	c.loopStack = append(c.loopStack, lc)

	top := c.builder.Len()
	c.compileExpr(n.Test)
	exit := c.emitJumpPlaceholder(bytecode.OpJumpIfFalse)
	c.compileStatement(n.Body)
	c.emitJumpBack(top)
	c.patchJump(exit)

	c.finishLoop(lc, top)
}

func (c *Compiler) compileDoWhile(n *ast.Loop) {
	lc := &loopCtx{label: n.Label}
	c.loopStack = append(c.loopStack, lc)

	top := c.builder.Len()
	c.compileStatement(n.Body)
	continueTarget := c.builder.Len()
	c.compileExpr(n.Test)
	c.builder.EmitOp(bytecode.OpJumpIfTrue)
	c.builder.EmitI16Placeholder()
	c.patchLastJumpTo(top)

	for _, j := range lc.continueJumps {
		c.patchJumpTo(j, continueTarget)
	}
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
}

// patchLastJumpTo patches the i16 operand most recently emitted (used by
// compileDoWhile, whose backward jump target is not known when the opcode
// is emitted until the condition itself is compiled).
func (c *Compiler) patchLastJumpTo(target int) {
	site := c.builder.Len() - 2
	c.patchJumpTo(site, target)
}

func (c *Compiler) compileFor(n *ast.Loop) {
	c.beginScope()
	if n.Init != nil {
		c.compileStatement(n.Init)
	}

	lc := &loopCtx{label: n.Label}
	c.loopStack = append(c.loopStack, lc)

	top := c.builder.Len()
	var exit int
	hasTest := n.Test != nil
	if hasTest {
		c.compileExpr(n.Test)
		exit = c.emitJumpPlaceholder(bytecode.OpJumpIfFalse)
	}
	c.compileStatement(n.Body)
	continueTarget := c.builder.Len()
	if n.Post != nil {
		c.compileExpr(n.Post)
		c.builder.EmitOp(bytecode.OpPop)
	}
	c.emitJumpBack(top)
	if hasTest {
		c.patchJump(exit)
	}

	for _, j := range lc.continueJumps {
		c.patchJumpTo(j, continueTarget)
	}
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	c.endScope()
}

func (c *Compiler) emitJumpBack(target int) {
	c.builder.EmitOp(bytecode.OpJump)
	site := c.builder.EmitI16Placeholder()
	c.patchJumpTo(site, target)
}

func (c *Compiler) finishLoop(lc *loopCtx, continueTarget int) {
	for _, j := range lc.continueJumps {
		c.patchJumpTo(j, continueTarget)
	}
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
}

// compileForOf desugars `for (x of iterable) body` into:
//
//	__iter = iterable[Symbol.iterator]()
//	loop:
//	  __step = __iter.next()
//	  if (__step.done) goto end
//	  x = __step.value
//	  body
//	  goto loop
//	end:
//
// using two unnameable locals scoped to a fresh block so they never
// collide with a user binding of the same loop (spec.md §4.2).
func (c *Compiler) compileForOf(n *ast.Loop) {
	c.beginScope()
	iterSlot := c.declareTemp("__iter")
	stepSlot := c.declareTemp("__step")

	c.compileExpr(n.Iterable)
	c.builder.EmitOp(bytecode.OpIntrinsic)
	c.builder.EmitU8(byte(bytecode.IntrinsicGetIterator))
	c.builder.EmitOp(bytecode.OpStoreLocal)
	c.builder.EmitU16(iterSlot)
	c.builder.EmitOp(bytecode.OpPop)

	lc := &loopCtx{label: n.Label}
	c.loopStack = append(c.loopStack, lc)

	top := c.builder.Len()
	c.emitIteratorNext(iterSlot)
	c.builder.EmitOp(bytecode.OpStoreLocal)
	c.builder.EmitU16(stepSlot)
	c.builder.EmitOp(bytecode.OpPop)

	c.builder.EmitOp(bytecode.OpLoadLocal)
	c.builder.EmitU16(stepSlot)
	c.emitGetStaticProp("done")
	exit := c.emitJumpPlaceholder(bytecode.OpJumpIfTrue)

	c.beginScope()
	bindSlot := c.declareBinding(n.BindingKind, n.BindingName, n.Span)
	c.builder.EmitOp(bytecode.OpLoadLocal)
	c.builder.EmitU16(stepSlot)
	c.emitGetStaticProp("value")
	c.storeLocalOrGlobal(n.BindingName, bindSlot, n.BindingKind, n.Span)

	c.compileStatement(n.Body)
	c.endScope()

	continueTarget := c.builder.Len()
	c.emitJumpBack(top)
	c.patchJump(exit)

	for _, j := range lc.continueJumps {
		c.patchJumpTo(j, continueTarget)
	}
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	c.endScope()
}

// compileForIn enumerates an object's enumerable string keys via the same
// __iter/__step shape as for-of, driven by a VM-provided key iterator
// rather than Symbol.iterator (spec.md §9 notes for-in as a partial
// implementation: it does not special-case array indices or walk the
// prototype chain for shadowed keys).
func (c *Compiler) compileForIn(n *ast.Loop) {
	c.beginScope()
	iterSlot := c.declareTemp("__iter")
	stepSlot := c.declareTemp("__step")

	c.compileExpr(n.Iterable)
	c.builder.EmitOp(bytecode.OpIntrinsic)
	c.builder.EmitU8(byte(bytecode.IntrinsicForInKeys))
	c.builder.EmitOp(bytecode.OpStoreLocal)
	c.builder.EmitU16(iterSlot)
	c.builder.EmitOp(bytecode.OpPop)

	lc := &loopCtx{label: n.Label}
	c.loopStack = append(c.loopStack, lc)

	top := c.builder.Len()
	c.emitIteratorNext(iterSlot)
	c.builder.EmitOp(bytecode.OpStoreLocal)
	c.builder.EmitU16(stepSlot)
	c.builder.EmitOp(bytecode.OpPop)

	c.builder.EmitOp(bytecode.OpLoadLocal)
	c.builder.EmitU16(stepSlot)
	c.emitGetStaticProp("done")
	exit := c.emitJumpPlaceholder(bytecode.OpJumpIfTrue)

	c.beginScope()
	bindSlot := c.declareBinding(n.BindingKind, n.BindingName, n.Span)
	c.builder.EmitOp(bytecode.OpLoadLocal)
	c.builder.EmitU16(stepSlot)
	c.emitGetStaticProp("value")
	c.storeLocalOrGlobal(n.BindingName, bindSlot, n.BindingKind, n.Span)

	c.compileStatement(n.Body)
	c.endScope()

	continueTarget := c.builder.Len()
	c.emitJumpBack(top)
	c.patchJump(exit)

	for _, j := range lc.continueJumps {
		c.patchJumpTo(j, continueTarget)
	}
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	c.endScope()
}

func (c *Compiler) emitGetStaticProp(name string) {
	idx := c.symbolConstant(c.internName(name))
	if idx <= 0xFF {
		c.builder.EmitOp(bytecode.OpGetPropStaticNarrow)
		c.builder.EmitU8(byte(idx))
	} else {
		c.builder.EmitOp(bytecode.OpGetPropStaticWide)
		c.builder.EmitU16(uint16(idx))
	}
}

// emitIteratorNext loads the iterator from iterSlot and calls its `next`
// method with zero arguments, leaving the {value, done} result on the
// stack. OpCall's HasThis convention expects [this, func, args...] beneath
// the meta/argc/spreadCount operand bytes.
func (c *Compiler) emitIteratorNext(iterSlot uint16) {
	c.builder.EmitOp(bytecode.OpLoadLocal) // this
	c.builder.EmitU16(iterSlot)
	c.builder.EmitOp(bytecode.OpLoadLocal) // receiver to fetch `next` off of
	c.builder.EmitU16(iterSlot)
	c.emitGetStaticProp("next")
	c.builder.EmitOp(bytecode.OpCall)
	c.builder.EmitU8(bytecode.CallMetaHasThis)
	c.builder.EmitU8(0)
	c.builder.EmitU8(0)
}
