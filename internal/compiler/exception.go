package compiler

import (
	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/bytecode"
)

// compileTry emits a try/catch/finally region (spec.md §4.2 "Exception
// regions"): a TRY marker carrying catch/finally offsets, the guarded body,
// a TRY_END marking the end of the protected range, then the catch and
// finally handler code in sequence. The VM consults the resulting
// ExceptionRegion table on unwind rather than branching through TRY's
// offsets directly, so TRY's own jump operands only describe the region to
// future disassembly/debugging tools.
//
// On normal (non-throwing) completion of the body, control must still pass
// through finally — the jump emitted after TRY_END lands on FinallyIP
// rather than skipping straight to the end, so a bare `try { } finally { }`
// with no exception still runs its cleanup. A thrown exception reaches
// catch/finally by the VM overwriting the frame's ip directly (see
// internal/vm), never through this jump.
func (c *Compiler) compileTry(n *ast.Try) {
	tryIP := c.builder.Len()
	hasCatch := n.Catch != nil
	hasFinally := n.Finally != nil

	flags := byte(0)
	if hasCatch {
		flags |= bytecode.TryHasCatch
	}
	if hasFinally {
		flags |= bytecode.TryHasFinally
	}
	c.builder.EmitOp(bytecode.OpTry)
	c.builder.EmitU8(flags)
	catchSite := c.builder.EmitI16Placeholder()
	finallySite := c.builder.EmitI16Placeholder()

	c.tryDepth++
	c.beginScope()
	for _, st := range n.Body.Statements {
		c.compileStatement(st)
	}
	c.endScope()
	c.tryDepth--
	c.builder.EmitOp(bytecode.OpTryEnd)
	endOfBody := c.emitJumpPlaceholder(bytecode.OpJump) // normal completion: skip catch, still run finally

	var catchIP, finallyIP int

	if hasCatch {
		catchIP = c.builder.Len()
		c.patchJumpTo(catchSite, catchIP)
		c.beginScope()
		if n.Catch.Ident != "" {
			// The VM pushes the thrown value onto the operand stack as
			// part of dispatching to catchIP, so the handler's first act
			// is simply to bind it.
			slot := c.declareTemp(n.Catch.Ident)
			c.builder.EmitOp(bytecode.OpStoreLocal)
			c.builder.EmitU16(slot)
			c.builder.EmitOp(bytecode.OpPop)
		} else {
			c.builder.EmitOp(bytecode.OpPop)
		}
		for _, st := range n.Catch.Body.Statements {
			c.compileStatement(st)
		}
		c.endScope()
	} else {
		c.patchJumpTo(catchSite, c.builder.Len())
	}

	if hasFinally {
		finallyIP = c.builder.Len()
		c.patchJumpTo(finallySite, finallyIP)
		c.patchJumpTo(endOfBody, finallyIP)
		c.beginScope()
		for _, st := range n.Finally.Statements {
			c.compileStatement(st)
		}
		c.endScope()
		c.builder.EmitOp(bytecode.OpFinallyEnd)
	} else {
		c.patchJumpTo(finallySite, c.builder.Len())
		c.patchJumpTo(endOfBody, c.builder.Len())
	}

	c.exceptions = append(c.exceptions, bytecode.ExceptionRegion{
		TryIP: tryIP, HasCatch: hasCatch, CatchIP: catchIP,
		HasFinally: hasFinally, FinallyIP: finallyIP, EndIP: c.builder.Len(),
	})
}
