package compiler

import (
	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/bytecode"
)

// compileYield lowers `yield expr` / `yield* expr` to a single OpYield
// (spec.md §4.2 "Generators & async", §4.3 "Coroutines"). The VM suspends
// the current frame at this point and resumes it with whatever value the
// driver of the resulting iterator passes to .next()/.throw(); the
// delegate form additionally asks the VM to re-drive an inner iterable
// rather than yielding the operand itself.
func (c *Compiler) compileYield(n *ast.Yield) {
	if !c.isGenerator {
		c.errorAt(n.Span, "SyntaxError: yield is only valid inside a generator function")
	}
	if n.Arg != nil {
		c.compileExpr(n.Arg)
	} else {
		c.builder.EmitOp(bytecode.OpLoadUndefined)
	}
	c.markSpan(c.builder.Len(), n.Span)
	c.builder.EmitOp(bytecode.OpYield)
	flags := byte(0)
	if n.Delegate {
		flags |= bytecode.YieldDelegate
	}
	c.builder.EmitU8(flags)
}

// compileAwait lowers `await expr` to OpAwait. An async function body
// compiles exactly like a generator's (IsAsync functions set IsGenerator
// semantics at the VM level): the promise driver drives the underlying
// generator's .next()/.throw() the same way user code drives a manual
// generator, it just does so itself instead of handing the iterator to
// script code (spec.md §4.3 "Promise driver").
func (c *Compiler) compileAwait(n *ast.Await) {
	if !c.isAsync {
		c.errorAt(n.Span, "SyntaxError: await is only valid inside an async function")
	}
	c.compileExpr(n.Arg)
	c.markSpan(c.builder.Len(), n.Span)
	c.builder.EmitOp(bytecode.OpAwait)
}
