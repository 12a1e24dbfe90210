package compiler

import (
	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/bytecode"
)

// intrinsicTargets maps a statically-known `Math.fn` member access to its
// IntrinsicKind (spec.md §4.2 "Specialization"). Only the receiver being
// the bare identifier "Math" is matched here; the VM's poison flag is what
// actually guards against a script that has reassigned `Math` — the
// compiler does not need to (and cannot) prove that safely at compile
// time, it only needs to emit the candidate fast path.
var intrinsicTargets = map[string]bytecode.IntrinsicKind{
	"sin": bytecode.IntrinsicMathSin, "cos": bytecode.IntrinsicMathCos,
	"sqrt": bytecode.IntrinsicMathSqrt, "abs": bytecode.IntrinsicMathAbs,
	"floor": bytecode.IntrinsicMathFloor, "ceil": bytecode.IntrinsicMathCeil,
	"pow": bytecode.IntrinsicMathPow, "min": bytecode.IntrinsicMathMin, "max": bytecode.IntrinsicMathMax,
}

// tryIntrinsicCall recognizes `Math.<fn>(args...)` call shapes and emits a
// single OpIntrinsic instead of a full property-get + OpCall sequence. It
// reports whether it handled the call; callers fall through to the
// general path otherwise. The VM must still validate at runtime (via the
// poison flag) that the global `Math` object and its named method were
// never reassigned, since nothing at compile time guarantees that.
func (c *Compiler) tryIntrinsicCall(n *ast.Call) bool {
	if n.IsConstructor {
		return false
	}
	pa, ok := n.Target.(*ast.PropertyAccess)
	if !ok || pa.Computed {
		return false
	}
	recv, ok := pa.Target.(*ast.Literal)
	if !ok || recv.Kind != ast.LitIdentifier || recv.Str != "Math" {
		return false
	}
	method := pa.Property.(*ast.Literal).Str
	kind, ok := intrinsicTargets[method]
	if !ok {
		return false
	}
	if len(n.Args) != expectedIntrinsicArgs(kind) {
		return false
	}
	for _, a := range n.Args {
		if a.Kind == ast.ArgSpread {
			return false
		}
	}
	for _, a := range n.Args {
		c.compileExpr(a.Value)
	}
	c.builder.EmitOp(bytecode.OpIntrinsic)
	c.builder.EmitU8(byte(kind))
	return true
}

func expectedIntrinsicArgs(kind bytecode.IntrinsicKind) int {
	switch kind {
	case bytecode.IntrinsicMathPow, bytecode.IntrinsicMathMin, bytecode.IntrinsicMathMax:
		return 2
	default:
		return 1
	}
}
