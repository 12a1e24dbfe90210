package compiler

import (
	"github.com/lumenjs/engine/internal/ast"
	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/token"
)

// compileExpr dispatches on the concrete AST expression type and leaves
// exactly one value on the operand stack, mirroring go-dws's
// compiler_expressions.go switch but over the JS expression set
// (spec.md §6.1).
func (c *Compiler) compileExpr(e ast.Expression) {
	switch n := e.(type) {
	case *ast.Literal:
		c.compileLiteral(n)
	case *ast.Grouping:
		c.compileExpr(n.Expr)
	case *ast.Binary:
		c.compileBinary(n)
	case *ast.Unary:
		c.compileUnary(n)
	case *ast.IncDec:
		c.compileIncDec(n)
	case *ast.Assignment:
		c.compileAssignment(n)
	case *ast.Call:
		c.compileCall(n)
	case *ast.Conditional:
		c.compileConditional(n)
	case *ast.PropertyAccess:
		c.compilePropertyAccess(n, false)
	case *ast.Sequence:
		c.compileSequence(n)
	case *ast.FunctionExpr:
		c.compileFunctionExpr(n)
	case *ast.ArrayLit:
		c.compileArrayLit(n)
	case *ast.ObjectLit:
		c.compileObjectLit(n)
	case *ast.Compiled:
		c.builder.Code = append(c.builder.Code, n.Bytes...)
	case *ast.EmptyExpr:
		c.builder.EmitOp(bytecode.OpLoadUndefined)
	case *ast.Yield:
		c.compileYield(n)
	case *ast.Await:
		c.compileAwait(n)
	default:
		c.errorAt(e.Pos(), "Unimplemented: unsupported expression form %T", n)
	}
}

func (c *Compiler) compileLiteral(n *ast.Literal) {
	switch n.Kind {
	case ast.LitNumber:
		c.emitLoadConst(c.numberConstant(n.Number))
	case ast.LitString:
		c.emitLoadConst(c.symbolConstant(c.internName(n.Str)))
	case ast.LitBoolean:
		if n.Bool {
			c.builder.EmitOp(bytecode.OpLoadTrue)
		} else {
			c.builder.EmitOp(bytecode.OpLoadFalse)
		}
	case ast.LitNull:
		c.builder.EmitOp(bytecode.OpLoadNull)
	case ast.LitUndefined:
		c.builder.EmitOp(bytecode.OpLoadUndefined)
	case ast.LitIdentifier:
		c.compileIdentifierLoad(n.Str, n.Span)
	case ast.LitRegex:
		idx := c.addConstant(bytecode.Constant{
			Kind:  bytecode.ConstRegex,
			Regex: bytecode.Regex{Source: c.internName(n.Str), Flags: n.RegexFlags},
		})
		c.emitLoadConst(idx)
	}
}

// compileIdentifierLoad implements spec.md §4.2's three-step resolution:
// local in this function, upvalue into an enclosing function, else global.
func (c *Compiler) compileIdentifierLoad(name string, span token.Span) {
	if name == "this" {
		c.builder.EmitOp(bytecode.OpLoadThis)
		return
	}
	if slot, ok := c.resolveLocal(name); ok {
		c.builder.EmitOp(bytecode.OpLoadLocal)
		c.builder.EmitU16(slot)
		return
	}
	if idx, ok := c.resolveUpvalue(name); ok {
		c.builder.EmitOp(bytecode.OpLoadUpvalue)
		c.builder.EmitU16(idx)
		return
	}
	idx := c.symbolConstant(c.internName(name))
	c.emitLoadGlobal(idx)
}

func (c *Compiler) compileIdentifierStore(name string) {
	if slot, ok := c.resolveLocal(name); ok {
		c.builder.EmitOp(bytecode.OpStoreLocal)
		c.builder.EmitU16(slot)
		return
	}
	if idx, ok := c.resolveUpvalue(name); ok {
		c.builder.EmitOp(bytecode.OpStoreUpvalue)
		c.builder.EmitU16(idx)
		return
	}
	idx := c.symbolConstant(c.internName(name))
	c.emitStoreGlobal(idx)
}

var binaryOps = map[ast.BinaryOp]bytecode.OpCode{
	ast.OpAdd: bytecode.OpAdd, ast.OpSub: bytecode.OpSub, ast.OpMul: bytecode.OpMul,
	ast.OpDiv: bytecode.OpDiv, ast.OpMod: bytecode.OpMod, ast.OpPow: bytecode.OpPow,
	ast.OpBitAnd: bytecode.OpBitAnd, ast.OpBitOr: bytecode.OpBitOr, ast.OpBitXor: bytecode.OpBitXor,
	ast.OpShl: bytecode.OpShl, ast.OpShr: bytecode.OpShr, ast.OpUShr: bytecode.OpUShr,
	ast.OpLt: bytecode.OpLt, ast.OpLe: bytecode.OpLe, ast.OpGt: bytecode.OpGt, ast.OpGe: bytecode.OpGe,
	ast.OpEq: bytecode.OpEq, ast.OpStrictEq: bytecode.OpStrictEq,
	ast.OpNe: bytecode.OpNe, ast.OpStrictNe: bytecode.OpStrictNe,
}

func (c *Compiler) compileBinary(n *ast.Binary) {
	switch n.Op {
	case ast.OpLogicalAnd:
		c.compileExpr(n.L)
		j := c.emitJumpPlaceholder(bytecode.OpJumpIfFalseNoPop)
		c.builder.EmitOp(bytecode.OpPop)
		c.compileExpr(n.R)
		c.patchJump(j)
		return
	case ast.OpLogicalOr:
		c.compileExpr(n.L)
		j := c.emitJumpPlaceholder(bytecode.OpJumpIfTrueNoPop)
		c.builder.EmitOp(bytecode.OpPop)
		c.compileExpr(n.R)
		c.patchJump(j)
		return
	case ast.OpNullish:
		c.compileExpr(n.L)
		j := c.emitJumpPlaceholder(bytecode.OpJumpIfNullishNoPop)
		invert := c.emitJumpPlaceholder(bytecode.OpJump)
		c.patchJump(j)
		c.builder.EmitOp(bytecode.OpPop)
		c.compileExpr(n.R)
		c.patchJump(invert)
		return
	}
	c.compileExpr(n.L)
	c.compileExpr(n.R)
	op, ok := binaryOps[n.Op]
	if !ok {
		c.errorAt(n.Span, "Unimplemented: unsupported binary operator %d", n.Op)
		return
	}
	c.markSpan(c.builder.Len(), n.Span)
	c.builder.EmitOp(op)
}

func (c *Compiler) compileUnary(n *ast.Unary) {
	if n.Op == ast.UnaryDelete {
		if pa, ok := n.Operand.(*ast.PropertyAccess); ok {
			c.compileExpr(pa.Target)
			c.compilePropertyKey(pa)
			c.builder.EmitOp(bytecode.OpDelete)
			return
		}
		c.errorAt(n.Span, "Unimplemented: delete of a non-member expression")
		return
	}
	if n.Op == ast.UnaryTypeof {
		if id, ok := n.Operand.(*ast.Literal); ok && id.Kind == ast.LitIdentifier {
			if _, ok := c.resolveLocal(id.Str); !ok {
				if _, ok := c.resolveUpvalue(id.Str); !ok {
					// Unresolved bare identifiers are legal typeof operands
					// ("typeof undeclaredVar" must not throw); the global
					// load opcode already tolerates a missing global and
					// yields Undefined, so no special-casing is needed here.
				}
			}
		}
	}
	c.compileExpr(n.Operand)
	switch n.Op {
	case ast.UnaryNeg:
		c.builder.EmitOp(bytecode.OpNeg)
	case ast.UnaryPlus:
		c.builder.EmitOp(bytecode.OpPlus)
	case ast.UnaryNot:
		c.builder.EmitOp(bytecode.OpNot)
	case ast.UnaryBitNot:
		c.builder.EmitOp(bytecode.OpBitNot)
	case ast.UnaryTypeof:
		c.builder.EmitOp(bytecode.OpTypeof)
	case ast.UnaryVoid:
		c.builder.EmitOp(bytecode.OpPop)
		c.builder.EmitOp(bytecode.OpLoadUndefined)
	}
}

func (c *Compiler) compileIncDec(n *ast.IncDec) {
	id, isIdent := n.Operand.(*ast.Literal)
	if isIdent && id.Kind == ast.LitIdentifier {
		c.compileIdentifierLoad(id.Str, n.Span)
		if !n.Prefix {
			c.builder.EmitOp(bytecode.OpDup)
		}
		c.emitOneConstant()
		if n.Inc {
			c.builder.EmitOp(bytecode.OpAdd)
		} else {
			c.builder.EmitOp(bytecode.OpSub)
		}
		if n.Prefix {
			c.builder.EmitOp(bytecode.OpDup)
		}
		c.compileIdentifierStore(id.Str)
		c.builder.EmitOp(bytecode.OpPop)
		return
	}
	pa, isProp := n.Operand.(*ast.PropertyAccess)
	if !isProp {
		c.errorAt(n.Span, "Unimplemented: increment/decrement of a non-reference expression")
		return
	}
	kind := bytecode.AssignAdd
	if !n.Inc {
		kind = bytecode.AssignSub
	}
	c.compilePropertyStorePrep(pa)
	c.emitOneConstant()
	c.emitPropertyAssign(pa, kind)
}

func (c *Compiler) emitOneConstant() {
	c.emitLoadConst(c.numberConstant(1))
}

func (c *Compiler) compileAssignment(n *ast.Assignment) {
	if id, ok := n.Target.(*ast.Literal); ok && id.Kind == ast.LitIdentifier {
		if n.Op == ast.AssignPlain {
			c.compileExpr(n.Rhs)
			c.builder.EmitOp(bytecode.OpDup)
			c.compileIdentifierStore(id.Str)
			c.builder.EmitOp(bytecode.OpPop)
			return
		}
		c.compileIdentifierLoad(id.Str, n.Span)
		c.compileExpr(n.Rhs)
		c.builder.EmitOp(compoundOps[n.Op])
		c.builder.EmitOp(bytecode.OpDup)
		c.compileIdentifierStore(id.Str)
		c.builder.EmitOp(bytecode.OpPop)
		return
	}
	if pa, ok := n.Target.(*ast.PropertyAccess); ok {
		c.compilePropertyStorePrep(pa)
		c.compileExpr(n.Rhs)
		c.emitPropertyAssign(pa, assignKinds[n.Op])
		return
	}
	c.errorAt(n.Span, "Unimplemented: assignment to a non-reference expression")
}

var compoundOps = map[ast.AssignOp]bytecode.OpCode{
	ast.AssignAdd: bytecode.OpAdd, ast.AssignSub: bytecode.OpSub, ast.AssignMul: bytecode.OpMul,
	ast.AssignDiv: bytecode.OpDiv, ast.AssignMod: bytecode.OpMod, ast.AssignPow: bytecode.OpPow,
	ast.AssignShl: bytecode.OpShl, ast.AssignShr: bytecode.OpShr, ast.AssignUShr: bytecode.OpUShr,
	ast.AssignBitAnd: bytecode.OpBitAnd, ast.AssignBitOr: bytecode.OpBitOr, ast.AssignBitXor: bytecode.OpBitXor,
}

var assignKinds = map[ast.AssignOp]bytecode.AssignKind{
	ast.AssignPlain: bytecode.AssignPlain, ast.AssignAdd: bytecode.AssignAdd, ast.AssignSub: bytecode.AssignSub,
	ast.AssignMul: bytecode.AssignMul, ast.AssignDiv: bytecode.AssignDiv, ast.AssignMod: bytecode.AssignMod,
	ast.AssignPow: bytecode.AssignPow, ast.AssignShl: bytecode.AssignShl, ast.AssignShr: bytecode.AssignShr,
	ast.AssignUShr: bytecode.AssignUShr, ast.AssignBitAnd: bytecode.AssignBitAnd,
	ast.AssignBitOr: bytecode.AssignBitOr, ast.AssignBitXor: bytecode.AssignBitXor,
	ast.AssignLogicalAnd: bytecode.AssignLogicalAnd, ast.AssignLogicalOr: bytecode.AssignLogicalOr,
	ast.AssignNullish: bytecode.AssignNullish,
}

// compilePropertyStorePrep pushes the target object (and, for computed
// access, the key) so that a following compileExpr(rhs) + emitPropertyAssign
// forms the stack the SetProp opcodes expect: [target, key?, value].
func (c *Compiler) compilePropertyStorePrep(pa *ast.PropertyAccess) {
	c.compileExpr(pa.Target)
	if pa.Computed {
		c.compileExpr(pa.Property)
	}
}

func (c *Compiler) compilePropertyKey(pa *ast.PropertyAccess) {
	if pa.Computed {
		c.compileExpr(pa.Property)
		return
	}
	lit := pa.Property.(*ast.Literal)
	c.emitLoadConst(c.symbolConstant(c.internName(lit.Str)))
}

func (c *Compiler) emitPropertyAssign(pa *ast.PropertyAccess, kind bytecode.AssignKind) {
	if pa.Computed {
		c.builder.EmitOp(bytecode.OpSetPropDynamic)
		c.builder.EmitU8(byte(kind))
		return
	}
	lit := pa.Property.(*ast.Literal)
	idx := c.symbolConstant(c.internName(lit.Str))
	if idx <= 0xFF {
		c.builder.EmitOp(bytecode.OpSetPropStaticNarrow)
		c.builder.EmitU8(byte(idx))
	} else {
		c.builder.EmitOp(bytecode.OpSetPropStaticWide)
		c.builder.EmitU16(uint16(idx))
	}
	c.builder.EmitU8(byte(kind))
}

func (c *Compiler) compilePropertyAccess(n *ast.PropertyAccess, preserveThis bool) {
	c.compileExpr(n.Target)
	if n.Optional {
		shortCircuit := c.emitJumpPlaceholder(bytecode.OpJumpIfNullishNoPop)
		c.builder.EmitOp(bytecode.OpPop)
		c.builder.EmitOp(bytecode.OpLoadUndefined)
		skip := c.emitJumpPlaceholder(bytecode.OpJump)
		c.patchJump(shortCircuit)
		c.emitPropertyGet(n, preserveThis)
		c.patchJump(skip)
		return
	}
	c.emitPropertyGet(n, preserveThis)
}

func (c *Compiler) emitPropertyGet(n *ast.PropertyAccess, preserveThis bool) {
	if n.Computed {
		c.compileExpr(n.Property)
		if preserveThis {
			c.builder.EmitOp(bytecode.OpGetPropDynamicThis)
		} else {
			c.builder.EmitOp(bytecode.OpGetPropDynamic)
		}
		return
	}
	lit := n.Property.(*ast.Literal)
	idx := c.symbolConstant(c.internName(lit.Str))
	if preserveThis {
		c.builder.EmitOp(bytecode.OpGetPropStaticThis)
		c.builder.EmitU8(byte(idx))
		return
	}
	if idx <= 0xFF {
		c.builder.EmitOp(bytecode.OpGetPropStaticNarrow)
		c.builder.EmitU8(byte(idx))
	} else {
		c.builder.EmitOp(bytecode.OpGetPropStaticWide)
		c.builder.EmitU16(uint16(idx))
	}
}

// compileCall lowers a call or `new` expression. A callee that is itself a
// property access compiles with preserveThis so the receiver flows through
// as the call's `this` (spec.md §4.3 calling convention).
func (c *Compiler) compileCall(n *ast.Call) {
	if c.tryIntrinsicCall(n) {
		return
	}

	hasThis := false
	if pa, ok := n.Target.(*ast.PropertyAccess); ok && !n.IsConstructor {
		c.compilePropertyAccess(pa, true)
		hasThis = true
	} else {
		c.compileExpr(n.Target)
	}

	var spreadIdx []int
	for i, a := range n.Args {
		c.compileExpr(a.Value)
		if a.Kind == ast.ArgSpread {
			spreadIdx = append(spreadIdx, i)
		}
	}

	meta := byte(0)
	if hasThis {
		meta |= bytecode.CallMetaHasThis
	}
	if n.IsConstructor {
		meta |= bytecode.CallMetaConstructor
	}
	c.markSpan(c.builder.Len(), n.Span)
	c.builder.EmitOp(bytecode.OpCall)
	c.builder.EmitU8(meta)
	c.builder.EmitU8(byte(len(n.Args)))
	c.builder.EmitU8(byte(len(spreadIdx)))
	for _, idx := range spreadIdx {
		c.builder.EmitU8(byte(idx))
	}
}

func (c *Compiler) compileConditional(n *ast.Conditional) {
	c.compileExpr(n.Cond)
	elseJump := c.emitJumpPlaceholder(bytecode.OpJumpIfFalse)
	c.compileExpr(n.Then)
	endJump := c.emitJumpPlaceholder(bytecode.OpJump)
	c.patchJump(elseJump)
	c.compileExpr(n.Else)
	c.patchJump(endJump)
}

func (c *Compiler) compileSequence(n *ast.Sequence) {
	for i, e := range n.Exprs {
		c.compileExpr(e)
		if i != len(n.Exprs)-1 {
			c.builder.EmitOp(bytecode.OpPop)
		}
	}
}

// compileArrayLit pushes the element values in source order (an elision
// pushes nothing), then emits NEW_ARRAY with the element count and one
// kind byte per element, the layout execNewArray reads.
func (c *Compiler) compileArrayLit(n *ast.ArrayLit) {
	for _, el := range n.Elements {
		if el.Kind != ast.ArrayElision {
			c.compileExpr(el.Value)
		}
	}
	c.builder.EmitOp(bytecode.OpNewArray)
	c.builder.EmitU16(uint16(len(n.Elements)))
	for _, el := range n.Elements {
		switch el.Kind {
		case ast.ArrayItem:
			c.builder.EmitU8(byte(bytecode.ArrayElemValue))
		case ast.ArraySpread:
			c.builder.EmitU8(byte(bytecode.ArrayElemSpread))
		case ast.ArrayElision:
			c.builder.EmitU8(byte(bytecode.ArrayElemElision))
		}
	}
}

func (c *Compiler) compileObjectLit(n *ast.ObjectLit) {
	for _, m := range n.Members {
		if m.Kind == ast.MemberComputed || m.Kind == ast.MemberSpread {
			c.compileExpr(m.Key)
		}
		if m.Kind != ast.MemberSpread {
			c.compileExpr(m.Value)
		}
	}
	c.builder.EmitOp(bytecode.OpNewObject)
	c.builder.EmitU16(uint16(len(n.Members)))
	for _, m := range n.Members {
		switch m.Kind {
		case ast.MemberStatic, ast.MemberMethod:
			c.builder.EmitU8(byte(bytecode.ObjectMemberStatic))
			keyIdx := c.symbolConstant(c.internName(m.Key.(*ast.Literal).Str))
			c.builder.EmitU16(uint16(keyIdx))
		case ast.MemberComputed:
			c.builder.EmitU8(byte(bytecode.ObjectMemberDynamic))
		case ast.MemberGetter:
			c.builder.EmitU8(byte(bytecode.ObjectMemberGetter))
			keyIdx := c.symbolConstant(c.internName(m.Key.(*ast.Literal).Str))
			c.builder.EmitU16(uint16(keyIdx))
		case ast.MemberSetter:
			c.builder.EmitU8(byte(bytecode.ObjectMemberSetter))
			keyIdx := c.symbolConstant(c.internName(m.Key.(*ast.Literal).Str))
			c.builder.EmitU16(uint16(keyIdx))
		case ast.MemberSpread:
			c.builder.EmitU8(byte(bytecode.ObjectMemberSpread))
		}
	}
}
