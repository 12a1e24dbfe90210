package bytecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lumenjs/engine/internal/value"
)

// Resolver turns an interned string id into readable text for
// disassembly. The string interner itself is an external collaborator
// (spec.md §1); Disassemble degrades to printing raw ids when resolve is
// nil, which keeps it usable from tests that never construct an interner.
type Resolver func(value.InternedStringId) string

// Disassemble renders fn's instruction stream as human-readable text.
//
// Promoted from "nice to have" to a tested component per SPEC_FULL.md §C.4:
// the original implementation this spec was distilled from ships a
// decompiler its own test suite uses to assert compiler output, and
// spec.md §8's idempotence property ("compiling an AST twice produces
// byte-identical output") is most naturally tested by diffing disassembly
// text. Grounded on go-dws's internal/bytecode/disasm.go, which plays the
// identical role for DWScript bytecode.
func Disassemble(fn *CompiledFunction, resolve Resolver) string {
	var sb strings.Builder
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(&sb, "function %s(params=%d, locals=%d, rest=%v)\n", name, fn.ParamCount, fn.LocalCount, fn.RestParam)

	ip := 0
	for ip < len(fn.Code) {
		start := ip
		op := OpCode(fn.Code[ip])
		ip++
		fmt.Fprintf(&sb, "%04d  %-20s", start, op.String())

		switch op {
		case OpLoadConstNarrow, OpLoadGlobalNarrow, OpStoreGlobalNarrow,
			OpGetPropStaticNarrow, OpGetPropStaticThis:
			idx := ReadU8(fn.Code, ip)
			ip++
			sb.WriteString(" #" + strconv.Itoa(int(idx)))
			sb.WriteString(constSuffix(fn, int(idx), resolve))
		case OpSetPropStaticNarrow:
			idx := ReadU8(fn.Code, ip)
			ip++
			kind := AssignKind(ReadU8(fn.Code, ip))
			ip++
			fmt.Fprintf(&sb, " #%d assign=%d", idx, kind)
		case OpLoadConstWide, OpLoadGlobalWide, OpStoreGlobalWide,
			OpGetPropStaticWide:
			idx := ReadU16(fn.Code, ip)
			ip += 2
			sb.WriteString(" #" + strconv.Itoa(int(idx)))
			sb.WriteString(constSuffix(fn, int(idx), resolve))
		case OpSetPropStaticWide:
			idx := ReadU16(fn.Code, ip)
			ip += 2
			kind := AssignKind(ReadU8(fn.Code, ip))
			ip++
			fmt.Fprintf(&sb, " #%d assign=%d", idx, kind)
		case OpSetPropDynamic:
			kind := AssignKind(ReadU8(fn.Code, ip))
			ip++
			fmt.Fprintf(&sb, " assign=%d", kind)
		case OpLoadLocal, OpStoreLocal, OpLoadUpvalue, OpStoreUpvalue:
			idx := ReadU16(fn.Code, ip)
			ip += 2
			sb.WriteString(" " + strconv.Itoa(int(idx)))
		case OpJump, OpJumpIfFalse, OpJumpIfFalseNoPop, OpJumpIfTrue,
			OpJumpIfTrueNoPop, OpJumpIfNullish, OpJumpIfNullishNoPop:
			rel := ReadI16(fn.Code, ip)
			ip += 2
			fmt.Fprintf(&sb, " -> %04d", JumpTarget(start+1, rel))
		case OpCall:
			meta := ReadU8(fn.Code, ip)
			ip++
			argc := ReadU8(fn.Code, ip)
			ip++
			spread := ReadU8(fn.Code, ip)
			ip++
			fmt.Fprintf(&sb, " argc=%d meta=%02x spread=[", argc, meta)
			for i := 0; i < int(spread); i++ {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(strconv.Itoa(int(ReadU8(fn.Code, ip))))
				ip++
			}
			sb.WriteString("]")
		case OpNewArray:
			n := ReadU16(fn.Code, ip)
			ip += 2
			fmt.Fprintf(&sb, " n=%d [", n)
			for i := 0; i < int(n); i++ {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(strconv.Itoa(int(ReadU8(fn.Code, ip))))
				ip++
			}
			sb.WriteString("]")
		case OpNewObject:
			n := ReadU16(fn.Code, ip)
			ip += 2
			fmt.Fprintf(&sb, " members=%d", n)
			for i := 0; i < int(n); i++ {
				kind := ObjectMemberKind(ReadU8(fn.Code, ip))
				ip++
				if kind == ObjectMemberStatic || kind == ObjectMemberGetter || kind == ObjectMemberSetter {
					ip += 2 // key pool index
				}
			}
		case OpTry:
			flags := ReadU8(fn.Code, ip)
			ip++
			catchOff := ReadI16(fn.Code, ip)
			ip += 2
			finallyOff := ReadI16(fn.Code, ip)
			ip += 2
			fmt.Fprintf(&sb, " flags=%02x catch=%04d finally=%04d", flags,
				JumpTarget(ip-4, catchOff), JumpTarget(ip-2, finallyOff))
		case OpReturn:
			depth := ReadU16(fn.Code, ip)
			ip += 2
			fmt.Fprintf(&sb, " depth=%d", depth)
		case OpYield:
			flags := ReadU8(fn.Code, ip)
			ip++
			fmt.Fprintf(&sb, " flags=%02x", flags)
		case OpIntrinsic:
			kind := IntrinsicKind(ReadU8(fn.Code, ip))
			ip++
			fmt.Fprintf(&sb, " kind=%d", kind)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func constSuffix(fn *CompiledFunction, idx int, resolve Resolver) string {
	if idx < 0 || idx >= len(fn.Constants) {
		return ""
	}
	c := fn.Constants[idx]
	switch c.Kind {
	case ConstNumber:
		return fmt.Sprintf(" (%g)", c.Number)
	case ConstBoolean:
		return fmt.Sprintf(" (%v)", c.Boolean)
	case ConstSymbol:
		if resolve != nil {
			return fmt.Sprintf(" (%q)", resolve(c.Symbol))
		}
		return fmt.Sprintf(" (sym#%d)", c.Symbol)
	case ConstFunction:
		return " (<function>)"
	case ConstRegex:
		return fmt.Sprintf(" (/…/%s)", c.Regex.Flags)
	default:
		return ""
	}
}
