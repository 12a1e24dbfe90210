package vm

import (
	"math"

	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/value"
)

// execIntrinsic implements OpIntrinsic (spec.md §4.2 "Specialization").
// The compiler emits the Math.* kinds, IntrinsicGetIterator (for-of) and
// IntrinsicForInKeys (for-in); NumericEqConst, IncLocal and DecLocal are
// handled here as well although no compiler path emits them.
func (v *VM) execIntrinsic(alloc *heap.Allocator, scope *heap.LocalScope, frame *Frame, code []byte) error {
	kind := bytecode.IntrinsicKind(bytecode.ReadU8(code, frame.ip))
	frame.ip++

	switch kind {
	case bytecode.IntrinsicMathSin, bytecode.IntrinsicMathCos, bytecode.IntrinsicMathSqrt,
		bytecode.IntrinsicMathAbs, bytecode.IntrinsicMathFloor, bytecode.IntrinsicMathCeil:
		arg := frame.pop()
		if v.mathPoisoned {
			return v.callMathFallback(alloc, scope, frame, mathMethodName(kind), arg)
		}
		n, err := v.toNumber(arg)
		if err != nil {
			return err
		}
		frame.push(value.Num(mathUnary(kind, n)))
		return nil

	case bytecode.IntrinsicMathPow, bytecode.IntrinsicMathMin, bytecode.IntrinsicMathMax:
		b, a := frame.pop(), frame.pop()
		if v.mathPoisoned {
			return v.callMathFallback(alloc, scope, frame, mathMethodName(kind), a, b)
		}
		na, err := v.toNumber(a)
		if err != nil {
			return err
		}
		nb, err := v.toNumber(b)
		if err != nil {
			return err
		}
		var result float64
		switch kind {
		case bytecode.IntrinsicMathPow:
			result = math.Pow(na, nb)
		case bytecode.IntrinsicMathMin:
			result = math.Min(na, nb)
		default:
			result = math.Max(na, nb)
		}
		frame.push(value.Num(result))
		return nil

	case bytecode.IntrinsicNumericEqConst:
		idx := int(bytecode.ReadU16(code, frame.ip))
		frame.ip += 2
		c := frame.fn.Constants[idx]
		n, err := v.toNumber(frame.pop())
		if err != nil {
			return err
		}
		frame.push(value.Bool(n == c.Number))
		return nil

	case bytecode.IntrinsicIncLocal:
		slot := int(bytecode.ReadU16(code, frame.ip))
		frame.ip += 2
		n, err := v.toNumber(frame.getLocal(slot))
		if err != nil {
			return err
		}
		frame.setLocal(slot, value.Num(n+1))
		return nil

	case bytecode.IntrinsicDecLocal:
		slot := int(bytecode.ReadU16(code, frame.ip))
		frame.ip += 2
		n, err := v.toNumber(frame.getLocal(slot))
		if err != nil {
			return err
		}
		frame.setLocal(slot, value.Num(n-1))
		return nil

	case bytecode.IntrinsicGetIterator:
		iter, err := v.getIterator(alloc, scope, frame.pop())
		if err != nil {
			return err
		}
		frame.push(iter)
		return nil

	case bytecode.IntrinsicForInKeys:
		keys, err := v.forInKeys(alloc, frame.pop())
		if err != nil {
			return err
		}
		frame.push(keys)
		return nil

	default:
		return v.typeError("unknown intrinsic %d", kind)
	}
}

func mathUnary(kind bytecode.IntrinsicKind, n float64) float64 {
	switch kind {
	case bytecode.IntrinsicMathSin:
		return math.Sin(n)
	case bytecode.IntrinsicMathCos:
		return math.Cos(n)
	case bytecode.IntrinsicMathSqrt:
		return math.Sqrt(n)
	case bytecode.IntrinsicMathAbs:
		return math.Abs(n)
	case bytecode.IntrinsicMathFloor:
		return math.Floor(n)
	default:
		return math.Ceil(n)
	}
}

func mathMethodName(kind bytecode.IntrinsicKind) string {
	switch kind {
	case bytecode.IntrinsicMathSin:
		return "sin"
	case bytecode.IntrinsicMathCos:
		return "cos"
	case bytecode.IntrinsicMathSqrt:
		return "sqrt"
	case bytecode.IntrinsicMathAbs:
		return "abs"
	case bytecode.IntrinsicMathFloor:
		return "floor"
	case bytecode.IntrinsicMathCeil:
		return "ceil"
	case bytecode.IntrinsicMathPow:
		return "pow"
	case bytecode.IntrinsicMathMin:
		return "min"
	default:
		return "max"
	}
}

// callMathFallback re-resolves Math.<method> dynamically once the poison
// flag is set, so a script that shadowed it observes its own replacement
// instead of the VM's fast path (spec.md §4.2).
func (v *VM) callMathFallback(alloc *heap.Allocator, scope *heap.LocalScope, frame *Frame, method string, args ...value.Value) error {
	mathKey := object.StringKey(v.strings.Intern("Math"))
	mathVal, ok := v.globals.GetOwnPropertyDescriptor(alloc, mathKey)
	if !ok {
		return v.typeError("Math is not defined")
	}
	fnVal, err := v.getProp(alloc, scope, mathVal.Static, object.StringKey(v.strings.Intern(method)))
	if err != nil {
		return err
	}
	result, err := v.Call(alloc, scope, fnVal, mathVal.Static, args)
	if err != nil {
		return err
	}
	frame.push(result)
	return nil
}
