package vm

import (
	"math"

	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/errors"
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/value"
)

// suspendKind distinguishes what made run() return mid-function, without
// having unwound the frame that caused it (spec.md §4.3 "Coroutines").
type suspendKind int

const (
	suspendYield suspendKind = iota
	suspendAwait
)

func (k suspendKind) String() string {
	if k == suspendAwait {
		return "await"
	}
	return "yield"
}

// suspendSignal is what run() returns instead of a final value when the
// currently executing frame hit OpYield/OpAwait. Since yield/await can only
// appear in the bytecode of the generator/async function's own body (never
// inside a nested ordinary call — compileYield/compileAwait reject it
// otherwise), the suspended frame is always exactly ex.top() at the moment
// this is produced: nothing further needs unwinding.
type suspendSignal struct {
	kind     suspendKind
	value    value.Value
	delegate bool
}

// run is the fetch/decode/execute loop (spec.md §4.3). It drives ex's top
// frame (and whatever frames it calls into — nested FuncUser calls recurse
// through Go's own call stack via v.callUser, not through this loop's
// frame slice, matching go-dws's call convention) until either the frame
// stack empties via a top-level OpReturn, or an OpYield/OpAwait suspends
// execution, or an exception escapes every handler.
func (v *VM) run(ex *execContext) (value.Value, *suspendSignal, error) {
	scope := heap.NewScope()
	alloc := v.alloc

	for {
		frame := ex.top()
		code := frame.fn.Code
		opStart := frame.ip
		op := bytecode.OpCode(code[frame.ip])
		frame.ip++

		var err error

		switch op {
		// ---- Constants & locals ----
		case bytecode.OpLoadConstNarrow:
			idx := int(bytecode.ReadU8(code, frame.ip))
			frame.ip++
			frame.push(v.constantValue(frame, idx))
		case bytecode.OpLoadConstWide:
			idx := int(bytecode.ReadU16(code, frame.ip))
			frame.ip += 2
			frame.push(v.constantValue(frame, idx))
		case bytecode.OpLoadLocal:
			slot := int(bytecode.ReadU16(code, frame.ip))
			frame.ip += 2
			frame.push(frame.getLocal(slot))
		case bytecode.OpStoreLocal:
			slot := int(bytecode.ReadU16(code, frame.ip))
			frame.ip += 2
			val := frame.pop()
			frame.setLocal(slot, val)
			frame.push(val)
		case bytecode.OpLoadUpvalue:
			idx := int(bytecode.ReadU16(code, frame.ip))
			frame.ip += 2
			frame.push(frame.upvalues[idx].Value)
		case bytecode.OpStoreUpvalue:
			idx := int(bytecode.ReadU16(code, frame.ip))
			frame.ip += 2
			val := frame.pop()
			frame.upvalues[idx].Value = val
			frame.push(val)
		case bytecode.OpLoadGlobalNarrow, bytecode.OpLoadGlobalWide:
			idx := v.readPoolIndex(op, code, frame)
			key := object.StringKey(frame.fn.Constants[idx].Symbol)
			if pv, ok := v.globals.GetOwnPropertyDescriptor(alloc, key); ok {
				if pv.IsAccessor {
					var gv value.Value
					gv, err = object.Get(alloc, v.globals, v.GlobalsValue(), key, v.Invoke, scope)
					frame.push(gv)
				} else {
					frame.push(pv.Static)
				}
			} else {
				err = v.referenceError("%s is not defined", v.strings.Resolve(key.ID))
			}
		case bytecode.OpStoreGlobalNarrow, bytecode.OpStoreGlobalWide:
			idx := v.readPoolIndex(op, code, frame)
			key := object.StringKey(frame.fn.Constants[idx].Symbol)
			val := frame.pop()
			err = object.Set(alloc, v.globals, v.GlobalsValue(), key, val, v.Invoke, scope)
			frame.push(val)
		case bytecode.OpLoadUndefined:
			frame.push(value.Undef())
		case bytecode.OpLoadNull:
			frame.push(value.Nul())
		case bytecode.OpLoadTrue:
			frame.push(value.Bool(true))
		case bytecode.OpLoadFalse:
			frame.push(value.Bool(false))
		case bytecode.OpPop:
			frame.pop()
		case bytecode.OpDup:
			frame.push(frame.peek())

		// ---- Arithmetic & bitwise ----
		case bytecode.OpAdd:
			err = v.execAdd(frame)
		case bytecode.OpSub:
			err = v.execBinaryNumeric(frame, func(a, b float64) float64 { return a - b })
		case bytecode.OpMul:
			err = v.execBinaryNumeric(frame, func(a, b float64) float64 { return a * b })
		case bytecode.OpDiv:
			err = v.execBinaryNumeric(frame, func(a, b float64) float64 { return a / b })
		case bytecode.OpMod:
			err = v.execBinaryNumeric(frame, math.Mod)
		case bytecode.OpPow:
			err = v.execBinaryNumeric(frame, math.Pow)
		case bytecode.OpBitAnd:
			err = v.execBinaryInt32(frame, func(a, b int32) int32 { return a & b })
		case bytecode.OpBitOr:
			err = v.execBinaryInt32(frame, func(a, b int32) int32 { return a | b })
		case bytecode.OpBitXor:
			err = v.execBinaryInt32(frame, func(a, b int32) int32 { return a ^ b })
		case bytecode.OpShl:
			err = v.execBinaryInt32(frame, func(a, b int32) int32 { return a << (uint32(b) & 31) })
		case bytecode.OpShr:
			err = v.execBinaryInt32(frame, func(a, b int32) int32 { return a >> (uint32(b) & 31) })
		case bytecode.OpUShr:
			err = v.execUShr(frame)
		case bytecode.OpLt:
			err = v.execCompareOp(frame, func(r int, ok bool) bool { return ok && r < 0 })
		case bytecode.OpLe:
			err = v.execCompareOp(frame, func(r int, ok bool) bool { return ok && r <= 0 })
		case bytecode.OpGt:
			err = v.execCompareOp(frame, func(r int, ok bool) bool { return ok && r > 0 })
		case bytecode.OpGe:
			err = v.execCompareOp(frame, func(r int, ok bool) bool { return ok && r >= 0 })
		case bytecode.OpEq:
			b, a := frame.pop(), frame.pop()
			var eq bool
			eq, err = v.looseEquals(a, b)
			frame.push(value.Bool(eq))
		case bytecode.OpNe:
			b, a := frame.pop(), frame.pop()
			var eq bool
			eq, err = v.looseEquals(a, b)
			frame.push(value.Bool(!eq))
		case bytecode.OpStrictEq:
			b, a := frame.pop(), frame.pop()
			var eq bool
			eq, err = v.strictEquals(a, b)
			frame.push(value.Bool(eq))
		case bytecode.OpStrictNe:
			b, a := frame.pop(), frame.pop()
			var eq bool
			eq, err = v.strictEquals(a, b)
			frame.push(value.Bool(!eq))

		// ---- Unary ----
		case bytecode.OpNeg:
			var n float64
			n, err = v.toNumber(frame.pop())
			frame.push(value.Num(-n))
		case bytecode.OpPlus:
			var n float64
			n, err = v.toNumber(frame.pop())
			frame.push(value.Num(n))
		case bytecode.OpNot:
			frame.push(value.Bool(!v.truthy(frame.pop())))
		case bytecode.OpBitNot:
			var n float64
			n, err = v.toNumber(frame.pop())
			frame.push(value.Num(float64(^toInt32(n))))
		case bytecode.OpTypeof:
			frame.push(value.Str(v.strings.Intern(v.typeofString(frame.pop()))))
		case bytecode.OpVoid:
			frame.pop()
			frame.push(value.Undef())
		case bytecode.OpDelete:
			key := frame.pop()
			target := frame.pop()
			var ok bool
			ok, err = v.execDelete(target, key, scope)
			frame.push(value.Bool(ok))

		// ---- Control flow ----
		case bytecode.OpJump:
			rel := bytecode.ReadI16(code, frame.ip)
			frame.ip = bytecode.JumpTarget(frame.ip, rel)
		case bytecode.OpJumpIfFalse:
			rel := bytecode.ReadI16(code, frame.ip)
			target := bytecode.JumpTarget(frame.ip, rel)
			frame.ip += 2
			if !v.truthy(frame.pop()) {
				frame.ip = target
			}
		case bytecode.OpJumpIfFalseNoPop:
			rel := bytecode.ReadI16(code, frame.ip)
			target := bytecode.JumpTarget(frame.ip, rel)
			frame.ip += 2
			if !v.truthy(frame.peek()) {
				frame.ip = target
			}
		case bytecode.OpJumpIfTrue:
			rel := bytecode.ReadI16(code, frame.ip)
			target := bytecode.JumpTarget(frame.ip, rel)
			frame.ip += 2
			if v.truthy(frame.pop()) {
				frame.ip = target
			}
		case bytecode.OpJumpIfTrueNoPop:
			rel := bytecode.ReadI16(code, frame.ip)
			target := bytecode.JumpTarget(frame.ip, rel)
			frame.ip += 2
			if v.truthy(frame.peek()) {
				frame.ip = target
			}
		case bytecode.OpJumpIfNullish:
			rel := bytecode.ReadI16(code, frame.ip)
			target := bytecode.JumpTarget(frame.ip, rel)
			frame.ip += 2
			if frame.pop().IsNullish() {
				frame.ip = target
			}
		case bytecode.OpJumpIfNullishNoPop:
			rel := bytecode.ReadI16(code, frame.ip)
			target := bytecode.JumpTarget(frame.ip, rel)
			frame.ip += 2
			if frame.peek().IsNullish() {
				frame.ip = target
			}

		// ---- Property access ----
		case bytecode.OpGetPropStaticNarrow, bytecode.OpGetPropStaticWide:
			idx := v.readPoolIndex(op, code, frame)
			key := object.StringKey(frame.fn.Constants[idx].Symbol)
			target := frame.pop()
			var val value.Value
			val, err = v.getProp(alloc, scope, target, key)
			frame.push(val)
		case bytecode.OpGetPropDynamic:
			keyVal := frame.pop()
			target := frame.pop()
			var key object.PropertyKey
			key, err = v.keyFromValueCoerced(keyVal)
			if err == nil {
				var val value.Value
				val, err = v.getProp(alloc, scope, target, key)
				frame.push(val)
			}
		case bytecode.OpGetPropStaticThis:
			idx := int(bytecode.ReadU8(code, frame.ip))
			frame.ip++
			key := object.StringKey(frame.fn.Constants[idx].Symbol)
			target := frame.peek()
			var val value.Value
			val, err = v.getProp(alloc, scope, target, key)
			frame.push(val)
		case bytecode.OpGetPropDynamicThis:
			keyVal := frame.pop()
			target := frame.peek()
			var key object.PropertyKey
			key, err = v.keyFromValueCoerced(keyVal)
			if err == nil {
				var val value.Value
				val, err = v.getProp(alloc, scope, target, key)
				frame.push(val)
			}

		// ---- Property store ----
		case bytecode.OpSetPropStaticNarrow, bytecode.OpSetPropStaticWide:
			idx := v.readPoolIndex(op, code, frame)
			kind := bytecode.AssignKind(bytecode.ReadU8(code, frame.ip))
			frame.ip++
			key := object.StringKey(frame.fn.Constants[idx].Symbol)
			val := frame.pop()
			target := frame.pop()
			var result value.Value
			result, err = v.execPropAssign(alloc, scope, target, key, val, kind)
			frame.push(result)
		case bytecode.OpSetPropDynamic:
			kind := bytecode.AssignKind(bytecode.ReadU8(code, frame.ip))
			frame.ip++
			val := frame.pop()
			keyVal := frame.pop()
			target := frame.pop()
			var key object.PropertyKey
			key, err = v.keyFromValueCoerced(keyVal)
			if err == nil {
				var result value.Value
				result, err = v.execPropAssign(alloc, scope, target, key, val, kind)
				frame.push(result)
			}

		// ---- Call ----
		case bytecode.OpCall:
			var sig *suspendSignal
			sig, err = v.execCall(alloc, scope, ex, frame, code)
			if sig != nil {
				return value.Undef(), sig, nil
			}

		// ---- Aggregate construction ----
		case bytecode.OpNewArray:
			err = v.execNewArray(alloc, scope, frame, code)
		case bytecode.OpNewObject:
			err = v.execNewObject(alloc, scope, frame, code)

		// ---- Exceptions ----
		case bytecode.OpTry:
			frame.ip++ // flags byte, unused: handler shape comes from the region
			frame.ip += 4
			region, ok := findRegion(frame.fn, opStart)
			if !ok {
				err = errors.NewInternal("TRY at %d has no matching exception region", opStart)
			} else {
				ex.handlers = append(ex.handlers, handler{
					region:     region,
					frameIndex: len(ex.frames) - 1,
					stackDepth: len(frame.stack),
				})
			}
		case bytecode.OpTryEnd:
			if len(ex.handlers) > 0 {
				ex.handlers = ex.handlers[:len(ex.handlers)-1]
			}
		case bytecode.OpThrow:
			thrown := frame.pop()
			err = ex.raiseException(thrown)
		case bytecode.OpFinallyEnd:
			if ex.pending.active {
				pending := ex.pending.value
				ex.pending = pendingRethrow{}
				err = ex.raiseException(pending)
			}

		// ---- Coroutines ----
		case bytecode.OpYield:
			flags := bytecode.ReadU8(code, frame.ip)
			frame.ip++
			val := frame.pop()
			return value.Undef(), &suspendSignal{kind: suspendYield, value: val, delegate: flags&bytecode.YieldDelegate != 0}, nil
		case bytecode.OpAwait:
			val := frame.pop()
			return value.Undef(), &suspendSignal{kind: suspendAwait, value: val}, nil
		case bytecode.OpReturn:
			frame.ip += 2 // tryDepth: handlers are trimmed by frame index below regardless
			result := frame.pop()
			trimHandlersForFrame(ex, len(ex.frames)-1)
			ex.popFrame()
			if len(ex.frames) == 0 {
				return result, nil, nil
			}
			ex.top().push(result)

		// ---- Intrinsics ----
		case bytecode.OpIntrinsic:
			err = v.execIntrinsic(alloc, scope, frame, code)

		// ---- Misc ----
		case bytecode.OpLoadThis:
			frame.push(frame.this)
		case bytecode.OpSequenceDiscard:
			top := frame.pop()
			frame.stack = frame.stack[:0]
			frame.push(top)

		default:
			err = errors.NewInternal("unhandled opcode %s", op)
		}

		if err != nil {
			thrown := v.errorToValue(err)
			if rerr := ex.raiseException(thrown); rerr != nil {
				return value.Undef(), nil, rerr
			}
		}
	}
}

// trimHandlersForFrame discards every handler registered against a frame
// about to be popped — a return out of a try body abandons that try's
// handler without ever consulting it again (spec.md §4.2 "returning from
// inside a try runs finally but a handler never outlives its own frame").
func trimHandlersForFrame(ex *execContext, frameIndex int) {
	for len(ex.handlers) > 0 && ex.handlers[len(ex.handlers)-1].frameIndex >= frameIndex {
		ex.handlers = ex.handlers[:len(ex.handlers)-1]
	}
}

func (v *VM) constantValue(frame *Frame, idx int) value.Value {
	c := frame.fn.Constants[idx]
	switch c.Kind {
	case bytecode.ConstNumber:
		return value.Num(c.Number)
	case bytecode.ConstBoolean:
		return value.Bool(c.Boolean)
	case bytecode.ConstSymbol:
		return value.Str(c.Symbol)
	case bytecode.ConstFunction:
		return v.makeClosure(frame, c.Function)
	default:
		return value.Undef()
	}
}

func (v *VM) readPoolIndex(op bytecode.OpCode, code []byte, frame *Frame) int {
	switch op {
	case bytecode.OpLoadGlobalNarrow, bytecode.OpStoreGlobalNarrow, bytecode.OpGetPropStaticNarrow, bytecode.OpSetPropStaticNarrow:
		idx := int(bytecode.ReadU8(code, frame.ip))
		frame.ip++
		return idx
	default:
		idx := int(bytecode.ReadU16(code, frame.ip))
		frame.ip += 2
		return idx
	}
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(f)))
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return uint32(int64(f))
}

func (v *VM) typeofString(val value.Value) string {
	switch val.Kind() {
	case value.Undefined:
		return "undefined"
	case value.Null:
		return "object"
	case value.Boolean:
		return "boolean"
	case value.Number:
		return "number"
	case value.String:
		return "string"
	case value.Symbol:
		return "symbol"
	case value.Object:
		raw, ok := v.alloc.Resolve(val.ObjectID())
		if ok {
			if obj, ok := raw.(object.Object); ok && obj.TypeOf() == object.TypeofFunction {
				return "function"
			}
		}
		return "object"
	default:
		return "object"
	}
}
