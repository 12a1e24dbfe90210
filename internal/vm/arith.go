package vm

import "github.com/lumenjs/engine/internal/value"

// execAdd implements `+`, which alone among the binary arithmetic opcodes
// forks between numeric addition and string concatenation once both
// operands have been reduced to a primitive (spec.md §4.3 "Operand
// coercion").
func (v *VM) execAdd(frame *Frame) error {
	b, a := frame.pop(), frame.pop()
	pa, err := v.toPrimitive(a)
	if err != nil {
		return err
	}
	pb, err := v.toPrimitive(b)
	if err != nil {
		return err
	}
	if pa.Kind() == value.String || pb.Kind() == value.String {
		sa, err := v.toStringValue(pa)
		if err != nil {
			return err
		}
		sb, err := v.toStringValue(pb)
		if err != nil {
			return err
		}
		concat := v.strings.Resolve(sa.StringID()) + v.strings.Resolve(sb.StringID())
		frame.push(value.Str(v.strings.Intern(concat)))
		return nil
	}
	na, err := v.toNumber(pa)
	if err != nil {
		return err
	}
	nb, err := v.toNumber(pb)
	if err != nil {
		return err
	}
	frame.push(value.Num(na + nb))
	return nil
}

func (v *VM) execBinaryNumeric(frame *Frame, op func(a, b float64) float64) error {
	b, a := frame.pop(), frame.pop()
	na, err := v.toNumber(a)
	if err != nil {
		return err
	}
	nb, err := v.toNumber(b)
	if err != nil {
		return err
	}
	frame.push(value.Num(op(na, nb)))
	return nil
}

func (v *VM) execBinaryInt32(frame *Frame, op func(a, b int32) int32) error {
	b, a := frame.pop(), frame.pop()
	na, err := v.toNumber(a)
	if err != nil {
		return err
	}
	nb, err := v.toNumber(b)
	if err != nil {
		return err
	}
	frame.push(value.Num(float64(op(toInt32(na), toInt32(nb)))))
	return nil
}

// execUShr implements `>>>`, the one shift operator whose left operand
// coerces to Uint32 rather than Int32 (spec.md §4.3).
func (v *VM) execUShr(frame *Frame) error {
	b, a := frame.pop(), frame.pop()
	na, err := v.toNumber(a)
	if err != nil {
		return err
	}
	nb, err := v.toNumber(b)
	if err != nil {
		return err
	}
	frame.push(value.Num(float64(toUint32(na) >> (toUint32(nb) & 31))))
	return nil
}

func (v *VM) execCompareOp(frame *Frame, test func(result int, ok bool) bool) error {
	b, a := frame.pop(), frame.pop()
	result, ok, err := v.compare(a, b)
	if err != nil {
		return err
	}
	frame.push(value.Bool(test(result, ok)))
	return nil
}
