package vm

import (
	"math"
	"strconv"

	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
)

// receiverObject resolves a property-access target to the Object whose
// chain should be walked: the object itself, or — for a primitive, which
// owns no properties of its own — the corresponding builtin prototype,
// still keyed off the original primitive as `this` so a method resolved
// there (e.g. String.prototype.toUpperCase) sees its real receiver (spec.md
// §3.2, "primitive method dispatch without boxing").
func (v *VM) receiverObject(val value.Value) (object.Object, error) {
	if val.IsObject() {
		raw, ok := v.alloc.Resolve(val.ObjectID())
		if !ok {
			return nil, v.typeError("use of a freed object")
		}
		return raw.(object.Object), nil
	}
	var key statics.ProtoKey
	switch val.Kind() {
	case value.String:
		key = statics.ProtoString
	case value.Number:
		key = statics.ProtoNumber
	case value.Boolean:
		key = statics.ProtoBoolean
	case value.Symbol:
		key = statics.ProtoSymbol
	default:
		return nil, v.typeError("Cannot read properties of %s", v.typeofString(val))
	}
	proto := v.statics.Prototype(key)
	if !proto.IsObject() {
		return nil, v.typeError("builtin prototype not installed")
	}
	raw, ok := v.alloc.Resolve(proto.ObjectID())
	if !ok {
		return nil, v.typeError("builtin prototype not installed")
	}
	return raw.(object.Object), nil
}

func parseArrayIndex(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// getProp implements property read for both GET_PROP opcodes, special-
// casing the two shapes that bypass the ordinary property map: string
// `.length` (the VM must resolve the interner-backed length itself, per
// spec.md §3.1) and array index/`.length` access (array elements live in
// ArrayObject's own dense/table storage, not its property map).
func (v *VM) getProp(alloc *heap.Allocator, scope *heap.LocalScope, target value.Value, key object.PropertyKey) (value.Value, error) {
	if !key.IsSymbol && target.Kind() == value.String {
		name := v.strings.Resolve(key.ID)
		if name == "length" {
			return value.Num(float64(len([]rune(v.strings.Resolve(target.StringID()))))), nil
		}
	}
	obj, err := v.receiverObject(target)
	if err != nil {
		return value.Undef(), err
	}
	if !key.IsSymbol {
		if arr, ok := obj.Extract(object.TagArray); ok && target.IsObject() {
			a := arr.(*object.ArrayObject)
			name := v.strings.Resolve(key.ID)
			if name == "length" {
				return value.Num(float64(a.Length())), nil
			}
			if idx, ok := parseArrayIndex(name); ok {
				return a.GetElement(idx), nil
			}
		}
		if ta, ok := obj.Extract(object.TagTypedArray); ok && target.IsObject() {
			t := ta.(*object.TypedArrayObject)
			name := v.strings.Resolve(key.ID)
			if name == "length" {
				return value.Num(float64(t.Length())), nil
			}
			if idx, ok := parseArrayIndex(name); ok {
				return t.GetElement(int(idx)), nil
			}
		}
	}
	return object.Get(alloc, obj, target, key, v.Invoke, scope)
}

// execPropAssign implements both SET_PROP opcodes: plain assignment, or one
// of the compound-assignment AssignKinds, which read the current value
// first (spec.md §4.1 "Property store").
func (v *VM) execPropAssign(alloc *heap.Allocator, scope *heap.LocalScope, target value.Value, key object.PropertyKey, rhs value.Value, kind bytecode.AssignKind) (value.Value, error) {
	if kind == bytecode.AssignPlain {
		if err := v.setProp(alloc, scope, target, key, rhs); err != nil {
			return value.Undef(), err
		}
		return rhs, nil
	}
	cur, err := v.getProp(alloc, scope, target, key)
	if err != nil {
		return value.Undef(), err
	}
	var result value.Value
	switch kind {
	case bytecode.AssignLogicalAnd:
		if !v.truthy(cur) {
			return cur, nil
		}
		result = rhs
	case bytecode.AssignLogicalOr:
		if v.truthy(cur) {
			return cur, nil
		}
		result = rhs
	case bytecode.AssignNullish:
		if !cur.IsNullish() {
			return cur, nil
		}
		result = rhs
	default:
		result, err = v.applyCompound(kind, cur, rhs)
		if err != nil {
			return value.Undef(), err
		}
	}
	if err := v.setProp(alloc, scope, target, key, result); err != nil {
		return value.Undef(), err
	}
	return result, nil
}

func (v *VM) applyCompound(kind bytecode.AssignKind, cur, rhs value.Value) (value.Value, error) {
	switch kind {
	case bytecode.AssignAdd:
		tmp := &Frame{}
		tmp.push(cur)
		tmp.push(rhs)
		if err := v.execAdd(tmp); err != nil {
			return value.Undef(), err
		}
		return tmp.pop(), nil
	case bytecode.AssignSub:
		return v.binaryNumericValue(cur, rhs, func(a, b float64) float64 { return a - b })
	case bytecode.AssignMul:
		return v.binaryNumericValue(cur, rhs, func(a, b float64) float64 { return a * b })
	case bytecode.AssignDiv:
		return v.binaryNumericValue(cur, rhs, func(a, b float64) float64 { return a / b })
	case bytecode.AssignMod:
		return v.binaryNumericValue(cur, rhs, math.Mod)
	case bytecode.AssignPow:
		return v.binaryNumericValue(cur, rhs, math.Pow)
	case bytecode.AssignShl:
		return v.binaryInt32Value(cur, rhs, func(a, b int32) int32 { return a << (uint32(b) & 31) })
	case bytecode.AssignShr:
		return v.binaryInt32Value(cur, rhs, func(a, b int32) int32 { return a >> (uint32(b) & 31) })
	case bytecode.AssignUShr:
		na, err := v.toNumber(cur)
		if err != nil {
			return value.Undef(), err
		}
		nb, err := v.toNumber(rhs)
		if err != nil {
			return value.Undef(), err
		}
		return value.Num(float64(toUint32(na) >> (toUint32(nb) & 31))), nil
	case bytecode.AssignBitAnd:
		return v.binaryInt32Value(cur, rhs, func(a, b int32) int32 { return a & b })
	case bytecode.AssignBitOr:
		return v.binaryInt32Value(cur, rhs, func(a, b int32) int32 { return a | b })
	case bytecode.AssignBitXor:
		return v.binaryInt32Value(cur, rhs, func(a, b int32) int32 { return a ^ b })
	default:
		return value.Undef(), v.typeError("unsupported compound assignment kind %d", kind)
	}
}

func (v *VM) binaryNumericValue(a, b value.Value, op func(a, b float64) float64) (value.Value, error) {
	na, err := v.toNumber(a)
	if err != nil {
		return value.Undef(), err
	}
	nb, err := v.toNumber(b)
	if err != nil {
		return value.Undef(), err
	}
	return value.Num(op(na, nb)), nil
}

func (v *VM) binaryInt32Value(a, b value.Value, op func(a, b int32) int32) (value.Value, error) {
	na, err := v.toNumber(a)
	if err != nil {
		return value.Undef(), err
	}
	nb, err := v.toNumber(b)
	if err != nil {
		return value.Undef(), err
	}
	return value.Num(float64(op(toInt32(na), toInt32(nb)))), nil
}

func (v *VM) setProp(alloc *heap.Allocator, scope *heap.LocalScope, target value.Value, key object.PropertyKey, val value.Value) error {
	obj, err := v.receiverObject(target)
	if err != nil {
		return err
	}
	if !key.IsSymbol && target.IsObject() {
		if arr, ok := obj.Extract(object.TagArray); ok {
			a := arr.(*object.ArrayObject)
			name := v.strings.Resolve(key.ID)
			if name == "length" {
				n, err := v.toNumber(val)
				if err != nil {
					return err
				}
				a.SetLength(toUint32(n))
				return nil
			}
			if idx, ok := parseArrayIndex(name); ok {
				a.SetElement(idx, val)
				return nil
			}
		}
		if ta, ok := obj.Extract(object.TagTypedArray); ok {
			t := ta.(*object.TypedArrayObject)
			name := v.strings.Resolve(key.ID)
			if idx, ok := parseArrayIndex(name); ok {
				n, err := v.toNumber(val)
				if err != nil {
					return err
				}
				t.SetElement(int(idx), n)
				return nil
			}
		}
	}
	return object.Set(alloc, obj, target, key, val, v.Invoke, scope)
}

func (v *VM) execDelete(target, keyVal value.Value, scope *heap.LocalScope) (bool, error) {
	if !target.IsObject() {
		return true, nil
	}
	key, err := v.keyFromValueCoerced(keyVal)
	if err != nil {
		return false, err
	}
	raw, ok := v.alloc.Resolve(target.ObjectID())
	if !ok {
		return true, nil
	}
	obj := raw.(object.Object)
	if !key.IsSymbol {
		if arr, ok := obj.Extract(object.TagArray); ok {
			a := arr.(*object.ArrayObject)
			if name := v.strings.Resolve(key.ID); name != "length" {
				if idx, ok := parseArrayIndex(name); ok {
					a.DeleteElement(idx)
					return true, nil
				}
			}
		}
	}
	_, ok = obj.DeleteProperty(v.alloc, key)
	return ok, nil
}

// execNewArray builds an array literal's runtime value from the element
// kinds that follow OpNewArray in the instruction stream (spec.md §4.1
// "Aggregate construction"). Element values were pushed by the preceding
// instructions in source order; they are popped here in reverse and
// re-threaded forward so elisions (which push nothing) and spreads (which
// expand to zero-or-more elements) land at the right index.
func (v *VM) execNewArray(alloc *heap.Allocator, scope *heap.LocalScope, frame *Frame, code []byte) error {
	count := int(bytecode.ReadU16(code, frame.ip))
	frame.ip += 2
	kinds := make([]bytecode.ArrayElemKind, count)
	for i := range kinds {
		kinds[i] = bytecode.ArrayElemKind(bytecode.ReadU8(code, frame.ip))
		frame.ip++
	}
	popCount := 0
	for _, k := range kinds {
		if k != bytecode.ArrayElemElision {
			popCount++
		}
	}
	popped := make([]value.Value, popCount)
	for i := popCount - 1; i >= 0; i-- {
		popped[i] = frame.pop()
	}
	arr := v.newArray()
	pi := 0
	idx := uint32(0)
	for _, k := range kinds {
		switch k {
		case bytecode.ArrayElemValue:
			arr.SetElement(idx, popped[pi])
			pi++
			idx++
		case bytecode.ArrayElemSpread:
			vals, err := v.iterableToSlice(alloc, scope, popped[pi])
			pi++
			if err != nil {
				return err
			}
			for _, el := range vals {
				arr.SetElement(idx, el)
				idx++
			}
		case bytecode.ArrayElemElision:
			idx++
		}
	}
	arr.SetLength(idx)
	id := alloc.AllocObject(arr, v)
	frame.push(value.Obj(id))
	return nil
}

type objMember struct {
	kind   bytecode.ObjectMemberKind
	keyIdx uint16
	a, b   value.Value
}

// execNewObject builds an object literal (spec.md §4.1 "Aggregate
// construction"), reading member kinds/key indices forward but popping
// their already-pushed values in reverse member order — same threading
// technique as execNewArray — then applying each member in its original
// order so OwnKeys/for-in see source order.
func (v *VM) execNewObject(alloc *heap.Allocator, scope *heap.LocalScope, frame *Frame, code []byte) error {
	count := int(bytecode.ReadU16(code, frame.ip))
	frame.ip += 2
	members := make([]objMember, count)
	for i := range members {
		kind := bytecode.ObjectMemberKind(bytecode.ReadU8(code, frame.ip))
		frame.ip++
		m := objMember{kind: kind}
		switch kind {
		case bytecode.ObjectMemberStatic, bytecode.ObjectMemberGetter, bytecode.ObjectMemberSetter:
			m.keyIdx = bytecode.ReadU16(code, frame.ip)
			frame.ip += 2
		}
		members[i] = m
	}
	for i := count - 1; i >= 0; i-- {
		switch members[i].kind {
		case bytecode.ObjectMemberDynamic:
			members[i].b = frame.pop()
			members[i].a = frame.pop()
		default:
			members[i].a = frame.pop()
		}
	}

	obj := object.NewOrdObject(v.statics.Prototype(statics.ProtoObject))
	for _, m := range members {
		switch m.kind {
		case bytecode.ObjectMemberStatic:
			key := object.StringKey(frame.fn.Constants[m.keyIdx].Symbol)
			obj.SetProperty(alloc, key, object.PropertyValue{Static: m.a, Flags: object.DefaultDataDescriptor()})
		case bytecode.ObjectMemberDynamic:
			key, err := v.keyFromValueCoerced(m.a)
			if err != nil {
				return err
			}
			obj.SetProperty(alloc, key, object.PropertyValue{Static: m.b, Flags: object.DefaultDataDescriptor()})
		case bytecode.ObjectMemberGetter:
			key := object.StringKey(frame.fn.Constants[m.keyIdx].Symbol)
			existing, _ := obj.GetOwnPropertyDescriptor(alloc, key)
			obj.SetProperty(alloc, key, object.PropertyValue{
				IsAccessor: true, Getter: m.a, Setter: existing.Setter, Flags: object.DefaultDataDescriptor(),
			})
		case bytecode.ObjectMemberSetter:
			key := object.StringKey(frame.fn.Constants[m.keyIdx].Symbol)
			existing, _ := obj.GetOwnPropertyDescriptor(alloc, key)
			obj.SetProperty(alloc, key, object.PropertyValue{
				IsAccessor: true, Getter: existing.Getter, Setter: m.a, Flags: object.DefaultDataDescriptor(),
			})
		case bytecode.ObjectMemberSpread:
			if err := v.spreadInto(alloc, scope, obj, m.a); err != nil {
				return err
			}
		}
	}
	id := alloc.AllocObject(obj, v)
	frame.push(value.Obj(id))
	return nil
}

func (v *VM) spreadInto(alloc *heap.Allocator, scope *heap.LocalScope, dst *object.OrdObject, src value.Value) error {
	if !src.IsObject() {
		return nil
	}
	raw, ok := alloc.Resolve(src.ObjectID())
	if !ok {
		return nil
	}
	srcObj := raw.(object.Object)
	for _, key := range srcObj.OwnKeys(alloc) {
		pv, ok := srcObj.GetOwnPropertyDescriptor(alloc, key)
		if !ok || pv.Flags&object.Enumerable == 0 {
			continue
		}
		val := pv.Static
		if pv.IsAccessor {
			var err error
			val, err = object.Get(alloc, srcObj, src, key, v.Invoke, scope)
			if err != nil {
				return err
			}
		}
		dst.SetProperty(alloc, key, object.PropertyValue{Static: val, Flags: object.DefaultDataDescriptor()})
	}
	return nil
}
