package vm

import (
	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

// execCall implements OpCall (spec.md §4.3 "Calling convention"). The
// operand stack holds, in push order: [this if CallMetaHasThis] [callee]
// [arg0 ... argN-1], so popping unwinds args first, then callee, then an
// optional receiver. spreadIndices name which argument positions (0-based,
// into the just-assembled args slice) were `...expr` and need expanding via
// the iterator protocol before the call actually happens.
//
// A suspendSignal never originates here: calling a generator/async function
// through VM.Call produces its driver object synchronously (generator.go,
// promise.go) rather than running the callee's body inline, so nothing
// inside this function can itself suspend the caller's frame.
func (v *VM) execCall(alloc *heap.Allocator, scope *heap.LocalScope, ex *execContext, frame *Frame, code []byte) (*suspendSignal, error) {
	meta := bytecode.ReadU8(code, frame.ip)
	frame.ip++
	argc := int(bytecode.ReadU8(code, frame.ip))
	frame.ip++
	spreadCount := int(bytecode.ReadU8(code, frame.ip))
	frame.ip++
	spread := make(map[int]bool, spreadCount)
	for i := 0; i < spreadCount; i++ {
		spread[int(bytecode.ReadU8(code, frame.ip))] = true
		frame.ip++
	}

	rawArgs := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		rawArgs[i] = frame.pop()
	}
	callee := frame.pop()
	this := value.Undef()
	if meta&bytecode.CallMetaHasThis != 0 {
		this = frame.pop()
	}

	var args []value.Value
	if spreadCount == 0 {
		args = rawArgs
	} else {
		args = make([]value.Value, 0, argc)
		for i, a := range rawArgs {
			if spread[i] {
				expanded, err := v.iterableToSlice(alloc, scope, a)
				if err != nil {
					return nil, err
				}
				args = append(args, expanded...)
			} else {
				args = append(args, a)
			}
		}
	}

	var result value.Value
	var err error
	if meta&bytecode.CallMetaConstructor != 0 {
		result, err = v.Construct(alloc, scope, callee, args)
	} else {
		result, err = v.Call(alloc, scope, callee, this, args)
	}
	if err != nil {
		return nil, err
	}
	frame.push(result)
	return nil, nil
}
