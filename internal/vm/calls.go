package vm

import (
	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/errors"
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/token"
	"github.com/lumenjs/engine/internal/value"
)

// resolveFunction recovers the FunctionObject behind a callee Value, or a
// TypeError-flavored EngineError if it is not callable at all (spec.md
// §4.3 "Calling convention", step 1).
func (v *VM) resolveFunction(callee value.Value) (*object.FunctionObject, object.Object, error) {
	if !callee.IsObject() {
		return nil, nil, errors.New(errors.CategoryType, token.Span{}, "value is not a function")
	}
	raw, ok := v.alloc.Resolve(callee.ObjectID())
	if !ok {
		return nil, nil, errors.NewInternal("dangling object id %d", callee.ObjectID())
	}
	obj, ok := raw.(object.Object)
	if !ok {
		return nil, nil, errors.NewInternal("heap node %d is not an Object", callee.ObjectID())
	}
	fn, ok := obj.Extract(object.TagFunction)
	if !ok {
		return nil, obj, errors.New(errors.CategoryType, token.Span{}, "value is not a function")
	}
	return fn.(*object.FunctionObject), obj, nil
}

// Call implements spec.md §4.3's calling convention entry point: resolve
// the callee and dispatch per FunctionKind. Native, bound and plain user
// functions run to completion; a generator or async callee is handed to
// startCoroutine, which returns its generator object or promise. OpCall
// reaches every callee through here.
//
// scope roots the callee/this/args for the duration of the call; Call may
// trigger GC via AllocObject while constructing argument-dependent state
// (a fresh call frame's locals array is not heap-allocated, but natives it
// calls into may allocate).
func (v *VM) Call(alloc *heap.Allocator, scope *heap.LocalScope, callee, this value.Value, args []value.Value) (value.Value, error) {
	fn, obj, err := v.resolveFunction(callee)
	if err != nil {
		return value.Undef(), err
	}
	switch fn.Kind {
	case object.FuncNative, object.FuncBound:
		ctx := &object.CallContext{Alloc: alloc, Scope: scope, This: this, Args: args, NewTarget: value.Undef(), Invoke: v.Invoke}
		return obj.Apply(ctx)
	case object.FuncUser:
		return v.callUser(fn, this, args, value.Undef())
	case object.FuncGenerator, object.FuncAsync:
		// Calling a generator/async function produces its iterator/promise
		// rather than running the body to completion; startCoroutine is the
		// entry point for both OpCall and natives calling back into one.
		return v.startCoroutine(fn, this, args)
	default:
		return value.Undef(), errors.NewInternal("unknown function kind %d", fn.Kind)
	}
}

// Invoke adapts Call to object.Invoke's signature, used to populate every
// CallContext.Invoke the VM hands to a native function or accessor.
func (v *VM) Invoke(alloc *heap.Allocator, scope *heap.LocalScope, callee, this value.Value, args []value.Value) (value.Value, error) {
	return v.Call(alloc, scope, callee, this, args)
}

// callUser runs a FuncUser callee's bytecode to completion in a fresh,
// independent execContext (spec.md §4.3: user function calls do not share
// the caller's call stack object, they are run via nested Go call via run()
// on their own flat frame slice, matching go-dws's callClosure pushing onto
// the shared vm.frames — simplified here to a dedicated stack per
// invocation so a native call made mid-expression cannot observe or
// perturb the caller's in-flight frame).
func (v *VM) callUser(fn *object.FunctionObject, this value.Value, args []value.Value, newTarget value.Value) (value.Value, error) {
	if v.maxCallDepth > 0 && v.callDepth >= v.maxCallDepth {
		return value.Undef(), v.rangeError("Maximum call stack size exceeded")
	}
	v.callDepth++
	defer func() { v.callDepth-- }()
	ex := newExecContext()
	ex.pushFrame(v.makeInitialFrame(fn, args, this, newTarget))
	return v.runToCompletion(ex)
}

// makeInitialFrame binds parameters (padding missing trailing args with
// Undefined, collecting the rest parameter if the function declares one)
// into a fresh Frame's local slots; extra args beyond params+rest are
// simply dropped from locals (spec.md §4.3 "argument arity is not
// enforced by the callee's own calling convention").
func (v *VM) makeInitialFrame(fn *object.FunctionObject, args []value.Value, this, newTarget value.Value) *Frame {
	cf := fn.Compiled
	f := newFrame(cf, fn.Upvalues, this, newTarget)
	n := cf.ParamCount
	for i := 0; i < n; i++ {
		if i < len(args) {
			f.locals[i] = args[i]
		} else {
			f.locals[i] = value.Undef()
		}
	}
	if cf.RestParam {
		rest := v.newArray()
		if len(args) > n {
			extra := args[n:]
			for i, a := range extra {
				rest.SetElement(uint32(i), a)
			}
		}
		id := v.alloc.AllocObject(rest, v)
		f.locals[n] = value.Obj(id)
	}
	return f
}

func (v *VM) newArray() *object.ArrayObject {
	return object.NewArrayObject(v.statics.Prototype(statics.ProtoArray))
}

// Construct implements the `new` expression's calling convention (spec.md
// §4.3 "Construct"). Native constructors run through FunctionObject.Construct
// directly (they build and return their own instance, e.g. `new Error(...)`
// or `new Array(...)`); a user function instead gets a fresh ordinary object
// bound to its .prototype property as `this`, and the function's own return
// value is used instead only if that return value is itself an object
// (spec.md §3.3 "constructor invocation").
func (v *VM) Construct(alloc *heap.Allocator, scope *heap.LocalScope, callee value.Value, args []value.Value) (value.Value, error) {
	fn, obj, err := v.resolveFunction(callee)
	if err != nil {
		return value.Undef(), err
	}
	switch fn.Kind {
	case object.FuncNative:
		ctx := &object.CallContext{Alloc: alloc, Scope: scope, This: value.Undef(), Args: args, NewTarget: callee, Invoke: v.Invoke}
		return obj.Construct(ctx)
	case object.FuncBound:
		args2 := make([]value.Value, 0, len(fn.BoundArgs)+len(args))
		args2 = append(args2, fn.BoundArgs...)
		args2 = append(args2, args...)
		return v.Construct(alloc, scope, fn.BoundTarget, args2)
	case object.FuncUser:
		return v.constructUser(alloc, scope, fn, obj, callee, args)
	default:
		return value.Undef(), v.typeError("%s is not a constructor", fn.Name)
	}
}

func (v *VM) constructUser(alloc *heap.Allocator, scope *heap.LocalScope, fn *object.FunctionObject, obj object.Object, callee value.Value, args []value.Value) (value.Value, error) {
	protoVal, err := object.Get(alloc, obj, callee, object.StringKey(v.strings.Intern("prototype")), v.Invoke, scope)
	if err != nil {
		return value.Undef(), err
	}
	if !protoVal.IsObject() {
		protoVal = v.statics.Prototype(statics.ProtoObject)
	}
	inst := object.NewOrdObject(protoVal)
	instID := alloc.AllocObject(inst, v)
	instVal := value.Obj(instID)
	result, err := v.callUser(fn, instVal, args, callee)
	if err != nil {
		return value.Undef(), err
	}
	if result.IsObject() {
		return result, nil
	}
	return instVal, nil
}

// RunProgram runs a top-level CompiledFunction (spec.md §6.1's compiler
// output, with no enclosing scope or captured upvalues) to completion and
// returns its final value. This is the entry point pkg/engine.Run drives a
// freshly compiled script through — everything a user function call needs
// beyond callUser (binding params, building a frame) is moot at top level,
// since a compiled program takes no arguments and closes over nothing.
func (v *VM) RunProgram(fn *bytecode.CompiledFunction) (value.Value, error) {
	top := object.NewUserFunction(v.statics.Prototype(statics.ProtoFunction), fn, nil)
	return v.callUser(top, v.GlobalsValue(), nil, value.Undef())
}

// runToCompletion drives an execContext's dispatch loop until its frame
// stack empties out via a top-level OpReturn (spec.md §4.3 "Return"); a
// generator/async body that suspends via OpYield/OpAwait must instead call
// run() directly and handle the *suspend signal itself (generator.go,
// promise.go).
func (v *VM) runToCompletion(ex *execContext) (value.Value, error) {
	prev := v.current
	v.current = ex
	defer func() { v.current = prev }()
	result, sig, err := v.run(ex)
	if err != nil {
		return value.Undef(), err
	}
	if sig != nil {
		return value.Undef(), errors.NewInternal("yield/await reached outside a generator/async call (%s)", sig.kind)
	}
	return result, nil
}
