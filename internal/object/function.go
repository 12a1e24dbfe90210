package object

import (
	"github.com/lumenjs/engine/internal/bytecode"
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/value"
)

// FunctionKind selects how a FunctionObject is invoked (spec.md §3.3).
type FunctionKind int

const (
	FuncUser FunctionKind = iota
	FuncNative
	FuncGenerator
	FuncAsync
	FuncBound
)

// Upvalue is a captured variable cell, shared by reference between the
// enclosing frame and every closure that captured it (spec.md §3.3
// "upvalues: closed-over variable cells").
type Upvalue struct {
	Value value.Value
}

// NativeFn is the Go-side implementation backing a FuncNative object
// (spec.md §6.2 native-function ABI).
type NativeFn func(ctx *CallContext) (value.Value, error)

// FunctionObject is the callable object shape (spec.md §3.3). Exactly one
// of Compiled/Native is populated, selected by Kind; FuncBound instead
// populates BoundTarget/BoundThis/BoundArgs and delegates through Invoke.
type FunctionObject struct {
	*OrdObject

	Kind     FunctionKind
	Name     string
	Compiled *bytecode.CompiledFunction
	Upvalues []*Upvalue
	Native   NativeFn

	BoundTarget value.Value
	BoundThis   value.Value
	BoundArgs   []value.Value
}

func NewUserFunction(prototype value.Value, fn *bytecode.CompiledFunction, upvalues []*Upvalue) *FunctionObject {
	kind := FuncUser
	switch {
	case fn.IsGenerator && fn.IsAsync:
		kind = FuncAsync // async generators share the async dispatch path (SPEC_FULL.md §C)
	case fn.IsGenerator:
		kind = FuncGenerator
	case fn.IsAsync:
		kind = FuncAsync
	}
	return &FunctionObject{
		OrdObject: NewOrdObject(prototype),
		Kind:      kind,
		Name:      fn.Name,
		Compiled:  fn,
		Upvalues:  upvalues,
	}
}

func NewNativeFunction(prototype value.Value, name string, fn NativeFn) *FunctionObject {
	return &FunctionObject{
		OrdObject: NewOrdObject(prototype),
		Kind:      FuncNative,
		Name:      name,
		Native:    fn,
	}
}

func NewBoundFunction(prototype, target, boundThis value.Value, boundArgs []value.Value) *FunctionObject {
	return &FunctionObject{
		OrdObject:   NewOrdObject(prototype),
		Kind:        FuncBound,
		Name:        "bound",
		BoundTarget: target,
		BoundThis:   boundThis,
		BoundArgs:   boundArgs,
	}
}

// Apply dispatches per Kind. User/Generator/Async functions are actually run
// by the VM (which owns the bytecode dispatch loop); FunctionObject only
// exposes enough to let the VM recognize what it is being asked to invoke.
// Native functions run directly here since they need no VM frame.
// Bound functions splice their bound receiver/args and re-enter Invoke.
func (f *FunctionObject) Apply(ctx *CallContext) (value.Value, error) {
	switch f.Kind {
	case FuncNative:
		return f.Native(ctx)
	case FuncBound:
		args := make([]value.Value, 0, len(f.BoundArgs)+len(ctx.Args))
		args = append(args, f.BoundArgs...)
		args = append(args, ctx.Args...)
		return ctx.Invoke(ctx.Alloc, ctx.Scope, f.BoundTarget, f.BoundThis, args)
	default:
		// FuncUser/FuncGenerator/FuncAsync: the VM intercepts calls to these
		// before reaching here by recognizing Extract(TagFunction); this
		// path exists only so FunctionObject satisfies Object for shapes
		// (like callbacks held in a plain data structure) that never get
		// called directly through this package.
		return value.Undef(), errNotCallable
	}
}

func (f *FunctionObject) Construct(ctx *CallContext) (value.Value, error) {
	if f.Kind == FuncNative {
		return f.Native(ctx)
	}
	return value.Undef(), errNotCallable
}

func (f *FunctionObject) TypeOf() Typeof { return TypeofFunction }

func (f *FunctionObject) Extract(tag TypeTag) (any, bool) {
	if tag == TagFunction {
		return f, true
	}
	return f.OrdObject.Extract(tag)
}

func (f *FunctionObject) IsCallable() bool { return true }

func (f *FunctionObject) Trace(mark func(value.ObjectId)) {
	f.OrdObject.Trace(mark)
	for _, uv := range f.Upvalues {
		traceValue(uv.Value, mark)
	}
	traceValue(f.BoundTarget, mark)
	traceValue(f.BoundThis, mark)
	for _, a := range f.BoundArgs {
		traceValue(a, mark)
	}
}

var (
	_ Object         = (*FunctionObject)(nil)
	_ heap.Traceable = (*FunctionObject)(nil)
)
