package vm

import (
	"github.com/lumenjs/engine/internal/heap"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/value"
)

// GeneratorObject drives a suspended generator's execContext across
// repeated .next()/.throw()/.return() calls (spec.md §4.3 "Coroutines").
// It lives in internal/vm rather than internal/object because it owns an
// execContext — a VM-internal type object must never depend on (object
// must not import vm).
type GeneratorObject struct {
	*object.OrdObject

	ex      *execContext
	started bool
	done    bool

	// delegateIter is the inner iterator a `yield*` is currently forwarding
	// to, or Undefined when this generator is driving its own body directly
	// (spec.md §4.2 "yield* delegates next/throw/return to its operand").
	delegateIter value.Value
}

func (g *GeneratorObject) Trace(mark func(value.ObjectId)) {
	g.OrdObject.Trace(mark)
	markIfObject(g.delegateIter, mark)
	if g.ex != nil {
		for _, f := range g.ex.frames {
			markFrame(f, mark)
		}
	}
}

var _ object.Object = (*GeneratorObject)(nil)

// startCoroutine implements VM.Call's entry point for a FuncGenerator or
// FuncAsync callee, whether the call comes from OpCall or from a native
// calling back in via ctx.Invoke. FuncGenerator
// produces the suspended iterator object without running any of the body;
// FuncAsync instead runs the body synchronously up to its first await and
// returns the driving promise, matching spec.md §4.2's "calling an async
// function runs its body synchronously until the first await".
func (v *VM) startCoroutine(fn *object.FunctionObject, this value.Value, args []value.Value) (value.Value, error) {
	ex := newExecContext()
	ex.pushFrame(v.makeInitialFrame(fn, args, this, value.Undef()))
	if fn.Kind == object.FuncAsync {
		return v.startAsyncCall(ex)
	}
	return v.newGeneratorObject(ex), nil
}

func (v *VM) newGeneratorObject(ex *execContext) value.Value {
	g := &GeneratorObject{
		OrdObject:    object.NewOrdObject(v.statics.Prototype(statics.ProtoGenerator)),
		ex:           ex,
		delegateIter: value.Undef(),
	}
	id := v.alloc.AllocObject(g, v)
	gVal := value.Obj(id)

	bind := func(name string, fn object.NativeFn) {
		nf := object.NewNativeFunction(v.statics.Prototype(statics.ProtoFunction), name, fn)
		nid := v.alloc.AllocObject(nf, v)
		g.SetProperty(v.alloc, object.StringKey(v.strings.Intern(name)), object.PropertyValue{
			Static: value.Obj(nid), Flags: object.Writable | object.Configurable,
		})
	}
	bind("next", func(ctx *object.CallContext) (value.Value, error) {
		return v.generatorNext(g, ctx.Arg(0), len(ctx.Args) > 0)
	})
	bind("throw", func(ctx *object.CallContext) (value.Value, error) {
		return v.generatorThrow(g, ctx.Arg(0))
	})
	bind("return", func(ctx *object.CallContext) (value.Value, error) {
		return v.generatorReturn(g, ctx.Arg(0))
	})
	return gVal
}

func (v *VM) makeIterResult(val value.Value, done bool) value.Value {
	obj := object.NewOrdObject(v.statics.Prototype(statics.ProtoObject))
	obj.SetProperty(v.alloc, object.StringKey(v.strings.Intern("value")), object.PropertyValue{Static: val, Flags: object.DefaultDataDescriptor()})
	obj.SetProperty(v.alloc, object.StringKey(v.strings.Intern("done")), object.PropertyValue{Static: value.Bool(done), Flags: object.DefaultDataDescriptor()})
	id := v.alloc.AllocObject(obj, v)
	return value.Obj(id)
}

// generatorNext resumes g's execContext, pushing sent as the value of the
// `yield` expression that suspended it (spec.md §4.2). A generator still
// delegating to a `yield*` operand forwards into that inner iterator first,
// only resuming its own frame once the inner iterator reports done.
func (v *VM) generatorNext(g *GeneratorObject, sent value.Value, hasSent bool) (value.Value, error) {
	if g.done {
		return v.makeIterResult(value.Undef(), true), nil
	}
	scope := heap.NewScope()
	if g.delegateIter.IsObject() {
		val, done, err := v.iterNext(v.alloc, scope, g.delegateIter, sent, hasSent)
		if err != nil {
			g.done = true
			return value.Undef(), err
		}
		if !done {
			return v.makeIterResult(val, false), nil
		}
		g.delegateIter = value.Undef()
		sent, hasSent = val, true
	}
	if g.started && hasSent {
		g.ex.top().push(sent)
	}
	g.started = true
	return v.driveGenerator(g)
}

func (v *VM) generatorThrow(g *GeneratorObject, exc value.Value) (value.Value, error) {
	if g.done || !g.started {
		g.done = true
		return value.Undef(), &RuntimeException{Value: exc}
	}
	if err := g.ex.raiseException(exc); err != nil {
		g.done = true
		return value.Undef(), err
	}
	return v.driveGenerator(g)
}

// generatorReturn forces early completion (spec.md §4.2 "for-of break calls
// .return()"). Pending finally blocks in the generator's own frames are not
// run here — a documented simplification, since doing so correctly requires
// re-entering raiseException with a synthetic "return completion" rather
// than a thrown value, which the exception-region protocol does not model.
func (v *VM) generatorReturn(g *GeneratorObject, val value.Value) (value.Value, error) {
	g.done = true
	g.ex = nil
	return v.makeIterResult(val, true), nil
}

func (v *VM) driveGenerator(g *GeneratorObject) (value.Value, error) {
	prev := v.current
	v.current = g.ex
	result, sig, err := v.run(g.ex)
	v.current = prev
	if err != nil {
		g.done = true
		return value.Undef(), err
	}
	if sig != nil {
		if sig.delegate {
			iter, err := v.getIterator(v.alloc, heap.NewScope(), sig.value)
			if err != nil {
				g.done = true
				return value.Undef(), err
			}
			g.delegateIter = iter
			return v.generatorNext(g, value.Undef(), false)
		}
		return v.makeIterResult(sig.value, false), nil
	}
	g.done = true
	return v.makeIterResult(result, true), nil
}
