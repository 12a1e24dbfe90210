// Package vm implements L6 of the core engine: the bytecode dispatch loop,
// call frames, the calling convention, exception unwinding, generator/async
// suspension, the promise driver and microtask queue (spec.md §4.3).
//
// Grounded on go-dws's internal/bytecode/vm.go, vm_core.go, vm_calls.go,
// vm_stack.go: a flat array-backed call stack (callFrame pushed/popped on a
// []callFrame rather than recursing through Go's own call stack), a single
// fetch/decode/execute for loop over frame.chunk.Code, and a runtime stack
// of exception handlers pushed by TRY and consulted by raiseException
// rather than a static scan of the exception-region table on every throw.
// Generalized from DWScript's synchronous-only call model to also drive
// generator suspension and a promise microtask queue, neither of which
// go-dws needs, by giving a suspended generator its own independent
// execContext (frame stack + handler stack) that Resume re-enters exactly
// where OpYield left it — the closest analogue in the corpus to this is
// internal/interp/evaluator's save/restore-of-execution-state pattern for
// exception unwinding, generalized here to a full suspend point instead of
// just an exception bookmark.
package vm

import "github.com/lumenjs/engine/internal/value"

// StringTable is the engine's own minimal string interner. spec.md §1 pins
// the interner as an external collaborator the core merely consumes
// (compiler.Interner); pkg/engine still needs a concrete one to hand both
// the compiler and the VM so a program can run end to end without an
// embedder supplying its own, so this package provides the default.
// Reserved well-known-symbol ids (internal/statics) occupy the bottom of
// the id space; ordinary strings are interned starting above them.
type StringTable struct {
	ids  map[string]value.InternedStringId
	list []string
}

// reservedSlots is filled in by NewStringTable so Resolve never panics on
// a well-known symbol id, even though this table never assigns new ids in
// that range.
const reservedSlots = 5 // statics.ReservedSymbolCount, duplicated here

func NewStringTable() *StringTable {
	t := &StringTable{ids: make(map[string]value.InternedStringId)}
	for i := 0; i < reservedSlots; i++ {
		t.list = append(t.list, reservedSymbolName(i))
	}
	return t
}

func reservedSymbolName(i int) string {
	names := [...]string{"Symbol.iterator", "Symbol.asyncIterator", "Symbol.toPrimitive", "Symbol.toStringTag", "Symbol.hasInstance"}
	if i < len(names) {
		return names[i]
	}
	return ""
}

// Intern satisfies internal/compiler.Interner.
func (t *StringTable) Intern(s string) value.InternedStringId {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := value.InternedStringId(len(t.list))
	t.list = append(t.list, s)
	t.ids[s] = id
	return id
}

// Resolve turns an id back into text; used by every VM opcode that needs
// the actual characters (string concatenation, property-key lookups by
// name, typeof/toString output). Matches internal/bytecode.Resolver's
// signature so the same table also drives disassembly.
func (t *StringTable) Resolve(id value.InternedStringId) string {
	idx := int(id)
	if idx < 0 || idx >= len(t.list) {
		return ""
	}
	return t.list[idx]
}

func (t *StringTable) Len() int { return len(t.list) }
