// Package statics holds the engine's fixed tables: the well-known symbol
// ids every VM instance agrees on, and the per-instance table of builtin
// prototypes/constructors that property lookups and `instanceof` consult.
//
// Grounded on go-dws's internal/interp/types/class_registry.go (a
// process-wide registry of named types resolved by name), narrowed here to
// a VM-instance-scoped table since this engine has no REPL-style global
// namespace to register into (spec.md §1 Non-goals).
package statics

import "github.com/lumenjs/engine/internal/value"

// Well-known symbol ids occupy a fixed, reserved block of the interned-
// string-id space (spec.md's GLOSSARY mentions "well-known symbol" without
// assigning ids; SPEC_FULL.md §C.3 promotes this to the full small table the
// original engine carries). The host's string interner (out of this
// module's scope per spec.md §1) must not assign these ids to any source
// text; vm.NewStringTable reserves them when it creates the interner.
const (
	SymIterator value.InternedStringId = iota
	SymAsyncIterator
	SymToPrimitive
	SymToStringTag
	SymHasInstance
	symCount
)

// SymbolNames gives each reserved id its diagnostic display name
// ("Symbol.iterator", not the bare word) for error messages and
// `Symbol.prototype.toString`.
var SymbolNames = [symCount]string{
	SymIterator:      "Symbol.iterator",
	SymAsyncIterator: "Symbol.asyncIterator",
	SymToPrimitive:   "Symbol.toPrimitive",
	SymToStringTag:   "Symbol.toStringTag",
	SymHasInstance:   "Symbol.hasInstance",
}

// ReservedSymbolCount is how many ids at the bottom of the interned-string-
// id space this package reserves; a host-supplied interner must start
// allocating ordinary strings at this offset.
const ReservedSymbolCount = int(symCount)

// WellKnownSymbol returns the Symbol value for a reserved id.
func WellKnownSymbol(id value.InternedStringId) value.Value {
	return value.Sym(id)
}
