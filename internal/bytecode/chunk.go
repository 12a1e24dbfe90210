package bytecode

import (
	"fmt"

	"github.com/lumenjs/engine/internal/token"
	"github.com/lumenjs/engine/internal/value"
)

// Constant-pool and per-function bounds (spec.md §8 "Constant-pool bound").
const (
	MaxConstants = 1 << 16
	MaxLocals    = 1 << 16
	MaxCallArgs  = 1 << 8
	MaxJumpAbs   = 1 << 15 // -32768..32767, a signed 16-bit relative offset
)

// ConstKind tags a constant pool entry (spec.md §4.1 "constant pool").
type ConstKind byte

const (
	ConstNumber ConstKind = iota
	ConstBoolean
	ConstSymbol // interned string or identifier
	ConstFunction
	ConstRegex
)

// Regex is a constant-pool regex entry. Per spec.md §1/§9 the regex engine
// itself is out of scope: the core stores only the source and flags and
// never parses or matches them — that is a host concern reached through the
// native-function ABI (internal/natives), never invoked by IntrinsicOp.
type Regex struct {
	Source value.InternedStringId
	Flags  string
}

// UpvalueDesc describes one entry of a function's upvalue descriptor table
// (spec.md §3.3): IsExternal selects "reference an upvalue of the enclosing
// function" (true) vs. "capture a local of the enclosing frame" (false).
type UpvalueDesc struct {
	IsExternal bool
	Index      uint16
}

// Constant is one constant-pool entry. Only one of the fields is valid,
// selected by Kind.
type Constant struct {
	Kind     ConstKind
	Number   float64
	Boolean  bool
	Symbol   value.InternedStringId
	Function *CompiledFunction
	Regex    Regex
}

// ExceptionRegion is one entry of a CompiledFunction's exception table
// (spec.md §6.3): the byte-offset range [TryIP, EndIP) covered by a
// try/catch/finally, and the handler entry points (0 meaning "absent").
type ExceptionRegion struct {
	TryIP     int
	CatchIP   int // 0 if no catch
	HasCatch  bool
	FinallyIP int // 0 if no finally
	HasFinally bool
	EndIP     int
}

// SpanEntry maps one instruction-pointer offset to a source span index
// (spec.md §6.3 debug-span table). The span itself lives in the owning
// CompiledFunction's Spans slice to keep this table small.
type SpanEntry struct {
	IPOffset int
	SpanIdx  int
}

// CompiledFunction is the compiler's output for one function body
// (spec.md §3.3, §6.3).
type CompiledFunction struct {
	Name        string
	ParamCount  int
	LocalCount  int // includes parameters and compiler-generated temporaries
	RestParam   bool
	IsGenerator bool
	IsAsync     bool
	Upvalues    []UpvalueDesc
	Code        []byte
	Constants   []Constant
	Exceptions  []ExceptionRegion
	DebugSpans  []SpanEntry
	Spans       []token.Span
}

// Validate checks the structural invariants spec.md §8 names as testable
// properties before the VM will execute a chunk.
func (c *CompiledFunction) Validate() error {
	if c == nil {
		return fmt.Errorf("bytecode: nil CompiledFunction")
	}
	if len(c.Constants) > MaxConstants {
		return fmt.Errorf("bytecode: constant pool exceeds %d entries", MaxConstants)
	}
	if c.LocalCount > MaxLocals {
		return fmt.Errorf("bytecode: local count exceeds %d", MaxLocals)
	}
	if c.ParamCount > MaxCallArgs {
		return fmt.Errorf("bytecode: parameter count exceeds %d", MaxCallArgs)
	}
	for _, ex := range c.Exceptions {
		if ex.TryIP < 0 || ex.EndIP > len(c.Code) || ex.TryIP > ex.EndIP {
			return fmt.Errorf("bytecode: exception region [%d,%d) out of bounds", ex.TryIP, ex.EndIP)
		}
	}
	return nil
}
