// Package bytecode implements L4 of the core engine: the opcode
// enumeration, per-function constant pool, and the encode/decode helpers
// the compiler (internal/compiler) emits and the VM (internal/vm) fetches
// (spec.md §4.1).
//
// Grounded on go-dws's internal/bytecode/instruction.go — a dense
// single-byte opcode enum with a documented stack effect on every opcode,
// kept < 128 entries so a Go switch over OpCode compiles to a jump table —
// generalized from DWScript's fixed 32-bit [opcode|A|B] instruction word to
// a variable-length little-endian byte stream, since spec.md §4.1 requires
// opcodes whose operand count varies (Call's spread-index list, Try's
// pending offsets, object-literal member sequences) that a fixed-width word
// cannot represent without a second indirection table.
package bytecode

// OpCode is a single bytecode instruction opcode.
type OpCode byte

const (
	// ---- Constants & locals ----
	OpLoadConstNarrow OpCode = iota // u8 pool index
	OpLoadConstWide                 // u16 pool index
	OpLoadLocal                     // u16 slot
	OpStoreLocal                    // u16 slot
	OpLoadUpvalue                   // u16 index
	OpStoreUpvalue                  // u16 index
	OpLoadGlobalNarrow              // u8 pool index (identifier)
	OpLoadGlobalWide                // u16 pool index
	OpStoreGlobalNarrow
	OpStoreGlobalWide
	OpLoadUndefined
	OpLoadNull
	OpLoadTrue
	OpLoadFalse
	OpPop
	OpDup

	// ---- Arithmetic & bitwise ----
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpUShr
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpStrictEq
	OpNe
	OpStrictNe

	// ---- Unary ----
	OpNeg
	OpPlus
	OpNot
	OpBitNot
	OpTypeof
	OpVoid
	OpDelete // dynamic property delete; target+key already on stack

	// ---- Control flow ----
	OpJump                 // i16 relative
	OpJumpIfFalse          // i16 relative, pops condition
	OpJumpIfFalseNoPop     // i16 relative, condition stays
	OpJumpIfTrue           // i16 relative, pops condition
	OpJumpIfTrueNoPop      // i16 relative, condition stays
	OpJumpIfNullish        // i16 relative, pops
	OpJumpIfNullishNoPop   // i16 relative, condition stays

	// ---- Property access ----
	OpGetPropStaticNarrow   // u8 pool index (key), preserve_this encoded in B0 below
	OpGetPropStaticWide     // u16 pool index
	OpGetPropDynamic        // key on stack top
	OpGetPropStaticThis     // static, preserve_this=true
	OpGetPropDynamicThis    // dynamic, preserve_this=true

	// ---- Property store: u8 AssignKind byte follows the key operand(s) ----
	OpSetPropStaticNarrow // u8 pool index, u8 AssignKind
	OpSetPropStaticWide   // u16 pool index, u8 AssignKind
	OpSetPropDynamic      // u8 AssignKind; key/target/value already ordered on stack

	// ---- Call ----
	OpCall // u8 meta flags, u8 argc, u8 spreadCount, spreadCount * u8 spread indices

	// ---- Aggregate construction ----
	OpNewArray  // u16 elementCount, then one u8 ArrayElemKind per element; element values are already on the stack
	OpNewObject // u16 memberCount, then per member a u8 MemberKind [+u16 key pool index]; member values are already on the stack

	// ---- Exceptions ----
	OpTry        // u8 flags (hasCatch, hasFinally), i16 catchOffset, i16 finallyOffset
	OpTryEnd     // body completed without throwing; VM retires this try's handler
	OpThrow
	OpFinallyEnd // end of a finally block; VM re-raises a pending exception that was in flight when this finally was entered, otherwise falls through

	// ---- Coroutines ----
	OpYield  // u8 flags (bit0 = delegate, i.e. `yield*`); suspends the frame, pushing the value sent into resume() once it restarts
	OpAwait  // suspends the frame on a promise, driven by the VM's promise driver rather than a manual .next() caller
	OpReturn // u16 tryDepth

	// ---- Intrinsics ----
	OpIntrinsic // u8 IntrinsicKind

	// ---- Misc ----
	OpLoadThis
	OpSequenceDiscard // keeps the top value and discards everything below it on the frame's operand stack

	opCodeCount
)

// mnemonics is used by the disassembler (SPEC_FULL.md §C.4); kept in sync
// with the const block above by hand.
var mnemonics = [opCodeCount]string{
	OpLoadConstNarrow:    "LOAD_CONST",
	OpLoadConstWide:      "LOAD_CONST_W",
	OpLoadLocal:          "LOAD_LOCAL",
	OpStoreLocal:         "STORE_LOCAL",
	OpLoadUpvalue:        "LOAD_UPVALUE",
	OpStoreUpvalue:       "STORE_UPVALUE",
	OpLoadGlobalNarrow:   "LOAD_GLOBAL",
	OpLoadGlobalWide:     "LOAD_GLOBAL_W",
	OpStoreGlobalNarrow:  "STORE_GLOBAL",
	OpStoreGlobalWide:    "STORE_GLOBAL_W",
	OpLoadUndefined:      "LOAD_UNDEFINED",
	OpLoadNull:           "LOAD_NULL",
	OpLoadTrue:           "LOAD_TRUE",
	OpLoadFalse:          "LOAD_FALSE",
	OpPop:                "POP",
	OpDup:                "DUP",
	OpAdd:                "ADD",
	OpSub:                "SUB",
	OpMul:                "MUL",
	OpDiv:                "DIV",
	OpMod:                "MOD",
	OpPow:                "POW",
	OpBitAnd:             "BIT_AND",
	OpBitOr:              "BIT_OR",
	OpBitXor:             "BIT_XOR",
	OpShl:                "SHL",
	OpShr:                "SHR",
	OpUShr:               "USHR",
	OpLt:                 "LT",
	OpLe:                 "LE",
	OpGt:                 "GT",
	OpGe:                 "GE",
	OpEq:                 "EQ",
	OpStrictEq:           "SEQ",
	OpNe:                 "NE",
	OpStrictNe:           "SNE",
	OpNeg:                "NEG",
	OpPlus:               "UPLUS",
	OpNot:                "NOT",
	OpBitNot:             "BIT_NOT",
	OpTypeof:             "TYPEOF",
	OpVoid:               "VOID",
	OpDelete:             "DELETE",
	OpJump:               "JUMP",
	OpJumpIfFalse:        "JUMP_IF_FALSE",
	OpJumpIfFalseNoPop:   "JUMP_IF_FALSE_NP",
	OpJumpIfTrue:         "JUMP_IF_TRUE",
	OpJumpIfTrueNoPop:    "JUMP_IF_TRUE_NP",
	OpJumpIfNullish:      "JUMP_IF_NULLISH",
	OpJumpIfNullishNoPop: "JUMP_IF_NULLISH_NP",
	OpGetPropStaticNarrow: "GET_PROP",
	OpGetPropStaticWide:   "GET_PROP_W",
	OpGetPropDynamic:      "GET_PROP_DYN",
	OpGetPropStaticThis:   "GET_PROP_THIS",
	OpGetPropDynamicThis:  "GET_PROP_DYN_THIS",
	OpSetPropStaticNarrow: "SET_PROP",
	OpSetPropStaticWide:   "SET_PROP_W",
	OpSetPropDynamic:      "SET_PROP_DYN",
	OpCall:               "CALL",
	OpNewArray:           "NEW_ARRAY",
	OpNewObject:          "NEW_OBJECT",
	OpTry:                "TRY",
	OpTryEnd:             "TRY_END",
	OpThrow:              "THROW",
	OpFinallyEnd:         "FINALLY_END",
	OpYield:              "YIELD",
	OpAwait:              "AWAIT",
	OpReturn:             "RETURN",
	OpIntrinsic:          "INTRINSIC",
	OpLoadThis:           "LOAD_THIS",
	OpSequenceDiscard:    "SEQ_DISCARD",
}

func (op OpCode) String() string {
	if int(op) < len(mnemonics) && mnemonics[op] != "" {
		return mnemonics[op]
	}
	return "UNKNOWN_OP"
}

// CallMeta bits for OpCall's meta flags byte (spec.md §4.3 "Calling convention").
const (
	CallMetaHasThis     = 1 << 0
	CallMetaConstructor = 1 << 1
)

// AssignKind is the byte following a property-store opcode's key operand
// (spec.md §4.1 Property store).
type AssignKind byte

const (
	AssignPlain AssignKind = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
	AssignPow
	AssignShl
	AssignShr
	AssignUShr
	AssignBitAnd
	AssignBitOr
	AssignBitXor
	AssignLogicalAnd
	AssignLogicalOr
	AssignNullish
)

// ArrayElemKind tags one element of an OpNewArray sequence.
type ArrayElemKind byte

const (
	ArrayElemValue ArrayElemKind = iota
	ArrayElemSpread
	ArrayElemElision
)

// ObjectMemberKind tags one member of an OpNewObject sequence.
type ObjectMemberKind byte

const (
	ObjectMemberStatic ObjectMemberKind = iota
	ObjectMemberDynamic
	ObjectMemberGetter
	ObjectMemberSetter
	ObjectMemberSpread
)

// IntrinsicKind enumerates the builtins OpIntrinsic can specialize
// (spec.md §4.2 "Specialization").
type IntrinsicKind byte

const (
	IntrinsicMathSin IntrinsicKind = iota
	IntrinsicMathCos
	IntrinsicMathSqrt
	IntrinsicMathAbs
	IntrinsicMathFloor
	IntrinsicMathCeil
	IntrinsicMathPow
	IntrinsicMathMin
	IntrinsicMathMax
	IntrinsicNumericEqConst
	IntrinsicIncLocal
	IntrinsicDecLocal
	IntrinsicGetIterator  // pops an iterable, pushes iterable[Symbol.iterator]()
	IntrinsicForInKeys    // pops an object, pushes a key iterator over its enumerable string keys
)

// TryFlags bits for OpTry's flags byte.
const (
	TryHasCatch   = 1 << 0
	TryHasFinally = 1 << 1
)

// YieldFlags bits for OpYield's flags byte.
const (
	YieldDelegate = 1 << 0
)
