package bytecode

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// Disassembly listings have a large, purely-textual surface where a
// hand-written assertion would just restate the listing; go-snaps gives a
// legible golden diff instead (SPEC_FULL.md §A "Testing").
func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m)
	_ = v
}

func TestDisassembleSimpleFunction(t *testing.T) {
	b := &Builder{}
	b.EmitOp(OpLoadConstNarrow)
	b.EmitU8(0)
	retSite := b.EmitOp(OpReturn)
	b.EmitU16(0)
	_ = retSite

	fn := &CompiledFunction{
		Name:       "add1",
		ParamCount: 1,
		LocalCount: 1,
		Code:       b.Code,
		Constants:  []Constant{{Kind: ConstNumber, Number: 1}},
	}

	out := Disassemble(fn, nil)
	snaps.MatchSnapshot(t, out)
}

func TestDisassembleJumpShowsResolvedTarget(t *testing.T) {
	b := &Builder{}
	b.EmitOp(OpLoadTrue)
	site := b.EmitOp(OpJumpIfFalse)
	placeholder := b.EmitI16Placeholder()
	b.EmitOp(OpLoadUndefined)
	target := b.Len()
	_ = b.PatchI16(placeholder, target)
	_ = site

	fn := &CompiledFunction{Name: "cond", Code: b.Code}
	out := Disassemble(fn, nil)
	snaps.MatchSnapshot(t, out)
}
