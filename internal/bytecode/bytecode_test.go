package bytecode

import "testing"

func TestBuilderEmitAndPatchJump(t *testing.T) {
	b := &Builder{}
	b.EmitOp(OpJump)
	site := b.EmitI16Placeholder()
	b.EmitOp(OpLoadUndefined) // target
	target := b.Len() - 1

	if err := b.PatchI16(site, target); err != nil {
		t.Fatalf("PatchI16: %v", err)
	}

	rel := ReadI16(b.Code, site)
	if got := JumpTarget(site, rel); got != target {
		t.Errorf("JumpTarget = %d, want %d", got, target)
	}
}

func TestPatchI16OverflowRejected(t *testing.T) {
	b := &Builder{}
	site := b.EmitI16Placeholder()
	far := site + 2 + MaxJumpAbs + 10
	if err := b.PatchI16(site, far); err == nil {
		t.Error("expected jump offset exceeded error")
	}
}

func TestValidateRejectsOversizedConstantPool(t *testing.T) {
	fn := &CompiledFunction{Constants: make([]Constant, MaxConstants+1)}
	if err := fn.Validate(); err == nil {
		t.Error("expected Validate to reject oversized constant pool")
	}
}

func TestValidateRejectsBadExceptionRegion(t *testing.T) {
	fn := &CompiledFunction{
		Code:       make([]byte, 4),
		Exceptions: []ExceptionRegion{{TryIP: 2, EndIP: 10}},
	}
	if err := fn.Validate(); err == nil {
		t.Error("expected Validate to reject out-of-bounds exception region")
	}
}

func TestValidateAcceptsWellFormedChunk(t *testing.T) {
	fn := &CompiledFunction{
		Code:       make([]byte, 4),
		Exceptions: []ExceptionRegion{{TryIP: 0, EndIP: 4}},
	}
	if err := fn.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
