package errors

import (
	stderrors "errors"
	"testing"

	"github.com/lumenjs/engine/internal/token"
	"github.com/lumenjs/engine/internal/value"
)

func TestEngineErrorFormatsWithAndWithoutSpan(t *testing.T) {
	withSpan := NewCompile(token.Span{Start: token.Position{Line: 2, Column: 3}}, "unexpected token %q", ";")
	if got := withSpan.Error(); got == "" {
		t.Fatal("Error() returned empty string")
	}
	withoutSpan := NewInternal("unreachable opcode %d", 7)
	if withoutSpan.HasSpan {
		t.Error("NewInternal should not carry a span")
	}
}

func TestEngineErrorUnwrap(t *testing.T) {
	base := stderrors.New("boom")
	wrapped := Wrap(base, CategoryRuntime, token.Span{})
	if !stderrors.Is(wrapped, base) {
		t.Error("errors.Is should see through Unwrap")
	}
}

func TestCompileErrorsAggregateMessage(t *testing.T) {
	var batch CompileErrors
	if batch.HasErrors() {
		t.Error("empty batch reports HasErrors")
	}
	batch = append(batch, NewCompile(token.Span{}, "first"), NewCompile(token.Span{}, "second"))
	if !batch.HasErrors() {
		t.Error("non-empty batch should report HasErrors")
	}
	if got := batch.Error(); got == "" {
		t.Error("CompileErrors.Error() returned empty string")
	}
}

func TestRuntimeExceptionCarriesThrownValue(t *testing.T) {
	exc := NewRuntimeException(value.Num(404), func(v value.Value) string { return "404" })
	if exc.Thrown.Number() != 404 {
		t.Errorf("Thrown = %v, want 404", exc.Thrown)
	}
	if got := exc.Error(); got == "" {
		t.Error("Error() returned empty string")
	}
}
