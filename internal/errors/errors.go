// Package errors defines the category-tagged error type every engine-side
// failure surfaces through: compile diagnostics, internal invariant
// violations, and the boundary between those and a thrown JS value.
//
// Grounded on internal/interp/errors.InterpreterError: the same category +
// message + optional position shape, generalized from a fixed five-category
// enum to the categories this engine's pipeline actually produces.
package errors

import (
	"fmt"

	"github.com/lumenjs/engine/internal/token"
)

// Category tags what part of the pipeline raised an EngineError (spec.md
// §7).
type Category string

const (
	CategoryCompile   Category = "Compile"
	CategoryType      Category = "Type"
	CategoryRuntime   Category = "Runtime"
	CategoryReference Category = "Reference"
	CategorySyntax    Category = "Syntax"
	CategoryRange     Category = "Range"
	CategoryInternal  Category = "Internal"
)

// EngineError is an engine-authored failure: a compile-time diagnostic or an
// internal invariant violation. It never wraps a thrown JS value — see
// RuntimeException for that.
type EngineError struct {
	Category Category
	Message  string
	Span     token.Span
	HasSpan  bool
	Err      error
}

func (e *EngineError) Error() string {
	if e.HasSpan {
		return fmt.Sprintf("%s error at %s: %s", e.Category, e.Span.Start, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

func New(category Category, span token.Span, format string, args ...any) *EngineError {
	return &EngineError{Category: category, Message: fmt.Sprintf(format, args...), Span: span, HasSpan: !span.IsZero()}
}

func NewCompile(span token.Span, format string, args ...any) *EngineError {
	return New(CategoryCompile, span, format, args...)
}

func NewInternal(format string, args ...any) *EngineError {
	return New(CategoryInternal, token.Span{}, format, args...)
}

func Wrap(err error, category Category, span token.Span) *EngineError {
	return &EngineError{Category: category, Message: err.Error(), Span: span, HasSpan: !span.IsZero(), Err: err}
}

// CompileErrors batches every diagnostic collected during one compilation
// (spec.md §4.2, §7 "Failure semantics" — compilation reports as many
// errors as it can rather than stopping at the first).
type CompileErrors []*EngineError

func (c CompileErrors) Error() string {
	switch len(c) {
	case 0:
		return "no compile errors"
	case 1:
		return c[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more compile errors)", c[0].Error(), len(c)-1)
	}
}

func (c CompileErrors) HasErrors() bool { return len(c) > 0 }
