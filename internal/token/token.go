// Package token defines source position and span types shared by the AST,
// the compiler's debug-span map, and the error catalog.
package token

import "fmt"

// Position is a single point in source text.
type Position struct {
	Line   int // 1-based
	Column int // 1-based, in runes
	Offset int // 0-based byte offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsZero reports whether the position was never set.
func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0 && p.Offset == 0
}

// Span is a half-open source range [Start, End) carried by every AST node
// (spec.md §6.1: "Every node carries a source span; spans are propagated
// into the debug-span map").
type Span struct {
	Start Position
	End   Position
}

func (s Span) String() string {
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%d:%d-%d", s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%s-%s", s.Start, s.End)
}

// IsZero reports whether the span was never set (e.g. a compiler-synthesized
// node such as a desugared for-of temporary).
func (s Span) IsZero() bool {
	return s.Start.IsZero() && s.End.IsZero()
}
