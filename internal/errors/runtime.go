package errors

import (
	"fmt"

	"github.com/lumenjs/engine/internal/value"
)

// RuntimeException carries a thrown JS value up through Go's error
// interface so the VM's exception-unwinding machinery and an embedding host
// can both use ordinary error-handling idiom to observe it (spec.md §6.4
// "Throw raises a RuntimeException carrying the thrown value", distinct
// from EngineError which is reserved for engine-authored failures).
type RuntimeException struct {
	Thrown value.Value
	// Describe renders Thrown as a string for Error(), supplied by the
	// caller since this package cannot itself stringify an arbitrary JS
	// object (that requires the heap/object layers it must not import).
	Describe func(value.Value) string
}

func NewRuntimeException(v value.Value, describe func(value.Value) string) *RuntimeException {
	return &RuntimeException{Thrown: v, Describe: describe}
}

func (r *RuntimeException) Error() string {
	if r.Describe != nil {
		return fmt.Sprintf("uncaught exception: %s", r.Describe(r.Thrown))
	}
	return fmt.Sprintf("uncaught exception: %s", r.Thrown.Kind())
}
