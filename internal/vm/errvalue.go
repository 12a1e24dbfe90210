package vm

import (
	"github.com/lumenjs/engine/internal/errors"
	"github.com/lumenjs/engine/internal/object"
	"github.com/lumenjs/engine/internal/statics"
	"github.com/lumenjs/engine/internal/token"
	"github.com/lumenjs/engine/internal/value"
)

func (v *VM) typeError(format string, args ...any) error {
	return errors.New(errors.CategoryType, token.Span{}, format, args...)
}

func (v *VM) referenceError(format string, args ...any) error {
	return errors.New(errors.CategoryReference, token.Span{}, format, args...)
}

func (v *VM) rangeError(format string, args ...any) error {
	return errors.New(errors.CategoryRange, token.Span{}, format, args...)
}

// protoForCategory maps a thrown error's category to the constructor
// prototype its Error instance is built from (spec.md §7 "Error
// hierarchy").
func protoForCategory(cat errors.Category) statics.ProtoKey {
	switch cat {
	case errors.CategoryType:
		return statics.ProtoTypeError
	case errors.CategoryRange:
		return statics.ProtoRangeError
	case errors.CategoryReference:
		return statics.ProtoReferenceError
	case errors.CategorySyntax, errors.CategoryCompile:
		return statics.ProtoSyntaxError
	default:
		return statics.ProtoError
	}
}

// errorToValue converts a Go-side failure into a thrown JS value (spec.md
// §7 "every engine-raised failure surfaces as an Error instance on the
// object model, not a bare Go error, once it crosses into script-visible
// control flow"). A *RuntimeException already carries its own Value and is
// returned unwrapped; any other error is treated as an *errors.EngineError
// (or wrapped as an Internal one) and turned into a fresh Error object
// rooted against the currently executing context.
func (v *VM) errorToValue(err error) value.Value {
	if re, ok := err.(*RuntimeException); ok {
		return re.Value
	}
	ee, ok := err.(*errors.EngineError)
	if !ok {
		ee = errors.NewInternal("%s", err.Error())
	}
	key := protoForCategory(ee.Category)
	name := string(ee.Category) + "Error"
	if key == statics.ProtoError {
		name = "Error"
	}
	obj := object.NewErrorObject(
		v.statics.Prototype(key),
		v.strings.Intern(name),
		v.strings.Intern(ee.Message),
		nil,
	)
	obj.SetProperty(v.alloc, object.StringKey(v.strings.Intern("message")), object.PropertyValue{
		Static: value.Str(v.strings.Intern(ee.Message)),
		Flags:  object.DefaultDataDescriptor(),
	})
	obj.SetProperty(v.alloc, object.StringKey(v.strings.Intern("name")), object.PropertyValue{
		Static: value.Str(v.strings.Intern(name)),
		Flags:  object.DefaultDataDescriptor(),
	})
	id := v.alloc.AllocObject(obj, v)
	return value.Obj(id)
}
