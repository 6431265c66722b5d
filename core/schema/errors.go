package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBaseSchema is returned when an extension names a parent that does not exist.
	ErrUnknownBaseSchema = errors.New("unknown base schema")

	// ErrFieldKindConflict is returned when an extension redefines a field with a different kind.
	ErrFieldKindConflict = errors.New("field kind conflict")

	// ErrTypeMismatch is returned when a value does not have the shape its field type requires.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidEnumValue is returned when a closed enum receives a value outside its set.
	ErrInvalidEnumValue = errors.New("invalid enum value")

	// ErrUnknownField is returned for a field name a record does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrDuplicateField is returned when a record is built with the same field name twice.
	ErrDuplicateField = errors.New("duplicate field")

	ErrUnknownType   = errors.New("unknown type")
	ErrUnknownTarget = errors.New("unknown target")

	// ErrMissingRequired is a type mismatch: the value is absent where the field is required.
	ErrMissingRequired = fmt.Errorf("%w: required field missing", ErrTypeMismatch)
)
