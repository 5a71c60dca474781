package value

import (
	"errors"
	"fmt"
)

// Class is the display class of a value. It decides whether a write can take
// the cheap in-place path and where the output sink places a node.
type Class int

const (
	ClassNull Class = iota
	ClassScalar
	ClassText
	ClassSeries
	ClassInvocable
)

func (c Class) String() string {
	switch c {
	case ClassNull:
		return "null"
	case ClassScalar:
		return "scalar"
	case ClassText:
		return "text"
	case ClassSeries:
		return "series"
	case ClassInvocable:
		return "invocable"
	default:
		return "unknown"
	}
}

// ClassOf returns the display class of v.
func ClassOf(v Value) Class {
	switch v.(type) {
	case nil, Null:
		return ClassNull
	case Bool, Int, Float:
		return ClassScalar
	case String:
		return ClassText
	case Array, Object:
		return ClassSeries
	case *Func:
		return ClassInvocable
	}
	return ClassNull
}

// ErrCoerce is returned when a value cannot be coerced into a display class.
var ErrCoerce = errors.New("value cannot be coerced")

// Coerce converts v into the given display class.
//
// Within a class the value is returned unchanged. Scalars are accepted where
// text is expected (rendered with Format); nothing else crosses classes.
func Coerce(v Value, to Class) (Value, error) {
	from := ClassOf(v)
	if from == to {
		return v, nil
	}
	if to == ClassText && from == ClassScalar {
		return String(Format(v)), nil
	}
	return nil, fmt.Errorf("%w: %s into %s", ErrCoerce, from, to)
}
