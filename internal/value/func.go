package value

import (
	"fmt"
	"strings"
)

// Param describes one parameter of an invocable.
// Parameters without a default are positional; parameters with a default
// are keyword parameters.
type Param struct {
	Name       string
	Default    Value
	HasDefault bool
}

// P declares a positional parameter.
func P(name string) Param {
	return Param{Name: name}
}

// K declares a keyword parameter with a default.
func K(name string, def Value) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// Impl is the Go implementation behind a Func. args holds positional values
// in declaration order, kwargs holds every keyword parameter.
type Impl func(args []Value, kwargs map[string]Value) (Value, error)

// Func is an invocable value.
type Func struct {
	Name   string
	Params []Param
	Fn     Impl
}

func (*Func) value() {}

// NewFunc creates an invocable.
func NewFunc(name string, fn Impl, params ...Param) *Func {
	return &Func{Name: name, Params: params, Fn: fn}
}

// String renders the function signature, e.g. "<add(a, b, scale=1)>".
func (f *Func) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		if p.HasDefault {
			parts[i] = p.Name + "=" + Format(p.Default)
		} else {
			parts[i] = p.Name
		}
	}
	return fmt.Sprintf("<%s(%s)>", f.Name, strings.Join(parts, ", "))
}

// Call invokes the function, converting a panic into an error so a broken
// implementation cannot take the graph down.
func (f *Func) Call(args []Value, kwargs map[string]Value) (result Value, err error) {
	if f.Fn == nil {
		return nil, fmt.Errorf("%s: no implementation", f.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", f.Name, r)
		}
	}()
	result, err = f.Fn(args, kwargs)
	if err == nil && result == nil {
		result = Null{}
	}
	return result, err
}

// ArgSpec is the parameter shape of a value.
type ArgSpec struct {
	Positional []string
	Keyword    []Param
}

// ValueParam is the single pseudo-parameter exposed by non-invocable values.
const ValueParam = "value"

// SpecOf derives the argument shape of v. Non-invocable values expose the
// single keyword parameter "value" defaulting to v itself.
func SpecOf(v Value) ArgSpec {
	f, ok := v.(*Func)
	if !ok {
		return ArgSpec{Keyword: []Param{K(ValueParam, v)}}
	}
	var spec ArgSpec
	for _, p := range f.Params {
		if p.HasDefault {
			spec.Keyword = append(spec.Keyword, p)
		} else {
			spec.Positional = append(spec.Positional, p.Name)
		}
	}
	return spec
}

// Names returns every parameter name, positional first.
func (s ArgSpec) Names() []string {
	names := make([]string, 0, len(s.Positional)+len(s.Keyword))
	names = append(names, s.Positional...)
	for _, p := range s.Keyword {
		names = append(names, p.Name)
	}
	return names
}

// Has reports whether name is a parameter of the shape.
func (s ArgSpec) Has(name string) bool {
	for _, n := range s.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// SameShape reports whether s and o declare the same parameter names in the
// same order. Defaults are not compared.
func (s ArgSpec) SameShape(o ArgSpec) bool {
	if len(s.Positional) != len(o.Positional) || len(s.Keyword) != len(o.Keyword) {
		return false
	}
	for i := range s.Positional {
		if s.Positional[i] != o.Positional[i] {
			return false
		}
	}
	for i := range s.Keyword {
		if s.Keyword[i].Name != o.Keyword[i].Name {
			return false
		}
	}
	return true
}
