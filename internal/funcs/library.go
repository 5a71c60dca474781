// Package funcs provides the builtin invocables a graph can wrap.
//
// A Library maps names to *value.Func. Documents, save files and source
// sync resolve function names through a Library, so a graph built from any
// of them only ever calls registered functions.
package funcs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/mathgraph/internal/value"
)

var (
	// ErrDuplicate is returned when registering a name twice.
	ErrDuplicate = errors.New("function already registered")
	// ErrNotFound is returned for an unregistered name.
	ErrNotFound = errors.New("function not found")
	// ErrNotNumber is returned when an argument is not numeric.
	ErrNotNumber = errors.New("argument is not a number")
	// ErrDomain is returned when an argument is outside a function's domain.
	ErrDomain = errors.New("argument outside domain")
)

// Library is a set of named functions.
type Library struct {
	funcs map[string]*value.Func
}

// NewLibrary creates an empty Library.
func NewLibrary() *Library {
	return &Library{funcs: make(map[string]*value.Func)}
}

// Builtins returns a Library holding every builtin.
func Builtins() *Library {
	l := NewLibrary()
	registerArithmetic(l)
	registerMath(l)
	registerSeries(l)
	registerText(l)
	return l
}

// Register adds f under its own name.
func (l *Library) Register(f *value.Func) error {
	if f == nil || f.Name == "" {
		return fmt.Errorf("register: function needs a name")
	}
	if _, ok := l.funcs[f.Name]; ok {
		return fmt.Errorf("register %q: %w", f.Name, ErrDuplicate)
	}
	l.funcs[f.Name] = f
	return nil
}

// Lookup returns the named function.
func (l *Library) Lookup(name string) (*value.Func, bool) {
	f, ok := l.funcs[name]
	return f, ok
}

// Get returns the named function or an ErrNotFound error.
func (l *Library) Get(name string) (*value.Func, error) {
	f, ok := l.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return f, nil
}

// Names returns every registered name, sorted.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.funcs))
	for name := range l.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered functions.
func (l *Library) Len() int {
	return len(l.funcs)
}

// must registers builtins; a clash is a programming error.
func (l *Library) must(f *value.Func) {
	if err := l.Register(f); err != nil {
		panic(err)
	}
}

// operators maps binary operator tokens to builtin names.
var operators = map[string]string{
	"+": "add",
	"-": "sub",
	"*": "mul",
	"/": "div",
	"%": "mod",
	"^": "pow",
}

// OperatorFunc returns the builtin name implementing a binary operator.
func OperatorFunc(op string) (string, bool) {
	name, ok := operators[op]
	return name, ok
}
