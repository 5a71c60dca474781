package graph

import (
	"fmt"

	"github.com/roach88/mathgraph/internal/value"
)

// BindingKind distinguishes the states of an argument slot.
type BindingKind int

const (
	// KindUnbound is an empty slot.
	KindUnbound BindingKind = iota
	// KindLiteral holds a value directly.
	KindLiteral
	// KindReference names another Node whose output feeds the slot.
	KindReference
)

func (k BindingKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindReference:
		return "reference"
	default:
		return "unbound"
	}
}

// Binding is the content of one argument slot.
type Binding struct {
	Kind  BindingKind
	Value value.Value // KindLiteral only
	Ref   string      // KindReference only
}

// Unbound is the empty binding.
var Unbound = Binding{}

// Literal binds a value directly.
func Literal(v value.Value) Binding {
	if v == nil {
		v = value.Null{}
	}
	return Binding{Kind: KindLiteral, Value: v}
}

// Reference binds the output of the named Node.
func Reference(name string) Binding {
	return Binding{Kind: KindReference, Ref: name}
}

// IsBound reports whether the slot holds anything.
func (b Binding) IsBound() bool {
	return b.Kind != KindUnbound
}

// IsReference reports whether the slot names another Node.
func (b Binding) IsReference() bool {
	return b.Kind == KindReference
}

func (b Binding) String() string {
	switch b.Kind {
	case KindLiteral:
		return value.Format(b.Value)
	case KindReference:
		return "&" + b.Ref
	default:
		return "<unbound>"
	}
}

// Connection is the one place a Node's output currently feeds: the
// consumer Node and the parameter on it. The zero value means "not
// connected".
type Connection struct {
	Consumer string
	Param    string
}

// IsZero reports whether the connection is unset.
func (c Connection) IsZero() bool {
	return c.Consumer == ""
}

func (c Connection) String() string {
	if c.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s.%s", c.Consumer, c.Param)
}

// Param pairs a parameter name with its binding, preserving declaration
// order when returned from Node.Args or Node.Kwargs.
type Param struct {
	Key     string
	Binding Binding
}

// slots is an insertion-ordered name→Binding map.
type slots struct {
	keys  []string
	items map[string]Binding
}

func newSlots(keys []string) *slots {
	s := &slots{items: make(map[string]Binding, len(keys))}
	for _, k := range keys {
		s.keys = append(s.keys, k)
		s.items[k] = Unbound
	}
	return s
}

func (s *slots) has(key string) bool {
	_, ok := s.items[key]
	return ok
}

func (s *slots) get(key string) Binding {
	return s.items[key]
}

func (s *slots) set(key string, b Binding) {
	if _, ok := s.items[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.items[key] = b
}

func (s *slots) list() []Param {
	out := make([]Param, len(s.keys))
	for i, k := range s.keys {
		out[i] = Param{Key: k, Binding: s.items[k]}
	}
	return out
}
