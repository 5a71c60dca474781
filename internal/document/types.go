// Package document reads and writes graph documents.
//
// A Document lists every Node of a graph with its value or function name,
// its argument bindings, its canvas position and its display options. The
// same shape is read from YAML or CUE files, written back as YAML, and
// stored per Node by the persist package.
//
// Apply rebuilds a graph from a Document in two passes: every Node is
// created with its literal parameters first, then References are
// attached, so a binding may name a Node that appears later in the file.
package document

import (
	"github.com/roach88/mathgraph/internal/value"
)

// Document is a serialized graph.
type Document struct {
	Name   string       `yaml:"name,omitempty" json:"name,omitempty"`
	Nodes  []NodeRecord `yaml:"nodes" json:"nodes"`
	Output []string     `yaml:"output,omitempty" json:"output,omitempty"`
}

// NodeRecord is one Node.
//
// Func names a library function and makes the Node invocable; otherwise
// Value is the literal the Node wraps.
type NodeRecord struct {
	Name       string                   `yaml:"name" json:"name"`
	Func       string                   `yaml:"func,omitempty" json:"func,omitempty"`
	Value      any                      `yaml:"value,omitempty" json:"value,omitempty"`
	Position   *Position                `yaml:"position,omitempty" json:"position,omitempty"`
	Connection *ConnectionRecord        `yaml:"connection,omitempty" json:"connection,omitempty"`
	Args       map[string]BindingRecord `yaml:"args,omitempty" json:"args,omitempty"`
	Kwargs     map[string]BindingRecord `yaml:"kwargs,omitempty" json:"kwargs,omitempty"`
	Options    map[string]string        `yaml:"options,omitempty" json:"options,omitempty"`
}

// Position is a Node's place on the canvas.
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// ConnectionRecord is where a Node's output feeds. It is informational:
// Apply derives connections from References.
type ConnectionRecord struct {
	Consumer string `yaml:"consumer" json:"consumer"`
	Param    string `yaml:"param" json:"param"`
}

// BindingRecord is one bound parameter: a Reference when Ref is set,
// otherwise the literal Value.
type BindingRecord struct {
	Ref   string `yaml:"ref,omitempty" json:"ref,omitempty"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`
}

// IsReference reports whether the binding names another Node.
func (b BindingRecord) IsReference() bool {
	return b.Ref != ""
}

// Bindings returns args and kwargs together, args first.
func (r NodeRecord) Bindings() map[string]BindingRecord {
	out := make(map[string]BindingRecord, len(r.Args)+len(r.Kwargs))
	for k, b := range r.Args {
		out[k] = b
	}
	for k, b := range r.Kwargs {
		out[k] = b
	}
	return out
}

// Node returns the record with the given name.
func (d *Document) Node(name string) (NodeRecord, bool) {
	for _, r := range d.Nodes {
		if r.Name == name {
			return r, true
		}
	}
	return NodeRecord{}, false
}

// literal converts a decoded literal into a Value.
func literal(v any) (value.Value, error) {
	return value.FromNative(v)
}
