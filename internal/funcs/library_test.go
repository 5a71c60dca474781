package funcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mathgraph/internal/value"
)

func call(t *testing.T, name string, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	t.Helper()
	f, err := Builtins().Get(name)
	require.NoError(t, err)
	full := make(map[string]value.Value)
	for _, p := range f.Params {
		if p.HasDefault {
			full[p.Name] = p.Default
		}
	}
	for k, v := range kwargs {
		full[k] = v
	}
	return f.Call(args, full)
}

func TestLibrary_RegisterAndLookup(t *testing.T) {
	l := NewLibrary()
	f := value.NewFunc("one", func([]value.Value, map[string]value.Value) (value.Value, error) {
		return value.Int(1), nil
	})
	require.NoError(t, l.Register(f))
	assert.ErrorIs(t, l.Register(f), ErrDuplicate)

	got, ok := l.Lookup("one")
	require.True(t, ok)
	assert.Same(t, f, got)

	_, err := l.Get("two")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, l.Register(value.NewFunc("", nil)))
}

func TestBuiltins_NamesSorted(t *testing.T) {
	names := Builtins().Names()
	assert.IsIncreasing(t, names)
	for _, want := range []string{"add", "sub", "mul", "div", "pow", "sin", "linspace", "sum", "upper"} {
		assert.Contains(t, names, want)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		a, b value.Value
		want value.Value
	}{
		{"ints stay whole", "add", value.Int(2), value.Int(2), value.Int(4)},
		{"fractions", "add", value.Int(1), value.Float(0.5), value.Float(1.5)},
		{"text concatenation", "add", value.String("ab"), value.String("cd"), value.String("abcd")},
		{"sub", "sub", value.Int(10), value.Int(3), value.Int(7)},
		{"mul", "mul", value.Float(2.5), value.Int(2), value.Int(5)},
		{"div", "div", value.Int(1), value.Int(4), value.Float(0.25)},
		{"pow", "pow", value.Int(2), value.Int(10), value.Int(1024)},
		{"mod", "mod", value.Int(7), value.Int(3), value.Int(1)},
		{"bool as number", "add", value.Bool(true), value.Int(1), value.Int(2)},
		{"series and scalar", "mul", value.Array{value.Int(1), value.Int(2)}, value.Int(3), value.Array{value.Int(3), value.Int(6)}},
		{"scalar and series", "sub", value.Int(10), value.Array{value.Int(1), value.Int(2)}, value.Array{value.Int(9), value.Int(8)}},
		{"series pairwise", "add", value.Array{value.Int(1), value.Int(2)}, value.Array{value.Int(10), value.Int(20)}, value.Array{value.Int(11), value.Int(22)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(t, tt.fn, []value.Value{tt.a, tt.b}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArithmetic_Errors(t *testing.T) {
	_, err := call(t, "div", []value.Value{value.Int(1), value.Int(0)}, nil)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = call(t, "add", []value.Value{value.String("a"), value.Int(1)}, nil)
	assert.ErrorIs(t, err, ErrNotNumber)

	_, err = call(t, "add", []value.Value{value.Array{value.Int(1)}, value.Array{value.Int(1), value.Int(2)}}, nil)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = call(t, "sqrt", []value.Value{value.Int(-1)}, nil)
	assert.ErrorIs(t, err, ErrDomain, "NaN results are rejected")
}

func TestMath(t *testing.T) {
	got, err := call(t, "sin", []value.Value{value.Int(0)}, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Int(0), got)

	got, err = call(t, "abs", []value.Value{value.Array{value.Int(-1), value.Float(2.5)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Array{value.Int(1), value.Float(2.5)}, got)

	got, err = call(t, "round", []value.Value{value.Float(3.14159)}, map[string]value.Value{"digits": value.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, value.Float(3.14), got)

	got, err = call(t, "round", []value.Value{value.Float(2.6)}, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), got)
}

func TestSeries(t *testing.T) {
	got, err := call(t, "linspace", []value.Value{value.Int(0), value.Int(1)}, map[string]value.Value{"num": value.Int(5)})
	require.NoError(t, err)
	assert.Equal(t, value.Array{value.Int(0), value.Float(0.25), value.Float(0.5), value.Float(0.75), value.Int(1)}, got)

	got, err = call(t, "linspace", []value.Value{value.Int(0), value.Int(1)}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 50)

	got, err = call(t, "arange", []value.Value{value.Int(0), value.Int(5)}, map[string]value.Value{"step": value.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, value.Array{value.Int(0), value.Int(2), value.Int(4)}, got)

	xs := value.Array{value.Int(1), value.Int(2), value.Int(3), value.Int(6)}
	for fn, want := range map[string]value.Value{
		"sum":     value.Int(12),
		"mean":    value.Int(3),
		"minimum": value.Int(1),
		"maximum": value.Int(6),
		"length":  value.Int(4),
	} {
		got, err := call(t, fn, []value.Value{xs}, nil)
		require.NoError(t, err, fn)
		assert.Equal(t, want, got, fn)
	}

	got, err = call(t, "at", []value.Value{xs, value.Int(-1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Int(6), got)

	_, err = call(t, "at", []value.Value{xs, value.Int(4)}, nil)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = call(t, "mean", []value.Value{value.Array{}}, nil)
	assert.ErrorIs(t, err, ErrDomain)

	got, err = call(t, "zip", []value.Value{value.Array{value.String("a"), value.String("b")}, value.Array{value.Int(1), value.Int(2)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Object{"a": value.Int(1), "b": value.Int(2)}, got)
}

func TestText(t *testing.T) {
	got, err := call(t, "upper", []value.Value{value.String("hello")}, nil)
	require.NoError(t, err)
	assert.Equal(t, value.String("HELLO"), got)

	got, err = call(t, "text", []value.Value{value.Float(2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, value.String("2.0"), got)

	got, err = call(t, "join", []value.Value{value.Array{value.Int(1), value.Int(2)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, value.String("1, 2"), got)

	_, err = call(t, "lower", []value.Value{value.Int(1)}, nil)
	assert.ErrorIs(t, err, ErrDomain)
}

func TestOperatorFunc(t *testing.T) {
	name, ok := OperatorFunc("+")
	assert.True(t, ok)
	assert.Equal(t, "add", name)

	_, ok = OperatorFunc("&&")
	assert.False(t, ok)

	l := Builtins()
	for _, op := range []string{"+", "-", "*", "/", "%", "^"} {
		name, _ := OperatorFunc(op)
		_, ok := l.Lookup(name)
		assert.True(t, ok, "operator %s maps to a builtin", op)
	}
}
