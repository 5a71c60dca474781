package funcs

import (
	"fmt"
	"math"

	"github.com/roach88/mathgraph/internal/value"
)

// Arithmetic broadcasts over series: a scalar paired with a series applies
// to every element, two series pair up element by element.

func registerArithmetic(l *Library) {
	bin := func(name string, f func(a, b float64) (float64, error)) {
		l.must(value.NewFunc(name, func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
			return broadcast(args[0], args[1], f)
		}, value.P("a"), value.P("b")))
	}

	l.must(value.NewFunc("add", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		if sa, ok := args[0].(value.String); ok {
			if sb, ok := args[1].(value.String); ok {
				return sa + sb, nil
			}
		}
		return broadcast(args[0], args[1], func(a, b float64) (float64, error) { return a + b, nil })
	}, value.P("a"), value.P("b")))

	bin("sub", func(a, b float64) (float64, error) { return a - b, nil })
	bin("mul", func(a, b float64) (float64, error) { return a * b, nil })
	bin("div", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("division by zero: %w", ErrDomain)
		}
		return a / b, nil
	})
	bin("mod", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("modulo by zero: %w", ErrDomain)
		}
		return math.Mod(a, b), nil
	})
	bin("pow", func(a, b float64) (float64, error) { return math.Pow(a, b), nil })
	bin("min", func(a, b float64) (float64, error) { return math.Min(a, b), nil })
	bin("max", func(a, b float64) (float64, error) { return math.Max(a, b), nil })
}

func registerMath(l *Library) {
	un1 := func(name string, f func(float64) float64) {
		l.must(value.NewFunc(name, func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
			return mapNum(args[0], func(x float64) (float64, error) { return f(x), nil })
		}, value.P("x")))
	}

	un1("neg", func(x float64) float64 { return -x })
	un1("abs", math.Abs)
	un1("sin", math.Sin)
	un1("cos", math.Cos)
	un1("tan", math.Tan)
	un1("exp", math.Exp)
	un1("sqrt", math.Sqrt)
	un1("log", math.Log)
	un1("floor", math.Floor)
	un1("ceil", math.Ceil)

	l.must(value.NewFunc("round", func(args []value.Value, kw map[string]value.Value) (value.Value, error) {
		digits, ok := value.AsFloat(kw["digits"])
		if !ok {
			return nil, fmt.Errorf("digits: %w", ErrNotNumber)
		}
		scale := math.Pow(10, math.Trunc(digits))
		return mapNum(args[0], func(x float64) (float64, error) {
			return math.Round(x*scale) / scale, nil
		})
	}, value.P("x"), value.K("digits", value.Int(0))))
}

func number(v value.Value) (float64, error) {
	f, ok := value.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("%s: %w", value.Format(v), ErrNotNumber)
	}
	return f, nil
}

// finite rejects NaN and infinities, which have no place in a graph value.
func finite(f float64) (value.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("result %v: %w", f, ErrDomain)
	}
	return value.Number(f), nil
}

func mapNum(v value.Value, f func(float64) (float64, error)) (value.Value, error) {
	if arr, ok := v.(value.Array); ok {
		out := make(value.Array, len(arr))
		for i, el := range arr {
			r, err := mapNum(el, f)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	}
	x, err := number(v)
	if err != nil {
		return nil, err
	}
	r, err := f(x)
	if err != nil {
		return nil, err
	}
	return finite(r)
}

func broadcast(a, b value.Value, f func(x, y float64) (float64, error)) (value.Value, error) {
	arrA, seriesA := a.(value.Array)
	arrB, seriesB := b.(value.Array)

	switch {
	case seriesA && seriesB:
		if len(arrA) != len(arrB) {
			return nil, fmt.Errorf("series lengths %d and %d differ: %w", len(arrA), len(arrB), ErrDomain)
		}
		out := make(value.Array, len(arrA))
		for i := range arrA {
			r, err := broadcast(arrA[i], arrB[i], f)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil

	case seriesA:
		y, err := number(b)
		if err != nil {
			return nil, err
		}
		return mapNum(a, func(x float64) (float64, error) { return f(x, y) })

	case seriesB:
		x, err := number(a)
		if err != nil {
			return nil, err
		}
		return mapNum(b, func(y float64) (float64, error) { return f(x, y) })
	}

	x, err := number(a)
	if err != nil {
		return nil, err
	}
	y, err := number(b)
	if err != nil {
		return nil, err
	}
	r, err := f(x, y)
	if err != nil {
		return nil, err
	}
	return finite(r)
}
