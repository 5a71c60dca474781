package funcs

import (
	"fmt"
	"math"

	"github.com/roach88/mathgraph/internal/value"
)

// maxSeries bounds generated series so a typo cannot exhaust memory.
const maxSeries = 1_000_000

func registerSeries(l *Library) {
	l.must(value.NewFunc("linspace", func(args []value.Value, kw map[string]value.Value) (value.Value, error) {
		start, err := number(args[0])
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		stop, err := number(args[1])
		if err != nil {
			return nil, fmt.Errorf("stop: %w", err)
		}
		n, err := count(kw["num"])
		if err != nil {
			return nil, err
		}
		out := make(value.Array, n)
		for i := range out {
			if n == 1 {
				out[i] = value.Number(start)
				break
			}
			out[i] = value.Number(start + (stop-start)*float64(i)/float64(n-1))
		}
		return out, nil
	}, value.P("start"), value.P("stop"), value.K("num", value.Int(50))))

	l.must(value.NewFunc("arange", func(args []value.Value, kw map[string]value.Value) (value.Value, error) {
		start, err := number(args[0])
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		stop, err := number(args[1])
		if err != nil {
			return nil, fmt.Errorf("stop: %w", err)
		}
		step, err := number(kw["step"])
		if err != nil {
			return nil, fmt.Errorf("step: %w", err)
		}
		if step == 0 || math.IsNaN(step) {
			return nil, fmt.Errorf("step must be non-zero: %w", ErrDomain)
		}
		n := math.Ceil((stop - start) / step)
		if n <= 0 {
			return value.Array{}, nil
		}
		if n > maxSeries {
			return nil, fmt.Errorf("%v elements: %w", n, ErrDomain)
		}
		out := make(value.Array, int(n))
		for i := range out {
			out[i] = value.Number(start + float64(i)*step)
		}
		return out, nil
	}, value.P("start"), value.P("stop"), value.K("step", value.Int(1))))

	reduce := func(name string, f func(xs []float64) (float64, error)) {
		l.must(value.NewFunc(name, func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
			xs, err := floats(args[0])
			if err != nil {
				return nil, err
			}
			r, err := f(xs)
			if err != nil {
				return nil, err
			}
			return finite(r)
		}, value.P("xs")))
	}

	reduce("sum", func(xs []float64) (float64, error) {
		total := 0.0
		for _, x := range xs {
			total += x
		}
		return total, nil
	})
	reduce("mean", func(xs []float64) (float64, error) {
		if len(xs) == 0 {
			return 0, fmt.Errorf("mean of empty series: %w", ErrDomain)
		}
		total := 0.0
		for _, x := range xs {
			total += x
		}
		return total / float64(len(xs)), nil
	})
	reduce("minimum", func(xs []float64) (float64, error) {
		if len(xs) == 0 {
			return 0, fmt.Errorf("minimum of empty series: %w", ErrDomain)
		}
		m := xs[0]
		for _, x := range xs[1:] {
			m = math.Min(m, x)
		}
		return m, nil
	})
	reduce("maximum", func(xs []float64) (float64, error) {
		if len(xs) == 0 {
			return 0, fmt.Errorf("maximum of empty series: %w", ErrDomain)
		}
		m := xs[0]
		for _, x := range xs[1:] {
			m = math.Max(m, x)
		}
		return m, nil
	})

	l.must(value.NewFunc("length", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		switch v := args[0].(type) {
		case value.Array:
			return value.Int(len(v)), nil
		case value.Object:
			return value.Int(len(v)), nil
		case value.String:
			return value.Int(len([]rune(string(v)))), nil
		default:
			return nil, fmt.Errorf("length of %s: %w", value.ClassOf(v), ErrDomain)
		}
	}, value.P("xs")))

	l.must(value.NewFunc("at", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		switch xs := args[0].(type) {
		case value.Array:
			f, err := number(args[1])
			if err != nil {
				return nil, err
			}
			i := int(f)
			if i < 0 {
				i += len(xs)
			}
			if i < 0 || i >= len(xs) {
				return nil, fmt.Errorf("index %d out of range [0, %d): %w", int(f), len(xs), ErrDomain)
			}
			return xs[i], nil
		case value.Object:
			key, ok := args[1].(value.String)
			if !ok {
				return nil, fmt.Errorf("object key must be text: %w", ErrDomain)
			}
			v, ok := xs[string(key)]
			if !ok {
				return nil, fmt.Errorf("key %q missing: %w", key, ErrDomain)
			}
			return v, nil
		default:
			return nil, fmt.Errorf("indexing %s: %w", value.ClassOf(xs), ErrDomain)
		}
	}, value.P("xs"), value.P("i")))

	l.must(value.NewFunc("concat", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		a, okA := args[0].(value.Array)
		b, okB := args[1].(value.Array)
		if !okA || !okB {
			return nil, fmt.Errorf("concat needs two series: %w", ErrDomain)
		}
		out := make(value.Array, 0, len(a)+len(b))
		out = append(out, a...)
		return append(out, b...), nil
	}, value.P("a"), value.P("b")))

	l.must(value.NewFunc("zip", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		keys, okK := args[0].(value.Array)
		vals, okV := args[1].(value.Array)
		if !okK || !okV || len(keys) != len(vals) {
			return nil, fmt.Errorf("zip needs two series of equal length: %w", ErrDomain)
		}
		out := make(value.Object, len(keys))
		for i, k := range keys {
			out[value.Format(k)] = vals[i]
		}
		return out, nil
	}, value.P("keys"), value.P("values")))
}

func floats(v value.Value) ([]float64, error) {
	arr, ok := v.(value.Array)
	if !ok {
		return nil, fmt.Errorf("expected a series, got %s: %w", value.ClassOf(v), ErrDomain)
	}
	xs := make([]float64, len(arr))
	for i, el := range arr {
		f, err := number(el)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		xs[i] = f
	}
	return xs, nil
}

func count(v value.Value) (int, error) {
	f, err := number(v)
	if err != nil {
		return 0, fmt.Errorf("num: %w", err)
	}
	if f < 0 || f > maxSeries || f != math.Trunc(f) {
		return 0, fmt.Errorf("num %v: %w", f, ErrDomain)
	}
	return int(f), nil
}
