package funcs

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/mathgraph/internal/value"
)

func registerText(l *Library) {
	l.must(value.NewFunc("text", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		return value.String(value.Format(args[0])), nil
	}, value.P("x")))

	caser := func(name string, c cases.Caser) {
		l.must(value.NewFunc(name, func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
			s, ok := args[0].(value.String)
			if !ok {
				return nil, fmt.Errorf("%s of %s: %w", name, value.ClassOf(args[0]), ErrDomain)
			}
			return value.String(c.String(string(s))), nil
		}, value.P("s")))
	}
	caser("upper", cases.Upper(language.Und))
	caser("lower", cases.Lower(language.Und))
	caser("title", cases.Title(language.Und))

	l.must(value.NewFunc("join", func(args []value.Value, kw map[string]value.Value) (value.Value, error) {
		xs, ok := args[0].(value.Array)
		if !ok {
			return nil, fmt.Errorf("join needs a series: %w", ErrDomain)
		}
		sep, ok := kw["sep"].(value.String)
		if !ok {
			return nil, fmt.Errorf("sep must be text: %w", ErrDomain)
		}
		parts := make([]string, len(xs))
		for i, x := range xs {
			parts[i] = value.Format(x)
		}
		return value.String(strings.Join(parts, string(sep))), nil
	}, value.P("xs"), value.K("sep", value.String(", "))))
}
