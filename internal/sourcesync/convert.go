package sourcesync

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/roach88/mathgraph/internal/value"
)

// fromCty converts a known cty value into a Value. Whole numbers become
// Int; everything else numeric becomes Float.
func fromCty(v cty.Value) (value.Value, error) {
	if v.IsNull() {
		return value.Null{}, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return value.String(v.AsString()), nil

	case ty == cty.Number:
		if v.AsBigFloat().IsInt() {
			var i int64
			if err := gocty.FromCtyValue(v, &i); err == nil {
				return value.Int(i), nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return value.Float(f), nil

	case ty == cty.Bool:
		var b bool
		if err := gocty.FromCtyValue(v, &b); err != nil {
			return nil, fmt.Errorf("could not convert bool: %w", err)
		}
		return value.Bool(b), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		arr := value.Array{}
		it := v.ElementIterator()
		for it.Next() {
			_, el := it.Element()
			conv, err := fromCty(el)
			if err != nil {
				return nil, err
			}
			arr = append(arr, conv)
		}
		return arr, nil

	case ty.IsObjectType() || ty.IsMapType():
		obj := value.Object{}
		it := v.ElementIterator()
		for it.Next() {
			key, el := it.Element()
			conv, err := fromCty(el)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			obj[key.AsString()] = conv
		}
		return obj, nil

	default:
		return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
	}
}
