package persist

import (
	"database/sql"
	"fmt"

	"github.com/roach88/mathgraph/internal/document"
	"github.com/roach88/mathgraph/internal/value"
)

// nodeRow is one NodeRecord encoded for the nodes table.
type nodeRow struct {
	name     string
	fn       sql.NullString
	literal  sql.NullString
	posX     sql.NullFloat64
	posY     sql.NullFloat64
	consumer sql.NullString
	param    sql.NullString
	args     string
	kwargs   string
	options  string
}

// encodeNode serializes rec for storage and returns the Value that its
// content hash is computed over.
func encodeNode(rec document.NodeRecord) (nodeRow, value.Object, error) {
	row := nodeRow{name: rec.Name}
	obj := value.Object{"name": value.String(rec.Name)}

	if rec.Func != "" {
		row.fn = sql.NullString{String: rec.Func, Valid: true}
		obj["func"] = value.String(rec.Func)
	} else {
		lit, err := value.FromNative(rec.Value)
		if err != nil {
			return row, nil, fmt.Errorf("node %q: value: %w", rec.Name, err)
		}
		data, err := value.MarshalCanonical(lit)
		if err != nil {
			return row, nil, fmt.Errorf("node %q: value: %w", rec.Name, err)
		}
		row.literal = sql.NullString{String: string(data), Valid: true}
		obj["value"] = lit
	}

	if rec.Position != nil {
		row.posX = sql.NullFloat64{Float64: rec.Position.X, Valid: true}
		row.posY = sql.NullFloat64{Float64: rec.Position.Y, Valid: true}
		obj["position"] = value.Object{
			"x": value.Float(rec.Position.X),
			"y": value.Float(rec.Position.Y),
		}
	}
	if rec.Connection != nil {
		row.consumer = sql.NullString{String: rec.Connection.Consumer, Valid: true}
		row.param = sql.NullString{String: rec.Connection.Param, Valid: true}
		obj["connection"] = value.Object{
			"consumer": value.String(rec.Connection.Consumer),
			"param":    value.String(rec.Connection.Param),
		}
	}

	args, err := bindingsValue(rec.Args)
	if err != nil {
		return row, nil, fmt.Errorf("node %q: args: %w", rec.Name, err)
	}
	kwargs, err := bindingsValue(rec.Kwargs)
	if err != nil {
		return row, nil, fmt.Errorf("node %q: kwargs: %w", rec.Name, err)
	}
	options := value.Object{}
	for k, v := range rec.Options {
		options[k] = value.String(v)
	}
	obj["args"], obj["kwargs"], obj["options"] = args, kwargs, options

	if row.args, err = canonical(args); err != nil {
		return row, nil, fmt.Errorf("node %q: args: %w", rec.Name, err)
	}
	if row.kwargs, err = canonical(kwargs); err != nil {
		return row, nil, fmt.Errorf("node %q: kwargs: %w", rec.Name, err)
	}
	if row.options, err = canonical(options); err != nil {
		return row, nil, fmt.Errorf("node %q: options: %w", rec.Name, err)
	}
	return row, obj, nil
}

// decodeNode is the inverse of encodeNode.
func decodeNode(row nodeRow) (document.NodeRecord, error) {
	rec := document.NodeRecord{Name: row.name}

	if row.fn.Valid {
		rec.Func = row.fn.String
	} else if row.literal.Valid {
		lit, err := value.Unmarshal([]byte(row.literal.String))
		if err != nil {
			return rec, fmt.Errorf("node %q: value: %w", row.name, err)
		}
		rec.Value = value.ToNative(lit)
	}

	if row.posX.Valid && row.posY.Valid {
		rec.Position = &document.Position{X: row.posX.Float64, Y: row.posY.Float64}
	}
	if row.consumer.Valid && row.param.Valid {
		rec.Connection = &document.ConnectionRecord{Consumer: row.consumer.String, Param: row.param.String}
	}

	var err error
	if rec.Args, err = decodeBindings(row.args); err != nil {
		return rec, fmt.Errorf("node %q: args: %w", row.name, err)
	}
	if rec.Kwargs, err = decodeBindings(row.kwargs); err != nil {
		return rec, fmt.Errorf("node %q: kwargs: %w", row.name, err)
	}

	opts, err := decodeObject(row.options)
	if err != nil {
		return rec, fmt.Errorf("node %q: options: %w", row.name, err)
	}
	for k, v := range opts {
		s, ok := v.(value.String)
		if !ok {
			return rec, fmt.Errorf("node %q: option %q is not text", row.name, k)
		}
		if rec.Options == nil {
			rec.Options = make(map[string]string, len(opts))
		}
		rec.Options[k] = string(s)
	}
	return rec, nil
}

// bindingsValue encodes bindings as {param: {"ref": name} | {"value": v}}.
func bindingsValue(bindings map[string]document.BindingRecord) (value.Object, error) {
	out := value.Object{}
	for key, b := range bindings {
		if b.IsReference() {
			out[key] = value.Object{"ref": value.String(b.Ref)}
			continue
		}
		lit, err := value.FromNative(b.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = value.Object{"value": lit}
	}
	return out, nil
}

func decodeBindings(data string) (map[string]document.BindingRecord, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, nil
	}
	out := make(map[string]document.BindingRecord, len(obj))
	for key, raw := range obj {
		entry, ok := raw.(value.Object)
		if !ok {
			return nil, fmt.Errorf("%s: binding is not an object", key)
		}
		var b document.BindingRecord
		if ref, ok := entry["ref"].(value.String); ok {
			b.Ref = string(ref)
		} else if lit, ok := entry["value"]; ok {
			b.Value = value.ToNative(lit)
		} else {
			return nil, fmt.Errorf("%s: binding has neither ref nor value", key)
		}
		out[key] = b
	}
	return out, nil
}

func decodeObject(data string) (value.Object, error) {
	v, err := value.Unmarshal([]byte(data))
	if err != nil {
		return nil, err
	}
	obj, ok := v.(value.Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %s", value.ClassOf(v))
	}
	return obj, nil
}

func marshalOutput(names []string) (string, error) {
	arr := make(value.Array, len(names))
	for i, n := range names {
		arr[i] = value.String(n)
	}
	return canonical(arr)
}

func unmarshalOutput(data string) ([]string, error) {
	v, err := value.Unmarshal([]byte(data))
	if err != nil {
		return nil, err
	}
	arr, ok := v.(value.Array)
	if !ok {
		return nil, fmt.Errorf("output: expected array")
	}
	var names []string
	for i, el := range arr {
		s, ok := el.(value.String)
		if !ok {
			return nil, fmt.Errorf("output[%d]: expected text", i)
		}
		names = append(names, string(s))
	}
	return names, nil
}

func canonical(v value.Value) (string, error) {
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
