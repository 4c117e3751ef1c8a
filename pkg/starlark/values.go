package starlark

import (
	"github.com/pageforge/pageforge/pkg/engine"
	"go.starlark.net/starlark"
)

// ConvertToStarlark converts an engine.Value to a Starlark value.
func ConvertToStarlark(val engine.Value) starlark.Value {
	if val == nil {
		return starlark.None
	}

	switch v := val.(type) {
	case engine.NoneValue:
		return starlark.None
	case engine.StringValue:
		return starlark.String(string(v))
	case engine.IntValue:
		return starlark.MakeInt64(int64(v))
	case engine.FloatValue:
		return starlark.Float(float64(v))
	case engine.BoolValue:
		return starlark.Bool(bool(v))
	case engine.ListValue:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ConvertToStarlark(item)
		}
		return starlark.NewList(items)
	case engine.DictValue:
		dict := starlark.NewDict(len(v))
		for key, value := range v {
			dict.SetKey(starlark.String(key), ConvertToStarlark(value))
		}
		return dict
	case engine.FuncValue:
		return wrapFunc(v)
	case Wrapper:
		return v.Value
	default:
		return starlark.String(val.String())
	}
}

// ConvertFromStarlark converts a Starlark value to an engine.Value.
// Values without a natural engine representation, such as Starlark
// functions, are kept intact inside a Wrapper so they survive the round
// trip through the environment.
func ConvertFromStarlark(val starlark.Value) engine.Value {
	if val == nil || val == starlark.None {
		return engine.NoneValue{}
	}

	switch v := val.(type) {
	case starlark.String:
		return engine.StringValue(string(v))
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return engine.IntValue(i)
		}
		return engine.StringValue(v.String())
	case starlark.Float:
		return engine.FloatValue(float64(v))
	case starlark.Bool:
		return engine.BoolValue(bool(v))
	case *starlark.List:
		items := make(engine.ListValue, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = ConvertFromStarlark(v.Index(i))
		}
		return items
	case starlark.Tuple:
		items := make(engine.ListValue, len(v))
		for i, item := range v {
			items[i] = ConvertFromStarlark(item)
		}
		return items
	case *starlark.Dict:
		dict := make(engine.DictValue, v.Len())
		for _, item := range v.Items() {
			key, value := item[0], item[1]
			if s, ok := starlark.AsString(key); ok {
				dict[s] = ConvertFromStarlark(value)
			} else {
				dict[key.String()] = ConvertFromStarlark(value)
			}
		}
		return dict
	default:
		return Wrapper{Value: val}
	}
}

// wrapFunc exposes an engine callable, such as one bound by a def block,
// as a Starlark builtin.
func wrapFunc(f engine.FuncValue) *starlark.Builtin {
	return starlark.NewBuiltin(f.Name, func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		eargs := make([]engine.Value, len(args))
		for i, a := range args {
			eargs[i] = ConvertFromStarlark(a)
		}
		res, err := f.Fn(eargs)
		if err != nil {
			return nil, err
		}
		return ConvertToStarlark(res), nil
	})
}

// Wrapper carries a Starlark value that has no direct engine counterpart.
type Wrapper struct {
	Value starlark.Value
}

func (w Wrapper) String() string {
	if s, ok := starlark.AsString(w.Value); ok {
		return s
	}
	return w.Value.String()
}

func (w Wrapper) Truth() bool {
	if w.Value == nil {
		return false
	}
	return bool(w.Value.Truth())
}

var _ engine.Value = Wrapper{}
