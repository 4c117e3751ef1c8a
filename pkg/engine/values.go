package engine

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Value is an abstract value shared between the executor and the expression
// evaluator. It defines string conversion and truthiness semantics.
type Value interface {
	String() string
	Truth() bool
}

// Indexable is implemented by values that support positional access. The
// executor destructures multi-target for-loop values through it.
type Indexable interface {
	Len() int
	Index(i int) Value
}

// Environment is the mutable name-to-value bindings visible to evaluated
// expressions and statements. It is not safe for concurrent executions
// without external synchronization.
type Environment map[string]Value

// NoneValue represents the absence of a value. It stringifies empty.
type NoneValue struct{}

func (NoneValue) String() string { return "" }
func (NoneValue) Truth() bool    { return false }

// BoolValue wraps a boolean.
type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return "True"
	}
	return "False"
}
func (b BoolValue) Truth() bool { return bool(b) }

// IntValue wraps a 64-bit integer.
type IntValue int64

func (i IntValue) String() string { return strconv.FormatInt(int64(i), 10) }
func (i IntValue) Truth() bool    { return int64(i) != 0 }

// FloatValue wraps a 64-bit float.
type FloatValue float64

func (f FloatValue) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (f FloatValue) Truth() bool    { return float64(f) != 0 }

// StringValue wraps a string.
type StringValue string

func (s StringValue) String() string { return string(s) }
func (s StringValue) Truth() bool    { return len(s) > 0 }

// ListValue wraps a list of values.
type ListValue []Value

func (l ListValue) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}
func (l ListValue) Truth() bool        { return len(l) > 0 }
func (l ListValue) Len() int           { return len(l) }
func (l ListValue) Index(i int) Value  { return l[i] }

// DictValue wraps a string-keyed dictionary of values.
type DictValue map[string]Value

func (d DictValue) String() string { return "{...}" }
func (d DictValue) Truth() bool    { return len(d) > 0 }

// FuncValue wraps a callable that can be invoked from evaluated
// expressions. Def blocks bind one of these in the environment.
type FuncValue struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

func (f FuncValue) String() string { return "<function " + f.Name + ">" }
func (f FuncValue) Truth() bool    { return true }

// NewEnvironmentFromAny converts a map of plain Go values into an
// Environment, recursively converting nested maps and slices.
func NewEnvironmentFromAny(m map[string]any) Environment {
	env := Environment{}
	for k, v := range m {
		env[k] = FromGo(v)
	}
	return env
}

// FromGo converts a Go value to a Value.
func FromGo(v any) Value {
	if v == nil {
		return NoneValue{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case float32:
		return FloatValue(float64(t))
	case float64:
		return FloatValue(t)
	case []byte:
		return StringValue(string(t))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make(ListValue, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out
	case reflect.Map:
		out := DictValue{}
		it := rv.MapRange()
		for it.Next() {
			out[fmt.Sprintf("%v", it.Key().Interface())] = FromGo(it.Value().Interface())
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NoneValue{}
		}
		return FromGo(rv.Elem().Interface())
	}
	return StringValue(fmt.Sprintf("%v", v))
}
