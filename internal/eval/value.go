// SPDX-License-Identifier: AGPL-3.0-or-later

// Package eval implements the modl evaluator: the value universe, lexical
// environments, and the recursive reduction of expression trees.
package eval

import (
	"math"
	"sort"
	"strconv"

	"github.com/modl-lang/modl/internal/node"
)

// Value is the interface all runtime values implement. The marker method
// keeps the set closed to this package.
type Value interface {
	value()
}

// Number is a numeric value.
type Number float64

func (Number) value() {}

// String is a text value.
type String string

func (String) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Null is the absent value: the result of a definition, and what missing
// procedure arguments bind to.
type Null struct{}

func (Null) value() {}

// List is an ordered sequence of values, produced by effect handlers.
type List struct {
	Items []Value
}

func (List) value() {}

// Field is one key-value pair in a Record.
type Field struct {
	Key   string
	Value Value
}

// Record is an ordered map of string keys to values. Effect handlers use
// it for structured results, including value-level errors.
type Record struct {
	Fields []Field
}

func (Record) value() {}

// NewRecord builds a record from fields in order.
func NewRecord(fields ...Field) Record {
	return Record{Fields: fields}
}

// ErrorValue builds the conventional value-level error record. Programs
// branch on these with a conditional; they are not evaluator failures.
func ErrorValue(msg string) Record {
	return NewRecord(Field{Key: "error", Value: String(msg)})
}

// Get retrieves a field by key.
func (r Record) Get(key string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Closure is a procedure node paired with the environment captured when it
// was created. The env pointer is repointed once when a definition binds
// the closure to a name, so the body can resolve that name recursively.
type Closure struct {
	Params []string
	Body   *node.Node
	env    *Env
}

func (*Closure) value() {}

// NewClosure builds a closure over an environment. Used when
// reconstructing persisted environments; live closures come from the
// evaluator.
func NewClosure(params []string, body *node.Node, env *Env) *Closure {
	return &Closure{Params: params, Body: body, env: env}
}

// Env returns the captured environment.
func (c *Closure) Env() *Env { return c.env }

// Rebind repoints the captured environment, mirroring what a definition
// does for recursive closures. Callers use it after reloading an
// environment so restored procedures can see their siblings.
func (c *Closure) Rebind(env *Env) { c.env = env }

// Truthy returns the boolean interpretation of a value. Null, false, 0,
// and "" are falsy; everything else is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(val)
	case Number:
		return float64(val) != 0
	case String:
		return string(val) != ""
	default:
		return true
	}
}

// Equal compares two values structurally. Closures compare by identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case Record:
		bv, ok := b.(Record)
		if !ok || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for _, f := range av.Fields {
			other, found := bv.Get(f.Key)
			if !found || !Equal(f.Value, other) {
				return false
			}
		}
		return true
	case *Closure:
		bv, ok := b.(*Closure)
		return ok && av == bv
	}
	return false
}

// FromAny converts a JSON-decoded Go value into a runtime value. Map keys
// are sorted so the result is deterministic.
func FromAny(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(val)
	case float64:
		return Number(val)
	case int:
		return Number(float64(val))
	case string:
		return String(val)
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			items[i] = FromAny(item)
		}
		return List{Items: items}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Key: k, Value: FromAny(val[k])}
		}
		return Record{Fields: fields}
	}
	return Null{}
}

// ToAny converts a runtime value into a plain Go value for JSON encoding.
// Closures reduce to their procedure node; the captured environment is
// rebuilt on load.
func ToAny(v Value) any {
	switch val := v.(type) {
	case Null, nil:
		return nil
	case Bool:
		return bool(val)
	case Number:
		return float64(val)
	case String:
		return string(val)
	case List:
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			items[i] = ToAny(item)
		}
		return items
	case Record:
		m := make(map[string]any, len(val.Fields))
		for _, f := range val.Fields {
			m[f.Key] = ToAny(f.Value)
		}
		return m
	case *Closure:
		return map[string]any{
			"type":   string(node.TypeProcedure),
			"params": val.Params,
			"body":   val.Body,
		}
	}
	return nil
}

// TypeName names a value's kind for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case Null, nil:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case List:
		return "list"
	case Record:
		return "record"
	case *Closure:
		return "procedure"
	}
	return "unknown"
}

// Format renders a value for display in a REPL or log line.
func Format(v Value) string {
	switch val := v.(type) {
	case Null, nil:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Number:
		f := float64(val)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case String:
		return string(val)
	case List:
		out := "["
		for i, item := range val.Items {
			if i > 0 {
				out += ", "
			}
			out += Format(item)
		}
		return out + "]"
	case Record:
		out := "{"
		for i, f := range val.Fields {
			if i > 0 {
				out += ", "
			}
			out += f.Key + ": " + Format(f.Value)
		}
		return out + "}"
	case *Closure:
		return "#<procedure/" + strconv.Itoa(len(val.Params)) + ">"
	}
	return "?"
}
