// Package value implements the dynamic value system shared by the contract
// evaluator and the subject interpreter: a small tagged variant covering the
// primitive domains of the subject subset, with checked operations that
// surface undefined behavior (division by zero, mismatched operand types) as
// ordinary errors instead of panics.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the variants of a Value.
type Kind int

const (
	KindNone Kind = iota
	KindInt
	KindFloat
	KindBool
	KindStr
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Object is a mutable attribute bag standing in for a class instance.
// Values hold objects by pointer so mutations made by an invoked method
// stay visible to invariant checks after the call.
type Object struct {
	Class string
	Attrs map[string]Value
}

// NewObject returns an empty instance of the named class.
func NewObject(class string) *Object {
	return &Object{Class: class, Attrs: make(map[string]Value)}
}

// Get returns the named attribute, reporting whether it exists.
func (o *Object) Get(name string) (Value, bool) {
	v, ok := o.Attrs[name]
	return v, ok
}

// Set adds or replaces an attribute.
func (o *Object) Set(name string, v Value) {
	if o.Attrs == nil {
		o.Attrs = make(map[string]Value)
	}
	o.Attrs[name] = v
}

// Clone returns a deep copy of the object. Used when one synthesized
// instance seeds several trial bindings.
func (o *Object) Clone() *Object {
	c := NewObject(o.Class)
	for k, v := range o.Attrs {
		if v.Kind() == KindObject {
			c.Attrs[k] = Obj(v.obj.Clone())
			continue
		}
		c.Attrs[k] = v
	}
	return c
}

// Value is one dynamically typed subject value.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	list []Value
	obj  *Object
}

// None returns the none value.
func None() Value { return Value{kind: KindNone} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindStr, s: s} }

// List returns a list value. The slice is not copied.
func List(vs []Value) Value { return Value{kind: KindList, list: vs} }

// Obj returns an object value referencing o.
func Obj(o *Object) Value { return Value{kind: KindObject, obj: o} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether v is the none value.
func (v Value) IsNone() bool { return v.kind == KindNone }

// AsInt returns the integer payload; valid only for KindInt.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the float payload; valid only for KindFloat.
func (v Value) AsFloat() float64 { return v.f }

// AsBool returns the boolean payload; valid only for KindBool.
func (v Value) AsBool() bool { return v.b }

// AsStr returns the string payload; valid only for KindStr.
func (v Value) AsStr() string { return v.s }

// AsList returns the list payload; valid only for KindList.
func (v Value) AsList() []Value { return v.list }

// AsObject returns the object payload; valid only for KindObject.
func (v Value) AsObject() *Object { return v.obj }

// IsNumeric reports whether v is an int or float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// toFloat widens a numeric value to float64; valid for int and float only.
func (v Value) toFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Truth computes the truthiness of v under subject-language rules:
// none, zero, false, empty string and empty list are false.
func (v Value) Truth() bool {
	switch v.kind {
	case KindNone:
		return false
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindBool:
		return v.b
	case KindStr:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	case KindObject:
		return true
	default:
		return false
	}
}

// String renders v for diagnostics and trial transcripts.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindStr:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		return fmt.Sprintf("<%s instance>", v.obj.Class)
	default:
		return "<invalid>"
	}
}

// Env is a variable binding context: parameter names to trial values, plus
// the synthetic result binding during postcondition checks. Lookups never
// mutate the map.
type Env map[string]Value

// Lookup returns the binding for name, reporting whether it exists.
func (e Env) Lookup(name string) (Value, bool) {
	v, ok := e[name]
	return v, ok
}
