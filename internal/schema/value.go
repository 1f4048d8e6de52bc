package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Value is a listing field value. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	arr  []Value
	obj  map[string]Value
}

func Null() Value               { return Value{} }
func String(s string) Value     { return Value{kind: KindString, str: s} }
func Number(n float64) Value    { return Value{kind: KindNumber, num: n} }
func Int(n int) Value           { return Value{kind: KindNumber, num: float64(n)} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

func Object(pairs map[string]Value) Value {
	if pairs == nil {
		pairs = map[string]Value{}
	}
	return Value{kind: KindObject, obj: pairs}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) Items() []Value { return v.arr }

func (v Value) Str() (string, bool)   { return v.str, v.kind == KindString }
func (v Value) Num() (float64, bool)  { return v.num, v.kind == KindNumber }
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) Pairs() map[string]Value { return v.obj }

// FromInterface converts a decoded JSON value. Unsupported Go types become
// their fmt representation.
func FromInterface(in interface{}) Value {
	switch t := in.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Int(t)
	case int64:
		return Number(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromInterface(item)
		}
		return Array(items...)
	case []string:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = String(item)
		}
		return Array(items...)
	case map[string]interface{}:
		pairs := make(map[string]Value, len(t))
		for k, item := range t {
			pairs[k] = FromInterface(item)
		}
		return Object(pairs)
	default:
		return String(fmt.Sprint(t))
	}
}

// Interface converts back to plain Go values as produced by encoding/json.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromInterface(raw)
	return nil
}

// Blank reports a string that is empty after trimming.
func (v Value) Blank() bool {
	return v.kind == KindString && strings.TrimSpace(v.str) == ""
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, item := range v.obj {
			other, ok := o.obj[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// CoercionError reports a value that cannot be represented as its field's type.
type CoercionError struct {
	Field string
	Want  FieldType
	Got   Kind
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("field %s: cannot use %s as %s", e.Field, e.Got, e.Want)
}

// Coerce converts v to the declared type. Null is accepted for every type.
// Unknown declared types pass the value through unchanged.
func Coerce(field string, want FieldType, v Value) (Value, error) {
	if v.kind == KindNull {
		return v, nil
	}
	fail := &CoercionError{Field: field, Want: want, Got: v.kind}

	switch want {
	case TypeString:
		switch v.kind {
		case KindString:
			return v, nil
		case KindNumber:
			return String(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
		case KindBool:
			return String(strconv.FormatBool(v.b)), nil
		}
		return Value{}, fail

	case TypeInteger:
		switch v.kind {
		case KindNumber:
			if v.num != math.Trunc(v.num) {
				return Value{}, fail
			}
			return v, nil
		case KindString:
			n, err := strconv.ParseInt(strings.TrimSpace(v.str), 10, 64)
			if err != nil {
				return Value{}, fail
			}
			return Number(float64(n)), nil
		}
		return Value{}, fail

	case TypeNumber:
		switch v.kind {
		case KindNumber:
			return v, nil
		case KindString:
			n, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
			if err != nil {
				return Value{}, fail
			}
			return Number(n), nil
		}
		return Value{}, fail

	case TypeBoolean:
		switch v.kind {
		case KindBool:
			return v, nil
		case KindString:
			b, err := strconv.ParseBool(strings.TrimSpace(v.str))
			if err != nil {
				return Value{}, fail
			}
			return Bool(b), nil
		}
		return Value{}, fail

	case TypeArray:
		if v.kind == KindArray {
			return v, nil
		}
		return Value{}, fail

	case TypeObject:
		if v.kind == KindObject {
			return v, nil
		}
		return Value{}, fail
	}

	return v, nil
}

// Payload maps field names to values. It may hold undeclared fields.
type Payload map[string]Value

// PayloadFromMap converts a decoded JSON object.
func PayloadFromMap(in map[string]interface{}) Payload {
	out := make(Payload, len(in))
	for k, v := range in {
		out[k] = FromInterface(v)
	}
	return out
}

// Map converts to plain Go values.
func (p Payload) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}

// Keys returns the field names in sorted order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CoerceLenient converts every declared field it can to its declared type.
// A value that does not convert is kept as submitted, as are undeclared
// fields. The input is not mutated.
func (p Payload) CoerceLenient(m *Model) Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, f := range m.Fields() {
		v, ok := p[f.Name]
		if !ok {
			continue
		}
		if coerced, err := Coerce(f.Name, f.Type, v); err == nil {
			out[f.Name] = coerced
		}
	}
	return out
}
