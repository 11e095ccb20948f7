package element

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies the type held by a Value.
type Kind int

const (
	// KindInvalid is the zero Kind; a Value of this kind holds nothing.
	KindInvalid Kind = iota
	// KindBool holds a boolean.
	KindBool
	// KindNumber holds a float64.
	KindNumber
	// KindString holds a string.
	KindString
)

// String returns the schema name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a tagged property value restricted to booleans, numbers and strings.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
}

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number creates a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// ValueOf converts a Go value into a Value. Only bool, string and the numeric
// kinds are accepted; anything else is rejected explicitly.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case int32:
		return Number(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return Number(f), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// Kind returns the kind of value held.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value holds anything.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsBool returns the boolean and whether v holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number and whether v holds one.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string and whether v holds one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// String renders the canonical text form used by attribute filters:
// "true"/"false" for booleans, the shortest round-trip form for numbers
// and the raw text for strings.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// Interface returns the underlying Go value (bool, float64 or string), or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	default:
		return nil
	}
}

// MarshalJSON encodes the underlying scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts JSON booleans, numbers and strings. null decodes to
// the invalid Value; arrays and objects are an error.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Properties maps property names to typed values.
type Properties map[string]Value

// Get returns the named value if present and valid.
func (p Properties) Get(name string) (Value, bool) {
	v, ok := p[name]
	if !ok || !v.IsValid() {
		return Value{}, false
	}
	return v, true
}

// Keys returns property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the map.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// UnmarshalJSON decodes a property object and drops null entries.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Properties, len(raw))
	for k, v := range raw {
		if v.IsValid() {
			out[k] = v
		}
	}
	*p = out
	return nil
}
