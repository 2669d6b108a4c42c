package document

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindString represents a string value.
	KindString
	// KindNumber represents a numeric value.
	KindNumber
	// KindBool represents a boolean value.
	KindBool
	// KindArray represents an array value.
	KindArray
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindBool:
		return "Bool"
	case KindArray:
		return "Array"
	default:
		return "Invalid"
	}
}

// Value is a small typed field value.
//
// The representation is designed to make indexing and filtering fast and
// predictable: no reflection and no fmt-based stringification on hot paths.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Arr  []Value
}

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Array returns an array Value.
func Array(vs ...Value) Value { return Value{Kind: KindArray, Arr: vs} }

// FromAny converts a plain Go value (e.g. decoded JSON) into a Value.
// Maps and unsupported types are rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(float64(val)), nil
	case int:
		return Number(float64(val)), nil
	case int32:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case uint:
		return Number(float64(val)), nil
	case uint32:
		return Number(float64(val)), nil
	case uint64:
		return Number(float64(val)), nil
	case []any:
		arr := make([]Value, 0, len(val))
		for _, item := range val {
			iv, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			if iv.Kind == KindArray {
				return Value{}, fmt.Errorf("document: nested arrays are not supported")
			}
			arr = append(arr, iv)
		}
		return Value{Kind: KindArray, Arr: arr}, nil
	case []string:
		arr := make([]Value, 0, len(val))
		for _, item := range val {
			arr = append(arr, String(item))
		}
		return Value{Kind: KindArray, Arr: arr}, nil
	case []float64:
		arr := make([]Value, 0, len(val))
		for _, item := range val {
			arr = append(arr, Number(item))
		}
		return Value{Kind: KindArray, Arr: arr}, nil
	case Value:
		return val, nil
	default:
		return Value{}, fmt.Errorf("document: unsupported field value type %T", v)
	}
}

// ToAny converts the Value back to a plain Go value.
func (v Value) ToAny() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindArray:
		out := make([]any, len(v.Arr))
		for i, item := range v.Arr {
			out[i] = item.ToAny()
		}
		return out
	default:
		return nil
	}
}

// Key returns a stable string representation for use as a facet index key.
//
// It is intended for internal indexing and must remain stable across versions
// for persisted entries. DecodeKey reverses it for facet distributions.
func (v Value) Key() string {
	switch v.Kind {
	case KindNull:
		return "z:"
	case KindString:
		return "s:" + v.Str
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return "b:1"
		}
		return "b:0"
	default:
		return "invalid"
	}
}

// DecodeKey reverses Value.Key for scalar values.
func DecodeKey(key string) (Value, error) {
	if len(key) < 2 || key[1] != ':' {
		return Value{}, fmt.Errorf("document: malformed value key %q", key)
	}
	rest := key[2:]
	switch key[0] {
	case 'z':
		return Null(), nil
	case 's':
		return String(rest), nil
	case 'n':
		f, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return Value{}, fmt.Errorf("document: malformed numeric key %q: %w", key, err)
		}
		return Number(f), nil
	case 'b':
		return Bool(rest == "1"), nil
	default:
		return Value{}, fmt.Errorf("document: malformed value key %q", key)
	}
}

// Equal reports whether two values are equal. Numeric equality is by float64
// comparison; arrays compare element-wise.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	case KindArray:
		if len(v.Arr) != len(other.Arr) {
			return false
		}
		for i := range v.Arr {
			if !v.Arr[i].Equal(other.Arr[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two values. Values of different kinds order by kind; numbers
// order numerically, strings lexicographically, bools false before true.
func (v Value) Compare(other Value) int {
	if v.Kind != other.Kind {
		if v.Kind < other.Kind {
			return -1
		}
		return 1
	}
	switch v.Kind {
	case KindString:
		return strings.Compare(v.Str, other.Str)
	case KindNumber:
		switch {
		case v.Num < other.Num:
			return -1
		case v.Num > other.Num:
			return 1
		}
		return 0
	case KindBool:
		switch {
		case !v.Bool && other.Bool:
			return -1
		case v.Bool && !other.Bool:
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Text returns the textual form of the value used for tokenization.
// Array elements are joined with a single space.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1e15 {
			return strconv.FormatInt(int64(v.Num), 10)
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindArray:
		parts := make([]string, 0, len(v.Arr))
		for _, item := range v.Arr {
			if t := item.Text(); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// MarshalJSON encodes the value as its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON decodes natural JSON into the tagged representation.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}
