package document

import (
	"fmt"
	"math"
	"strconv"
)

// Document maps field names to typed values.
type Document map[string]Value

// FromMap converts an untyped map (e.g. decoded JSON) into a Document.
func FromMap(m map[string]any) (Document, error) {
	doc := make(Document, len(m))
	for k, v := range m {
		val, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		doc[k] = val
	}
	return doc, nil
}

// ToMap converts the document back into an untyped map.
func (d Document) ToMap() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v.ToAny()
	}
	return out
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	if v.Kind == KindArray {
		arr := make([]Value, len(v.Arr))
		for i := range v.Arr {
			arr[i] = cloneValue(v.Arr[i])
		}
		v.Arr = arr
	}
	return v
}

// PrimaryKeyString extracts the canonical string form of a primary key value.
// Only strings and integral numbers are valid primary keys.
func PrimaryKeyString(v Value) (string, bool) {
	switch v.Kind {
	case KindString:
		if v.Str == "" {
			return "", false
		}
		return v.Str, true
	case KindNumber:
		if v.Num != math.Trunc(v.Num) {
			return "", false
		}
		return strconv.FormatInt(int64(v.Num), 10), true
	default:
		return "", false
	}
}
