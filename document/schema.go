package document

import (
	"fmt"
	"sort"
)

// FacetType declares the value type of a facet field.
type FacetType uint8

const (
	FacetTypeString FacetType = iota
	FacetTypeNumber
	FacetTypeBool
)

// String returns the string representation of the FacetType.
func (t FacetType) String() string {
	switch t {
	case FacetTypeString:
		return "String"
	case FacetTypeNumber:
		return "Number"
	case FacetTypeBool:
		return "Bool"
	default:
		return "Unknown"
	}
}

// FieldDefinition is the per-field index configuration.
type FieldDefinition struct {
	// Searchable includes the field in the inverted and prefix indexes.
	Searchable bool `json:"searchable" yaml:"searchable"`

	// Facet includes the field in the facet index with the declared type.
	Facet     bool      `json:"facet" yaml:"facet"`
	FacetType FacetType `json:"facetType" yaml:"facetType"`

	// Sortable stores the field value for the sort ranking rule.
	Sortable bool `json:"sortable" yaml:"sortable"`

	// Weight is the relative importance of the field for the attribute
	// ranking rule. Higher wins. The default 0 is the lowest weight.
	Weight int `json:"weight" yaml:"weight"`
}

// Schema maps field names to their definitions. Fields absent from the schema
// are stored and returned with documents but never indexed.
type Schema map[string]FieldDefinition

// Clone returns a copy of the schema.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SearchableFields returns the searchable field names ordered by descending
// weight, ties broken by name. The order is stable across calls.
func (s Schema) SearchableFields() []string {
	fields := make([]string, 0, len(s))
	for name, def := range s {
		if def.Searchable {
			fields = append(fields, name)
		}
	}
	sort.Slice(fields, func(i, j int) bool {
		wi, wj := s[fields[i]].Weight, s[fields[j]].Weight
		if wi != wj {
			return wi > wj
		}
		return fields[i] < fields[j]
	})
	return fields
}

// FacetFields returns the facet field names, sorted.
func (s Schema) FacetFields() []string {
	fields := make([]string, 0, len(s))
	for name, def := range s {
		if def.Facet {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

// ValidateDocument checks facet and sortable fields of doc against the schema.
// Searchable fields accept any value kind since every kind has a textual form.
func (s Schema) ValidateDocument(doc Document) error {
	for name, def := range s {
		v, ok := doc[name]
		if !ok || v.Kind == KindNull {
			continue
		}
		if def.Facet {
			if err := checkFacetValue(name, v, def.FacetType); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkFacetValue(field string, v Value, ft FacetType) error {
	if v.Kind == KindArray {
		for _, item := range v.Arr {
			if err := checkFacetValue(field, item, ft); err != nil {
				return err
			}
		}
		return nil
	}
	ok := false
	switch ft {
	case FacetTypeString:
		ok = v.Kind == KindString
	case FacetTypeNumber:
		ok = v.Kind == KindNumber
	case FacetTypeBool:
		ok = v.Kind == KindBool
	}
	if !ok {
		return fmt.Errorf("facet field %q has %s value, declared %s", field, v.Kind, ft)
	}
	return nil
}

// FacetValues flattens a facet field value into its indexable scalar values.
// Arrays contribute one entry per element.
func FacetValues(v Value) []Value {
	switch v.Kind {
	case KindArray:
		out := make([]Value, 0, len(v.Arr))
		for _, item := range v.Arr {
			if item.Kind != KindNull && item.Kind != KindInvalid {
				out = append(out, item)
			}
		}
		return out
	case KindNull, KindInvalid:
		return nil
	default:
		return []Value{v}
	}
}
