// Package filter parses and evaluates the small boolean filter grammar used
// to restrict search candidates via the facet indexes.
//
// Grammar:
//
//	expr       := or
//	or         := and ("OR" and)*
//	and        := unary ("AND" unary)*
//	unary      := "NOT" unary | "(" expr ")" | comparison
//	comparison := field ("=" | "!=" | "<" | "<=" | ">" | ">=") value
//	value      := quoted string | bare word | number | true | false
//
// Fields referenced by a filter must be declared as facets in the schema;
// violations surface as a *ConfigError at parse time, never as a silently
// empty result.
package filter

import (
	"fmt"

	"github.com/hupe1980/lexgo/document"
)

// Op is a comparison operator.
type Op uint8

const (
	OpEqual Op = iota
	OpNotEqual
	OpLessThan
	OpLessEqual
	OpGreaterThan
	OpGreaterEqual
)

// String returns the operator's source form.
func (op Op) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLessThan:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterEqual:
		return ">="
	default:
		return "?"
	}
}

// Node is a filter expression tree node.
type Node interface {
	node()
}

// Comparison is a leaf predicate on one facet field.
type Comparison struct {
	Field string
	Op    Op
	Value document.Value
}

// And matches documents satisfying both operands.
type And struct {
	Left, Right Node
}

// Or matches documents satisfying either operand.
type Or struct {
	Left, Right Node
}

// Not matches documents not satisfying the operand.
type Not struct {
	Expr Node
}

func (*Comparison) node() {}
func (*And) node()        {}
func (*Or) node()         {}
func (*Not) node()        {}

// ConfigError reports a filter referencing a field the schema does not
// declare as a facet, or an operator unsupported for the field's type.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("filter: field %q: %s", e.Field, e.Reason)
}

// SyntaxError reports malformed filter input.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("filter: syntax error at offset %d: %s", e.Pos, e.Msg)
}
