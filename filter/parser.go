package filter

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/hupe1980/lexgo/document"
)

// Parse parses input into an expression tree, validating every referenced
// field against the schema.
func Parse(input string, schema document.Schema) (Node, error) {
	p := &parser{lex: newLexer(input), schema: schema}
	p.next()
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: p.tok.pos, Msg: "unexpected " + p.tok.describe()}
	}
	return node, nil
}

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind tokenKind
	text string
	num  float64
	op   Op
	pos  int
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	default:
		return strconv.Quote(t.text)
	}
}

type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer { return &lexer{input: input} }

func (l *lexer) lex() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := l.input[l.pos]
	switch c {
	case '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case '=':
		l.pos++
		return token{kind: tokOp, op: OpEqual, text: "=", pos: start}, nil
	case '!':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2
			return token{kind: tokOp, op: OpNotEqual, text: "!=", pos: start}, nil
		}
		return token{}, &SyntaxError{Pos: start, Msg: "expected != after !"}
	case '<':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return token{kind: tokOp, op: OpLessEqual, text: "<=", pos: start}, nil
		}
		return token{kind: tokOp, op: OpLessThan, text: "<", pos: start}, nil
	case '>':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return token{kind: tokOp, op: OpGreaterEqual, text: ">=", pos: start}, nil
		}
		return token{kind: tokOp, op: OpGreaterThan, text: ">", pos: start}, nil
	case '"', '\'':
		quote := c
		l.pos++
		var sb strings.Builder
		for l.pos < len(l.input) && l.input[l.pos] != quote {
			if l.input[l.pos] == '\\' && l.pos+1 < len(l.input) {
				l.pos++
			}
			sb.WriteByte(l.input[l.pos])
			l.pos++
		}
		if l.pos >= len(l.input) {
			return token{}, &SyntaxError{Pos: start, Msg: "unterminated string"}
		}
		l.pos++
		return token{kind: tokString, text: sb.String(), pos: start}, nil
	}

	if c == '-' || c == '.' || (c >= '0' && c <= '9') {
		end := l.pos + 1
		for end < len(l.input) && (l.input[end] == '.' || l.input[end] == 'e' ||
			l.input[end] == 'E' || l.input[end] == '-' || l.input[end] == '+' ||
			(l.input[end] >= '0' && l.input[end] <= '9')) {
			end++
		}
		f, err := strconv.ParseFloat(l.input[l.pos:end], 64)
		if err != nil {
			return token{}, &SyntaxError{Pos: start, Msg: "malformed number"}
		}
		text := l.input[l.pos:end]
		l.pos = end
		return token{kind: tokNumber, num: f, text: text, pos: start}, nil
	}

	if isIdentRune(rune(c)) {
		end := l.pos
		for end < len(l.input) && isIdentRune(rune(l.input[end])) {
			end++
		}
		word := l.input[l.pos:end]
		l.pos = end
		switch strings.ToUpper(word) {
		case "AND":
			return token{kind: tokAnd, text: word, pos: start}, nil
		case "OR":
			return token{kind: tokOr, text: word, pos: start}, nil
		case "NOT":
			return token{kind: tokNot, text: word, pos: start}, nil
		}
		return token{kind: tokIdent, text: word, pos: start}, nil
	}

	return token{}, &SyntaxError{Pos: start, Msg: "unexpected character " + strconv.QuoteRune(rune(c))}
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'
}

type parser struct {
	lex    *lexer
	tok    token
	err    error
	schema document.Schema
}

func (p *parser) next() {
	if p.err != nil {
		return
	}
	p.tok, p.err = p.lex.lex()
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.err == nil && p.tok.kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, p.err
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.err == nil && p.tok.kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, p.err
}

func (p *parser) parseUnary() (Node, error) {
	if p.err != nil {
		return nil, p.err
	}
	switch p.tok.kind {
	case tokNot:
		p.next()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: expr}, nil
	case tokLParen:
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, &SyntaxError{Pos: p.tok.pos, Msg: "expected )"}
		}
		p.next()
		return expr, nil
	default:
		return p.parseComparison()
	}
}

func (p *parser) parseComparison() (Node, error) {
	if p.tok.kind != tokIdent && p.tok.kind != tokString {
		return nil, &SyntaxError{Pos: p.tok.pos, Msg: "expected field name, got " + p.tok.describe()}
	}
	field := p.tok.text
	p.next()

	if p.err != nil {
		return nil, p.err
	}
	if p.tok.kind != tokOp {
		return nil, &SyntaxError{Pos: p.tok.pos, Msg: "expected comparison operator, got " + p.tok.describe()}
	}
	op := p.tok.op
	p.next()

	if p.err != nil {
		return nil, p.err
	}
	var value document.Value
	switch p.tok.kind {
	case tokString:
		value = document.String(p.tok.text)
	case tokNumber:
		value = document.Number(p.tok.num)
	case tokIdent:
		switch p.tok.text {
		case "true":
			value = document.Bool(true)
		case "false":
			value = document.Bool(false)
		default:
			value = document.String(p.tok.text)
		}
	default:
		return nil, &SyntaxError{Pos: p.tok.pos, Msg: "expected value, got " + p.tok.describe()}
	}
	p.next()

	cmp := &Comparison{Field: field, Op: op, Value: value}
	if err := p.check(cmp); err != nil {
		return nil, err
	}
	return cmp, nil
}

// check validates a comparison against the schema.
func (p *parser) check(c *Comparison) error {
	def, ok := p.schema[c.Field]
	if !ok {
		return &ConfigError{Field: c.Field, Reason: "not declared in the schema"}
	}
	if !def.Facet {
		return &ConfigError{Field: c.Field, Reason: "not declared as a facet"}
	}

	switch c.Op {
	case OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
		if def.FacetType != document.FacetTypeNumber {
			return &ConfigError{Field: c.Field, Reason: "range comparison requires a numeric facet"}
		}
		if c.Value.Kind != document.KindNumber {
			return &ConfigError{Field: c.Field, Reason: "range comparison requires a numeric value"}
		}
	default:
		expected := document.KindString
		switch def.FacetType {
		case document.FacetTypeNumber:
			expected = document.KindNumber
		case document.FacetTypeBool:
			expected = document.KindBool
		}
		if c.Value.Kind != expected {
			return &ConfigError{Field: c.Field, Reason: "value type does not match the declared facet type"}
		}
	}
	return nil
}
