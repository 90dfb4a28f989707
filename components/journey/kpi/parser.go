package kpi

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parse compiles a formula string into a reusable Formula. Supported syntax:
// numeric literals, field identifiers, the operators + - * / %, parentheses,
// unary minus, and the aggregates SUM(field), AVG(field), COUNT(field).
func Parse(src string) (*Formula, error) {
	p := &parser{src: src}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return &Formula{root: root, src: src}, nil
}

// MustParse is a test/seed helper that panics on malformed formulas.
func MustParse(src string) *Formula {
	f, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return f
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{
		Formula: p.src,
		Pos:     p.pos,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// parseExpr handles + and - (lowest precedence).
func (p *parser) parseExpr() (expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryOp{op: rune(op), left: left, right: right}
	}
}

// parseTerm handles * / % (higher precedence).
func (p *parser) parseTerm() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryOp{op: rune(op), left: left, right: right}
	}
}

func (p *parser) parseUnary() (expr, error) {
	p.skipSpace()
	if p.peek() == '-' {
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binaryOp{op: '-', left: literal{0}, right: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr, error) {
	p.skipSpace()
	switch {
	case p.peek() == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	case isDigit(p.peek()) || p.peek() == '.':
		return p.parseNumber()
	case isIdentStart(p.peek()):
		return p.parseIdentOrAggregate()
	case p.peek() == 0:
		return nil, p.errorf("unexpected end of formula")
	default:
		return nil, p.errorf("unexpected character %q", string(p.peek()))
	}
}

func (p *parser) parseNumber() (expr, error) {
	start := p.pos
	for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	value, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return nil, p.errorf("invalid number %q", p.src[start:p.pos])
	}
	return literal{value: value}, nil
}

func (p *parser) parseIdentOrAggregate() (expr, error) {
	name := p.parseIdent()
	p.skipSpace()
	if p.peek() != '(' {
		return fieldRef{name: name}, nil
	}
	fn := strings.ToUpper(name)
	if fn != aggSum && fn != aggAvg && fn != aggCount {
		return nil, p.errorf("unknown function %q", name)
	}
	p.pos++ // consume '('
	p.skipSpace()
	if !isIdentStart(p.peek()) {
		return nil, p.errorf("%s expects a field identifier", fn)
	}
	field := p.parseIdent()
	p.skipSpace()
	if p.peek() != ')' {
		return nil, p.errorf("missing closing parenthesis after %s argument", fn)
	}
	p.pos++
	return aggregateCall{fn: fn, field: field}, nil
}

func (p *parser) parseIdent() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.'
}
