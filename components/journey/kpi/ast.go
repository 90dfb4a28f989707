package kpi

import (
	"math"
	"sort"
)

// expr is a node in the parsed formula tree: a tagged union over literals,
// field references, binary operations, and aggregate calls.
type expr interface {
	eval(b Bindings) (float64, error)
	fields(set map[string]struct{})
}

type literal struct {
	value float64
}

func (l literal) eval(Bindings) (float64, error)  { return l.value, nil }
func (l literal) fields(map[string]struct{})      {}

type fieldRef struct {
	name string
}

func (f fieldRef) eval(b Bindings) (float64, error) {
	value, ok := b[f.name]
	if !ok {
		return 0, &UnknownFieldError{Field: f.name}
	}
	return value.scalarValue(), nil
}

func (f fieldRef) fields(set map[string]struct{}) { set[f.name] = struct{}{} }

type binaryOp struct {
	op    rune
	left  expr
	right expr
}

func (b binaryOp) eval(bind Bindings) (float64, error) {
	left, err := b.left.eval(bind)
	if err != nil {
		return 0, err
	}
	right, err := b.right.eval(bind)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		return left / right, nil
	case '%':
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		return math.Mod(left, right), nil
	}
	return 0, &ParseError{Message: "unsupported operator " + string(b.op)}
}

func (b binaryOp) fields(set map[string]struct{}) {
	b.left.fields(set)
	b.right.fields(set)
}

// Aggregate function names.
const (
	aggSum   = "SUM"
	aggAvg   = "AVG"
	aggCount = "COUNT"
)

type aggregateCall struct {
	fn    string
	field string
}

func (a aggregateCall) eval(b Bindings) (float64, error) {
	value, ok := b[a.field]
	if !ok {
		return 0, &UnknownFieldError{Field: a.field}
	}
	switch a.fn {
	case aggSum:
		return value.sum(), nil
	case aggCount:
		return float64(value.count()), nil
	case aggAvg:
		n := value.count()
		if n == 0 {
			return 0, ErrDivisionByZero
		}
		return value.sum() / float64(n), nil
	}
	return 0, &ParseError{Message: "unsupported aggregate " + a.fn}
}

func (a aggregateCall) fields(set map[string]struct{}) { set[a.field] = struct{}{} }

// Formula is a parsed, reusable KPI expression.
type Formula struct {
	root expr
	src  string
}

// String returns the original formula source.
func (f *Formula) String() string { return f.src }

// RequiredFields lists every field identifier the formula references, sorted.
func (f *Formula) RequiredFields() []string {
	set := make(map[string]struct{}, 4)
	f.root.fields(set)
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks every referenced field against the known predicate and
// returns an UnknownFieldError for the first miss.
func (f *Formula) Validate(known func(id string) bool) error {
	for _, name := range f.RequiredFields() {
		if !known(name) {
			return &UnknownFieldError{Field: name}
		}
	}
	return nil
}

// Eval resolves the formula against the bindings. Division by zero returns
// (nil, ErrDivisionByZero): callers surface the nil result as N/A rather than
// crashing. The result is always finite when non-nil.
func (f *Formula) Eval(b Bindings) (*float64, error) {
	value, err := f.root.eval(b)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrDivisionByZero
	}
	return &value, nil
}
