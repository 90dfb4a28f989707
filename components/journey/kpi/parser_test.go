package kpi

import (
	"errors"
	"testing"
)

func mustEval(t *testing.T, src string, b Bindings) float64 {
	t.Helper()
	formula, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", src, err)
	}
	value, err := formula.Eval(b)
	if err != nil {
		t.Fatalf("Eval(%q) returned error: %v", src, err)
	}
	if value == nil {
		t.Fatalf("Eval(%q) returned nil value", src)
	}
	return *value
}

func TestParseArithmetic(t *testing.T) {
	cases := map[string]float64{
		"1 + 2 * 3":          7,
		"(1 + 2) * 3":        9,
		"10 - 4 - 3":         3,
		"20 / 4 / 5":         1,
		"7 % 4":              3,
		"-3 + 5":             2,
		"2 * -2":             -4,
		"((1 + 1)) * (2)":    4,
		"0.5 * 4":            2,
	}
	for src, want := range cases {
		if got := mustEval(t, src, nil); got != want {
			t.Fatalf("%q = %f, want %f", src, got, want)
		}
	}
}

func TestParseFieldReferences(t *testing.T) {
	b := Bindings{
		"deals_won":          Number(4),
		"meetings_completed": Number(8),
	}
	got := mustEval(t, "(deals_won / meetings_completed) * 100", b)
	if got != 50 {
		t.Fatalf("expected 50, got %f", got)
	}
}

func TestParseAggregates(t *testing.T) {
	b := Bindings{
		"revenue":   Series(100, 200, 300),
		"deals_won": Series(1, 1, 1),
	}
	if got := mustEval(t, "SUM(revenue)", b); got != 600 {
		t.Fatalf("SUM = %f", got)
	}
	if got := mustEval(t, "AVG(revenue)", b); got != 200 {
		t.Fatalf("AVG = %f", got)
	}
	if got := mustEval(t, "COUNT(deals_won)", b); got != 3 {
		t.Fatalf("COUNT = %f", got)
	}
	// Aggregate names are case-insensitive; scalars behave as 1-element series.
	if got := mustEval(t, "sum(revenue) / count(revenue)", b); got != 200 {
		t.Fatalf("mixed case aggregate = %f", got)
	}
	if got := mustEval(t, "COUNT(x)", Bindings{"x": Number(5)}); got != 1 {
		t.Fatalf("COUNT(scalar) = %f", got)
	}
}

func TestScalarUseOfSeriesSums(t *testing.T) {
	b := Bindings{"revenue": Series(10, 20)}
	if got := mustEval(t, "revenue * 2", b); got != 60 {
		t.Fatalf("expected series to collapse to its sum, got %f", got)
	}
}

func TestDivisionByZeroReturnsNil(t *testing.T) {
	formula := MustParse("deals_won / contacts")
	value, err := formula.Eval(Bindings{"deals_won": Number(3), "contacts": Number(0)})
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if value != nil {
		t.Fatalf("expected nil value, got %v", value)
	}

	// 0/0 as well.
	value, err = formula.Eval(Bindings{"deals_won": Number(0), "contacts": Number(0)})
	if !errors.Is(err, ErrDivisionByZero) || value != nil {
		t.Fatalf("expected nil result for 0/0, got %v %v", value, err)
	}

	if _, err := MustParse("7 % x").Eval(Bindings{"x": Number(0)}); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected modulo by zero to be undefined, got %v", err)
	}

	if _, err := MustParse("AVG(x)").Eval(Bindings{"x": Series()}); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected AVG of empty series to be undefined, got %v", err)
	}
}

func TestUnknownFieldError(t *testing.T) {
	formula := MustParse("ghost + 1")
	_, err := formula.Eval(Bindings{})
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	var unknown *UnknownFieldError
	if !errors.As(err, &unknown) || unknown.Field != "ghost" {
		t.Fatalf("expected typed error naming the field, got %#v", err)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"1 +",
		"(1 + 2",
		"SUM()",
		"SUM(1)",
		"foo bar",
		"* 2",
	} {
		if _, err := Parse(src); err == nil {
			t.Fatalf("expected parse error for %q", src)
		}
	}
}

func TestRequiredFieldsSorted(t *testing.T) {
	formula := MustParse("z_field + a_field + SUM(m_field) + a_field")
	fields := formula.RequiredFields()
	want := []string{"a_field", "m_field", "z_field"}
	if len(fields) != len(want) {
		t.Fatalf("expected %v, got %v", want, fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, fields)
		}
	}
}

func TestValidateAgainstKnownFields(t *testing.T) {
	formula := MustParse("deals_won / contacts")
	known := map[string]bool{"deals_won": true}
	err := formula.Validate(func(id string) bool { return known[id] })
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected unknown field failure, got %v", err)
	}
	known["contacts"] = true
	if err := formula.Validate(func(id string) bool { return known[id] }); err != nil {
		t.Fatalf("expected valid formula, got %v", err)
	}
}

func TestFormulaStringRoundTrip(t *testing.T) {
	src := "(deals_won / meetings_completed) * 100"
	if got := MustParse(src).String(); got != src {
		t.Fatalf("expected original source, got %q", got)
	}
}
