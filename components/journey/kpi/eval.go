package kpi

// Value is a resolved field value: a scalar or a series. Using a series field
// in plain arithmetic takes its sum; COUNT and AVG see the element count.
type Value struct {
	scalar   float64
	series   []float64
	isSeries bool
}

// Number wraps a scalar field value.
func Number(v float64) Value {
	return Value{scalar: v}
}

// Series wraps a field collection for use with SUM/AVG/COUNT.
func Series(values ...float64) Value {
	copied := make([]float64, len(values))
	copy(copied, values)
	return Value{series: copied, isSeries: true}
}

func (v Value) scalarValue() float64 {
	if v.isSeries {
		return v.sum()
	}
	return v.scalar
}

func (v Value) sum() float64 {
	if !v.isSeries {
		return v.scalar
	}
	var total float64
	for _, item := range v.series {
		total += item
	}
	return total
}

func (v Value) count() int {
	if !v.isSeries {
		return 1
	}
	return len(v.series)
}

// Bindings maps field identifiers to resolved values for one dashboard scope.
// The caller prepares these; the evaluator stays free of data fetching.
type Bindings map[string]Value
