package query

import "strings"

// FieldPath builds a Field from a dotted path such as "engine.type".
func FieldPath(path string) Field {
	return Field{Path: strings.Split(path, ".")}
}

// Param references the i-th call argument.
func Param(i int) ParameterReference {
	return ParameterReference{Index: i}
}

// Static wraps a literal.
func Static(v any) StaticValue {
	return StaticValue{Literal: v}
}

// SelectField reads path out of the value produced by from.
func SelectField(from Value, path string) Select {
	return Select{From: from, Field: FieldPath(path)}
}

// Upper upper-cases v.
func Upper(v Value) Uppercase {
	return Uppercase{Value: v}
}

// Eq compares the current value with v.
func Eq(v Value) Equals {
	return Equals{Value: v}
}

// MatchOn evaluates cond against the value selected by sel.
func MatchOn(sel Value, cond Query) Match {
	return Match{Selector: sel, Condition: cond}
}

// ElemMatchOn evaluates cond against the elements of the collection
// selected by sel.
func ElemMatchOn(sel Value, cond Query) ElemMatch {
	return ElemMatch{Selector: sel, Condition: cond}
}

// FieldEq is the most common shape: match(field(path), eq(v)).
func FieldEq(path string, v Value) Match {
	return MatchOn(FieldPath(path), Eq(v))
}

// AllOf combines filters with And.
func AllOf(filters ...Query) And {
	return And{Filters: filters}
}

// AnyOf combines filters with Or.
func AnyOf(filters ...Query) Or {
	return Or{Filters: filters}
}
