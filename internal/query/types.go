package query

import (
	"fmt"
	"strings"
)

// Value is an expression that yields a value, either from the candidate
// record under evaluation or from the method's call arguments.
//
// This is a sealed interface: only types in this package implement it.
type Value interface {
	valueNode()
	String() string
}

// Query is a condition evaluated against a candidate record.
//
// This is a sealed interface: only types in this package implement it.
type Query interface {
	queryNode()
	String() string
}

// Field reads a value from the candidate by name. Each segment is resolved
// case-insensitively, first as a getter, then as a field. Path is never empty.
type Field struct {
	Path []string
}

func (Field) valueNode() {}

func (f Field) String() string {
	return "field(" + strings.Join(f.Path, ".") + ")"
}

// Dotted returns the path joined with dots.
func (f Field) Dotted() string {
	return strings.Join(f.Path, ".")
}

// Select applies Field to the result of From rather than to the candidate.
// The typical use is reading the identity out of the object argument of an
// insertOrUpdate call: Select{From: ParameterReference{0}, Field: guid}.
type Select struct {
	From  Value
	Field Field
}

func (Select) valueNode() {}

func (s Select) String() string {
	return fmt.Sprintf("select(%s, %s)", s.From, s.Field)
}

// Uppercase upper-cases the string form of Value.
type Uppercase struct {
	Value Value
}

func (Uppercase) valueNode() {}

func (u Uppercase) String() string {
	return fmt.Sprintf("upper(%s)", u.Value)
}

// StaticValue is a fixed literal.
type StaticValue struct {
	Literal any
}

func (StaticValue) valueNode() {}

func (s StaticValue) String() string {
	if str, ok := s.Literal.(string); ok {
		return fmt.Sprintf("static(%q)", str)
	}
	return fmt.Sprintf("static(%v)", s.Literal)
}

// ParameterReference is the Index-th argument of the invoked method, not
// counting a leading context.Context.
type ParameterReference struct {
	Index int
}

func (ParameterReference) valueNode() {}

func (p ParameterReference) String() string {
	return fmt.Sprintf("param(%d)", p.Index)
}

// Equals holds when the current value equals Value.
type Equals struct {
	Value Value
}

func (Equals) queryNode() {}

func (e Equals) String() string {
	return fmt.Sprintf("eq(%s)", e.Value)
}

// Match resolves Selector against the candidate and evaluates Condition
// against the result.
type Match struct {
	Selector  Value
	Condition Query
}

func (Match) queryNode() {}

func (m Match) String() string {
	return fmt.Sprintf("match(%s, %s)", m.Selector, m.Condition)
}

// ElemMatch resolves Selector to a collection and holds when at least one
// element satisfies Condition. An empty collection never matches.
type ElemMatch struct {
	Selector  Value
	Condition Query
}

func (ElemMatch) queryNode() {}

func (m ElemMatch) String() string {
	return fmt.Sprintf("elemMatch(%s, %s)", m.Selector, m.Condition)
}

// And holds when every filter holds. An empty And is true.
type And struct {
	Filters []Query
}

func (And) queryNode() {}

func (a And) String() string {
	return "and(" + joinQueries(a.Filters) + ")"
}

// Or holds when any filter holds. An empty Or is false.
type Or struct {
	Filters []Query
}

func (Or) queryNode() {}

func (o Or) String() string {
	return "or(" + joinQueries(o.Filters) + ")"
}

// True matches every candidate.
type True struct{}

func (True) queryNode() {}

func (True) String() string { return "true" }

// False matches nothing.
type False struct{}

func (False) queryNode() {}

func (False) String() string { return "false" }

func joinQueries(qs []Query) string {
	parts := make([]string, len(qs))
	for i, q := range qs {
		if q == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = q.String()
	}
	return strings.Join(parts, ", ")
}
