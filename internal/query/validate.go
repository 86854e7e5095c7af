package query

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError lists every structural problem found in a query.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// Validate checks the structural invariants of q for a method taking
// paramCount arguments:
//   - no nil nodes
//   - Field paths non-empty, with no empty segments
//   - every ParameterReference index in [0, paramCount)
//
// A negative paramCount skips the parameter bound check.
//
// Validate is a pure function; it returns nil or a *ValidationError.
func Validate(q Query, paramCount int) error {
	v := &validator{paramCount: paramCount}
	v.query(q, "$")
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

type validator struct {
	paramCount int
	problems   []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) query(q Query, at string) {
	switch n := q.(type) {
	case nil:
		v.addf("%s: nil query", at)
	case Equals:
		v.value(n.Value, at+".eq")
	case Match:
		v.value(n.Selector, at+".match.selector")
		v.query(n.Condition, at+".match.condition")
	case ElemMatch:
		v.value(n.Selector, at+".elemMatch.selector")
		v.query(n.Condition, at+".elemMatch.condition")
	case And:
		for i, f := range n.Filters {
			v.query(f, fmt.Sprintf("%s.and[%d]", at, i))
		}
	case Or:
		for i, f := range n.Filters {
			v.query(f, fmt.Sprintf("%s.or[%d]", at, i))
		}
	case True, False:
	default:
		v.addf("%s: unsupported query node %T", at, q)
	}
}

func (v *validator) value(val Value, at string) {
	switch n := val.(type) {
	case nil:
		v.addf("%s: nil value", at)
	case Field:
		v.field(n, at)
	case Select:
		v.value(n.From, at+".select.from")
		v.field(n.Field, at+".select.field")
	case Uppercase:
		v.value(n.Value, at+".upper")
	case StaticValue:
	case ParameterReference:
		if n.Index < 0 {
			v.addf("%s: negative parameter index %d", at, n.Index)
		} else if v.paramCount >= 0 && n.Index >= v.paramCount {
			v.addf("%s: parameter index %d out of range, method takes %d parameter(s)", at, n.Index, v.paramCount)
		}
	default:
		v.addf("%s: unsupported value node %T", at, val)
	}
}

func (v *validator) field(f Field, at string) {
	if len(f.Path) == 0 {
		v.addf("%s: empty field path", at)
		return
	}
	for i, seg := range f.Path {
		if seg == "" {
			v.addf("%s: empty segment %d in field path %q", at, i, f.Dotted())
		}
	}
}

// Parameters returns the sorted, de-duplicated parameter indexes that q
// references.
func Parameters(q Query) []int {
	seen := map[int]bool{}
	collectQuery(q, seen)
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func collectQuery(q Query, seen map[int]bool) {
	switch n := q.(type) {
	case Equals:
		collectValue(n.Value, seen)
	case Match:
		collectValue(n.Selector, seen)
		collectQuery(n.Condition, seen)
	case ElemMatch:
		collectValue(n.Selector, seen)
		collectQuery(n.Condition, seen)
	case And:
		for _, f := range n.Filters {
			collectQuery(f, seen)
		}
	case Or:
		for _, f := range n.Filters {
			collectQuery(f, seen)
		}
	}
}

func collectValue(v Value, seen map[int]bool) {
	switch n := v.(type) {
	case Select:
		collectValue(n.From, seen)
	case Uppercase:
		collectValue(n.Value, seen)
	case ParameterReference:
		seen[n.Index] = true
	}
}
