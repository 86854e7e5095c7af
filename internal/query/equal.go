package query

import (
	"reflect"
	"slices"
)

// Equal reports whether a and b are structurally identical. Nil and empty
// filter lists are the same; literals are compared with reflect.DeepEqual.
func Equal(a, b Query) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Equals:
		y, ok := b.(Equals)
		return ok && ValueEqual(x.Value, y.Value)
	case Match:
		y, ok := b.(Match)
		return ok && ValueEqual(x.Selector, y.Selector) && Equal(x.Condition, y.Condition)
	case ElemMatch:
		y, ok := b.(ElemMatch)
		return ok && ValueEqual(x.Selector, y.Selector) && Equal(x.Condition, y.Condition)
	case And:
		y, ok := b.(And)
		return ok && filtersEqual(x.Filters, y.Filters)
	case Or:
		y, ok := b.(Or)
		return ok && filtersEqual(x.Filters, y.Filters)
	case True:
		_, ok := b.(True)
		return ok
	case False:
		_, ok := b.(False)
		return ok
	default:
		return false
	}
}

// ValueEqual is Equal for value expressions.
func ValueEqual(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Field:
		y, ok := b.(Field)
		return ok && slices.Equal(x.Path, y.Path)
	case Select:
		y, ok := b.(Select)
		return ok && ValueEqual(x.From, y.From) && slices.Equal(x.Field.Path, y.Field.Path)
	case Uppercase:
		y, ok := b.(Uppercase)
		return ok && ValueEqual(x.Value, y.Value)
	case StaticValue:
		y, ok := b.(StaticValue)
		return ok && reflect.DeepEqual(x.Literal, y.Literal)
	case ParameterReference:
		y, ok := b.(ParameterReference)
		return ok && x.Index == y.Index
	default:
		return false
	}
}

func filtersEqual(a, b []Query) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
