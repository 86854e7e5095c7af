package memory

import (
	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/fields"
	"github.com/roach88/byname/internal/query"
)

// condition is a compiled query: it reports whether the current value
// satisfies the query.
type condition func(current any) (bool, error)

// compile turns q into a condition over the current value.
//
// Every node is evaluated against the current value: the record for the
// top-level query, the selected value inside Match, and each element
// inside ElemMatch. Equals resolves its operand against the same current
// value, so eq(field(x)) inside a Match reads x from the selected value.
func compile(q query.Query, params []any) (condition, error) {
	switch n := q.(type) {
	case query.Equals:
		return func(cur any) (bool, error) {
			want, err := engine.ResolveValue(n.Value, cur, params)
			if err != nil {
				return false, err
			}
			return fields.Equal(cur, want), nil
		}, nil

	case query.Match:
		cond, err := compile(n.Condition, params)
		if err != nil {
			return nil, err
		}
		return func(cur any) (bool, error) {
			selected, err := engine.ResolveValue(n.Selector, cur, params)
			if err != nil {
				return false, err
			}
			return cond(selected)
		}, nil

	case query.ElemMatch:
		cond, err := compile(n.Condition, params)
		if err != nil {
			return nil, err
		}
		return func(cur any) (bool, error) {
			selected, err := engine.ResolveValue(n.Selector, cur, params)
			if err != nil {
				return false, err
			}
			elems, ok := fields.Elements(selected)
			if !ok {
				return false, engine.NewNotIterableError(n.Selector, selected)
			}
			for _, elem := range elems {
				hit, err := cond(elem)
				if err != nil {
					return false, err
				}
				if hit {
					return true, nil
				}
			}
			return false, nil
		}, nil

	case query.And:
		conds, err := compileAll(n.Filters, params)
		if err != nil {
			return nil, err
		}
		return func(cur any) (bool, error) {
			for _, c := range conds {
				hit, err := c(cur)
				if err != nil || !hit {
					return false, err
				}
			}
			return true, nil
		}, nil

	case query.Or:
		conds, err := compileAll(n.Filters, params)
		if err != nil {
			return nil, err
		}
		return func(cur any) (bool, error) {
			for _, c := range conds {
				hit, err := c(cur)
				if err != nil {
					return false, err
				}
				if hit {
					return true, nil
				}
			}
			return false, nil
		}, nil

	case query.True:
		return func(any) (bool, error) { return true, nil }, nil

	case query.False:
		return func(any) (bool, error) { return false, nil }, nil

	default:
		return nil, engine.NewUnsupportedError(q, "unknown query node")
	}
}

func compileAll(filters []query.Query, params []any) ([]condition, error) {
	conds := make([]condition, len(filters))
	for i, f := range filters {
		c, err := compile(f, params)
		if err != nil {
			return nil, err
		}
		conds[i] = c
	}
	return conds, nil
}
