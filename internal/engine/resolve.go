package engine

import (
	"errors"

	"github.com/roach88/byname/internal/fields"
	"github.com/roach88/byname/internal/query"
)

var errNoCandidate = errors.New("no candidate record in scope")

// ResolveValue evaluates v against candidate and the call params.
// Field paths that do not resolve are FIELD_NOT_FOUND errors; errors
// returned by getters are passed through unwrapped.
func ResolveValue(v query.Value, candidate any, params []any) (any, error) {
	return resolve(v, candidate, true, params)
}

// ResolveConstant evaluates v without a candidate. It fails with
// UNSUPPORTED_QUERY when v reads from the candidate record.
func ResolveConstant(v query.Value, params []any) (any, error) {
	return resolve(v, nil, false, params)
}

func resolve(v query.Value, candidate any, hasCandidate bool, params []any) (any, error) {
	switch n := v.(type) {
	case query.Field:
		if !hasCandidate {
			return nil, &RuntimeError{
				Code:    ErrCodeUnsupportedQuery,
				Message: n.String() + " reads the candidate record where a constant is required",
				Query:   n.String(),
				Err:     errNoCandidate,
			}
		}
		return resolvePath(candidate, n)
	case query.Select:
		from, err := resolve(n.From, candidate, hasCandidate, params)
		if err != nil {
			return nil, err
		}
		return resolvePath(from, n.Field)
	case query.Uppercase:
		inner, err := resolve(n.Value, candidate, hasCandidate, params)
		if err != nil {
			return nil, err
		}
		return fields.Upper(inner), nil
	case query.StaticValue:
		return n.Literal, nil
	case query.ParameterReference:
		if n.Index < 0 || n.Index >= len(params) {
			return nil, NewInvalidParameterError(n.Index, len(params))
		}
		return params[n.Index], nil
	default:
		return nil, NewUnsupportedError(v, "unknown value node")
	}
}

func resolvePath(obj any, f query.Field) (any, error) {
	out, err := fields.Resolve(obj, f.Path)
	if err != nil {
		if errors.Is(err, fields.ErrNotFound) {
			return nil, NewFieldNotFoundError(f.Dotted(), err)
		}
		return nil, err
	}
	return out, nil
}
