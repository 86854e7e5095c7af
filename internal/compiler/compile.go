package compiler

import (
	"reflect"

	"github.com/roach88/byname/internal/query"
)

var (
	queryType   = reflect.TypeFor[query.Query]()
	argsType    = reflect.TypeFor[[]any]()
	identityKey = "guid"
)

// Compile turns a method declaration into a Compiled query.
//
//   - Custom set: the custom query is used as is; the name only selects the
//     operation.
//   - findAll, findOne, remove: the criteria after "By" are parsed (see
//     compileCriteria); no criteria means True.
//   - insertOrUpdate: one object parameter, matched on its identity.
//
// Every static result passes query.Validate against the parameter count.
func Compile(m Method) (*Compiled, error) {
	op, ok := OperationOf(m.Name)
	if !ok {
		return nil, newError(ErrCodeMethodName, m.Name,
			"method name must start with one of %v", Operations)
	}

	c := &Compiled{Method: m.Name, Operation: op, ParamCount: len(m.Params)}

	var (
		q   query.Query
		err error
	)
	switch {
	case m.Custom != nil:
		c.Custom = true
		q, err = compileCustom(m, c)
	case op == InsertOrUpdate:
		q, err = compileUpsert(m)
	default:
		q, err = compileCriteria(m, op)
	}
	if err != nil {
		return nil, err
	}
	if c.dynamic != nil {
		return c, nil
	}

	if err := query.Validate(q, len(m.Params)); err != nil {
		return nil, &CompileError{Code: ErrCodeInvalidQuery, Method: m.Name, Message: err.Error()}
	}
	c.Query = q
	return c, nil
}

func compileCustom(m Method, c *Compiled) (query.Query, error) {
	switch fn := m.Custom.(type) {
	case query.Query:
		return fn, nil
	case func([]any) query.Query:
		c.dynamic = fn
		return nil, nil
	}

	fv := reflect.ValueOf(m.Custom)
	ft := fv.Type()
	if ft.Kind() == reflect.Func && ft.NumOut() == 1 && ft.Out(0).Implements(queryType) {
		switch {
		case ft.NumIn() == 0:
			out := fv.Call(nil)[0]
			if isNilValue(out) {
				return nil, newError(ErrCodeCustomQuery, m.Name, "custom query factory returned nil")
			}
			return out.Interface().(query.Query), nil
		case ft.NumIn() == 1 && ft.In(0) == argsType:
			c.dynamic = func(args []any) query.Query {
				out := fv.Call([]reflect.Value{reflect.ValueOf(args)})[0]
				if isNilValue(out) {
					return nil
				}
				return out.Interface().(query.Query)
			}
			return nil, nil
		}
	}
	return nil, newError(ErrCodeCustomQuery, m.Name,
		"custom query must be a query.Query, func() query.Query or func([]any) query.Query, got %T", m.Custom)
}

func compileUpsert(m Method) (query.Query, error) {
	if len(m.Params) != 1 {
		return nil, newError(ErrCodeParamCount, m.Name,
			"insertOrUpdate methods take exactly one parameter, the entity, but the method has %d", len(m.Params))
	}

	if m.GUIDPaths != nil {
		if len(m.GUIDPaths) == 0 {
			return nil, newError(ErrCodeIdentity, m.Name,
				"identity declaration for parameter %q must name at least one path", m.Params[0].Name)
		}
		filters := make([]query.Query, len(m.GUIDPaths))
		for i, path := range m.GUIDPaths {
			filters[i] = identityMatch(path)
		}
		if len(filters) == 1 {
			return filters[0], nil
		}
		return query.AllOf(filters...), nil
	}

	t := m.Params[0].Type
	if t == nil || !t.HasField(identityKey) {
		return nil, newError(ErrCodeIdentity, m.Name,
			"entity %s has no guid field or getter; add one or declare identity paths", describeType(t))
	}
	return identityMatch(identityKey), nil
}

// identityMatch is match(field(path), eq(select(param(0), field(path)))).
func identityMatch(path string) query.Query {
	return query.MatchOn(query.FieldPath(path), query.Eq(query.SelectField(query.Param(0), path)))
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func:
		return v.IsNil()
	}
	return false
}

func describeType(t TypeInfo) string {
	if t == nil {
		return "<unknown>"
	}
	return t.String()
}
