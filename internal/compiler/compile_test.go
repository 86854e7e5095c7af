package compiler

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/byname/internal/query"
)

type car struct {
	ID    string `json:"guid"`
	Brand string `json:"brand"`
}

type logbookEntry struct {
	id string
}

func (e logbookEntry) GetGUID() string { return e.id }

type plate struct {
	Number string
}

func TestCompileUpsertDetectsGUID(t *testing.T) {
	for _, typ := range []reflect.Type{
		reflect.TypeFor[car](),
		reflect.TypeFor[*car](),
		reflect.TypeFor[logbookEntry](),
	} {
		t.Run(typ.String(), func(t *testing.T) {
			c, err := Compile(Method{
				Name:   "insertOrUpdateCar",
				Params: []Param{{Name: "car", Type: GoType(typ)}},
			})
			require.NoError(t, err)
			assert.Equal(t, InsertOrUpdate, c.Operation)
			assert.Equal(t, "match(field(guid), eq(select(param(0), field(guid))))", c.Query.String())
		})
	}
}

func TestCompileUpsertShape(t *testing.T) {
	c, err := Compile(Method{
		Name:   "insertOrUpdateCar",
		Params: []Param{{Name: "car", Type: Shape{Name: "Car", Fields: []string{"GUID", "brand"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "match(field(guid), eq(select(param(0), field(guid))))", c.Query.String())
}

func TestCompileUpsertGUIDPaths(t *testing.T) {
	c, err := Compile(Method{
		Name:      "insertOrUpdatePlate",
		Params:    []Param{{Name: "p", Type: GoType(reflect.TypeFor[plate]())}},
		GUIDPaths: []string{"number"},
	})
	require.NoError(t, err)
	assert.Equal(t, "match(field(number), eq(select(param(0), field(number))))", c.Query.String())

	c, err = Compile(Method{
		Name:      "insertOrUpdateCar",
		Params:    []Param{{Name: "car"}},
		GUIDPaths: []string{"brand", "engine.type"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"and(match(field(brand), eq(select(param(0), field(brand)))), "+
			"match(field(engine.type), eq(select(param(0), field(engine.type)))))",
		c.Query.String())
}

func TestCompileUpsertErrors(t *testing.T) {
	tests := []struct {
		name   string
		method Method
		code   string
	}{
		{
			name:   "no identity",
			method: Method{Name: "insertOrUpdatePlate", Params: []Param{{Name: "p", Type: GoType(reflect.TypeFor[plate]())}}},
			code:   ErrCodeIdentity,
		},
		{
			name:   "unknown type",
			method: Method{Name: "insertOrUpdatePlate", Params: []Param{{Name: "p"}}},
			code:   ErrCodeIdentity,
		},
		{
			name:   "empty identity paths",
			method: Method{Name: "insertOrUpdateCar", Params: []Param{{Name: "car"}}, GUIDPaths: []string{}},
			code:   ErrCodeIdentity,
		},
		{
			name:   "two params",
			method: Method{Name: "insertOrUpdateCar", Params: params("a", "b")},
			code:   ErrCodeParamCount,
		},
		{
			name:   "no params",
			method: Method{Name: "insertOrUpdateCar"},
			code:   ErrCodeParamCount,
		},
		{
			name:   "malformed path",
			method: Method{Name: "insertOrUpdateCar", Params: []Param{{Name: "car"}}, GUIDPaths: []string{"engine..type"}},
			code:   ErrCodeInvalidQuery,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.method)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code)
		})
	}
}

func TestCompileCustomStatic(t *testing.T) {
	red := query.FieldEq("color", query.Static("red"))

	for name, custom := range map[string]any{
		"query":   red,
		"factory": func() query.Match { return red },
		"iface":   func() query.Query { return red },
	} {
		t.Run(name, func(t *testing.T) {
			c, err := Compile(Method{Name: "findAllRedCars", Custom: custom})
			require.NoError(t, err)
			assert.True(t, c.Custom)
			assert.False(t, c.IsDynamic())
			assert.True(t, query.Equal(red, c.Query))

			q, err := c.QueryFor(nil)
			require.NoError(t, err)
			assert.True(t, query.Equal(red, q))
		})
	}
}

func TestCompileCustomBypassesName(t *testing.T) {
	// The name alone would require two parameters.
	c, err := Compile(Method{
		Name:   "findAllCarsByBrandAndColor",
		Params: params("brand"),
		Custom: query.FieldEq("brand", query.Upper(query.Param(0))),
	})
	require.NoError(t, err)
	assert.Equal(t, "match(field(brand), eq(upper(param(0))))", c.Query.String())
}

func TestCompileCustomDynamic(t *testing.T) {
	c, err := Compile(Method{
		Name:   "findAllCarsMatching",
		Params: params("field", "value"),
		Custom: func(args []any) query.Query {
			return query.FieldEq(args[0].(string), query.Param(1))
		},
	})
	require.NoError(t, err)
	assert.True(t, c.IsDynamic())
	assert.Nil(t, c.Query)

	q, err := c.QueryFor([]any{"brand", "Volvo"})
	require.NoError(t, err)
	assert.Equal(t, "match(field(brand), eq(param(1)))", q.String())

	q, err = c.QueryFor([]any{"engine.type", "V8"})
	require.NoError(t, err)
	assert.Equal(t, "match(field(engine.type), eq(param(1)))", q.String())
}

func TestCompileCustomDynamicReflective(t *testing.T) {
	c, err := Compile(Method{
		Name:   "findAllCarsAnyOf",
		Params: params("a", "b"),
		Custom: func(args []any) query.Or {
			return query.AnyOf(query.FieldEq("brand", query.Param(0)), query.FieldEq("brand", query.Param(1)))
		},
	})
	require.NoError(t, err)
	require.True(t, c.IsDynamic())

	q, err := c.QueryFor([]any{"Volvo", "Saab"})
	require.NoError(t, err)
	assert.Equal(t, "or(match(field(brand), eq(param(0))), match(field(brand), eq(param(1))))", q.String())
}

func TestCompileCustomDynamicErrors(t *testing.T) {
	c, err := Compile(Method{
		Name:   "findAllCarsMatching",
		Params: params("field"),
		Custom: func(args []any) query.Query {
			if args[0] == nil {
				return nil
			}
			return query.FieldEq("brand", query.Param(3))
		},
	})
	require.NoError(t, err)

	var ce *CompileError
	_, err = c.QueryFor([]any{nil})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeCustomQuery, ce.Code)

	_, err = c.QueryFor([]any{"x"})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeInvalidQuery, ce.Code)
	assert.Contains(t, ce.Message, "parameter index 3")
}

func TestCompileCustomErrors(t *testing.T) {
	tests := []struct {
		name   string
		custom any
		params []Param
		code   string
	}{
		{"string", "brand = red", nil, ErrCodeCustomQuery},
		{"wrong return", func() string { return "" }, nil, ErrCodeCustomQuery},
		{"wrong args", func(s string) query.Query { return query.True{} }, nil, ErrCodeCustomQuery},
		{"nil factory result", func() query.Query { return nil }, nil, ErrCodeCustomQuery},
		{"param out of range", query.FieldEq("brand", query.Param(1)), params("brand"), ErrCodeInvalidQuery},
		{"empty field", query.MatchOn(query.Field{}, query.True{}), nil, ErrCodeInvalidQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(Method{Name: "findAllCars", Params: tt.params, Custom: tt.custom})
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code)
		})
	}
}
