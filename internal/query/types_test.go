package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{
			name: "field equals param",
			q:    FieldEq("brand", Param(0)),
			want: "match(field(brand), eq(param(0)))",
		},
		{
			name: "nested path with select",
			q:    MatchOn(FieldPath("engine.type"), Eq(SelectField(Param(0), "guid"))),
			want: "match(field(engine.type), eq(select(param(0), field(guid))))",
		},
		{
			name: "elem match and upper",
			q:    ElemMatchOn(FieldPath("drivers"), FieldEq("name", Upper(Static("michael")))),
			want: `elemMatch(field(drivers), match(field(name), eq(upper(static("michael")))))`,
		},
		{
			name: "and or constants",
			q:    AllOf(AnyOf(True{}, False{}), FieldEq("power", Static(180))),
			want: "and(or(true, false), match(field(power), eq(static(180))))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.String())
		})
	}
}

func TestFieldPath(t *testing.T) {
	f := FieldPath("engine.type")
	assert.Equal(t, []string{"engine", "type"}, f.Path)
	assert.Equal(t, "engine.type", f.Dotted())
}

func TestEqual(t *testing.T) {
	a := AllOf(AnyOf(FieldEq("Name", Param(0)), FieldEq("Age", Param(1))), FieldEq("City", Param(2)))
	b := AllOf(AnyOf(FieldEq("Name", Param(0)), FieldEq("Age", Param(1))), FieldEq("City", Param(2)))

	assert.True(t, Equal(a, b), "structurally identical queries are equal")
	assert.False(t, Equal(a, AllOf(FieldEq("Name", Param(0)))))
	assert.False(t, Equal(FieldEq("Name", Param(0)), FieldEq("Name", Param(1))))
	assert.False(t, Equal(FieldEq("Name", Static("x")), FieldEq("Name", Static("y"))))
	assert.True(t, Equal(And{}, And{Filters: []Query{}}), "nil and empty filter lists are equal")
	assert.False(t, Equal(And{}, Or{}))
	assert.True(t, Equal(True{}, True{}))
	assert.False(t, Equal(True{}, False{}))
	assert.True(t, Equal(nil, nil))
}
