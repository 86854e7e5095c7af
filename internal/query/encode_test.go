package query

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/byname/internal/ir"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{
			name: "finder",
			q:    FieldEq("brand", Param(0)),
			want: `{"match":{"condition":{"eq":{"param":0}},"selector":{"field":"brand"}}}`,
		},
		{
			name: "identity upsert",
			q:    MatchOn(FieldPath("guid"), Eq(SelectField(Param(0), "guid"))),
			want: `{"match":{"condition":{"eq":{"select":{"field":"guid","from":{"param":0}}}},"selector":{"field":"guid"}}}`,
		},
		{
			name: "constants",
			q:    AnyOf(True{}, False{}),
			want: `{"or":[{"always":true},{"always":false}]}`,
		},
		{
			name: "static literal",
			q:    MatchOn(Upper(FieldPath("color")), Eq(Static("RED"))),
			want: `{"match":{"condition":{"eq":{"static":"RED"}},"selector":{"upper":{"field":"color"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalRejectsPointerNodes(t *testing.T) {
	_, err := Marshal(&Match{Selector: FieldPath("a"), Condition: True{}})
	assert.Error(t, err)
}

func TestFingerprintStructural(t *testing.T) {
	a, err := Fingerprint(AllOf(FieldEq("brand", Param(0)), FieldEq("color", Param(1))))
	require.NoError(t, err)
	b, err := Fingerprint(AllOf(FieldEq("brand", Param(0)), FieldEq("color", Param(1))))
	require.NoError(t, err)
	c, err := Fingerprint(AnyOf(FieldEq("brand", Param(0)), FieldEq("color", Param(1))))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDecodeFromCUE(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`{
		and: [
			{match: {selector: {field: "engine.type"}, condition: {eq: {param: 0}}}},
			{elemMatch: {selector: {field: ["drivers"]}, condition: {match: {selector: {field: "age"}, condition: {eq: {static: 29}}}}}},
			{always: true},
		]
	}`)
	require.NoError(t, v.Err())

	var raw any
	require.NoError(t, v.Decode(&raw))
	node, err := ir.FromGo(raw)
	require.NoError(t, err)

	q, err := Decode(node)
	require.NoError(t, err)

	want := AllOf(
		FieldEq("engine.type", Param(0)),
		ElemMatchOn(FieldPath("drivers"), FieldEq("age", Static(int64(29)))),
		True{},
	)
	assert.True(t, Equal(want, q), "got %s", q)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   ir.Value
	}{
		{"not an object", ir.String("match")},
		{"two keys", ir.Object{"eq": ir.Object{"param": ir.Int(0)}, "and": ir.Array{}}},
		{"unknown node", ir.Object{"regex": ir.String(".*")}},
		{"and not array", ir.Object{"and": ir.Int(1)}},
		{"param not int", ir.Object{"eq": ir.Object{"param": ir.String("0")}}},
		{"missing selector", ir.Object{"match": ir.Object{"condition": ir.Object{"always": ir.Bool(true)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			assert.Error(t, err)
		})
	}
}
