package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/byname/internal/fields"
	"github.com/roach88/byname/internal/query"
)

type engineSpec struct {
	Type  string
	Power int
}

type car struct {
	Guid   string
	Brand  string
	Engine *engineSpec
}

var errOdometer = errors.New("odometer broken")

func (c car) GetMileage() (int, error) { return 0, errOdometer }

func TestResolveValue(t *testing.T) {
	volvo := car{Guid: "c1", Brand: "volvo", Engine: &engineSpec{Type: "V8", Power: 300}}
	params := []any{volvo, "saab"}

	tests := []struct {
		name string
		v    query.Value
		want any
	}{
		{"field", query.FieldPath("brand"), "volvo"},
		{"nested", query.FieldPath("engine.type"), "V8"},
		{"static", query.Static(42), 42},
		{"param", query.Param(1), "saab"},
		{"select", query.SelectField(query.Param(0), "guid"), "c1"},
		{"upper", query.Upper(query.FieldPath("brand")), "VOLVO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveValue(tt.v, volvo, params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveValueNilIntermediate(t *testing.T) {
	got, err := ResolveValue(query.FieldPath("engine.type"), car{Guid: "c2"}, nil)
	require.NoError(t, err)
	assert.True(t, fields.IsAbsent(got))
}

func TestResolveValueErrors(t *testing.T) {
	_, err := ResolveValue(query.FieldPath("wheels"), car{}, nil)
	require.Error(t, err)
	assert.True(t, IsFieldNotFound(err))
	assert.ErrorIs(t, err, fields.ErrNotFound)

	_, err = ResolveValue(query.Param(2), car{}, []any{"a"})
	assert.True(t, IsInvalidParameter(err))

	_, err = ResolveValue(query.FieldPath("mileage"), car{}, nil)
	assert.Same(t, errOdometer, err)
}

func TestResolveConstant(t *testing.T) {
	got, err := ResolveConstant(query.Upper(query.Param(0)), []any{"volvo"})
	require.NoError(t, err)
	assert.Equal(t, "VOLVO", got)

	got, err = ResolveConstant(query.SelectField(query.Param(0), "engine.power"),
		[]any{car{Engine: &engineSpec{Power: 150}}})
	require.NoError(t, err)
	assert.Equal(t, 150, got)

	_, err = ResolveConstant(query.FieldPath("brand"), nil)
	assert.True(t, IsUnsupported(err))
}

func TestRuntimeError(t *testing.T) {
	err := NewNotFoundError("Car", query.True{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "NOT_FOUND: no record matches true (entity=Car)", err.Error())

	assert.NotErrorIs(t, NewInvalidParameterError(1, 0), ErrNotFound)

	wrapped := WithEntity(NewUnsupportedError(query.False{}, "no"), "Car")
	var re *RuntimeError
	require.ErrorAs(t, wrapped, &re)
	assert.Equal(t, "Car", re.Entity)
	assert.Equal(t, "false", re.Query)
}
