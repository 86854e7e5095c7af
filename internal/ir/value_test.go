package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guid string

type engine struct {
	Power int    `json:"power"`
	Type  string `json:"type"`
	Notes string `json:"-"`
}

type car struct {
	GUID   guid    `json:"guid"`
	Brand  string  `json:"brand"`
	Engine *engine `json:"engine"`
	hidden string
}

func TestFromGoStruct(t *testing.T) {
	v, err := FromGo(car{GUID: "g-1", Brand: "audi", Engine: &engine{Power: 330, Type: "gasoline", Notes: "x"}, hidden: "y"})
	require.NoError(t, err)

	assert.Equal(t, Object{
		"guid":  String("g-1"),
		"brand": String("audi"),
		"engine": Object{
			"power": Int(330),
			"type":  String("gasoline"),
		},
	}, v)
}

func TestFromGoScalars(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Value
	}{
		{"nil", nil, Null{}},
		{"named string", guid("abc"), String("abc")},
		{"uint8", uint8(7), Int(7)},
		{"integral float", 180.0, Int(180)},
		{"nil pointer", (*engine)(nil), Null{}},
		{"nil slice", []string(nil), Null{}},
		{"slice", []any{"a", 1, true}, Array{String("a"), Int(1), Bool(true)}},
		{"map", map[string]int{"a": 1}, Object{"a": Int(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGoRejects(t *testing.T) {
	_, err := FromGo(1.5)
	assert.Error(t, err)

	_, err = FromGo(map[int]string{1: "a"})
	assert.Error(t, err)

	_, err = FromGo(make(chan int))
	assert.Error(t, err)
}

func TestToGo(t *testing.T) {
	v := Object{
		"list": Array{Int(1), Null{}},
		"ok":   Bool(true),
		"name": String("n"),
	}
	assert.Equal(t, map[string]any{
		"list": []any{int64(1), nil},
		"ok":   true,
		"name": "n",
	}, ToGo(v))
}
