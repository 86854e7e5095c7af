package platform

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct{ name string }

func (g *greeter) String() string { return "hello " + g.name }

func TestRegistryLookup(t *testing.T) {
	g := &greeter{name: "car"}
	reg := NewRegistry().
		Provide(g).
		ProvideAs(reflect.TypeFor[fmt.Stringer](), g)

	got, err := Lookup[*greeter](reg)
	require.NoError(t, err)
	assert.Same(t, g, got)

	s, err := Lookup[fmt.Stringer](reg)
	require.NoError(t, err)
	assert.Equal(t, "hello car", s.String())
}

func TestRegistryMissing(t *testing.T) {
	_, err := Lookup[*greeter](NewRegistry())

	var missing *MissingInstanceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, reflect.TypeFor[*greeter](), missing.Type)

	_, err = Lookup[*greeter](nil)
	require.ErrorAs(t, err, &missing)
}

func TestRegistryReplace(t *testing.T) {
	first, second := &greeter{name: "a"}, &greeter{name: "b"}
	reg := NewRegistry().Provide(first).Provide(second)

	got, err := Lookup[*greeter](reg)
	require.NoError(t, err)
	assert.Same(t, second, got)
}
