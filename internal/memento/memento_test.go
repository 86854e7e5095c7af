package memento

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/byname/internal/future"
	"github.com/roach88/byname/internal/platform"
)

type tripSnapshot struct {
	GUID  string
	CarID string
}

type trip struct {
	GUID string
	Car  string
}

func (t trip) Memento() tripSnapshot {
	return tripSnapshot{GUID: t.GUID, CarID: t.Car}
}

func (trip) FromMemento(ctx platform.Context, m tripSnapshot) (trip, error) {
	prefix, err := platform.Lookup[string](ctx)
	if err != nil {
		return trip{}, err
	}
	return trip{GUID: m.GUID, Car: prefix + m.CarID}, nil
}

type ledger struct{ ID string }

func (l *ledger) Memento() string { return l.ID }

type plain struct{}

func newContext() platform.Context {
	return platform.NewRegistry().Provide("car/")
}

func TestSnapshotType(t *testing.T) {
	st, ok := SnapshotType(reflect.TypeFor[trip]())
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[tripSnapshot](), st)

	st, ok = SnapshotType(reflect.TypeFor[ledger]())
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[string](), st)

	_, ok = SnapshotType(reflect.TypeFor[plain]())
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	s, err := Snapshot(trip{GUID: "t1", Car: "c1"})
	require.NoError(t, err)
	assert.Equal(t, tripSnapshot{GUID: "t1", CarID: "c1"}, s)

	s, err = Snapshot(ledger{ID: "l1"})
	require.NoError(t, err)
	assert.Equal(t, "l1", s)

	_, err = Snapshot(plain{})
	assert.Error(t, err)
	_, err = Snapshot(nil)
	assert.Error(t, err)
}

func TestDiscoverFactoryMethod(t *testing.T) {
	a, err := Discover(reflect.TypeFor[trip](), nil)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[tripSnapshot](), a.Snapshot)

	v, err := a.Reconstruct(newContext(), tripSnapshot{GUID: "t1", CarID: "c1"}).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, trip{GUID: "t1", Car: "car/c1"}, v)
}

func TestDiscoverErrorPropagates(t *testing.T) {
	a, err := Discover(reflect.TypeFor[trip](), nil)
	require.NoError(t, err)

	_, err = a.Reconstruct(platform.NewRegistry(), tripSnapshot{}).Await(context.Background())
	var missing *platform.MissingInstanceError
	assert.ErrorAs(t, err, &missing)
}

func TestDiscoverShapes(t *testing.T) {
	ctx := context.Background()
	snap := tripSnapshot{GUID: "t2", CarID: "c2"}
	want := trip{GUID: "t2", Car: "c2"}

	for name, fn := range map[string]any{
		"value": func(_ platform.Context, m tripSnapshot) trip {
			return trip{GUID: m.GUID, Car: m.CarID}
		},
		"value and error": func(_ platform.Context, m tripSnapshot) (trip, error) {
			return trip{GUID: m.GUID, Car: m.CarID}, nil
		},
		"future": func(_ platform.Context, m tripSnapshot) *future.Future[trip] {
			return future.Completed(trip{GUID: m.GUID, Car: m.CarID})
		},
	} {
		t.Run(name, func(t *testing.T) {
			a, err := Discover(reflect.TypeFor[trip](), fn)
			require.NoError(t, err)

			v, err := a.Reconstruct(nil, snap).Await(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, v)
		})
	}
}

func TestDiscoverRejects(t *testing.T) {
	tripType := reflect.TypeFor[trip]()
	tests := []struct {
		name   string
		domain reflect.Type
		fn     any
	}{
		{"no memento", reflect.TypeFor[plain](), nil},
		{"no factory", reflect.TypeFor[ledger](), nil},
		{"not a func", tripType, "trip"},
		{"missing context", tripType, func(m tripSnapshot) trip { return trip{} }},
		{"wrong snapshot", tripType, func(_ platform.Context, m string) trip { return trip{} }},
		{"wrong result", tripType, func(_ platform.Context, m tripSnapshot) string { return "" }},
		{"wrong future", tripType, func(_ platform.Context, m tripSnapshot) *future.Future[string] { return nil }},
		{"three results", tripType, func(_ platform.Context, m tripSnapshot) (trip, bool, error) { return trip{}, false, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Discover(tt.domain, tt.fn)
			assert.Error(t, err)
		})
	}
}

func TestReconstructWrongSnapshot(t *testing.T) {
	a, err := Discover(reflect.TypeFor[trip](), nil)
	require.NoError(t, err)

	_, err = a.Reconstruct(newContext(), "not a snapshot").Await(context.Background())
	assert.ErrorContains(t, err, "is not")
	assert.False(t, errors.Is(err, context.Canceled))
}
