package harness

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/byname/internal/query"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventCall, Method: "insertOrUpdateCar", Args: []any{map[string]any{"guid": "c1", "brand": "BMW", "seats": int64(4)}}, Seq: 1},
		{Type: EventReturn, Method: "insertOrUpdateCar", Case: CaseSuccess, Seq: 2},
		{Type: EventCall, Method: "findAllCarsByBrand", Args: []any{"BMW"}, Seq: 3},
		{Type: EventReturn, Method: "findAllCarsByBrand", Case: CaseSuccess, Result: []any{}, Seq: 4},
		{Type: EventCall, Method: "removeCarByColor", Args: []any{"red"}, Seq: 5},
		{Type: EventReturn, Method: "removeCarByColor", Case: CaseSuccess, Seq: 6},
		{Type: EventCall, Method: "findAllCarsByBrand", Args: []any{"Audi"}, Seq: 7},
		{Type: EventReturn, Method: "findAllCarsByBrand", Case: CaseSuccess, Result: []any{}, Seq: 8},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name      string
		assertion Assertion
		pass      bool
	}{
		{"method only", Assertion{Call: "removeCarByColor"}, true},
		{"matching args", Assertion{Call: "findAllCarsByBrand", Args: []any{"Audi"}}, true},
		{"object args match as subset", Assertion{Call: "insertOrUpdateCar", Args: []any{map[string]any{"seats": 4}}}, true},
		{"different args", Assertion{Call: "findAllCarsByBrand", Args: []any{"Tesla"}}, false},
		{"missing method", Assertion{Call: "findOneCarByGUID"}, false},
		{"too many args", Assertion{Call: "removeCarByColor", Args: []any{"red", "blue"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion.Type = AssertTraceContains
			err := assertTraceContains(trace, tt.assertion)
			if tt.pass {
				assert.NoError(t, err)
				return
			}
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, AssertTraceContains, ae.Type)
			assert.Equal(t, "not found in trace", ae.Actual)
		})
	}
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	err := assertTraceOrder(trace, Assertion{Type: AssertTraceOrder, Calls: []string{"insertOrUpdateCar", "findAllCarsByBrand", "removeCarByColor"}})
	assert.NoError(t, err)

	err = assertTraceOrder(trace, Assertion{Type: AssertTraceOrder, Calls: []string{"removeCarByColor", "findAllCarsByBrand"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "removeCarByColor (pos 5) should be before findAllCarsByBrand (pos 3)")

	err = assertTraceOrder(trace, Assertion{Type: AssertTraceOrder, Calls: []string{"insertOrUpdateCar", "findOneCarByGUID"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing call: findOneCarByGUID")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Call: "findAllCarsByBrand", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Call: "findOneCarByGUID", Count: 0}))

	err := assertTraceCount(trace, Assertion{Type: AssertTraceCount, Call: "removeCarByColor", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 3 calls of removeCarByColor")
	assert.Contains(t, err.Error(), "Actual: 1 calls")
	assert.Contains(t, err.Error(), "[5] removeCarByColor [red]")
}

// recordingQuery serves fixed records and remembers the last query.
type recordingQuery struct {
	records []any
	err     error
	entity  string
	last    query.Query
}

func (r *recordingQuery) context() *AssertionContext {
	return &AssertionContext{
		Ctx: context.Background(),
		Query: func(_ context.Context, entity string, q query.Query) ([]any, error) {
			r.entity = entity
			r.last = q
			return r.records, r.err
		},
	}
}

func TestAssertFinalState(t *testing.T) {
	rq := &recordingQuery{records: []any{
		map[string]any{"guid": "c1", "brand": "BMW", "seats": 4},
		map[string]any{"guid": "c2", "brand": "BMW", "seats": 2},
	}}

	err := assertFinalState(rq.context(), Assertion{
		Type:   AssertFinalState,
		Entity: "Car",
		Where:  map[string]any{"brand": "BMW", "engine.type": "petrol"},
		Expect: []map[string]any{{"guid": "c1"}, {"seats": 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Car", rq.entity)

	want := query.AllOf(
		query.FieldEq("brand", query.Static("BMW")),
		query.FieldEq("engine.type", query.Static("petrol")),
	)
	assert.True(t, query.Equal(want, rq.last), "got %v", rq.last)
}

func TestAssertFinalState_Where(t *testing.T) {
	rq := &recordingQuery{records: []any{}}

	require.NoError(t, assertFinalState(rq.context(), Assertion{Entity: "Car", Expect: []map[string]any{}}))
	assert.True(t, query.Equal(query.True{}, rq.last))

	require.NoError(t, assertFinalState(rq.context(), Assertion{Entity: "Car", Where: map[string]any{"seats": 4}, Expect: []map[string]any{}}))
	assert.True(t, query.Equal(query.FieldEq("seats", query.Static(int64(4))), rq.last))

	err := assertFinalState(rq.context(), Assertion{Entity: "Car", Where: map[string]any{"brand; DROP": "x"}, Expect: []map[string]any{}})
	assert.ErrorContains(t, err, "invalid field path")
}

func TestAssertFinalState_Failures(t *testing.T) {
	rq := &recordingQuery{records: []any{map[string]any{"guid": "c1", "brand": "BMW"}}}

	err := assertFinalState(rq.context(), Assertion{Type: AssertFinalState, Entity: "Car", Expect: []map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 Car record(s) where (no conditions)")

	err = assertFinalState(rq.context(), Assertion{Type: AssertFinalState, Entity: "Car", Expect: []map[string]any{{"brand": "Audi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 0 of Car")

	rq.err = errors.New("disk on fire")
	err = assertFinalState(rq.context(), Assertion{Type: AssertFinalState, Entity: "Car", Expect: []map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query error: disk on fire")
}

func TestFormatWhere(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatWhere(nil))
	assert.Equal(t, "brand=BMW AND seats=4", formatWhere(map[string]any{"seats": 4, "brand": "BMW"}))
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult(BackendMemory)
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Call: "removeCarByColor"},
		{Type: AssertTraceCount, Call: "removeCarByColor", Count: 2},
		{Type: AssertFinalState, Entity: "Car", Expect: []map[string]any{}},
		{Type: "trace_magic"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "2 calls of removeCarByColor")
	assert.Contains(t, errs[1], "final_state requires a repository context")
	assert.Contains(t, errs[2], `unknown assertion type "trace_magic"`)
}
