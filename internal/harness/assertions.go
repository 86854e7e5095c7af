package harness

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/byname/internal/query"
)

// validPath matches dotted field paths accepted in final_state where
// clauses.
var validPath = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventCall {
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Method, event.Args)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains a call of the
// specified method whose arguments match.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	want, err := normalize(assertion.Args)
	if err != nil {
		return fmt.Errorf("trace_contains args: %w", err)
	}
	for _, event := range trace {
		if event.Type != EventCall || event.Method != assertion.Call {
			continue
		}
		if len(assertion.Args) == 0 || matchValue(want, toList(event.Args)) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("call %s with args %v", assertion.Call, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if calls appear in the specified order.
// Calls don't need to be consecutive (intervening calls are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected call, 1-indexed for readability.
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventCall {
			continue
		}
		for _, expected := range assertion.Calls {
			if event.Method == expected && positions[expected] == 0 {
				positions[expected] = i + 1
			}
		}
	}

	for _, call := range assertion.Calls {
		if positions[call] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all calls present: %v", assertion.Calls),
				Actual:   fmt.Sprintf("missing call: %s", call),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Calls); i++ {
		prev := assertion.Calls[i-1]
		curr := assertion.Calls[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("calls in order: %v", assertion.Calls),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the method is called exactly the specified
// number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventCall && event.Method == assertion.Call {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d calls of %s", assertion.Count, assertion.Call),
			Actual:   fmt.Sprintf("%d calls", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState queries the stored records of an entity and checks
// them against the expected records, in storage order.
func assertFinalState(actx *AssertionContext, assertion Assertion) error {
	q, err := buildWhereQuery(assertion.Where)
	if err != nil {
		return err
	}

	records, err := actx.Query(actx.Ctx, assertion.Entity, q)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query %s", assertion.Entity),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	got, err := normalize(records)
	if err != nil {
		return fmt.Errorf("final_state records: %w", err)
	}
	gotList := toList(got)

	whereDesc := formatWhere(assertion.Where)
	if len(gotList) != len(assertion.Expect) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%d %s record(s) where %s", len(assertion.Expect), assertion.Entity, whereDesc),
			Actual:   fmt.Sprintf("%d record(s): %v", len(gotList), gotList),
		}
	}

	for i, expected := range assertion.Expect {
		want, err := normalize(expected)
		if err != nil {
			return fmt.Errorf("final_state expect[%d]: %w", i, err)
		}
		if !matchValue(want, gotList[i]) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("record %d of %s where %s to match %v", i, assertion.Entity, whereDesc, want),
				Actual:   fmt.Sprintf("%v", gotList[i]),
			}
		}
	}

	return nil
}

// buildWhereQuery turns a where clause into a conjunction of field
// equalities. Keys are sorted for determinism.
func buildWhereQuery(where map[string]any) (query.Query, error) {
	if len(where) == 0 {
		return query.True{}, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filters := make([]query.Query, 0, len(keys))
	for _, key := range keys {
		if !validPath.MatchString(key) {
			return nil, fmt.Errorf("invalid field path %q in where clause: must match pattern %s", key, validPath.String())
		}
		v, err := normalize(where[key])
		if err != nil {
			return nil, fmt.Errorf("where %s: %w", key, err)
		}
		filters = append(filters, query.FieldEq(key, query.Static(v)))
	}
	if len(filters) == 1 {
		return filters[0], nil
	}
	return query.AllOf(filters...), nil
}

// formatWhere creates a human-readable description of a where clause.
func formatWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func toList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case nil:
		return []any{}
	default:
		return []any{l}
	}
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx context.Context

	// Query returns the records of entity matching q.
	Query func(ctx context.Context, entity string, q query.Query) ([]any, error)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides record access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Query == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a repository context", i)
			} else {
				err = assertFinalState(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
