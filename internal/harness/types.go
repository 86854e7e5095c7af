package harness

// Trace event types.
const (
	EventCall   = "call"
	EventReturn = "return"
)

// Outcome cases of a call.
const (
	CaseSuccess = "Success"
	CaseError   = "Error"
)

// TraceEvent is one repository call or its return.
type TraceEvent struct {
	Type   string `json:"type"` // "call" or "return"
	Method string `json:"method,omitempty"`
	Args   []any  `json:"args,omitempty"`
	Case   string `json:"case,omitempty"`
	Result any    `json:"result,omitempty"`
	// Error is the error code of a failed call, e.g. FIELD_NOT_FOUND.
	Error string `json:"error,omitempty"`
	Seq   int64  `json:"seq"`
}

// Result is the outcome of running a scenario on one backend.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Backend is the backend the scenario ran on.
	Backend string `json:"backend"`

	// Trace contains every call and return in order. Values are
	// normalized (integers are int64), so memory and docstore runs of the
	// same scenario produce identical traces.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(backend string) *Result {
	return &Result{
		Pass:    true,
		Backend: backend,
		Trace:   []TraceEvent{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCallTrace adds a call to the trace.
func (r *Result) AddCallTrace(method string, args []any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventCall,
		Method: method,
		Args:   args,
		Seq:    seq,
	})
}

// AddReturnTrace adds the return of a call to the trace. errCode is empty
// for successful calls.
func (r *Result) AddReturnTrace(method string, result any, errCode string, seq int64) {
	ev := TraceEvent{
		Type:   EventReturn,
		Method: method,
		Case:   CaseSuccess,
		Result: result,
		Seq:    seq,
	}
	if errCode != "" {
		ev.Case = CaseError
		ev.Error = errCode
		ev.Result = nil
	}
	r.Trace = append(r.Trace, ev)
}
