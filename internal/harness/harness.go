package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/roach88/byname/internal/compiler"
	"github.com/roach88/byname/internal/docstore"
	"github.com/roach88/byname/internal/engine"
	"github.com/roach88/byname/internal/ir"
	"github.com/roach88/byname/internal/memory"
	"github.com/roach88/byname/internal/repository"
	"github.com/roach88/byname/internal/testutil"
)

// Harness is the test execution engine for one scenario run.
type Harness[C any] struct {
	repo   *repository.Dynamic[C]
	seq    int64
	logger *slog.Logger
}

// Run executes a test scenario on backend and returns the result.
//
// Execution flow:
// 1. Load and compile the CUE specs, pick the repository
// 2. Create a fresh backend
// 3. Execute setup steps
// 4. Execute flow steps with expect validation
// 5. Evaluate assertions
func Run(scenario *Scenario, backend string) (*Result, error) {
	specs, err := compiler.LoadRepositories(scenario.Specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load specs: %w", err)
	}
	spec, err := selectRepository(specs, scenario.Repository)
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendMemory:
		return run[memory.Predicate](scenario, backend, spec, memory.NewBackend())
	case BackendDocstore:
		dir, err := os.MkdirTemp("", "byname-harness-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		defer os.RemoveAll(dir)

		st, err := docstore.Open(filepath.Join(dir, "harness.db"))
		if err != nil {
			return nil, fmt.Errorf("failed to create store: %w", err)
		}
		defer st.Close()

		b := docstore.NewBackend(st, docstore.WithIDGenerator(testutil.NewSequentialIDs("doc")))
		return run[docstore.Filter](scenario, backend, spec, b)
	default:
		return nil, fmt.Errorf("unknown backend %q, expected one of %v", backend, Backends)
	}
}

// RunAll executes scenario on each of its backends.
func RunAll(scenario *Scenario) ([]*Result, error) {
	var results []*Result
	for _, backend := range scenario.RunsOn() {
		r, err := Run(scenario, backend)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", backend, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func selectRepository(specs []*compiler.RepositorySpec, name string) (*compiler.RepositorySpec, error) {
	if name == "" {
		if len(specs) != 1 {
			return nil, fmt.Errorf("specs declare %d repositories, name one with repository:", len(specs))
		}
		return specs[0], nil
	}
	for _, s := range specs {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("specs declare no repository %q", name)
}

func run[C any](scenario *Scenario, backendName string, spec *compiler.RepositorySpec, backend engine.Backend[C]) (*Result, error) {
	repo, err := repository.NewDynamic(backend, spec)
	if err != nil {
		return nil, err
	}
	h := &Harness[C]{
		repo:   repo,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	result := NewResult(backendName)

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{Ctx: ctx, Query: repo.Query}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness[C]) next() int64 {
	h.seq++
	return h.seq
}

// call invokes method and traces the call and its return. callErr is the
// method's own error; err reports arguments or results that cannot be
// normalized.
func (h *Harness[C]) call(ctx context.Context, method string, rawArgs []any, result *Result) (out any, callErr, err error) {
	args := make([]any, len(rawArgs))
	for i, a := range rawArgs {
		if args[i], err = normalize(a); err != nil {
			return nil, nil, fmt.Errorf("argument %d: %w", i, err)
		}
	}
	result.AddCallTrace(method, args, h.next())

	raw, callErr := h.repo.Call(ctx, method, args...)
	if callErr == nil {
		if out, err = normalize(raw); err != nil {
			return nil, nil, fmt.Errorf("result of %s: %w", method, err)
		}
	}
	result.AddReturnTrace(method, out, errorCode(callErr), h.next())
	return out, callErr, nil
}

// executeSetup runs all setup steps. Setup calls must succeed.
func (h *Harness[C]) executeSetup(ctx context.Context, setup []CallStep, result *Result) error {
	for i, step := range setup {
		_, callErr, err := h.call(ctx, step.Call, step.Args, result)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if callErr != nil {
			return fmt.Errorf("setup step %d: %s failed: %w", i, step.Call, callErr)
		}
		h.logger.Info("setup step completed", "step", i, "call", step.Call)
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
func (h *Harness[C]) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		out, callErr, err := h.call(ctx, step.Call, step.Args, result)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		if err := checkExpect(step, out, callErr); err != nil {
			result.AddError(fmt.Sprintf("flow[%d] %s: %v", i, step.Call, err))
		}
		h.logger.Info("flow step completed",
			"step", i,
			"call", step.Call,
			"error", errorCode(callErr),
		)
	}
	return nil
}

func checkExpect(step FlowStep, out any, callErr error) error {
	exp := step.Expect
	if exp == nil {
		if callErr != nil {
			return fmt.Errorf("unexpected error: %v", callErr)
		}
		return nil
	}

	if exp.Case == CaseError {
		if callErr == nil {
			return fmt.Errorf("expected an error, got %v", out)
		}
		if exp.Error != "" && !errorMatches(callErr, exp.Error) {
			return fmt.Errorf("expected error %q, got %v", exp.Error, callErr)
		}
		return nil
	}

	if callErr != nil {
		return fmt.Errorf("expected success, got error: %v", callErr)
	}
	if exp.Empty {
		if items, ok := out.([]any); out != nil && (!ok || len(items) > 0) {
			return fmt.Errorf("expected no record, got %v", out)
		}
	}
	if exp.Count != nil {
		items, ok := out.([]any)
		if !ok {
			return fmt.Errorf("count needs a list result, got %T", out)
		}
		if len(items) != *exp.Count {
			return fmt.Errorf("expected %d record(s), got %d", *exp.Count, len(items))
		}
	}
	if exp.Result != nil {
		want, err := normalize(exp.Result)
		if err != nil {
			return fmt.Errorf("expected result: %w", err)
		}
		if !matchValue(want, out) {
			return fmt.Errorf("expected result %v, got %v", want, out)
		}
	}
	return nil
}

// normalize converts v to plain values: int64 for integers, []any and
// map[string]any for composites. Floats are rejected.
func normalize(v any) (any, error) {
	iv, err := ir.FromGo(v)
	if err != nil {
		return nil, err
	}
	return ir.ToGo(iv), nil
}

// matchValue reports whether got matches want: objects as subsets, lists
// element-wise with equal length, scalars by equality.
func matchValue(want, got any) bool {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return false
		}
		for k, wv := range w {
			gv, exists := g[k]
			if !exists || !matchValue(wv, gv) {
				return false
			}
		}
		return true
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !matchValue(w[i], g[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(want, got)
	}
}

// errorCode returns the code of a runtime or compile error, "ERROR" for
// other errors and "" for nil.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "ERROR"
}

func errorMatches(err error, want string) bool {
	return errorCode(err) == want || strings.Contains(err.Error(), want)
}
