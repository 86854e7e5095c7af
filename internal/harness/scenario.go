package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Backend names a scenario can run on.
const (
	BackendMemory   = "memory"
	BackendDocstore = "docstore"
)

// Backends lists every backend, in the order scenarios run on them.
var Backends = []string{BackendMemory, BackendDocstore}

// Scenario defines a conformance test scenario.
// A scenario calls the methods of a CUE-declared repository and asserts on
// the results, the trace of calls and the final stored records.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists paths to CUE files declaring entities and repositories.
	// Relative paths are resolved against the base path given at load time.
	Specs []string `yaml:"specs"`

	// Repository names the repository to call. It may be omitted when the
	// specs declare exactly one.
	Repository string `yaml:"repository,omitempty"`

	// Backends restricts the backends the scenario runs on.
	// Default: all of Backends.
	Backends []string `yaml:"backends,omitempty"`

	// Setup contains calls made before the flow. They must succeed.
	Setup []CallStep `yaml:"setup,omitempty"`

	// Flow contains the calls under test with their expected outcome.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// CallStep is a single repository call.
type CallStep struct {
	// Call is the method name, e.g. "insertOrUpdateCar".
	Call string `yaml:"call"`

	// Args are the positional arguments.
	Args []any `yaml:"args,omitempty"`
}

// FlowStep is a call whose outcome is checked.
type FlowStep struct {
	Call string `yaml:"call"`
	Args []any  `yaml:"args,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the call must succeed and its result is not checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a call.
type ExpectClause struct {
	// Case is "Success" or "Error".
	Case string `yaml:"case"`

	// Result is matched against the returned value. Objects match as
	// subsets, lists must have the same length, scalars must be equal.
	Result any `yaml:"result,omitempty"`

	// Empty expects no record: a findOne that finds nothing or a findAll
	// returning an empty list.
	Empty bool `yaml:"empty,omitempty"`

	// Count is the expected number of records returned by a findAll.
	Count *int `yaml:"count,omitempty"`

	// Error is the expected error code (FIELD_NOT_FOUND, E203, ...) or a
	// substring of the message. Only used with case Error.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check a call appears in the trace with args
	// - "trace_order": Check calls appear in order
	// - "trace_count": Check a call appears exactly N times
	// - "final_state": Query stored records and verify them
	Type string `yaml:"type"`

	// Call is the method name (used by trace_contains, trace_count).
	Call string `yaml:"call,omitempty"`

	// Args are the expected arguments (used by trace_contains).
	// Object arguments match as subsets.
	Args []any `yaml:"args,omitempty"`

	// Calls is the expected call order (used by trace_order).
	Calls []string `yaml:"calls,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Entity is the entity whose records are queried (used by final_state).
	Entity string `yaml:"entity,omitempty"`

	// Where filters records by field equality (used by final_state).
	// Keys are dotted paths.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect lists the records expected, in storage order (used by
	// final_state). Each entry matches its record as a subset.
	Expect []map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file, resolving spec
// paths relative to the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to basePath.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// RunsOn returns the backends the scenario runs on.
func (s *Scenario) RunsOn() []string {
	if len(s.Backends) == 0 {
		return Backends
	}
	return s.Backends
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	for _, b := range s.Backends {
		if !slices.Contains(Backends, b) {
			return fmt.Errorf("unknown backend %q, expected one of %v", b, Backends)
		}
	}

	for i, step := range s.Setup {
		if step.Call == "" {
			return fmt.Errorf("setup[%d]: call is required", i)
		}
	}

	for i, step := range s.Flow {
		if step.Call == "" {
			return fmt.Errorf("flow[%d]: call is required", i)
		}
		if step.Expect == nil {
			continue
		}
		switch step.Expect.Case {
		case CaseSuccess:
			if step.Expect.Error != "" {
				return fmt.Errorf("flow[%d].expect: error is only allowed with case %s", i, CaseError)
			}
		case CaseError:
			if step.Expect.Result != nil || step.Expect.Count != nil || step.Expect.Empty {
				return fmt.Errorf("flow[%d].expect: result, count and empty are only allowed with case %s", i, CaseSuccess)
			}
		case "":
			return fmt.Errorf("flow[%d].expect: case is required", i)
		default:
			return fmt.Errorf("flow[%d].expect: case must be %s or %s, got %q", i, CaseSuccess, CaseError, step.Expect.Case)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for final_state", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state (use [] for no records)", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
