package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/byname/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update  bool   // regenerate golden files
	Filter  string // scenario filter (glob pattern)
	Backend string // overrides the configured backend
}

// ScenarioResult holds the result of one scenario on one backend.
type ScenarioResult struct {
	Name    string   `json:"name"`
	Backend string   `json:"backend"`
	Pass    bool     `json:"pass"`
	Errors  []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(sr ScenarioResult) {
	r.Scenarios = append(r.Scenarios, sr)
	r.Total++
	if sr.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <specs-dir> <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML scenarios against the repositories declared in the specs.

Every scenario runs on each configured backend. Spec paths in scenarios
are relative to the specs directory. When golden/<name>.golden exists
next to a scenario, every backend's trace must match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  byname test ./specs ./scenarios
  byname test ./specs ./scenarios --filter "garage_*"
  byname test ./specs ./scenarios --backend docstore
  byname test ./specs ./scenarios --update`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "backend to run on: all, memory or docstore (default from config)")

	return cmd
}

func runTests(opts *TestOptions, specsDir, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(specsDir); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("specs directory not found: %s", specsDir))
	}
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	backends, err := opts.backends()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	scenarioFiles, err := harness.FindScenarios(scenariosDir, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScanError, fmt.Sprintf("failed to find scenarios: %v", err))
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, file := range scenarioFiles {
		for _, sr := range runScenario(opts, file, specsDir, backends, formatter) {
			result.add(sr)
		}
	}

	if formatter.json() {
		return outputTestJSON(formatter, result)
	}
	if result.Total == 0 {
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}
	return outputTestText(formatter, result)
}

// backends resolves the --backend flag or the configured backend.
func (opts *TestOptions) backends() ([]string, error) {
	cfg := *opts.settings()
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg.BackendList(harness.Backends), nil
}

// runScenario runs one scenario file on every selected backend it
// supports.
func runScenario(opts *TestOptions, file, specsDir string, backends []string, formatter *OutputFormatter) []ScenarioResult {
	w := formatter.Writer
	text := !formatter.json()

	scenario, err := harness.LoadScenarioWithBasePath(file, specsDir)
	if err != nil {
		name := filepath.Base(file)
		if text {
			fmt.Fprintf(w, "✗ %s\n  Load error: %v\n", name, err)
		}
		return []ScenarioResult{{Name: name, Pass: false, Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)}}}
	}

	goldenPath := harness.GoldenPath(file)
	var golden []byte
	if !opts.Update {
		if data, err := os.ReadFile(goldenPath); err == nil {
			golden = data
		}
	}

	var results []ScenarioResult
	for _, backend := range scenario.RunsOn() {
		if !slices.Contains(backends, backend) {
			continue
		}
		sr := ScenarioResult{Name: scenario.Name, Backend: backend, Pass: true}

		run, err := harness.Run(scenario, backend)
		if err != nil {
			sr.Pass = false
			sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		} else {
			sr.Pass = run.Pass
			sr.Errors = run.Errors
			golden, err = checkGolden(opts.Update, goldenPath, golden, scenario.Name, run)
			if err != nil {
				sr.Pass = false
				sr.Errors = append(sr.Errors, err.Error())
			}
		}
		opts.logger().Debug("scenario finished", "scenario", scenario.Name, "backend", backend, "pass", sr.Pass)

		if text {
			if sr.Pass {
				fmt.Fprintf(w, "✓ %s [%s]\n", sr.Name, backend)
			} else {
				fmt.Fprintf(w, "✗ %s [%s]\n", sr.Name, backend)
				for _, e := range sr.Errors {
					fmt.Fprintf(w, "  %s\n", e)
				}
			}
		}
		results = append(results, sr)
	}
	return results
}

// checkGolden compares the run's trace with golden. With update set, the
// first run writes the golden file and later runs are compared with it.
// It returns the golden content to compare the next backend with.
func checkGolden(update bool, goldenPath string, golden []byte, name string, run *harness.Result) ([]byte, error) {
	trace, err := harness.MarshalTrace(name, run.Trace)
	if err != nil {
		return golden, fmt.Errorf("failed to marshal trace: %w", err)
	}

	if golden == nil {
		if !update {
			return nil, nil
		}
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(goldenPath, trace, 0644); err != nil {
			return nil, fmt.Errorf("failed to write golden file: %w", err)
		}
		return trace, nil
	}

	if !bytes.Equal(golden, trace) {
		return golden, fmt.Errorf("trace does not match golden file %s (run with --update to regenerate)", goldenPath)
	}
	return golden, nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario run(s) failed", result.Failed),
		}
	}

	if err := formatter.writeJSON(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario run(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario run(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
