package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/byname/internal/docstore"
	"github.com/roach88/byname/internal/ir"
	"github.com/roach88/byname/internal/repository"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Args       string // JSON array of arguments
	DB         string // overrides the configured database
	Repository string
}

// CallResult is the outcome of one method call.
type CallResult struct {
	Repository string `json:"repository"`
	Method     string `json:"method"`
	Result     any    `json:"result"`
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <specs-dir> <method>",
		Short: "Call a declared repository method on a document store",
		Long: `Call one method of a CUE-declared repository against a SQLite
document store. The database is created if it does not exist.

Examples:
  byname call ./specs insertOrUpdateCar --args '[{"guid":"c1","brand":"BMW"}]'
  byname call ./specs findAllCarsByBrand --args '["BMW"]' --db cars.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "[]", "method arguments as a JSON array")
	cmd.Flags().StringVar(&opts.DB, "db", "", "database path (default from config)")
	cmd.Flags().StringVar(&opts.Repository, "repository", "", "repository name, required when the specs declare several")

	return cmd
}

func runCall(opts *CallOptions, specsDir, method string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	args, err := parseCallArgs(opts.Args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message, _ := errorParts(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message)
	}
	spec, err := findRepository(loadResult.Repositories, opts.Repository)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	dbPath := opts.DB
	if dbPath == "" {
		dbPath = opts.settings().DB
	}
	st, err := docstore.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
	}
	defer st.Close()

	repo, err := repository.NewDynamic(docstore.NewBackend(st), spec)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	opts.logger().Debug("calling method", "repository", spec.Name, "method", method, "db", dbPath)
	out, err := repo.Call(context.Background(), method, args...)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeCallFailed, err.Error())
	}

	result := CallResult{Repository: spec.Name, Method: method, Result: out}
	if formatter.json() {
		return formatter.Success(result)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error())
	}
	fmt.Fprintf(formatter.Writer, "✓ %s.%s\n%s\n", spec.Name, method, data)
	return nil
}

// parseCallArgs decodes a JSON array into plain values. Integral numbers
// become int64; other numbers are rejected.
func parseCallArgs(raw string) ([]any, error) {
	var decoded []any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("invalid --args JSON, expected an array: %w", err)
	}
	args := make([]any, len(decoded))
	for i, a := range decoded {
		v, err := ir.FromGo(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = ir.ToGo(v)
	}
	return args, nil
}
