package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/byname/internal/compiler"
	"github.com/roach88/byname/internal/ir"
	"github.com/roach88/byname/internal/query"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds every compiled repository.
type CompilationResult struct {
	Repositories []CompiledRepository `json:"repositories"`
}

// CompiledRepository is one repository with its compiled methods.
type CompiledRepository struct {
	Name     string                `json:"name"`
	Entities []compiler.EntitySpec `json:"entities"`
	Methods  []CompiledMethod      `json:"methods"`
	// Fingerprint changes whenever a method is added, removed or compiles
	// to a different query.
	Fingerprint string `json:"fingerprint"`
}

// CompiledMethod is the compiled query of one method. Query holds the
// canonical JSON encoding; Text is the same query in function notation.
type CompiledMethod struct {
	Name        string          `json:"name"`
	Operation   string          `json:"operation"`
	Entity      string          `json:"entity"`
	Params      []string        `json:"params"`
	Custom      bool            `json:"custom,omitempty"`
	Query       json.RawMessage `json:"query"`
	Text        string          `json:"text"`
	Fingerprint string          `json:"fingerprint"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE repository declarations to queries",
		Long: `Compile the entities and repositories declared in CUE files.

Every method name is parsed into a query; the compiled queries are
printed, or written as JSON with --output.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil {
		code, message, _ := errorParts(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(loadResult.Files), specsDir)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result, err := buildCompilationResult(loadResult.Repositories)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	for _, r := range result.Repositories {
		opts.logger().Debug("repository compiled", "repository", r.Name, "methods", len(r.Methods))
	}

	if opts.Output != "" {
		if err := writeCompilationToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func buildCompilationResult(repos []*compiler.RepositorySpec) (*CompilationResult, error) {
	result := &CompilationResult{Repositories: make([]CompiledRepository, 0, len(repos))}
	for _, r := range repos {
		out := CompiledRepository{Name: r.Name, Entities: r.Entities, Methods: make([]CompiledMethod, 0, len(r.Methods))}
		identity := make(ir.Array, 0, len(r.Methods))
		for _, m := range r.Methods {
			q := m.Compiled.Query
			node, err := query.Encode(q)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", r.Name, m.Name, err)
			}
			identity = append(identity, ir.Object{"name": ir.String(m.Name), "query": node})
			encoded, err := query.Marshal(q)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", r.Name, m.Name, err)
			}
			fp, err := query.Fingerprint(q)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", r.Name, m.Name, err)
			}
			params := m.Params
			if params == nil {
				params = []string{}
			}
			out.Methods = append(out.Methods, CompiledMethod{
				Name:        m.Name,
				Operation:   string(m.Compiled.Operation),
				Entity:      m.Entity,
				Params:      params,
				Custom:      m.Compiled.Custom,
				Query:       encoded,
				Text:        q.String(),
				Fingerprint: fp,
			})
		}
		fp, err := ir.Fingerprint(ir.DomainRepository, ir.Object{"name": ir.String(r.Name), "methods": identity})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Name, err)
		}
		out.Fingerprint = fp
		result.Repositories = append(result.Repositories, out)
	}
	return result, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.json() {
		return formatter.Success(result)
	}

	methods := 0
	for _, r := range result.Repositories {
		methods += len(r.Methods)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d repository(s), %d method(s)\n\n", len(result.Repositories), methods)

	for _, r := range result.Repositories {
		names := make([]string, len(r.Entities))
		for i, e := range r.Entities {
			names[i] = e.Name
		}
		fmt.Fprintf(w, "%s [%s]\n", r.Name, strings.Join(names, ", "))
		for _, m := range r.Methods {
			fmt.Fprintf(w, "  %s -> %s %s: %s\n", m.Name, m.Operation, m.Entity, m.Text)
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled queries to %s\n", outputFile)
	}

	return nil
}

// outputCompileErrors outputs every compilation error.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.json() {
		cliErrors := toCLIErrors(errs)
		if err := formatter.writeJSON(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
	} else {
		formatter.writeErrorList("✗ Compilation failed", errs)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// writeCompilationToFile writes the result as indented JSON.
func writeCompilationToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
