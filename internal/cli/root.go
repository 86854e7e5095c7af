// Package cli implements the byname command line: compiling and
// validating CUE repository declarations, running conformance scenarios,
// calling declared methods and inspecting document stores.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/byname/internal/config"
)

// RootOptions holds global flags for all commands and the configuration
// resolved before each command runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the byname CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "byname",
		Short: "byname - repositories from method names",
		Long: `Compile repository method names such as findAllCarsByBrand into queries
and run them against an in-memory or SQLite document backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./byname.yaml)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewCallCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))

	return cmd
}

// load reads the configuration and installs the logger. Logs go to
// stderr so JSON output stays parseable.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	o.Config = cfg
	o.Logger = cfg.Log.NewLogger(cmd.ErrOrStderr(), o.Verbose)
	slog.SetDefault(o.Logger)
	if cfg.File != "" {
		o.Logger.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// settings returns the loaded configuration, or defaults when a command
// runs without the root command (tests build subcommands directly).
func (o *RootOptions) settings() *config.Config {
	if o.Config == nil {
		o.Config = &config.Config{Backend: config.BackendAll, DB: "byname.db", Log: config.LogConfig{Level: "info", Format: "text"}}
	}
	return o.Config
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
