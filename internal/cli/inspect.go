package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/byname/internal/docstore"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	DB string
}

// InspectResult lists the collections of a document store.
type InspectResult struct {
	DB          string                    `json:"db"`
	Collections []docstore.CollectionInfo `json:"collections"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the collections of a document store",
		Long: `List every collection of a SQLite document store with the entity
it holds and its document count.

Example:
  byname inspect --db cars.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "database path (default from config)")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dbPath := opts.DB
	if dbPath == "" {
		dbPath = opts.settings().DB
	}
	// Open would create a missing database.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath))
	}

	st, err := docstore.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
	}
	defer st.Close()

	collections, err := st.Collections(context.Background())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	if collections == nil {
		collections = []docstore.CollectionInfo{}
	}

	result := InspectResult{DB: dbPath, Collections: collections}
	if formatter.json() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s: %d collection(s)\n", dbPath, len(collections))
	for _, c := range collections {
		fmt.Fprintf(w, "  %s (%s): %d document(s)\n", c.Name, c.Entity, c.Documents)
	}
	return nil
}
