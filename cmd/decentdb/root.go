package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/decentdb/decentdb"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Location string
	Options  string
	Verbose  bool
	Format   string // "text" | "json"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the decentdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "decentdb",
		Short: "DecentDB - embedded SQL with a write-ahead log and checkpoint history",
		Long: `DecentDB is an embedded SQL engine. Committed work is appended to a
write-ahead log and folded into a versioned store on checkpoint.

Without a subcommand an interactive shell is started.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			setupLog(opts.Verbose)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Location, "db", "d", decentdb.MemoryLocation, "database directory or :memory:")
	cmd.PersistentFlags().StringVarP(&opts.Options, "options", "o", "", "open options, e.g. sync=normal&cache_pages=512")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewCheckpointCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "decentdb %s\n", Version)
		},
	})

	return cmd
}

// openDB opens the database named by the global flags.
func openDB(opts *RootOptions) (*decentdb.DB, error) {
	db, err := decentdb.Open(opts.Location, opts.Options)
	if err != nil {
		return nil, fmt.Errorf("can't open %q: %w", opts.Location, err)
	}
	return db, nil
}
