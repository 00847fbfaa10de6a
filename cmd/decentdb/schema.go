package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/decentdb/decentdb"
)

// NewSchemaCommand creates the schema command and its subcommands. Output
// is always the JSON snapshot the embedding API returns.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print schema snapshots as JSON",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "tables",
		Short: "List table names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshot(rootOpts, cmd.OutOrStdout(), (*decentdb.DB).ListTablesJSON)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "columns <table>",
		Short: "Describe the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshot(rootOpts, cmd.OutOrStdout(), func(db *decentdb.DB) (*decentdb.Buffer, error) {
				return db.TableColumnsJSON(args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "indexes",
		Short: "List indexes, implicit ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshot(rootOpts, cmd.OutOrStdout(), (*decentdb.DB).ListIndexesJSON)
		},
	})

	return cmd
}

func withSnapshot(opts *RootOptions, w io.Writer, build func(*decentdb.DB) (*decentdb.Buffer, error)) error {
	database, err := openDB(opts)
	if err != nil {
		return err
	}
	defer database.Close()

	buf, err := build(database)
	if err != nil {
		return err
	}
	defer buf.Release()
	data, err := buf.Bytes()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
