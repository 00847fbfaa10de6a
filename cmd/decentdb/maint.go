package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/decentdb/decentdb/backup"
)

// NewCheckpointCommand creates the checkpoint command.
func NewCheckpointCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint",
		Short: "Fold the write-ahead log into the versioned store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Checkpoint(); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ Checkpoint complete")
			return nil
		},
	}
}

type jsonCheckpoint struct {
	ID     string    `json:"id"`
	When   time.Time `json:"when"`
	Author string    `json:"author"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List checkpoints, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer database.Close()

			history, err := database.History(limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				out := make([]jsonCheckpoint, len(history))
				for i, tx := range history {
					out[i] = jsonCheckpoint{ID: tx.Id, When: tx.When, Author: tx.Author}
				}
				return json.NewEncoder(w).Encode(out)
			}
			for _, tx := range history {
				fmt.Fprintf(w, "%s  %s  %s\n", tx.Id, tx.When.Format(time.RFC3339), tx.Author)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of checkpoints, 0 for all")
	return cmd
}

type s3Flags struct {
	accessKey string
	secretKey string
	region    string
	endpoint  string
}

func (f *s3Flags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.accessKey, "s3-access-key", "", "S3 access key (default credential chain when empty)")
	cmd.Flags().StringVar(&f.secretKey, "s3-secret-key", "", "S3 secret key")
	cmd.Flags().StringVar(&f.region, "s3-region", "", "S3 region")
	cmd.Flags().StringVar(&f.endpoint, "s3-endpoint", "", "S3 compatible endpoint, e.g. a MinIO URL")
}

func (f *s3Flags) config() *backup.S3Config {
	if f.accessKey == "" && f.secretKey == "" && f.region == "" && f.endpoint == "" {
		return nil
	}
	return &backup.S3Config{AccessKey: f.accessKey, SecretKey: f.secretKey, Region: f.region, Endpoint: f.endpoint}
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var s3 s3Flags

	cmd := &cobra.Command{
		Use:     "dump <location>",
		Aliases: []string{"backup"},
		Short:   "Write a logical dump to a file or s3:// location",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer database.Close()

			stats, err := backup.DumpTo(ctx, database, args[0], s3.config())
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Dumped %s to %s\n", stats, args[0])
			return nil
		},
	}

	s3.register(cmd)
	return cmd
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	var s3 s3Flags
	var checkpoint bool

	cmd := &cobra.Command{
		Use:   "restore <location>",
		Short: "Replay a dump from a file, http(s):// or s3:// location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer database.Close()

			stats, err := backup.RestoreFrom(ctx, database, args[0], s3.config())
			if err != nil {
				return err
			}
			if checkpoint {
				if err := database.Checkpoint(); err != nil {
					return fmt.Errorf("restored but checkpoint failed: %w", err)
				}
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Restored %s from %s\n", stats, args[0])
			return nil
		},
	}

	s3.register(cmd)
	cmd.Flags().BoolVar(&checkpoint, "checkpoint", true, "checkpoint after a successful restore")
	return cmd
}

// contextOf returns the command context, which is nil when a command runs
// without ExecuteContext.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
