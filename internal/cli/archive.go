package cli

import (
	"context"
	"fmt"
	"io"

	"itemcatalog/internal/archive"
	"itemcatalog/internal/config"
	"itemcatalog/internal/logger"

	"github.com/spf13/cobra"
)

// snapshotStore is the part of archive.Store the archive commands use.
type snapshotStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

func newArchiveCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage exports archived with export --upload",
	}

	var output string
	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Download an archived export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := archive.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return runArchiveGet(cmd.Context(), store, args[0], output, cmd.OutOrStdout())
		},
	}
	get.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")

	rm := &cobra.Command{
		Use:   "rm KEY",
		Short: "Delete an archived export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := archive.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return runArchiveRemove(cmd.Context(), store, args[0], cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(get, rm)
	return cmd
}

func runArchiveGet(ctx context.Context, store snapshotStore, key, output string, stdout io.Writer) error {
	document, err := store.Download(ctx, key)
	if err != nil {
		return err
	}
	return writeDocument(output, document, stdout)
}

func runArchiveRemove(ctx context.Context, store snapshotStore, key string, stdout io.Writer) error {
	if err := store.Remove(ctx, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	logger.Info("Archived export removed", "key", key)
	fmt.Fprintln(stdout, "Removed", key)
	return nil
}
