package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"itemcatalog/internal/archive"
	"itemcatalog/internal/config"
	"itemcatalog/internal/database"
	"itemcatalog/internal/email"
	"itemcatalog/internal/export"
	"itemcatalog/internal/logger"
	"itemcatalog/internal/metrics"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	format string
	output string
	upload bool
	mailTo string
}

func newExportCmd(cfg *config.Config) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog as JSON or YAML",
		Long: `Export writes the catalog document served at /catalog.json and
/catalog.yaml to a file or stdout. It can also archive the document in
object storage and mail it as an attachment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			return runExport(cmd.Context(), cfg, db, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "export format: json or yaml")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "archive the export in object storage")
	cmd.Flags().StringVar(&opts.mailTo, "mail-to", "", "mail the export to this address")
	return cmd
}

func runExport(ctx context.Context, cfg *config.Config, db *sqlx.DB, opts *exportOptions, stdout io.Writer) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	catalog, err := database.GetCatalog(ctx, db)
	if err != nil {
		return err
	}

	document, err := export.Marshal(format, catalog)
	if err != nil {
		return err
	}
	metrics.RecordExport(string(format))
	generatedAt := time.Now()

	if err := writeDocument(opts.output, document, stdout); err != nil {
		return err
	}

	if opts.upload {
		store, err := archive.New(ctx, cfg)
		if err != nil {
			return err
		}
		key, err := store.Upload(ctx, format, generatedAt, document)
		if err != nil {
			return err
		}
		logger.Info("Export archived", "key", key)
		if opts.output != "-" {
			fmt.Fprintln(stdout, "Archived as", key)
		}
	}

	if opts.mailTo != "" {
		mailer := email.NewService(cfg)
		if !mailer.IsEnabled() {
			return fmt.Errorf("cannot mail export: mailgun is not configured")
		}

		stats, err := database.GetStats(ctx, db)
		if err != nil {
			return err
		}

		if err := mailer.SendCatalogExport(ctx, opts.mailTo, email.Snapshot{
			Format:      format,
			Document:    document,
			Stats:       stats,
			GeneratedAt: generatedAt,
		}); err != nil {
			return err
		}
	}

	return nil
}

func writeDocument(output string, document []byte, stdout io.Writer) error {
	if output == "-" {
		_, err := stdout.Write(document)
		return err
	}

	if err := os.WriteFile(output, document, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	logger.Info("Export written", "path", output, "bytes", len(document))
	return nil
}
