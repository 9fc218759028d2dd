package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"cardfill/internal/archive"
	"cardfill/internal/backend"
	"cardfill/internal/cli"
	"cardfill/internal/config"
	"cardfill/internal/log"
	"cardfill/internal/report"
	"cardfill/internal/services"
)

type reportOptions struct {
	chatID  int64
	year    int
	archive bool
}

func newReportCommand() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a yearly summary as JSON, optionally archiving it to Blob Storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig(func(c *config.Config) error {
				if opts.archive && c.ArchiveBlobURL == "" {
					return fmt.Errorf("ARCHIVE_BLOB_URL is required for --archive")
				}
				return c.ValidateStorage()
			})
			if err != nil {
				return err
			}
			return runReport(cmd.Context(), cmd.OutOrStdout(), cfg, cli.SetupLogger(cfg.LogLevel), opts)
		},
	}

	cmd.Flags().Int64Var(&opts.chatID, "chat", 0, "chat id of the scope (required)")
	_ = cmd.MarkFlagRequired("chat")
	cmd.Flags().IntVar(&opts.year, "year", 0, "report year (default current year)")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "upload the report to ARCHIVE_CONTAINER")

	return cmd
}

func runReport(ctx context.Context, out io.Writer, cfg *config.Config, logger *log.Logger, opts reportOptions) error {
	res, err := backend.Open(ctx, cfg, logger.Logger.With(log.FieldComponent, log.ComponentBackend))
	if err != nil {
		return err
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	svc := services.NewFillService(res.Store, report.Contributors{
		MinorUserID: cfg.MinorUserID,
		MajorUserID: cfg.MajorUserID,
	})
	scope, err := svc.ResolveScope(ctx, opts.chatID)
	if err != nil {
		return fmt.Errorf("chat %d: %w", opts.chatID, err)
	}
	year := opts.year
	if year == 0 {
		year = svc.CurrentYear()
	}
	summary, err := svc.YearlyReport(ctx, year, scope)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(archive.NewDocument(scope, year, summary, time.Now())); err != nil {
		return err
	}

	if !opts.archive {
		return nil
	}
	client, err := archive.NewBlobClient(cfg.ArchiveBlobURL)
	if err != nil {
		return err
	}
	name, err := archive.New(client, cfg.ArchiveContainer).ArchiveYearly(ctx, scope, year, summary)
	if err != nil {
		return err
	}
	logger.WithComponent(log.ComponentArchive).Info("Yearly report archived",
		"container", cfg.ArchiveContainer, "blob_name", name)
	return nil
}
