package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cardfill/internal/amqp"
	"cardfill/internal/cli"
	"cardfill/internal/config"
	"cardfill/internal/log"
	gsheet "cardfill/internal/sheets/google"
	"cardfill/internal/storage"
	"cardfill/internal/worker"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Export fill events to Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg, cli.SetupLogger(cfg.LogLevel))
		},
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting cardfill worker")

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	defer repo.Close()

	sheets, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		return fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(ctx, logger, shutdownTimeout, nil)
	w := worker.NewExportWorker(repo, repo, repo, sheets)
	if err := w.Run(ctx, amqpClient); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
	return nil
}
