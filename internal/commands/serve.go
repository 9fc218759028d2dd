package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cardfill/internal/bot"
	"cardfill/internal/cli"
	"cardfill/internal/config"
	apphttp "cardfill/internal/http"
	"cardfill/internal/log"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Telegram webhook and health endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig(func(c *config.Config) error {
				c.TelegramMode = config.ModeWebhook
				return c.Validate()
			})
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cli.SetupLogger(cfg.LogLevel))
		},
	}
}

func newPollCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Receive Telegram updates by long polling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig(func(c *config.Config) error {
				c.TelegramMode = config.ModePoll
				return c.Validate()
			})
			if err != nil {
				return err
			}
			return runPoll(cmd.Context(), cfg, cli.SetupLogger(cfg.LogLevel))
		},
	}
}

// webhookEndpoint joins the public base URL with the webhook route.
func webhookEndpoint(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, apphttp.WebhookPath) {
		return base
	}
	return base + apphttp.WebhookPath
}

func runServe(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := apphttp.Options{
		SecretToken:       cfg.WebhookSecret,
		RequestsPerMinute: cfg.RequestsPerMinute,
		TrustedProxies:    cfg.TrustedProxies,
	}
	if p, ok := a.store.(apphttp.Pinger); ok {
		opts.Ready = p
	}
	srv := apphttp.NewServer(":"+cfg.Port, a.bot, opts, logger)

	ctx, done := cli.GracefulShutdown(ctx, logger, shutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	endpoint := webhookEndpoint(cfg.WebhookURL)
	if err := a.tg.SetWebhook(ctx, endpoint, cfg.WebhookSecret); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	logger.Info("Webhook registered", "url", endpoint)

	logger.Info("Starting cardfill server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return nil
}

func runPoll(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, done := cli.GracefulShutdown(ctx, logger, shutdownTimeout, nil)
	if err := bot.NewPoller(a.tg, a.bot, cfg.PollTimeout, logger).Run(ctx); err != nil {
		return fmt.Errorf("polling stopped: %w", err)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Poller stopped gracefully")
	return nil
}
