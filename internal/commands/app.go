package commands

import (
	"context"
	"fmt"

	"cardfill/internal/amqp"
	"cardfill/internal/backend"
	"cardfill/internal/bot"
	"cardfill/internal/config"
	"cardfill/internal/log"
	"cardfill/internal/report"
	"cardfill/internal/services"
	"cardfill/internal/telegram"
)

// app is the bot wiring shared by serve and poll.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	store     backend.Store
	publisher *amqp.Client
	tg        *telegram.Client
	bot       *bot.Bot
	cleanup   backend.CleanupFunc
}

func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	res, err := backend.Open(ctx, cfg, logger.Logger.With(log.FieldComponent, log.ComponentBackend))
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, store: res.Store, cleanup: res.Cleanup}

	var opts []services.Option
	if cfg.AMQPURL != "" {
		a.publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		opts = append(opts, services.WithPublisher(a.publisher))
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - fill events will not be published")
	}

	svc := services.NewFillService(res.Store, report.Contributors{
		MinorUserID: cfg.MinorUserID,
		MajorUserID: cfg.MajorUserID,
	}, opts...)
	a.tg = telegram.NewClient(cfg.TelegramToken)
	a.bot = bot.New(svc, a.tg, logger)
	return a, nil
}

// Close releases the publisher and the store.
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("AMQP close failed", log.FieldError, err)
		}
	}
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			a.logger.Warn("Store close failed", log.FieldError, err)
		}
	}
}
