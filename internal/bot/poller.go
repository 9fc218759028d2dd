package bot

import (
	"context"
	"errors"
	"time"

	"cardfill/internal/log"
	"cardfill/internal/telegram"
)

const (
	pollRetryDelay    = time.Second
	pollMaxRetryDelay = 30 * time.Second
)

// UpdateSource is the long polling side of the Bot API.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	DeleteWebhook(ctx context.Context) error
}

// Poller feeds long-polled updates to the bot one at a time.
type Poller struct {
	src     UpdateSource
	bot     *Bot
	timeout time.Duration
	logger  *log.Logger
}

func NewPoller(src UpdateSource, b *Bot, timeout time.Duration, logger *log.Logger) *Poller {
	return &Poller{
		src:     src,
		bot:     b,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentTelegram),
	}
}

// Run polls until ctx is cancelled. A registered webhook is removed first,
// since Telegram refuses getUpdates while one is set.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.src.DeleteWebhook(ctx); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "Polling started", "timeout", p.timeout)

	var offset int64
	delay := pollRetryDelay
	for {
		updates, err := p.src.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.ErrorContext(ctx, "Polling failed", log.FieldError, err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay = min(delay*2, pollMaxRetryDelay)
			continue
		}
		delay = pollRetryDelay

		for _, u := range updates {
			offset = u.UpdateID + 1
			if err := p.bot.HandleUpdate(ctx, u); err != nil && errors.Is(err, context.Canceled) {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
